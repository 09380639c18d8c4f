package cliutil

import (
	"fmt"

	"github.com/lnashier/viper"
	"github.com/spf13/cobra"

	"github.com/dc3/cubebuilder/build"
)

// Cfg holds the CLI's configuration and command tree: a *viper.Viper plus
// the cobra commands that read from it. There is one Cfg per process;
// runBuild takes it explicitly rather than reading a
// package-level global.
type Cfg struct {
	*viper.Viper

	Root, BuildCmd, ValidateCmd *cobra.Command

	scratchDirFlag string
}

// InitializeConfig builds the cobra command tree: `dc3build build` runs a
// full build, `dc3build validate` runs request validation and staging setup
// without writing output (the dry-run knob SPEC_FULL.md's Supplemented
// Features section adds, mirroring the original's resource_monitoring.py/
// create_gif.py workflow of checking a request before committing to it).
func InitializeConfig() *Cfg {
	cfg := &Cfg{Viper: viper.New()}
	cfg.SetEnvPrefix("DC3BUILD")
	cfg.AutomaticEnv()

	cfg.Root = &cobra.Command{
		Use:   "dc3build",
		Short: "Assembles satellite raster datacubes.",
		Long: `dc3build stages raster granules, mosaics them onto a common grid, and
writes a chunked datacube store plus its metadata and (optionally) a
pivot distribution archive.

Configuration can be provided via a configuration file (--config), by
setting environment variables in the format 'DC3BUILD_var', or by
expanding environment variables within string configuration values
(for example a ROI or output_root containing $HOME).`,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return setConfig(cfg)
		},
	}
	cfg.Root.PersistentFlags().String("config", "", "path to a configuration file")
	cfg.Root.PersistentFlags().StringVar(&cfg.scratchDirFlag, "scratch-dir", "", "override the configured scratch directory")
	cfg.BindPFlag("config", cfg.Root.PersistentFlags().Lookup("config"))

	cfg.BuildCmd = &cobra.Command{
		Use:   "build",
		Short: "Run a full datacube build.",
		Long:  "build stages every raster group, mosaics and stacks the cube, and writes the store, metadata, and (if requested) a pivot archive.",
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, cfg, false)
		},
	}

	cfg.ValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Validate a build request without staging or writing output.",
		Long:  "validate parses the configured request and checks invariants, reporting errors the same way build would, but does not touch storage.",
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, cfg, true)
		},
	}

	cfg.Root.AddCommand(cfg.BuildCmd, cfg.ValidateCmd)
	return cfg
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig(cfg *Cfg) error {
	if cfgpath := cfg.GetString("config"); cfgpath != "" {
		cfg.SetConfigFile(cfgpath)
		if err := cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("dc3build: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// runBuild parses the configured request and, unless dryRun, executes it
// against a build.Controller constructed from the same configuration.
func runBuild(cmd *cobra.Command, cfg *Cfg, dryRun bool) error {
	req, err := BuildRequest(cfg.Viper)
	if err != nil {
		return err
	}

	scratchDir := cfg.scratchDirFlag
	if scratchDir == "" {
		scratchDir = cfg.GetString("scratch_root")
	}
	scratchDir, err = CheckScratchDir(scratchDir)
	if err != nil {
		return err
	}

	if dryRun {
		cmd.Printf("request for cube %q is valid: %d group(s), %d band(s)\n", req.CubeID, len(req.Groups), len(req.Bands))
		return nil
	}

	outputRoot, err := CheckOutputRoot(cfg.GetString("output_root"))
	if err != nil {
		return err
	}

	controller, err := build.NewController(build.Config{
		StorageRoot:     cfg.GetString("storage_root"),
		ScratchRoot:     scratchDir,
		OutputRoot:      outputRoot,
		OutputBucketURL: cfg.GetString("output_bucket_url"),
		CacheDiskPath:   cfg.GetString("cache_disk_path"),
		CacheMemSize:    cfg.GetInt("cache_mem_size"),
	})
	if err != nil {
		return err
	}

	result, err := controller.Build(cmd.Context(), req)
	if err != nil {
		return err
	}
	cmd.Printf("wrote cube %q to %s\n", req.CubeID, result.CubePath)
	return nil
}
