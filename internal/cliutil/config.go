// Package cliutil wires a viper-backed configuration file and environment
// variables into a model.BuildRequest. There is no global configuration
// singleton: every exported function takes the *viper.Viper it reads from.
package cliutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lnashier/viper"
	"github.com/spf13/cast"

	"github.com/dc3/cubebuilder/model"
)

// BuildRequest unmarshals cfg into a model.BuildRequest, expanding
// environment variables in every string field, then runs req.Validate().
func BuildRequest(cfg *viper.Viper) (*model.BuildRequest, error) {
	req := &model.BuildRequest{
		CubeID:           os.ExpandEnv(cfg.GetString("cube_id")),
		ROI:              os.ExpandEnv(cfg.GetString("roi")),
		TargetResolution: cfg.GetFloat64("target_resolution"),
		TargetCRS:        os.ExpandEnv(cfg.GetString("target_crs")),
		ChunkStrategy:    model.ChunkStrategy(os.ExpandEnv(cfg.GetString("chunk_strategy"))),
		Description:      os.ExpandEnv(cfg.GetString("description")),
		Pivot:            cfg.GetBool("pivot"),
	}

	aliases, err := unmarshalAliases(cfg.Get("aliases"))
	if err != nil {
		return nil, fmt.Errorf("cliutil: parsing config variable aliases: %v", err)
	}
	req.Aliases = aliases

	groups, err := unmarshalGroups(cfg.Get("groups"))
	if err != nil {
		return nil, fmt.Errorf("cliutil: parsing config variable groups: %v", err)
	}
	req.Groups = groups

	bands, err := unmarshalBands(cfg.Get("bands"))
	if err != nil {
		return nil, fmt.Errorf("cliutil: parsing config variable bands: %v", err)
	}
	req.Bands = bands

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

func unmarshalAliases(raw interface{}) ([]model.AliasedProductType, error) {
	items, err := cast.ToSliceE(raw)
	if err != nil {
		if raw == nil {
			return nil, nil
		}
		return nil, err
	}
	out := make([]model.AliasedProductType, 0, len(items))
	for _, item := range items {
		m, err := cast.ToStringMapStringE(item)
		if err != nil {
			return nil, err
		}
		out = append(out, model.AliasedProductType{
			Alias: os.ExpandEnv(m["alias"]),
			ProductType: model.ProductType{
				Source: os.ExpandEnv(m["source"]),
				Format: os.ExpandEnv(m["format"]),
			},
		})
	}
	return out, nil
}

func unmarshalGroups(raw interface{}) ([]model.RasterGroup, error) {
	items, err := cast.ToSliceE(raw)
	if err != nil {
		if raw == nil {
			return nil, nil
		}
		return nil, err
	}
	out := make([]model.RasterGroup, 0, len(items))
	for _, item := range items {
		m, err := cast.ToStringMapE(item)
		if err != nil {
			return nil, err
		}
		timestamp, err := cast.ToInt64E(m["timestamp"])
		if err != nil {
			return nil, fmt.Errorf("group timestamp: %v", err)
		}
		filesRaw, err := cast.ToSliceE(m["files"])
		if err != nil {
			return nil, fmt.Errorf("group files: %v", err)
		}
		files := make([]model.RasterFile, 0, len(filesRaw))
		for _, fr := range filesRaw {
			fm, err := cast.ToStringMapStringE(fr)
			if err != nil {
				return nil, err
			}
			files = append(files, model.RasterFile{
				ProductType: model.ProductType{
					Source: os.ExpandEnv(fm["source"]),
					Format: os.ExpandEnv(fm["format"]),
				},
				URI: os.ExpandEnv(fm["uri"]),
				ID:  os.ExpandEnv(fm["id"]),
			})
		}
		out = append(out, model.RasterGroup{Timestamp: timestamp, Files: files})
	}
	return out, nil
}

func unmarshalBands(raw interface{}) ([]model.BandDescriptor, error) {
	items, err := cast.ToSliceE(raw)
	if err != nil {
		if raw == nil {
			return nil, nil
		}
		return nil, err
	}
	out := make([]model.BandDescriptor, 0, len(items))
	for _, item := range items {
		m, err := cast.ToStringMapE(item)
		if err != nil {
			return nil, err
		}
		b := model.BandDescriptor{
			Name:        os.ExpandEnv(cast.ToString(m["name"])),
			Expression:  os.ExpandEnv(cast.ToString(m["expression"])),
			RGB:         model.RGBChannel(os.ExpandEnv(cast.ToString(m["rgb"]))),
			Colormap:    os.ExpandEnv(cast.ToString(m["colormap"])),
			Description: os.ExpandEnv(cast.ToString(m["description"])),
			Unit:        os.ExpandEnv(cast.ToString(m["unit"])),
		}
		_, hasMin := m["min"]
		_, hasMax := m["max"]
		if hasMin && hasMax {
			b.HasClip = true
			b.Min = cast.ToFloat64(m["min"])
			b.Max = cast.ToFloat64(m["max"])
		}
		out = append(out, b)
	}
	return out, nil
}

// CheckScratchDir fills in a default scratch root if one isn't configured
// and makes sure it exists.
func CheckScratchDir(dir string) (string, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "dc3build-scratch")
	}
	dir = os.ExpandEnv(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cliutil: scratch directory %q does not exist and could not be created: %v", dir, err)
	}
	return dir, nil
}

// CheckOutputRoot makes sure the configured output root exists, expanding
// any environment variables, mirroring checkOutputFile's directory check.
func CheckOutputRoot(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("cliutil: output_root configuration variable must be set")
	}
	dir = os.ExpandEnv(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cliutil: output directory %q does not exist and could not be created: %v", dir, err)
	}
	return dir, nil
}
