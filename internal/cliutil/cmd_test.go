package cliutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigTOML = `
cube_id = "cube1"
roi = "0,0,4,4"
target_resolution = 10.0
target_crs = "EPSG:4326"
chunk_strategy = "SPINACH"

[[aliases]]
alias = "S2"
source = "Sentinel2"
format = "L2A-SAFE"

[[groups]]
timestamp = 1000

[[groups.files]]
source = "Sentinel2"
format = "L2A-SAFE"
uri = "granule.zip"
id = "g1"

[[bands]]
name = "red"
expression = "S2.B04"
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dc3build.toml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigTOML), 0o644))
	return path
}

func TestInitializeConfigWiresValidateSubcommand(t *testing.T) {
	cfg := InitializeConfig()
	path := writeTestConfig(t)

	out := &bytes.Buffer{}
	cfg.Root.SetOut(out)
	cfg.Root.SetArgs([]string{"validate", "--config", path})

	require.NoError(t, cfg.Root.Execute())
	assert.Contains(t, out.String(), "cube1")
}

func TestInitializeConfigRejectsMissingConfig(t *testing.T) {
	cfg := InitializeConfig()
	cfg.Root.SetArgs([]string{"validate", "--config", "/nonexistent/dc3build.toml"})
	cfg.Root.SetOut(&bytes.Buffer{})

	assert.Error(t, cfg.Root.Execute())
}

func TestRootCommandHasBuildAndValidateSubcommands(t *testing.T) {
	cfg := InitializeConfig()
	names := map[string]bool{}
	for _, c := range cfg.Root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["build"])
	assert.True(t, names["validate"])
}
