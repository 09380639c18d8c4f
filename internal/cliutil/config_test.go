package cliutil

import (
	"os"
	"testing"

	"github.com/lnashier/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.Set("cube_id", "cube1")
	v.Set("target_resolution", 10.0)
	v.Set("target_crs", "EPSG:4326")
	v.Set("chunk_strategy", "SPINACH")
	v.Set("roi", "0,0,4,4")
	v.Set("aliases", []interface{}{
		map[string]interface{}{"alias": "S2", "source": "Sentinel2", "format": "L2A-SAFE"},
	})
	v.Set("groups", []interface{}{
		map[string]interface{}{
			"timestamp": int64(1000),
			"files": []interface{}{
				map[string]interface{}{"source": "Sentinel2", "format": "L2A-SAFE", "uri": "granule.zip", "id": "g1"},
			},
		},
	})
	v.Set("bands", []interface{}{
		map[string]interface{}{"name": "red", "expression": "S2.B04"},
	})
	return v
}

func TestBuildRequestUnmarshalsAndValidates(t *testing.T) {
	req, err := BuildRequest(testViper(t))
	require.NoError(t, err)

	assert.Equal(t, "cube1", req.CubeID)
	require.Len(t, req.Groups, 1)
	require.Len(t, req.Groups[0].Files, 1)
	assert.Equal(t, "granule.zip", req.Groups[0].Files[0].URI)
	require.Len(t, req.Bands, 1)
	assert.Equal(t, "S2.B04", req.Bands[0].Expression)
}

func TestBuildRequestExpandsEnvVars(t *testing.T) {
	os.Setenv("DC3BUILD_TEST_CUBE_ID", "envcube")
	defer os.Unsetenv("DC3BUILD_TEST_CUBE_ID")

	v := testViper(t)
	v.Set("cube_id", "$DC3BUILD_TEST_CUBE_ID")

	req, err := BuildRequest(v)
	require.NoError(t, err)
	assert.Equal(t, "envcube", req.CubeID)
}

func TestBuildRequestRejectsInvalidRequest(t *testing.T) {
	v := testViper(t)
	v.Set("cube_id", "")

	_, err := BuildRequest(v)
	assert.Error(t, err)
}

func TestCheckScratchDirCreatesDefault(t *testing.T) {
	dir, err := CheckScratchDir("")
	require.NoError(t, err)
	assert.DirExists(t, dir)
}

func TestCheckOutputRootRequiresValue(t *testing.T) {
	_, err := CheckOutputRoot("")
	assert.Error(t, err)
}

func TestCheckOutputRootCreatesDirectory(t *testing.T) {
	base := t.TempDir()
	out := base + "/nested/output"
	dir, err := CheckOutputRoot(out)
	require.NoError(t, err)
	assert.DirExists(t, dir)
}
