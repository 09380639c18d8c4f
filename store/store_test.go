package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dc3/cubebuilder/chunk"
	"github.com/dc3/cubebuilder/dataset"
	"github.com/dc3/cubebuilder/ndarray"
)

func testCube() *dataset.Cube {
	arr := ndarray.NewArray(2, 2, 1)
	for xi := 0; xi < 2; xi++ {
		for yi := 0; yi < 2; yi++ {
			arr.Set(float64(xi*10+yi), xi, yi, 0)
		}
	}
	return &dataset.Cube{
		X: []float64{0, 1}, Y: []float64{0, 1}, T: []int64{1_000_000},
		Vars:  map[string]*ndarray.Array{"red": arr},
		Attrs: map[string]interface{}{"dc3:fill_ratio": 1.0},
	}
}

func TestWriteArray1DRoundTrip(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteArray1D(dir, "x", []float64{0, 1, 2, 3})
	require.NoError(t, err)

	got, err := ReadArray1D(dir, "x")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3}, got)
}

func TestWriteCubeProducesMetadataAndChunkFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cube")
	cube := testCube()
	plan := chunk.Plan3D(chunk.Spinach, 1, 2, 2)

	require.NoError(t, WriteCube(dir, cube, plan, cube.Attrs))

	meta, err := ReadMeta(dir)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, meta.Variables["red"].Shape)
	assert.Contains(t, meta.Coordinates, "x")
	assert.Contains(t, meta.Coordinates, "t")
	assert.Equal(t, 1.0, meta.Attrs["dc3:fill_ratio"])
}

func TestReadMetaMissingMetadataErrors(t *testing.T) {
	_, err := ReadMeta(t.TempDir())
	assert.Error(t, err)
}
