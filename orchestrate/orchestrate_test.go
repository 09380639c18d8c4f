package orchestrate

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dc3/cubebuilder/chunk"
	"github.com/dc3/cubebuilder/dataset"
	"github.com/dc3/cubebuilder/geo"
	"github.com/dc3/cubebuilder/model"
	"github.com/dc3/cubebuilder/ndarray"
	"github.com/dc3/cubebuilder/store"
)

func writeTestGranule(t *testing.T, dir string, x, y []float64, fill float64, timestamp int64) string {
	t.Helper()
	d := dataset.New(x, y)
	d.Vars["red"] = ndarray.Filled(fill, len(y), len(x))
	d.Attrs["product_timestamp"] = float64(timestamp)
	cube := dataset.Stack([]*dataset.Dataset{d}, []int64{timestamp})
	plan := chunk.Plan3D(chunk.Spinach, 1, len(y), len(x))
	require.NoError(t, store.WriteCube(dir, cube, plan, cube.Attrs))
	return dir
}

func TestStageGroupsRunsConcurrentlyAndPreservesOrder(t *testing.T) {
	groups := []model.RasterGroup{
		{Timestamp: 100, Files: []model.RasterFile{{URI: "a"}, {URI: "b"}}},
		{Timestamp: 200, Files: []model.RasterFile{{URI: "c"}}},
	}
	staged, err := StageGroups(context.Background(), groups, func(ctx context.Context, g model.RasterGroup, f model.RasterFile) (string, error) {
		return fmt.Sprintf("/scratch/%s", f.URI), nil
	})
	require.NoError(t, err)
	require.Len(t, staged, 3)
	assert.Equal(t, "a", staged[0].File.URI)
	assert.Equal(t, int64(100), staged[0].Timestamp)
	assert.Equal(t, "/scratch/c", staged[2].StorePath)
}

func TestStageGroupsPropagatesFirstError(t *testing.T) {
	groups := []model.RasterGroup{{Timestamp: 1, Files: []model.RasterFile{{URI: "bad"}}}}
	_, err := StageGroups(context.Background(), groups, func(ctx context.Context, g model.RasterGroup, f model.RasterFile) (string, error) {
		return "", assert.AnError
	})
	assert.Error(t, err)
}

func TestGroupByTimestamp(t *testing.T) {
	staged := []StagedFile{{Timestamp: 1}, {Timestamp: 2}, {Timestamp: 1}}
	grouped := GroupByTimestamp(staged)
	assert.Len(t, grouped[1], 2)
	assert.Len(t, grouped[2], 1)
}

func TestElectCenterGranulePicksClosestToROICentroid(t *testing.T) {
	dir := t.TempDir()
	near := writeTestGranule(t, filepath.Join(dir, "near"), []float64{0, 1, 2}, []float64{0, 1, 2}, 1, 10)
	far := writeTestGranule(t, filepath.Join(dir, "far"), []float64{100, 101, 102}, []float64{100, 101, 102}, 2, 10)

	roi := geom.Polygon{{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}, {X: 0, Y: 0}}}
	files := []StagedFile{
		{File: model.RasterFile{URI: "far"}, StorePath: far},
		{File: model.RasterFile{URI: "near"}, StorePath: near},
	}
	center, err := ElectCenterGranule(roi, files)
	require.NoError(t, err)
	assert.Equal(t, "near", center.File.URI)
}

func TestDeriveMasterGridCoversROI(t *testing.T) {
	dir := t.TempDir()
	storePath := writeTestGranule(t, filepath.Join(dir, "center"), []float64{0, 1, 2}, []float64{0, 1, 2}, 1, 10)
	center := StagedFile{StorePath: storePath}

	grid, err := DeriveMasterGrid(center, geo.Bounds{XMin: -2, YMin: -2, XMax: 4, YMax: 4})
	require.NoError(t, err)
	assert.Equal(t, 1.0, grid.DX)
	assert.Equal(t, 1.0, grid.DY)
	assert.Equal(t, 6, len(grid.X))
	assert.Contains(t, grid.X, 0.0)
	assert.Contains(t, grid.X, 2.0)
}

func TestMosaicTimestampReducesTwoGranules(t *testing.T) {
	dir := t.TempDir()
	left := writeTestGranule(t, filepath.Join(dir, "left"), []float64{0, 1, 2}, []float64{0, 1}, 1, 10)
	right := writeTestGranule(t, filepath.Join(dir, "right"), []float64{2, 3, 4}, []float64{0, 1}, 2, 10)

	master := MasterGrid{X: []float64{0, 1, 2, 3, 4}, Y: []float64{0, 1}, DX: 1, DY: 1}
	files := []StagedFile{
		{File: model.RasterFile{URI: "left"}, StorePath: left},
		{File: model.RasterFile{URI: "right"}, StorePath: right},
	}
	merged, err := MosaicTimestamp(master, files)
	require.NoError(t, err)
	require.NotNil(t, merged.Vars["red"])
	assert.True(t, len(merged.X) >= 2)
}

func TestBuildCubeStacksInTimestampOrder(t *testing.T) {
	a := dataset.New([]float64{0, 1}, []float64{0, 1})
	a.Vars["red"] = ndarray.Filled(1, 2, 2)
	b := dataset.New([]float64{0, 1}, []float64{0, 1})
	b.Vars["red"] = ndarray.Filled(2, 2, 2)

	cube := BuildCube([]int64{1, 2}, map[int64]*dataset.Dataset{1: a, 2: b})
	assert.Equal(t, []int64{1, 2}, cube.T)
	assert.Equal(t, 1.0, cube.Get("red", 0, 0, 0))
	assert.Equal(t, 2.0, cube.Get("red", 0, 0, 1))
}

// TestBuildCubeUnionsDifferingGridsAcrossTimestamps guards against the
// naive index-stacking bug: MosaicTimestamp restricts the master grid to
// each timestamp's own granule bounds, so two timestamps can legitimately
// produce datasets over different x/y extents. BuildCube must union them
// rather than assume timestamp 0's grid applies everywhere.
func TestBuildCubeUnionsDifferingGridsAcrossTimestamps(t *testing.T) {
	small := dataset.New([]float64{0, 1}, []float64{0, 1})
	small.Vars["red"] = ndarray.Filled(1, 2, 2)
	large := dataset.New([]float64{0, 1, 2}, []float64{0, 1, 2})
	large.Vars["red"] = ndarray.Filled(2, 3, 3)

	cube := BuildCube([]int64{1, 2}, map[int64]*dataset.Dataset{1: small, 2: large})
	assert.Equal(t, []float64{0, 1, 2}, cube.X)
	assert.Equal(t, []float64{0, 1, 2}, cube.Y)
	assert.Equal(t, 1.0, cube.Get("red", 0, 0, 0))
	assert.True(t, math.IsNaN(cube.Get("red", 2, 2, 0)))
	assert.Equal(t, 2.0, cube.Get("red", 2, 2, 1))
}
