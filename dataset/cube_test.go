package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dc3/cubebuilder/ndarray"
)

func TestStackSameGridConcatenatesAlongT(t *testing.T) {
	a := New([]float64{0, 1}, []float64{0, 1})
	a.Vars["red"] = ndarray.Filled(1, 2, 2)
	b := New([]float64{0, 1}, []float64{0, 1})
	b.Vars["red"] = ndarray.Filled(2, 2, 2)

	cube := Stack([]*Dataset{a, b}, []int64{10, 20})
	nx, ny, nt := cube.Dims()
	assert.Equal(t, 2, nx)
	assert.Equal(t, 2, ny)
	assert.Equal(t, 2, nt)
	assert.Equal(t, 1.0, cube.Get("red", 0, 0, 0))
	assert.Equal(t, 2.0, cube.Get("red", 0, 0, 1))
}

// TestStackUnionsDifferingGrids checks that two timestamps with different
// x/y extents (as MosaicTimestamp produces when a granule's own bounds
// restrict the master grid) are unioned rather than indexed as if they
// shared slice 0's grid.
func TestStackUnionsDifferingGrids(t *testing.T) {
	small := New([]float64{0, 1}, []float64{0, 1})
	small.Vars["red"] = ndarray.Filled(1, 2, 2)
	large := New([]float64{0, 1, 2}, []float64{0, 1, 2})
	large.Vars["red"] = ndarray.Filled(2, 3, 3)

	cube := Stack([]*Dataset{small, large}, []int64{10, 20})
	assert.Equal(t, []float64{0, 1, 2}, cube.X)
	assert.Equal(t, []float64{0, 1, 2}, cube.Y)
	assert.Equal(t, 1.0, cube.Get("red", 0, 0, 0))
	assert.True(t, math.IsNaN(cube.Get("red", 2, 2, 0)))
	assert.Equal(t, 2.0, cube.Get("red", 2, 2, 1))
}
