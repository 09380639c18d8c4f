// Package ndarray implements a dense N-dimensional float64 array backing
// granule and cube variables. It builds on github.com/ctessum/sparse's
// DenseArray for storage and index arithmetic (row-major, Shape/Elements,
// Index1d/Get/Set), and adds the rectangular-grid operations the datacube
// pipeline needs on top: transposition and axis flips, element-wise
// operations, and NaN-aware reductions and clipping (sparse's
// own Max/Sum/Scale are not NaN-aware, since InMAP's grid never carries
// missing data the way a raster mosaic does).
package ndarray

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"
)

// Array is a dense float64 array with an arbitrary number of dimensions,
// stored row-major (last dimension varies fastest). It wraps
// sparse.DenseArray for element storage and index conversion.
type Array struct {
	*sparse.DenseArray
}

// NewArray allocates a zeroed Array with the given shape.
func NewArray(shape ...int) *Array {
	return &Array{DenseArray: sparse.ZerosDense(shape...)}
}

// Filled allocates an Array with every element set to v.
func Filled(v float64, shape ...int) *Array {
	a := NewArray(shape...)
	for i := range a.Elements {
		a.Elements[i] = v
	}
	return a
}

// Copy returns a deep copy of a.
func (a *Array) Copy() *Array {
	return &Array{DenseArray: a.DenseArray.Copy()}
}

// Len returns the total number of elements.
func (a *Array) Len() int { return len(a.Elements) }

// Transpose2D returns the transpose of a 2-D array (swaps the two axes).
func (a *Array) Transpose2D() *Array {
	if len(a.Shape) != 2 {
		panic("ndarray: Transpose2D requires a 2-D array")
	}
	ny, nx := a.Shape[0], a.Shape[1]
	out := NewArray(nx, ny)
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			out.Set(a.Get(y, x), x, y)
		}
	}
	return out
}

// FlipAxis0 reverses the order of the first axis of a 2-D array. Used to
// turn a top-to-bottom-decoded raster row order into ascending-y order.
func (a *Array) FlipAxis0() *Array {
	if len(a.Shape) != 2 {
		panic("ndarray: FlipAxis0 requires a 2-D array")
	}
	ny, nx := a.Shape[0], a.Shape[1]
	out := NewArray(ny, nx)
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			out.Set(a.Get(ny-1-y, x), y, x)
		}
	}
	return out
}

// Min returns the minimum finite (non-NaN) value, and whether any such
// value was found.
func (a *Array) Min() (float64, bool) {
	min := math.Inf(1)
	found := false
	for _, v := range a.Elements {
		if math.IsNaN(v) {
			continue
		}
		found = true
		if v < min {
			min = v
		}
	}
	return min, found
}

// Max returns the maximum finite (non-NaN) value, and whether any such
// value was found.
func (a *Array) Max() (float64, bool) {
	max := math.Inf(-1)
	found := false
	for _, v := range a.Elements {
		if math.IsNaN(v) {
			continue
		}
		found = true
		if v > max {
			max = v
		}
	}
	return max, found
}

// Clip clamps every element to [min, max] in place, leaving NaNs untouched.
func (a *Array) Clip(min, max float64) {
	for i, v := range a.Elements {
		if math.IsNaN(v) {
			continue
		}
		if v < min {
			a.Elements[i] = min
		} else if v > max {
			a.Elements[i] = max
		}
	}
}

// NaNCount returns the number of NaN elements.
func (a *Array) NaNCount() int {
	n := 0
	for _, v := range a.Elements {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

// ReplaceNegativeWithNaN replaces every negative value with NaN, mirroring
// the Sentinel-2 no-data convention.
func (a *Array) ReplaceNegativeWithNaN() {
	for i, v := range a.Elements {
		if v < 0 {
			a.Elements[i] = math.NaN()
		}
	}
}

// BinaryOp applies op element-wise to a and b, which must have identical
// shapes, and returns the result.
func BinaryOp(a, b *Array, op func(x, y float64) float64) (*Array, error) {
	if len(a.Shape) != len(b.Shape) {
		return nil, fmt.Errorf("ndarray: shape mismatch: %v vs %v", a.Shape, b.Shape)
	}
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] {
			return nil, fmt.Errorf("ndarray: shape mismatch: %v vs %v", a.Shape, b.Shape)
		}
	}
	out := NewArray(a.Shape...)
	for i := range out.Elements {
		out.Elements[i] = op(a.Elements[i], b.Elements[i])
	}
	return out, nil
}

// UnaryOp applies op element-wise to a and returns the result.
func UnaryOp(a *Array, op func(x float64) float64) *Array {
	out := NewArray(a.Shape...)
	for i, v := range a.Elements {
		out.Elements[i] = op(v)
	}
	return out
}

// CombineFirst returns an array equal to a, except that elements which are
// NaN in a are replaced with the corresponding element of b. This mirrors
// xarray's Dataset.combine_first, used by the SAME-overlap resolution in
// the dataset mosaic algebra.
func CombineFirst(a, b *Array) (*Array, error) {
	out, err := BinaryOp(a, b, func(x, y float64) float64 {
		if math.IsNaN(x) {
			return y
		}
		return x
	})
	return out, err
}
