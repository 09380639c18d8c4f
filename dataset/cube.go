package dataset

import (
	"math"
	"sort"

	"github.com/dc3/cubebuilder/ndarray"
)

// Cube is the final (x, y, t) product of temporal concatenation: one
// per-timestamp Dataset per t slice, unioned onto a common x/y grid.
// Consumed by C6/C7/C8.
type Cube struct {
	X, Y, T []float64
	Vars    map[string]*ndarray.Array // each shaped (len(X), len(Y), len(T)), C order
	Attrs   map[string]interface{}
}

// Stack concatenates per-timestamp mosaics along a new trailing t axis,
// producing a Cube. slices and timestamps must be the same length and
// timestamps must already be sorted ascending.
//
// MosaicTimestamp restricts and completes the master grid to each
// timestamp's own granule bounds, so slices need not share an identical x/y
// grid: two timestamps with different spatial coverage yield datasets over
// different x/y arrays. Stack therefore unions the x/y coordinates across
// every slice the same way CombineByCoords unions them pairwise for the x/y
// case, NaN-filling any (x, y, t) cell a given timestamp's slice doesn't
// cover, mirroring xr.combine_by_coords(..., combine_attrs="override").
func Stack(slices []*Dataset, timestamps []int64) *Cube {
	if len(slices) == 0 {
		return &Cube{Vars: map[string]*ndarray.Array{}, Attrs: map[string]interface{}{}}
	}
	unionX, unionY := slices[0].X, slices[0].Y
	for _, s := range slices[1:] {
		unionX = unionSorted(unionX, s.X)
		unionY = unionSorted(unionY, s.Y)
	}
	nx, ny, nt := len(unionX), len(unionY), len(slices)

	names := map[string]struct{}{}
	for _, s := range slices {
		for n := range s.Vars {
			names[n] = struct{}{}
		}
	}

	c := &Cube{X: unionX, Y: unionY, T: timestamps, Vars: map[string]*ndarray.Array{}, Attrs: slices[0].Attrs}
	for name := range names {
		arr := ndarray.Filled(math.NaN(), nx, ny, nt)
		for ti, s := range slices {
			overlayTimestamp(arr, unionX, unionY, ti, s, name)
		}
		c.Vars[name] = arr
	}
	return c
}

// overlayTimestamp writes slice d's variable name into dst's ti-th time
// slot, mapping d's own (x, y) coordinates onto dst's unioned grid. Cells d
// doesn't cover at ti are left NaN-filled.
func overlayTimestamp(dst *ndarray.Array, unionX, unionY []float64, ti int, d *Dataset, name string) {
	src, ok := d.Vars[name]
	if !ok {
		return
	}
	for yi, y := range d.Y {
		dy, ok := indexOfFloat(unionY, y)
		if !ok {
			continue
		}
		for xi, x := range d.X {
			dx, ok := indexOfFloat(unionX, x)
			if !ok {
				continue
			}
			v := src.Get(yi, xi)
			if !math.IsNaN(v) {
				dst.Set(v, dx, dy, ti)
			}
		}
	}
}

// Get returns variable name's value at (xi, yi, ti).
func (c *Cube) Get(name string, xi, yi, ti int) float64 {
	return c.Vars[name].Get(xi, yi, ti)
}

// Dims returns the cube's (x, y, t) dimension sizes.
func (c *Cube) Dims() (nx, ny, nt int) {
	return len(c.X), len(c.Y), len(c.T)
}

// VarNames returns the cube's variable names, sorted.
func (c *Cube) VarNames() []string {
	names := make([]string, 0, len(c.Vars))
	for n := range c.Vars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
