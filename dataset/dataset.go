// Package dataset implements the Dataset Algebra (C4): an in-memory
// (x, y) gridded dataset with named variables, bounds/intersection
// classification, schema-aware merge, and the recursive overlap-resolving
// mosaic algorithm.
package dataset

import (
	"math"
	"sort"

	"github.com/dc3/cubebuilder/ndarray"
)

// Dataset is a single-timestamp (x, y) grid: ascending coordinate arrays
// plus a set of named 2-D variables, each shaped (len(Y), len(X)), and a
// free-form attribute bag. The "product_timestamp" attribute (float64, unix
// seconds) drives SAME-overlap resolution in Mosaic.
type Dataset struct {
	X, Y  []float64
	Vars  map[string]*ndarray.Array
	Attrs map[string]interface{}
}

// New creates an empty Dataset over the given coordinates.
func New(x, y []float64) *Dataset {
	return &Dataset{X: x, Y: y, Vars: map[string]*ndarray.Array{}, Attrs: map[string]interface{}{}}
}

// Bounds is the (xmin, ymin, xmax, ymax) bounding box of a Dataset's
// coordinates. Coordinates are assumed ascending, so bounds are just the
// first/last elements.
type Bounds struct {
	XMin, YMin, XMax, YMax float64
}

// BoundsOf computes bounds(D) = (min(x), min(y), max(x), max(y)).
func BoundsOf(d *Dataset) Bounds {
	return Bounds{
		XMin: d.X[0], XMax: d.X[len(d.X)-1],
		YMin: d.Y[0], YMax: d.Y[len(d.Y)-1],
	}
}

// ProductTimestamp reads the "product_timestamp" attribute as a float64,
// returning 0 if absent or of the wrong type.
func (d *Dataset) ProductTimestamp() float64 {
	v, ok := d.Attrs["product_timestamp"]
	if !ok {
		return 0
	}
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	return f
}

// VarNames returns the sorted variable names of d.
func (d *Dataset) VarNames() []string {
	names := make([]string, 0, len(d.Vars))
	for name := range d.Vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// clone makes a shallow structural copy of d (new coordinate slices and
// Vars map, but Attrs map is shared until overridden).
func (d *Dataset) clone() *Dataset {
	out := &Dataset{
		X:     append([]float64{}, d.X...),
		Y:     append([]float64{}, d.Y...),
		Vars:  make(map[string]*ndarray.Array, len(d.Vars)),
		Attrs: d.Attrs,
	}
	for name, arr := range d.Vars {
		out.Vars[name] = arr
	}
	return out
}

func indexOfFloat(xs []float64, v float64) (int, bool) {
	i := sort.SearchFloat64s(xs, v)
	if i < len(xs) && xs[i] == v {
		return i, true
	}
	return 0, false
}

func unionSorted(a, b []float64) []float64 {
	seen := make(map[float64]struct{}, len(a)+len(b))
	out := make([]float64, 0, len(a)+len(b))
	for _, v := range a {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	for _, v := range b {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

// selectColumns returns a copy of arr (shape ny,nx) keeping only the columns
// at the given indices, in order.
func selectColumns(arr *ndarray.Array, cols []int) *ndarray.Array {
	ny := arr.Shape[0]
	out := ndarray.NewArray(ny, len(cols))
	for y := 0; y < ny; y++ {
		for j, x := range cols {
			out.Set(arr.Get(y, x), y, j)
		}
	}
	return out
}

// selectRows returns a copy of arr (shape ny,nx) keeping only the rows at
// the given indices, in order.
func selectRows(arr *ndarray.Array, rows []int) *ndarray.Array {
	nx := arr.Shape[1]
	out := ndarray.NewArray(len(rows), nx)
	for i, y := range rows {
		for x := 0; x < nx; x++ {
			out.Set(arr.Get(y, x), i, x)
		}
	}
	return out
}

// filterX keeps only the X coordinates (and matching array columns) for
// which keep returns true, mirroring xarray's `ds.where(cond, drop=True)`
// along the x dimension.
func filterX(d *Dataset, keep func(x float64) bool) *Dataset {
	var idx []int
	var newX []float64
	for i, x := range d.X {
		if keep(x) {
			idx = append(idx, i)
			newX = append(newX, x)
		}
	}
	out := &Dataset{X: newX, Y: append([]float64{}, d.Y...), Vars: map[string]*ndarray.Array{}, Attrs: d.Attrs}
	for name, arr := range d.Vars {
		out.Vars[name] = selectColumns(arr, idx)
	}
	return out
}

// filterY is filterX's counterpart along the y dimension.
func filterY(d *Dataset, keep func(y float64) bool) *Dataset {
	var idx []int
	var newY []float64
	for i, y := range d.Y {
		if keep(y) {
			idx = append(idx, i)
			newY = append(newY, y)
		}
	}
	out := &Dataset{X: append([]float64{}, d.X...), Y: newY, Vars: map[string]*ndarray.Array{}, Attrs: d.Attrs}
	for name, arr := range d.Vars {
		out.Vars[name] = selectRows(arr, idx)
	}
	return out
}

// concatX concatenates datasets along the x axis, in the order given,
// skipping any with zero columns. Each dataset must share the same Y
// coordinates and variable set.
func concatX(parts ...*Dataset) *Dataset {
	parts = dropEmptyX(parts)
	if len(parts) == 0 {
		return nil
	}
	if len(parts) == 1 {
		return parts[0]
	}
	out := &Dataset{Y: append([]float64{}, parts[0].Y...), Vars: map[string]*ndarray.Array{}, Attrs: parts[0].Attrs}
	for _, p := range parts {
		out.X = append(out.X, p.X...)
	}
	ny := len(out.Y)
	for name := range parts[0].Vars {
		nx := len(out.X)
		arr := ndarray.NewArray(ny, nx)
		col := 0
		for _, p := range parts {
			src := p.Vars[name]
			pw := src.Shape[1]
			for y := 0; y < ny; y++ {
				for x := 0; x < pw; x++ {
					arr.Set(src.Get(y, x), y, col+x)
				}
			}
			col += pw
		}
		out.Vars[name] = arr
	}
	return out
}

// concatY is concatX's counterpart along the y axis.
func concatY(parts ...*Dataset) *Dataset {
	parts = dropEmptyY(parts)
	if len(parts) == 0 {
		return nil
	}
	if len(parts) == 1 {
		return parts[0]
	}
	out := &Dataset{X: append([]float64{}, parts[0].X...), Vars: map[string]*ndarray.Array{}, Attrs: parts[0].Attrs}
	for _, p := range parts {
		out.Y = append(out.Y, p.Y...)
	}
	nx := len(out.X)
	for name := range parts[0].Vars {
		ny := len(out.Y)
		arr := ndarray.NewArray(ny, nx)
		row := 0
		for _, p := range parts {
			src := p.Vars[name]
			ph := src.Shape[0]
			for y := 0; y < ph; y++ {
				for x := 0; x < nx; x++ {
					arr.Set(src.Get(y, x), row+y, x)
				}
			}
			row += ph
		}
		out.Vars[name] = arr
	}
	return out
}

func dropEmptyX(parts []*Dataset) []*Dataset {
	out := parts[:0:0]
	for _, p := range parts {
		if p != nil && len(p.X) > 0 {
			out = append(out, p)
		}
	}
	return out
}

func dropEmptyY(parts []*Dataset) []*Dataset {
	out := parts[:0:0]
	for _, p := range parts {
		if p != nil && len(p.Y) > 0 {
			out = append(out, p)
		}
	}
	return out
}

// CombineByCoords unions the coordinate grids of a and b and overlays their
// variables onto it, NaN-filled where a dataset has no data. Mirrors
// xarray.combine_by_coords for the disjoint-bounds case in Mosaic, and the
// no-common-variables case in Merge.
func CombineByCoords(a, b *Dataset, attrsOverride map[string]interface{}) *Dataset {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	unionX := unionSorted(a.X, b.X)
	unionY := unionSorted(a.Y, b.Y)
	attrs := attrsOverride
	if attrs == nil {
		attrs = a.Attrs
	}
	out := &Dataset{X: unionX, Y: unionY, Vars: map[string]*ndarray.Array{}, Attrs: attrs}

	names := map[string]struct{}{}
	for n := range a.Vars {
		names[n] = struct{}{}
	}
	for n := range b.Vars {
		names[n] = struct{}{}
	}
	for name := range names {
		arr := ndarray.Filled(math.NaN(), len(unionY), len(unionX))
		overlay(arr, unionX, unionY, a, name)
		overlay(arr, unionX, unionY, b, name)
		out.Vars[name] = arr
	}
	return out
}

func overlay(dst *ndarray.Array, unionX, unionY []float64, d *Dataset, name string) {
	if d == nil {
		return
	}
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
				dst.Set(v, dy, dx)
			}
		}
	}
}
