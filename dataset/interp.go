package dataset

import (
	"math"

	"github.com/dc3/cubebuilder/ndarray"
)

// InterpolateNearest resamples d onto the target coordinate grid (targetX,
// targetY) using nearest-neighbor lookup, per ("interpolate
// the granule onto that sub-grid with nearest neighbor"). Coordinates are
// assumed ascending.
func InterpolateNearest(d *Dataset, targetX, targetY []float64) *Dataset {
	xi := nearestIndices(d.X, targetX)
	yi := nearestIndices(d.Y, targetY)

	out := &Dataset{
		X:     append([]float64{}, targetX...),
		Y:     append([]float64{}, targetY...),
		Vars:  make(map[string]*ndarray.Array, len(d.Vars)),
		Attrs: d.Attrs,
	}
	for name, src := range d.Vars {
		dst := ndarray.NewArray(len(targetY), len(targetX))
		for ty, sy := range yi {
			for tx, sx := range xi {
				dst.Set(src.Get(sy, sx), ty, tx)
			}
		}
		out.Vars[name] = dst
	}
	return out
}

// nearestIndices maps each value in targets to the index of its nearest
// neighbor in src (which must be sorted ascending and non-empty).
func nearestIndices(src, targets []float64) []int {
	out := make([]int, len(targets))
	for i, t := range targets {
		out[i] = nearestIndex(src, t)
	}
	return out
}

func nearestIndex(src []float64, v float64) int {
	lo, hi := 0, len(src)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if src[mid] < v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo > 0 && math.Abs(src[lo-1]-v) <= math.Abs(src[lo]-v) {
		return lo - 1
	}
	return lo
}
