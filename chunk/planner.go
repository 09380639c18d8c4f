// Package chunk implements the Chunk Planner (C2): turning a named strategy
// and a cube's dimension sizes into a concrete per-axis chunk shape.
package chunk

import "github.com/dc3/cubebuilder/errs"

// Template is a named chunk-shape template, expressed as a target element
// count along each of the (time, y, x) axes. Larger templates favor fewer,
// bigger chunks (good for sequential bulk reads); smaller templates favor
// many small chunks (good for sparse point reads).
type Template struct {
	Name    string
	T, Y, X int
}

// The three built-in templates. POTATO chunks are moderate along every
// axis (32 timestamps over 256x256 cells); CARROT is deepest in time and
// tightest in space (long time series per chunk); SPINACH is the opposite
// (one timestamp per chunk, large spatial extent).
var (
	Potato  = Template{Name: "POTATO", T: 32, Y: 256, X: 256}
	Carrot  = Template{Name: "CARROT", T: 1024, Y: 32, X: 32}
	Spinach = Template{Name: "SPINACH", T: 1, Y: 1024, X: 1024}
)

var byName = map[string]Template{
	Potato.Name:  Potato,
	Carrot.Name:  Carrot,
	Spinach.Name: Spinach,
}

// Lookup returns the named template, or a BadRequest error if the strategy
// name is not one of POTATO, CARROT, SPINACH.
func Lookup(strategy string) (Template, error) {
	t, ok := byName[strategy]
	if !ok {
		return Template{}, errs.BadRequestf("chunk_strategy", "unknown chunking strategy %q, want one of POTATO, CARROT, SPINACH", strategy)
	}
	return t, nil
}

// Plan is the resolved per-axis chunk shape for a cube of a given size.
type Plan struct {
	T, Y, X int
}

// Plan3D derives a chunk shape for a cube with the given dimension sizes
// (dimT, dimY, dimX), starting from template t: for POTATO and CARROT,
// while the cube's time extent is at most a quarter of the chunk's current
// time extent, double the spatial axes and quarter
// the time axis — this keeps the approximate chunk byte size constant as
// the usable time depth shrinks. Finally every axis is clamped down to the
// cube's corresponding dimension, since a chunk can never exceed the array
// it divides.
func Plan3D(t Template, dimT, dimY, dimX int) Plan {
	chunkT, chunkY, chunkX := t.T, t.Y, t.X
	if t.Name == Potato.Name || t.Name == Carrot.Name {
		for chunkT > 1 && dimT*4 <= chunkT {
			chunkY *= 2
			chunkX *= 2
			chunkT /= 4
		}
	}
	return Plan{
		T: clamp(chunkT, dimT),
		Y: clamp(chunkY, dimY),
		X: clamp(chunkX, dimX),
	}
}

func clamp(chunkSize, dimSize int) int {
	if dimSize <= 0 {
		return chunkSize
	}
	if chunkSize > dimSize {
		return dimSize
	}
	return chunkSize
}
