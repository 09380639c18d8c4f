// Package quality implements the Metadata & Quality component (C7):
// dimension/variable descriptors, the compactness/coverage/lightness/
// regularity quality indicators, fill ratio, and preview-channel election.
package quality

import (
	"fmt"
	"math"
	"time"

	"github.com/ctessum/geom"

	"github.com/dc3/cubebuilder/dataset"
	"github.com/dc3/cubebuilder/model"
)

// DimensionKind distinguishes spatial from temporal dimension descriptors.
type DimensionKind string

const (
	Spatial  DimensionKind = "spatial"
	Temporal DimensionKind = "temporal"
)

// Dimension describes one cube axis.
type Dimension struct {
	Name            string
	Kind            DimensionKind
	ExtentFirstLast [2]string // numeric for x/y (formatted), ISO-8601 for t
	Step            *float64
	ReferenceSystem string
}

// Variable describes one cube band/variable.
type Variable struct {
	Name        string
	Dimensions  []string
	Description string
	Unit        string
	Expression  string
	ExtentMin   float64
	ExtentMax   float64
}

// SpatialDimension builds the x/y dimension descriptor.
func SpatialDimension(name string, coords []float64, targetCRS string) Dimension {
	step := meanDiff(coords)
	return Dimension{
		Name:            name,
		Kind:            Spatial,
		ExtentFirstLast: [2]string{formatF(coords[0]), formatF(coords[len(coords)-1])},
		Step:            &step,
		ReferenceSystem: targetCRS,
	}
}

// TemporalDimension builds the t dimension descriptor: step is
// total_delta/(n-1) for n>1, else nil.
func TemporalDimension(timestamps []int64) Dimension {
	first, last := timestamps[0], timestamps[len(timestamps)-1]
	d := Dimension{
		Name:            "t",
		Kind:            Temporal,
		ExtentFirstLast: [2]string{isoSeconds(first), isoSeconds(last)},
	}
	if len(timestamps) > 1 {
		step := float64(last-first) / float64(len(timestamps)-1)
		d.Step = &step
	}
	return d
}

func isoSeconds(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}

func meanDiff(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	sum := 0.0
	for i := 1; i < len(xs); i++ {
		sum += xs[i] - xs[i-1]
	}
	return sum / float64(len(xs)-1)
}

func formatF(v float64) string { return fmt.Sprintf("%g", v) }

// VariableDescriptor builds a variable descriptor for band b, computing its
// extent over the variable varName of the dataset arr.
func VariableDescriptor(b model.BandDescriptor, arr *dataset.Dataset, varName string) Variable {
	v := Variable{
		Name:        b.Name,
		Dimensions:  []string{"x", "y", "t"},
		Description: b.Description,
		Unit:        b.Unit,
		Expression:  b.Expression,
	}
	if a, ok := arr.Vars[varName]; ok {
		min, _ := a.Min()
		max, _ := a.Max()
		v.ExtentMin, v.ExtentMax = min, max
	}
	return v
}

// FillRatio is the mean, across the given variables, of
// 1 - (#NaN / total_cells).
func FillRatio(ds *dataset.Dataset, varNames []string) float64 {
	if len(varNames) == 0 {
		return 1
	}
	sum := 0.0
	for _, name := range varNames {
		arr, ok := ds.Vars[name]
		if !ok || arr.Len() == 0 {
			sum += 1
			continue
		}
		sum += 1 - float64(arr.NaNCount())/float64(arr.Len())
	}
	return sum / float64(len(varNames))
}

// ChunkStats is the number_of_chunks / chunk_weight pair.
type ChunkStats struct {
	NumberOfChunks int
	ChunkWeight    int // bytes
}

// ComputeChunkStats derives chunk statistics from a cube's dimension sizes,
// its chunk shape, and the element byte size (8 for float64).
func ComputeChunkStats(dimX, dimY, dimT, chunkX, chunkY, chunkT, dtypeSize int) ChunkStats {
	chunksX := ceilDiv(dimX, chunkX)
	chunksY := ceilDiv(dimY, chunkY)
	chunksT := ceilDiv(dimT, chunkT)
	return ChunkStats{
		NumberOfChunks: chunksX * chunksY * chunksT,
		ChunkWeight:    chunkX * chunkY * chunkT * dtypeSize,
	}
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return int(math.Ceil(float64(a) / float64(b)))
}

// PreviewAssignment maps a render channel or colormap name to the cube
// variable it draws from. Keys are "RED"/"GREEN"/"BLUE" for an RGB
// preview, or a single colormap name otherwise.
type PreviewAssignment map[string]string

// ElectPreview implements preview-channel election: if the
// request has 3 RGB-assigned bands, preview={RED:.., GREEN:.., BLUE:..};
// else the first band with a colormap wins; else {"rainbow": first cube
// variable}.
func ElectPreview(bands []model.BandDescriptor, firstCubeVariable string) PreviewAssignment {
	rgb := PreviewAssignment{}
	for _, b := range bands {
		switch b.RGB {
		case model.Red:
			rgb["RED"] = b.Name
		case model.Green:
			rgb["GREEN"] = b.Name
		case model.Blue:
			rgb["BLUE"] = b.Name
		}
	}
	if len(rgb) == 3 {
		return rgb
	}
	for _, b := range bands {
		if b.Colormap != "" {
			return PreviewAssignment{b.Colormap: b.Name}
		}
	}
	return PreviewAssignment{"rainbow": firstCubeVariable}
}

// PolygonArea returns the area of p, or 0 for an empty polygon.
func PolygonArea(p geom.Polygon) float64 {
	if len(p) == 0 {
		return 0
	}
	return p.Area()
}
