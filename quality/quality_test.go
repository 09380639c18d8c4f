package quality

import (
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/assert"

	"github.com/dc3/cubebuilder/dataset"
	"github.com/dc3/cubebuilder/model"
	"github.com/dc3/cubebuilder/ndarray"
)

func TestGroupTypeAndTypeIndicatorsAreProducts(t *testing.T) {
	assert.InDelta(t, 0.5, GroupTypeIndicator([]float64{1, 0.5}), 1e-9)
	assert.InDelta(t, 0.25, TypeIndicator([]float64{0.5, 0.5}), 1e-9)
}

func TestBandIndicatorProductsReferencedTypes(t *testing.T) {
	b := model.BandDescriptor{Name: "ndvi", Expression: "(S2.nir - S2.red) / (S2.nir + S2.red)"}
	byAlias := map[string]float64{"S2": 0.8, "L8": 0.5}
	assert.InDelta(t, 0.8, BandIndicator(b, byAlias), 1e-9)
}

func square(xmin, ymin, xmax, ymax float64) geom.Polygon {
	return geom.Polygon{{
		{X: xmin, Y: ymin}, {X: xmax, Y: ymin}, {X: xmax, Y: ymax}, {X: xmin, Y: ymax}, {X: xmin, Y: ymin},
	}}
}

func TestTimeCompacityZeroSpanIsOne(t *testing.T) {
	assert.Equal(t, 1.0, TimeCompacity([]int64{100}, 0))
}

func TestTimeCompacityFullSpanIsZero(t *testing.T) {
	assert.Equal(t, 0.0, TimeCompacity([]int64{0, 1000}, 1000))
}

func TestTimeRegularityEqualSpacingIsOne(t *testing.T) {
	assert.Equal(t, 1.0, TimeRegularity([]int64{0, 100, 200, 300}))
}

func TestTimeRegularitySingleGroupIsOne(t *testing.T) {
	assert.Equal(t, 1.0, TimeRegularity([]int64{42}))
}

func TestSpatialCoverageFullOverlap(t *testing.T) {
	roi := square(0, 0, 10, 10)
	cov := SpatialCoverage([]geom.Polygon{square(0, 0, 10, 10)}, roi)
	assert.InDelta(t, 1.0, cov, 1e-9)
}

func TestFillRatioNoNaNs(t *testing.T) {
	ds := dataset.New([]float64{0, 1}, []float64{0, 1})
	ds.Vars["red"] = ndarray.Filled(1, 2, 2)
	assert.Equal(t, 1.0, FillRatio(ds, []string{"red"}))
}

func TestElectPreviewRGB(t *testing.T) {
	bands := []model.BandDescriptor{
		{Name: "r", RGB: model.Red},
		{Name: "g", RGB: model.Green},
		{Name: "b", RGB: model.Blue},
	}
	p := ElectPreview(bands, "r")
	assert.Equal(t, PreviewAssignment{"RED": "r", "GREEN": "g", "BLUE": "b"}, p)
}

func TestElectPreviewFallsBackToFirstVariable(t *testing.T) {
	bands := []model.BandDescriptor{{Name: "ndvi"}}
	p := ElectPreview(bands, "ndvi")
	assert.Equal(t, PreviewAssignment{"rainbow": "ndvi"}, p)
}

func TestComputeChunkStats(t *testing.T) {
	s := ComputeChunkStats(500, 500, 2, 500, 500, 2, 8)
	assert.Equal(t, 1, s.NumberOfChunks)
	assert.Equal(t, 500*500*2*8, s.ChunkWeight)
}

func TestVariableDescriptorExtent(t *testing.T) {
	ds := dataset.New([]float64{0, 1}, []float64{0, 1})
	arr := ndarray.Filled(5, 2, 2)
	arr.Set(9, 0, 1)
	ds.Vars["ndvi"] = arr

	b := model.BandDescriptor{Name: "ndvi", Description: "vegetation index", Unit: "1"}
	v := VariableDescriptor(b, ds, "ndvi")
	assert.Equal(t, []string{"x", "y", "t"}, v.Dimensions)
	assert.Equal(t, 5.0, v.ExtentMin)
	assert.Equal(t, 9.0, v.ExtentMax)
}
