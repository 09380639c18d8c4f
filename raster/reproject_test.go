package raster

import (
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dc3/cubebuilder/dataset"
	"github.com/dc3/cubebuilder/ndarray"
)

func square(xmin, ymin, xmax, ymax float64) geom.Polygon {
	return geom.Polygon{{
		{X: xmin, Y: ymin}, {X: xmax, Y: ymin}, {X: xmax, Y: ymax}, {X: xmin, Y: ymax}, {X: xmin, Y: ymin},
	}}
}

func flatRaster(rows, cols int, fill float64) *SubbandRaster {
	return &SubbandRaster{
		Data:       ndarray.Filled(fill, rows, cols),
		XMin:       0, YMin: 0, XMax: float64(cols), YMax: float64(rows),
		PixelSizeX: 1, PixelSizeY: 1,
		SourceCRS: "EPSG:4326",
	}
}

func TestCropToPolygonShrinksToIntersection(t *testing.T) {
	r := flatRaster(10, 10, 5)
	cropped, err := CropToPolygon("test", r, square(2, 2, 6, 6))
	require.NoError(t, err)
	assert.Equal(t, 4, cropped.Data.Shape[0])
	assert.Equal(t, 4, cropped.Data.Shape[1])
}

func TestCropToPolygonEmptyIntersectionErrors(t *testing.T) {
	r := flatRaster(10, 10, 5)
	_, err := CropToPolygon("test", r, square(20, 20, 30, 30))
	assert.Error(t, err)
}

func TestReprojectToTargetGridIdentityCRS(t *testing.T) {
	r := flatRaster(4, 4, 7)
	ds, err := ReprojectToTargetGrid("test", "red", r, "EPSG:4326", 1)
	require.NoError(t, err)
	for _, v := range ds.Vars["red"].Elements {
		assert.Equal(t, 7.0, v)
	}
}

func TestFinestGridPicksSmallestStep(t *testing.T) {
	coarse := dataset.New([]float64{0, 2, 4}, []float64{0, 2, 4})
	fine := dataset.New([]float64{0, 1, 2, 3, 4}, []float64{0, 1, 2, 3, 4})
	x, y := FinestGrid([]*dataset.Dataset{coarse, fine})
	assert.Equal(t, fine.X, x)
	assert.Equal(t, fine.Y, y)
}
