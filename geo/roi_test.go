package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseROIBBOX(t *testing.T) {
	p, err := ParseROI("0,0,10,10")
	require.NoError(t, err)
	require.Len(t, p, 1)
	assert.Len(t, p[0], 5)
	assert.Equal(t, p[0][0], p[0][len(p[0])-1])
}

func TestParseROIBBOXMalformed(t *testing.T) {
	_, err := ParseROI("0,0,10")
	require.Error(t, err)
}

func TestParseROIWKT(t *testing.T) {
	p, err := ParseROI("POLYGON((0 0, 10 0, 10 10, 0 10, 0 0))")
	require.NoError(t, err)
	require.Len(t, p, 1)
	b := PolygonBounds(p)
	assert.Equal(t, Bounds{XMin: 0, YMin: 0, XMax: 10, YMax: 10}, b)
}

func TestParseROIEmpty(t *testing.T) {
	_, err := ParseROI("  ")
	require.Error(t, err)
}

func TestCentroid(t *testing.T) {
	p, err := ParseROI("0,0,10,10")
	require.NoError(t, err)
	c := Centroid(p)
	assert.Equal(t, 5.0, c.X)
	assert.Equal(t, 5.0, c.Y)
}
