package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCompleteGridIdempotent checks that applying CompleteGrid to an
// already-complete grid returns the same grid.
func TestCompleteGridIdempotent(t *testing.T) {
	lon := []float64{0, 1, 2, 3}
	lat := []float64{0, 1, 2, 3}
	bounds := Bounds{XMin: 0, YMin: 0, XMax: 4, YMax: 4}

	outLon, outLat := CompleteGrid(lon, lat, 1, 1, bounds)
	assert.Equal(t, lon, outLon)
	assert.Equal(t, lat, outLat)

	outLon2, outLat2 := CompleteGrid(outLon, outLat, 1, 1, bounds)
	assert.Equal(t, outLon, outLon2)
	assert.Equal(t, outLat, outLat2)
}

func TestCompleteGridExtendsToCoverBounds(t *testing.T) {
	lon := []float64{4, 5, 6}
	lat := []float64{4, 5, 6}
	bounds := Bounds{XMin: 0, YMin: 0, XMax: 10, YMax: 10}

	outLon, outLat := CompleteGrid(lon, lat, 1, 1, bounds)
	assert.LessOrEqual(t, outLon[0], bounds.XMin)
	assert.GreaterOrEqual(t, outLon[len(outLon)-1], bounds.XMax-1)
	assert.LessOrEqual(t, outLat[0], bounds.YMin)
	assert.GreaterOrEqual(t, outLat[len(outLat)-1], bounds.YMax-1)
}
