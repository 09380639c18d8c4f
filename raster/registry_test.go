package raster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dc3/cubebuilder/model"
)

type stubDecoder struct{}

func (stubDecoder) AcquisitionTimestamp(a *Archive) (int64, error) { return 0, nil }
func (stubDecoder) SourceCRS(a *Archive) (string, error)           { return "", nil }
func (stubDecoder) DecodeSubband(a *Archive, subband string, targetResolution float64) (*SubbandRaster, error) {
	return nil, nil
}

func TestRegistryLookupMissingIsBadRequest(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup(model.ProductType{Source: "Sentinel2", Format: "L2A-SAFE"})
	require.Error(t, err)
}

func TestRegistryLookupRegistered(t *testing.T) {
	r := NewRegistry()
	pt := model.ProductType{Source: "Sentinel2", Format: "L2A-SAFE"}
	r.Register(pt, stubDecoder{})
	d, err := r.Lookup(pt)
	require.NoError(t, err)
	assert.NotNil(t, d)
}
