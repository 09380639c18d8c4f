package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() *BuildRequest {
	return &BuildRequest{
		CubeID: "cube-1",
		Groups: []RasterGroup{
			{Timestamp: 1_000_000, Files: []RasterFile{
				{ProductType: ProductType{Source: "Sentinel2", Format: "L2A-SAFE"}, URI: "file:///a.zip", ID: "a"},
			}},
		},
		Bands: []BandDescriptor{
			{Name: "red", Expression: "S2.B04"},
		},
		Aliases:          []AliasedProductType{{Alias: "S2", ProductType: ProductType{Source: "Sentinel2", Format: "L2A-SAFE"}}},
		ROI:              "0,0,10,10",
		TargetResolution: 10,
		TargetCRS:        "EPSG:4326",
		ChunkStrategy:    Potato,
	}
}

func TestValidateAcceptsWellFormedRequest(t *testing.T) {
	require.NoError(t, validRequest().Validate())
}

func TestValidateRejectsUnknownAlias(t *testing.T) {
	r := validRequest()
	r.Bands[0].Expression = "UNKNOWN.B04"
	require.Error(t, r.Validate())
}

func TestValidateRejectsUndeclaredProductType(t *testing.T) {
	r := validRequest()
	r.Groups[0].Files[0].ProductType = ProductType{Source: "Landsat8", Format: "L1"}
	require.Error(t, r.Validate())
}

func TestValidateRejectsPartialRGBAssignment(t *testing.T) {
	r := validRequest()
	r.Bands = append(r.Bands, BandDescriptor{Name: "nir", Expression: "S2.B08", RGB: Red})
	require.Error(t, r.Validate())
}

func TestValidateAcceptsCompleteRGBAssignment(t *testing.T) {
	r := validRequest()
	r.Bands = []BandDescriptor{
		{Name: "r", Expression: "S2.B04", RGB: Red},
		{Name: "g", Expression: "S2.B03", RGB: Green},
		{Name: "b", Expression: "S2.B02", RGB: Blue},
	}
	require.NoError(t, r.Validate())
}

func TestSortedTimestampsDedupesAndSorts(t *testing.T) {
	r := validRequest()
	r.Groups = append(r.Groups, RasterGroup{Timestamp: 500_000}, RasterGroup{Timestamp: 1_000_000})
	assert.Equal(t, []int64{500_000, 1_000_000}, r.SortedTimestamps())
}

func TestIsSingleGranule(t *testing.T) {
	r := validRequest()
	assert.True(t, r.IsSingleGranule())
	r.Groups[0].Files = append(r.Groups[0].Files, RasterFile{})
	assert.False(t, r.IsSingleGranule())
}

func TestExtractAliasRefs(t *testing.T) {
	assert.Equal(t, []string{"S2"}, ExtractAliasRefs("(S2.B08 - S2.B04)/(S2.B08 + S2.B04)"))
}
