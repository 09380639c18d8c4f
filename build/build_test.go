package build

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dc3/cubebuilder/cache"
	"github.com/dc3/cubebuilder/model"
	"github.com/dc3/cubebuilder/ndarray"
	"github.com/dc3/cubebuilder/raster"
	"github.com/dc3/cubebuilder/storage"
)

// fakeDecoder bypasses real SAFE-format parsing so the pipeline can be
// exercised end to end without a real Sentinel-2 archive fixture.
type fakeDecoder struct{}

func (fakeDecoder) AcquisitionTimestamp(a *raster.Archive) (int64, error) { return 1000, nil }
func (fakeDecoder) SourceCRS(a *raster.Archive) (string, error)           { return "EPSG:4326", nil }
func (fakeDecoder) DecodeSubband(a *raster.Archive, subband string, targetResolution float64) (*raster.SubbandRaster, error) {
	return &raster.SubbandRaster{
		Data:       ndarray.Filled(5, 4, 4),
		XMin:       0, YMin: 0, XMax: 4, YMax: 4,
		PixelSizeX: 1, PixelSizeY: 1,
		SourceCRS: "EPSG:4326",
	}, nil
}

var fakeProductType = model.ProductType{Source: "Test", Format: "Fake"}

func writeFakeZip(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	zw := zip.NewWriter(f)
	w, err := zw.Create("placeholder.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("placeholder"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
}

func testController(t *testing.T) *Controller {
	t.Helper()
	storageRoot := t.TempDir()
	writeFakeZip(t, filepath.Join(storageRoot, "granule.zip"))

	registry := raster.NewRegistry()
	registry.Register(fakeProductType, fakeDecoder{})

	c, err := cache.New("", 8)
	require.NoError(t, err)

	return &Controller{
		Storage:     storage.New(storageRoot),
		Registry:    registry,
		Cache:       c,
		ScratchRoot: t.TempDir(),
		OutputRoot:  t.TempDir(),
	}
}

func testRequest() *model.BuildRequest {
	alias := model.AliasedProductType{Alias: "S2", ProductType: fakeProductType}
	return &model.BuildRequest{
		CubeID: "testcube",
		Groups: []model.RasterGroup{{
			Timestamp: 1000,
			Files:     []model.RasterFile{{ProductType: fakeProductType, URI: "granule.zip", ID: "g1"}},
		}},
		Bands:            []model.BandDescriptor{{Name: "red", Expression: "S2.B04"}},
		Aliases:          []model.AliasedProductType{alias},
		ROI:              "0,0,4,4",
		TargetResolution: 1,
		TargetCRS:        "EPSG:4326",
		ChunkStrategy:    model.Spinach,
		Description:      "a test cube",
	}
}

func TestBuildSingleGranuleWritesCubeAndMetadata(t *testing.T) {
	c := testController(t)
	result, err := c.Build(context.Background(), testRequest())
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(result.CubePath, "cube.json"))
	assert.FileExists(t, result.MetadataPath)
	assert.Empty(t, result.ArchivePath)
}

func TestBuildWithPivotProducesArchive(t *testing.T) {
	c := testController(t)
	req := testRequest()
	req.Pivot = true

	result, err := c.Build(context.Background(), req)
	require.NoError(t, err)
	assert.FileExists(t, result.ArchivePath)
}

func TestBuildRejectsInvalidRequest(t *testing.T) {
	c := testController(t)
	req := testRequest()
	req.CubeID = ""

	_, err := c.Build(context.Background(), req)
	assert.Error(t, err)
}

func TestBuildRejectsFileWithUndeclaredAlias(t *testing.T) {
	c := testController(t)
	req := testRequest()
	req.Aliases = nil

	_, err := c.Build(context.Background(), req)
	assert.Error(t, err)
}
