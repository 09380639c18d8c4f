// Package formats holds the concrete Decoder implementations registered
// against raster.Registry, one per product type. Sentinel2L2ASafe is
// grounded on the Python original's
// datacube/core/rasters/drivers/sentinel2_level2A_safe.py: a SAFE-format
// ZIP archive, a per-product MTD_MSI*.xml metadata file giving the
// acquisition time window, a per-tile MTD_TL.xml giving the CRS and
// geoposition, and per-resolution band images under IMG_DATA/R<res>m/.
package formats

import (
	"encoding/xml"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"regexp"
	"strconv"
	"time"

	"github.com/dc3/cubebuilder/errs"
	"github.com/dc3/cubebuilder/model"
	"github.com/dc3/cubebuilder/ndarray"
	"github.com/dc3/cubebuilder/raster"
)

// Sentinel2L2ASafe decodes ESA Sentinel-2 Level-2A products in SAFE
// packaging.
type Sentinel2L2ASafe struct{}

// ProductType is the (source, format) pair this decoder is registered
// under.
func (Sentinel2L2ASafe) ProductType() model.ProductType {
	return model.ProductType{Source: "Sentinel2", Format: "L2A-SAFE"}
}

var (
	productMetadataPattern = regexp.MustCompile(`MTD_MSI.*\.xml$`)
	tileMetadataPattern    = regexp.MustCompile(`MTD_TL\.xml$`)
)

type productInfo struct {
	XMLName xml.Name `xml:"Level-2A_User_Product"`
	General struct {
		ProductInfo struct {
			StartTime string `xml:"PRODUCT_START_TIME"`
			StopTime  string `xml:"PRODUCT_STOP_TIME"`
		} `xml:"Product_Info"`
	} `xml:"General_Info"`
}

func (Sentinel2L2ASafe) AcquisitionTimestamp(a *raster.Archive) (int64, error) {
	name, ok := a.Find(func(n string) bool { return productMetadataPattern.MatchString(n) })
	if !ok {
		return 0, errs.DownloadErrorf("MTD_MSI*.xml", "product metadata file not found in archive")
	}
	r, err := a.Open(name)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	var p productInfo
	if err := xml.NewDecoder(r).Decode(&p); err != nil {
		return 0, errs.DownloadErrorf(name, "parsing product metadata: %v", err)
	}
	start, err := time.Parse(time.RFC3339, p.General.ProductInfo.StartTime)
	if err != nil {
		return 0, errs.DownloadErrorf(name, "parsing PRODUCT_START_TIME: %v", err)
	}
	stop, err := time.Parse(time.RFC3339, p.General.ProductInfo.StopTime)
	if err != nil {
		return 0, errs.DownloadErrorf(name, "parsing PRODUCT_STOP_TIME: %v", err)
	}
	return (start.Unix() + stop.Unix()) / 2, nil
}

type geoposition struct {
	Resolution int     `xml:"resolution,attr"`
	ULX        float64 `xml:"ULX"`
	ULY        float64 `xml:"ULY"`
	XDim       float64 `xml:"XDIM"`
	YDim       float64 `xml:"YDIM"`
}

type tileGeometry struct {
	XMLName xml.Name `xml:"Level-2A_Tile_ID"`
	General struct {
		Geocoding struct {
			HorizontalCSCode string        `xml:"HORIZONTAL_CS_CODE"`
			Geoposition      []geoposition `xml:"Geoposition"`
		} `xml:"Tile_Geocoding"`
	} `xml:"Geometric_Info"`
}

func (Sentinel2L2ASafe) SourceCRS(a *raster.Archive) (string, error) {
	_, g, err := readTileGeometry(a)
	if err != nil {
		return "", err
	}
	return g.General.Geocoding.HorizontalCSCode, nil
}

func readTileGeometry(a *raster.Archive) (string, *tileGeometry, error) {
	name, ok := a.Find(func(n string) bool { return tileMetadataPattern.MatchString(n) })
	if !ok {
		return "", nil, errs.DownloadErrorf("MTD_TL.xml", "tile metadata file not found in archive")
	}
	r, err := a.Open(name)
	if err != nil {
		return "", nil, err
	}
	defer r.Close()

	var g tileGeometry
	if err := xml.NewDecoder(r).Decode(&g); err != nil {
		return "", nil, errs.DownloadErrorf(name, "parsing tile metadata: %v", err)
	}
	return name, &g, nil
}

// resolutions is the set of resolutions (meters) Sentinel-2 L2A bands are
// published at; every band has a 60m and 20m file, and B02/B03/B04/B08/
// AOT/TCI/WVP additionally have a 10m file.
var resolutions = []int{10, 20, 60}

func (Sentinel2L2ASafe) DecodeSubband(a *raster.Archive, subband string, targetResolution float64) (*raster.SubbandRaster, error) {
	res, name, ok := findFinestAvailable(a, subband, targetResolution)
	if !ok {
		return nil, errs.DownloadErrorf(subband, "no %s image found at or above target resolution %v", subband, targetResolution)
	}

	tileName, g, err := readTileGeometry(a)
	if err != nil {
		return nil, err
	}
	gp, ok := geopositionAt(g, res)
	if !ok {
		return nil, errs.DownloadErrorf(tileName, "no geoposition entry for resolution %dm", res)
	}

	r, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, errs.DownloadErrorf(name, "decoding band image: %v", err)
	}

	arr := grayscaleToArray(img)
	rows, cols := arr.Shape[0], arr.Shape[1]
	return &raster.SubbandRaster{
		Data:       arr,
		SourceCRS:  g.General.Geocoding.HorizontalCSCode,
		XMin:       gp.ULX,
		YMax:       gp.ULY,
		XMax:       gp.ULX + float64(cols)*gp.XDim,
		YMin:       gp.ULY + float64(rows)*gp.YDim, // YDim is negative in SAFE metadata
		PixelSizeX: gp.XDim,
		PixelSizeY: -gp.YDim,
	}, nil
}

func geopositionAt(g *tileGeometry, resolution int) (geoposition, bool) {
	for _, gp := range g.General.Geocoding.Geoposition {
		if gp.Resolution == resolution {
			return gp, true
		}
	}
	return geoposition{}, false
}

func findFinestAvailable(a *raster.Archive, subband string, targetResolution float64) (int, string, bool) {
	for _, res := range resolutions {
		if float64(res) < targetResolution {
			continue
		}
		pattern := regexp.MustCompile(`IMG_DATA/R` + strconv.Itoa(res) + `m/.*` + regexp.QuoteMeta(subband) + `_` + strconv.Itoa(res) + `m\.(jp2|tif|png|jpg)$`)
		if name, ok := a.Find(func(n string) bool { return pattern.MatchString(n) }); ok {
			return res, name, true
		}
	}
	return 0, "", false
}

func grayscaleToArray(img image.Image) *ndarray.Array {
	b := img.Bounds()
	rows, cols := b.Dy(), b.Dx()
	arr := ndarray.NewArray(rows, cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			arr.Set(float64(r), y, x)
		}
	}
	return arr
}
