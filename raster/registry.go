package raster

import (
	"github.com/dc3/cubebuilder/errs"
	"github.com/dc3/cubebuilder/model"
	"github.com/dc3/cubebuilder/ndarray"
)

// SubbandRaster is one decoded 2-D band, still in its source CRS and native
// resolution, plus enough georeferencing to crop, mask, and reproject it.
type SubbandRaster struct {
	Data                   *ndarray.Array // shape (rows, cols), row 0 = top (north)
	XMin, YMin, XMax, YMax float64        // source-CRS bounds
	PixelSizeX, PixelSizeY float64        // source-CRS units per pixel
	SourceCRS              string
}

// Decoder is the contract a product-type-specific raster reader must
// satisfy, modeled on the emissions inventory Record interface's per-method
// doc comments.
type Decoder interface {
	// AcquisitionTimestamp returns the product's acquisition timestamp, the
	// midpoint of its start/stop sensing window in unix seconds.
	AcquisitionTimestamp(a *Archive) (int64, error)

	// SourceCRS returns the archive's native coordinate reference system,
	// as a string proj.Parse accepts.
	SourceCRS(a *Archive) (string, error)

	// DecodeSubband resolves the highest available resolution of subband
	// that is >= targetResolution and decodes it.
	DecodeSubband(a *Archive, subband string, targetResolution float64) (*SubbandRaster, error)
}

// Registry maps a declared product type to the decoder that reads it.
type Registry struct {
	decoders map[model.ProductType]Decoder
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{decoders: map[model.ProductType]Decoder{}}
}

// Register binds pt to d, overwriting any previous binding.
func (r *Registry) Register(pt model.ProductType, d Decoder) {
	r.decoders[pt] = d
}

// Lookup returns the decoder bound to pt, or a BadRequest error naming pt if
// none is registered: the request's aliases list must cover every
// referenced product type.
func (r *Registry) Lookup(pt model.ProductType) (Decoder, error) {
	d, ok := r.decoders[pt]
	if !ok {
		return nil, errs.BadRequestf("aliases", "no decoder registered for product type %+v", pt)
	}
	return d, nil
}
