package build

import (
	"github.com/dc3/cubebuilder/raster"
	"github.com/dc3/cubebuilder/raster/formats"
)

// NewDefaultRegistry builds a Registry with every Decoder this build ships,
// the wiring point raster.Registry itself deliberately leaves to its
// caller.
func NewDefaultRegistry() *raster.Registry {
	r := raster.NewRegistry()
	s2 := formats.Sentinel2L2ASafe{}
	r.Register(s2.ProductType(), s2)
	return r
}
