package model

// CachedRasterRecord is the per-staged-raster summary written by C3 and
// consumed by C7's quality-indicator computation: the
// product's acquisition timestamp, source CRS, source bounds, and product
// type, keyed by raster URI by the cache collaborator.
type CachedRasterRecord struct {
	ProductTimestamp int64
	SourceCRS        string
	SourceBoundsLBRT [4]float64 // left, bottom, right, top
	ProductType      ProductType
}
