// Package geo implements the Geometry & Grid component (C1): ROI parsing,
// polygon reprojection, and 1-D coordinate grid completion.
package geo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/ctessum/geom/proj"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"github.com/dc3/cubebuilder/errs"
)

// ParseROI accepts a BBOX string ("xmin,ymin,xmax,ymax"), a WKT POLYGON, or
// a GeoJSON Polygon, and returns the region of interest as a geom.Polygon.
// BBOX yields the closed polygon
// [(xmin,ymin),(xmax,ymin),(xmax,ymax),(xmin,ymax),(xmin,ymin)].
func ParseROI(roi string) (geom.Polygon, error) {
	roi = strings.TrimSpace(roi)
	if roi == "" {
		return nil, errs.BadRequestf("roi", "region of interest must not be empty")
	}
	switch {
	case strings.HasPrefix(strings.ToUpper(roi), "POLYGON"):
		return parseWKT(roi)
	case strings.HasPrefix(roi, "{"):
		return parseGeoJSON([]byte(roi))
	default:
		return parseBBOX(roi)
	}
}

func parseBBOX(bbox string) (geom.Polygon, error) {
	parts := strings.Split(bbox, ",")
	if len(parts) != 4 {
		return nil, errs.BadRequestf("roi", "bbox %q must have 4 comma-separated components", bbox)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, errs.BadRequestf("roi", "bbox component %q is not numeric: %v", p, err)
		}
		vals[i] = v
	}
	xmin, ymin, xmax, ymax := vals[0], vals[1], vals[2], vals[3]
	return geom.Polygon{{
		{X: xmin, Y: ymin},
		{X: xmax, Y: ymin},
		{X: xmax, Y: ymax},
		{X: xmin, Y: ymax},
		{X: xmin, Y: ymin},
	}}, nil
}

func parseWKT(s string) (geom.Polygon, error) {
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, errs.BadRequestf("roi", "the ROI is not formatted correctly: %v", err)
	}
	p, ok := g.(orb.Polygon)
	if !ok {
		return nil, errs.BadRequestf("roi", "only POLYGON geometry is supported for the ROI, got %T", g)
	}
	return orbPolygonToGeom(p), nil
}

func parseGeoJSON(b []byte) (geom.Polygon, error) {
	g, err := geojson.Decode(b)
	if err != nil {
		return nil, errs.BadRequestf("roi", "failed decoding GeoJSON ROI: %v", err)
	}
	switch v := g.(type) {
	case geom.Polygon:
		return v, nil
	case geom.MultiPolygon:
		if len(v) != 1 {
			return nil, errs.BadRequestf("roi", "only a single POLYGON geometry is supported for the ROI, got MultiPolygon with %d members", len(v))
		}
		return v[0], nil
	default:
		return nil, errs.BadRequestf("roi", "only POLYGON geometry is supported for the ROI, got %T", g)
	}
}

func orbPolygonToGeom(p orb.Polygon) geom.Polygon {
	out := make(geom.Polygon, len(p))
	for i, ring := range p {
		r := make([]geom.Point, len(ring))
		for j, pt := range ring {
			r[j] = geom.Point{X: pt[0], Y: pt[1]}
		}
		out[i] = r
	}
	return out
}

// ReprojectPolygon transforms the exterior ring of p from srcCRS to dstCRS
// using the standard geodesy library. Only the exterior ring
// is transformed, matching "the result is the polygon of the transformed
// exterior"; holes, if any, are dropped.
func ReprojectPolygon(p geom.Polygon, srcCRS, dstCRS string) (geom.Polygon, error) {
	if len(p) == 0 {
		return nil, errs.BadRequestf("roi", "polygon has no rings")
	}
	src, err := proj.Parse(srcCRS)
	if err != nil {
		return nil, errs.BadRequestf("roi", "parsing source CRS %q: %v", srcCRS, err)
	}
	dst, err := proj.Parse(dstCRS)
	if err != nil {
		return nil, errs.BadRequestf("roi", "parsing destination CRS %q: %v", dstCRS, err)
	}
	return ReprojectPolygonSR(p, src, dst)
}

// ReprojectPolygonSR is like ReprojectPolygon but takes already-parsed
// spatial references, avoiding re-parsing the same CRS on every call.
func ReprojectPolygonSR(p geom.Polygon, src, dst *proj.SR) (geom.Polygon, error) {
	if src.Equal(dst, 6) {
		out := make(geom.Polygon, 1)
		out[0] = append([]geom.Point{}, p[0]...)
		return out, nil
	}
	t, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("geo: building transform from %v to %v: %w", src, dst, err)
	}
	exterior := geom.Polygon{p[0]}
	transformed, err := exterior.Transform(t)
	if err != nil {
		return nil, fmt.Errorf("geo: reprojecting polygon: %w", err)
	}
	out, ok := transformed.(geom.Polygon)
	if !ok {
		return nil, fmt.Errorf("geo: unexpected geometry %T after transform", transformed)
	}
	return out, nil
}

// Bounds is an axis-aligned bounding box (xmin, ymin, xmax, ymax).
type Bounds struct {
	XMin, YMin, XMax, YMax float64
}

// PolygonBounds computes the bounding box of p.
func PolygonBounds(p geom.Polygon) Bounds {
	b := p.Bounds()
	return Bounds{XMin: b.Min.X, YMin: b.Min.Y, XMax: b.Max.X, YMax: b.Max.Y}
}

// RectanglePolygon builds the closed-ring rectangular polygon covering b,
// the shape quality indicators use as a raster's footprint when only its
// bounding box (not its true outline) is known.
func RectanglePolygon(b Bounds) geom.Polygon {
	return geom.Polygon{{
		{X: b.XMin, Y: b.YMin},
		{X: b.XMax, Y: b.YMin},
		{X: b.XMax, Y: b.YMax},
		{X: b.XMin, Y: b.YMax},
		{X: b.XMin, Y: b.YMin},
	}}
}

// Centroid returns the arithmetic centroid of the polygon's exterior ring
// vertices (excluding the closing duplicate of the first point).
func Centroid(p geom.Polygon) geom.Point {
	if len(p) == 0 || len(p[0]) == 0 {
		return geom.Point{}
	}
	ring := p[0]
	n := len(ring)
	if n > 1 && ring[0] == ring[n-1] {
		n--
	}
	var sx, sy float64
	for i := 0; i < n; i++ {
		sx += ring[i].X
		sy += ring[i].Y
	}
	return geom.Point{X: sx / float64(n), Y: sy / float64(n)}
}
