package quality

import (
	"math"

	"github.com/ctessum/geom"

	"github.com/dc3/cubebuilder/model"
)

// Indicators is the cube-level summary of quality
// indicators, aggregated from per-timestamp-group scores.
type Indicators struct {
	TimeCompacity   float64 `json:"time_compacity"`
	TimeRegularity  float64 `json:"time_regularity"`
	SpatialCoverage float64 `json:"spatial_coverage"`
	GroupLightness  float64 `json:"group_lightness"`
	CubeIndicator   float64 `json:"cube_indicator"`

	// TypeIndicators is the per-product-type (alias) coverage score,
	// aggregated across groups via TypeIndicator.
	TypeIndicators map[string]float64 `json:"type_indicators"`
	// BandIndicators is the per-band coverage score, aggregated from the
	// type indicators the band's expression references via BandIndicator.
	BandIndicators map[string]float64 `json:"band_indicators"`
	// GroupIndicatorByTimestamp is each group's own coverage score, keyed
	// by its timestamp.
	GroupIndicatorByTimestamp map[int64]float64 `json:"group_indicator_by_timestamp"`
}

// TimeCompacity is 1 - (max_t - min_t)/T for a rasters list with global
// timespan T, or 1 if T=0.
func TimeCompacity(timestamps []int64, globalTimespan int64) float64 {
	if globalTimespan == 0 {
		return 1
	}
	minT, maxT := timestamps[0], timestamps[0]
	for _, t := range timestamps {
		if t < minT {
			minT = t
		}
		if t > maxT {
			maxT = t
		}
	}
	return 1 - float64(maxT-minT)/float64(globalTimespan)
}

// UnionPolygons unions a list of polygons into one (possibly disjoint)
// polygon, via repeated pairwise Union.
func UnionPolygons(polys []geom.Polygon) geom.Polygon {
	if len(polys) == 0 {
		return nil
	}
	out := polys[0]
	for _, p := range polys[1:] {
		out = out.Union(p)
	}
	return out
}

// SpatialCoverage is area(union(raster polygons) ∩ ROI) / area(ROI).
func SpatialCoverage(rasterPolygons []geom.Polygon, roi geom.Polygon) float64 {
	roiArea := PolygonArea(roi)
	if roiArea == 0 {
		return 0
	}
	union := UnionPolygons(rasterPolygons)
	intersection := union.Intersection(roi)
	return PolygonArea(intersection) / roiArea
}

// GroupLightness is area(union(raster polygons) ∩ ROI) / Σ area(raster
// polygon): how much of the group's raw raster area actually
// contributed distinct, ROI-relevant coverage.
func GroupLightness(rasterPolygons []geom.Polygon, roi geom.Polygon) float64 {
	sum := 0.0
	for _, p := range rasterPolygons {
		sum += PolygonArea(p)
	}
	if sum == 0 {
		return 0
	}
	union := UnionPolygons(rasterPolygons)
	intersection := union.Intersection(roi)
	return PolygonArea(intersection) / sum
}

// TimeRegularity is 1 - stddev(Δ)/mean(Δ) over n>1 sorted group timestamps,
// or 1 for n=1.
func TimeRegularity(sortedTimestamps []int64) float64 {
	if len(sortedTimestamps) <= 1 {
		return 1
	}
	deltas := make([]float64, len(sortedTimestamps)-1)
	for i := 1; i < len(sortedTimestamps); i++ {
		deltas[i-1] = float64(sortedTimestamps[i] - sortedTimestamps[i-1])
	}
	mean := meanOf(deltas)
	if mean == 0 {
		return 1
	}
	return 1 - stddevOf(deltas, mean)/mean
}

func meanOf(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddevOf(xs []float64, mean float64) float64 {
	sum := 0.0
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

// GroupTypeIndicator aggregates a group/type indicator as the product over
// rasters of that type within the group.
func GroupTypeIndicator(perRaster []float64) float64 {
	return productOf(perRaster)
}

// GroupIndicator aggregates a group indicator as the product over types
// within the group.
func GroupIndicator(perType []float64) float64 {
	return productOf(perType)
}

// TypeIndicator aggregates a type indicator as the product over groups for
// that type.
func TypeIndicator(perGroup []float64) float64 {
	return productOf(perGroup)
}

// BandIndicator aggregates a band indicator as the product of type
// indicators for the types referenced by the band's expression.
func BandIndicator(b model.BandDescriptor, typeIndicatorByAlias map[string]float64) float64 {
	refs := model.ExtractAliasRefs(b.Expression)
	vals := make([]float64, 0, len(refs))
	for _, alias := range refs {
		vals = append(vals, typeIndicatorByAlias[alias])
	}
	return productOf(vals)
}

// CubeIndicator aggregates a cube-level indicator as the product over
// groups.
func CubeIndicator(perGroup []float64) float64 {
	return productOf(perGroup)
}

func productOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 1
	}
	p := 1.0
	for _, x := range xs {
		p *= x
	}
	return p
}
