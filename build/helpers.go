package build

import (
	"context"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ctessum/geom"

	"github.com/dc3/cubebuilder/cache"
	"github.com/dc3/cubebuilder/chunk"
	"github.com/dc3/cubebuilder/dataset"
	"github.com/dc3/cubebuilder/errs"
	"github.com/dc3/cubebuilder/expr"
	"github.com/dc3/cubebuilder/geo"
	"github.com/dc3/cubebuilder/model"
	"github.com/dc3/cubebuilder/orchestrate"
	"github.com/dc3/cubebuilder/quality"
)

// epsgCode extracts the numeric code from an "EPSG:<code>" CRS string,
// returning 0 if crs isn't in that form (e.g. a PROJ string).
func epsgCode(crs string) int {
	const prefix = "EPSG:"
	if !strings.HasPrefix(strings.ToUpper(crs), prefix) {
		return 0
	}
	code, err := strconv.Atoi(crs[len(prefix):])
	if err != nil {
		return 0
	}
	return code
}

// boundsArray converts geo.Bounds into the [xmin,ymin,xmax,ymax] array the
// pivot catalog format expects.
func boundsArray(b geo.Bounds) [4]float64 {
	return [4]float64{b.XMin, b.YMin, b.XMax, b.YMax}
}

// subbandRefsByAlias collects, per declared alias, the distinct subband
// names referenced by any band expression (the set C3 must decode and
// reproject for every raster carrying that alias's product type).
func subbandRefsByAlias(bands []model.BandDescriptor) map[string][]string {
	out := map[string][]string{}
	seen := map[string]map[string]bool{}
	for _, b := range bands {
		for _, ref := range model.ExtractSubbandRefs(b.Expression) {
			alias, subband := splitRef(ref)
			if seen[alias] == nil {
				seen[alias] = map[string]bool{}
			}
			if !seen[alias][subband] {
				seen[alias][subband] = true
				out[alias] = append(out[alias], subband)
			}
		}
	}
	return out
}

func splitRef(ref string) (alias, subband string) {
	for i := 0; i < len(ref); i++ {
		if ref[i] == '.' {
			return ref[:i], ref[i+1:]
		}
	}
	return ref, ""
}

// aliasIndex inverts a request's alias list so a raster file's product type
// can be resolved back to its declared alias.
func aliasIndex(aliases []model.AliasedProductType) map[model.ProductType]string {
	out := make(map[model.ProductType]string, len(aliases))
	for _, a := range aliases {
		out[a.ProductType] = a.Alias
	}
	return out
}

// evaluateBands runs C6's band derivation against a single timestamp's
// mosaicked dataset.
func evaluateBands(ds *dataset.Dataset, bands []model.BandDescriptor) error {
	return expr.EvaluateBands(ds, bands)
}

// granuleFootprint recovers a staged raster's source footprint from the
// Cached Raster Record C3 wrote for it, reprojecting the cached source
// bounds into targetCRS so it lines up with the ROI and the cube grid.
// Falls back to the granule store's own (already-reprojected) extent if
// the cache has no record for this URI, e.g. a memory-only cache evicted
// under pressure.
func granuleFootprint(ctx context.Context, c *cache.Cache, targetCRS string, f orchestrate.StagedFile) (geom.Polygon, error) {
	if c != nil {
		if rec, ok, err := c.Get(ctx, f.File.URI); err != nil {
			return nil, err
		} else if ok {
			b := geo.Bounds{XMin: rec.SourceBoundsLBRT[0], YMin: rec.SourceBoundsLBRT[1], XMax: rec.SourceBoundsLBRT[2], YMax: rec.SourceBoundsLBRT[3]}
			return geo.ReprojectPolygon(geo.RectanglePolygon(b), rec.SourceCRS, targetCRS)
		}
	}
	b, err := orchestrate.GranuleBounds(f.StorePath)
	if err != nil {
		return nil, err
	}
	return geo.RectanglePolygon(b), nil
}

// computeIndicators derives the full quality-indicator hierarchy: per
// raster, aggregated to per (group, type) via GroupTypeIndicator, to per
// group via GroupIndicator, to per type (across groups) via TypeIndicator,
// to per band via BandIndicator, and to the cube as a whole via
// CubeIndicator. aliasByProductType resolves each staged file back to the
// declared alias its footprint contributes to.
func computeIndicators(ctx context.Context, c *cache.Cache, targetCRS string, roi geom.Polygon, timestamps []int64, grouped map[int64][]orchestrate.StagedFile, aliasByProductType map[model.ProductType]string, bands []model.BandDescriptor) (quality.Indicators, error) {
	groupCoverage := make([]float64, 0, len(timestamps))
	groupLightness := make([]float64, 0, len(timestamps))
	coverageByAlias := map[string][]float64{}
	groupIndicatorByTimestamp := make(map[int64]float64, len(timestamps))

	for _, ts := range timestamps {
		filesByAlias := map[string][]orchestrate.StagedFile{}
		for _, f := range grouped[ts] {
			alias := aliasByProductType[f.File.ProductType]
			filesByAlias[alias] = append(filesByAlias[alias], f)
		}

		var typeCoverageThisGroup, typeLightnessThisGroup []float64
		for alias, files := range filesByAlias {
			var rasterCoverage, rasterLightness []float64
			for _, f := range files {
				p, err := granuleFootprint(ctx, c, targetCRS, f)
				if err != nil {
					return quality.Indicators{}, err
				}
				rasterCoverage = append(rasterCoverage, quality.SpatialCoverage([]geom.Polygon{p}, roi))
				rasterLightness = append(rasterLightness, quality.GroupLightness([]geom.Polygon{p}, roi))
			}
			groupTypeCoverage := quality.GroupTypeIndicator(rasterCoverage)
			coverageByAlias[alias] = append(coverageByAlias[alias], groupTypeCoverage)
			typeCoverageThisGroup = append(typeCoverageThisGroup, groupTypeCoverage)
			typeLightnessThisGroup = append(typeLightnessThisGroup, quality.GroupTypeIndicator(rasterLightness))
		}

		thisGroupCoverage := quality.GroupIndicator(typeCoverageThisGroup)
		groupCoverage = append(groupCoverage, thisGroupCoverage)
		groupLightness = append(groupLightness, quality.GroupIndicator(typeLightnessThisGroup))
		groupIndicatorByTimestamp[ts] = thisGroupCoverage
	}

	typeIndicatorByAlias := make(map[string]float64, len(coverageByAlias))
	for alias, perGroup := range coverageByAlias {
		typeIndicatorByAlias[alias] = quality.TypeIndicator(perGroup)
	}

	bandIndicators := make(map[string]float64, len(bands))
	for _, b := range bands {
		bandIndicators[b.Name] = quality.BandIndicator(b, typeIndicatorByAlias)
	}

	var globalTimespan int64
	if len(timestamps) > 0 {
		globalTimespan = timestamps[len(timestamps)-1] - timestamps[0]
	}

	return quality.Indicators{
		TimeCompacity:             quality.TimeCompacity(timestamps, globalTimespan),
		TimeRegularity:            quality.TimeRegularity(timestamps),
		SpatialCoverage:           quality.GroupIndicator(groupCoverage),
		GroupLightness:            quality.GroupIndicator(groupLightness),
		CubeIndicator:             quality.CubeIndicator(groupCoverage),
		TypeIndicators:            typeIndicatorByAlias,
		BandIndicators:            bandIndicators,
		GroupIndicatorByTimestamp: groupIndicatorByTimestamp,
	}, nil
}

func buildMetadata(req *model.BuildRequest, cube *dataset.Cube, fillRatio float64, plan chunk.Plan, indicators quality.Indicators, varExtents map[string][2]float64) Metadata {
	nx, ny, nt := cube.Dims()
	dims := []quality.Dimension{
		quality.SpatialDimension("x", cube.X, req.TargetCRS),
		quality.SpatialDimension("y", cube.Y, req.TargetCRS),
		quality.TemporalDimension(cube.T),
	}

	variables := make([]quality.Variable, 0, len(req.Bands))
	for _, b := range req.Bands {
		v := quality.Variable{
			Name:        b.Name,
			Dimensions:  []string{"x", "y", "t"},
			Description: b.Description,
			Unit:        b.Unit,
			Expression:  b.Expression,
		}
		// Extent is the running min/max of quality.VariableDescriptor's
		// per-timestamp extent, computed while evaluating bands.
		if ext, ok := varExtents[b.Name]; ok && ext[0] <= ext[1] {
			v.ExtentMin, v.ExtentMax = ext[0], ext[1]
		}
		variables = append(variables, v)
	}

	chunkStats := quality.ComputeChunkStats(nx, ny, nt, plan.X, plan.Y, plan.T, 8)
	preview := quality.ElectPreview(req.Bands, cube.VarNames()[0])

	return Metadata{
		Description: req.Description,
		Dimensions:  dims,
		Variables:   variables,
		FillRatio:   fillRatio,
		ChunkStats:  chunkStats,
		Preview:     preview,
		Indicators:  indicators,
	}
}

func writeMetadata(dir string, meta Metadata) (string, error) {
	path := filepath.Join(dir, "metadata.json")
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", errs.UploadErrorf(path, "marshaling metadata: %v", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", errs.UploadErrorf(path, "writing metadata: %v", err)
	}
	return path, nil
}

func writePreviewFile(scratchDir string, cube *dataset.Cube, assignment quality.PreviewAssignment) (string, error) {
	path := filepath.Join(scratchDir, "preview.png")
	f, err := os.Create(path)
	if err != nil {
		return "", errs.UploadErrorf(path, "creating preview file: %v", err)
	}
	defer f.Close()

	img := RenderPreview(cube, assignment)
	if err := png.Encode(f, img); err != nil {
		return "", errs.UploadErrorf(path, "encoding preview image: %v", err)
	}
	return path, nil
}
