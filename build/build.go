// Package build implements the Build Controller (C9): the end-to-end
// pipeline that turns a validated BuildRequest into a written cube, wiring
// together C1 (geo) through C8 (store) and their concurrent orchestration
// (C5). Scratch cleanup always runs, success or failure, the same `defer`
// pattern run.go uses for its own temp output directories.
package build

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/ctessum/geom"
	"github.com/google/uuid"

	"github.com/dc3/cubebuilder/cache"
	"github.com/dc3/cubebuilder/chunk"
	"github.com/dc3/cubebuilder/dataset"
	"github.com/dc3/cubebuilder/errs"
	"github.com/dc3/cubebuilder/geo"
	"github.com/dc3/cubebuilder/model"
	"github.com/dc3/cubebuilder/orchestrate"
	"github.com/dc3/cubebuilder/quality"
	"github.com/dc3/cubebuilder/raster"
	"github.com/dc3/cubebuilder/storage"
	"github.com/dc3/cubebuilder/store"
)

// Config is everything a Controller needs to be constructed, independent
// of any one request.
type Config struct {
	StorageRoot     string // input archives resolve relative to this directory
	ScratchRoot     string // per-build scratch directories are created under this
	OutputRoot      string // local directory the final cube store is written under
	OutputBucketURL string // optional gocloud bucket URL the output is additionally uploaded to
	CacheDiskPath   string // "" = memory-only, see cache.New
	CacheMemSize    int
}

// Controller runs builds against a fixed storage/registry/cache
// configuration.
type Controller struct {
	Storage         *storage.Storage
	Registry        *raster.Registry
	Cache           *cache.Cache
	ScratchRoot     string
	OutputRoot      string
	OutputBucketURL string
}

// NewController wires a Controller from cfg, registering every known
// raster Decoder (build.NewDefaultRegistry).
func NewController(cfg Config) (*Controller, error) {
	c, err := cache.New(cfg.CacheDiskPath, cfg.CacheMemSize)
	if err != nil {
		return nil, fmt.Errorf("build: constructing cache: %w", err)
	}
	return &Controller{
		Storage:         storage.New(cfg.StorageRoot),
		Registry:        NewDefaultRegistry(),
		Cache:           c,
		ScratchRoot:     cfg.ScratchRoot,
		OutputRoot:      cfg.OutputRoot,
		OutputBucketURL: cfg.OutputBucketURL,
	}, nil
}

// Result is what a successful Build produces.
type Result struct {
	CubePath     string // local directory holding the chunked cube store
	MetadataPath string
	PreviewPath  string // "" unless req.Pivot
	ArchivePath  string // "" unless req.Pivot
}

// Metadata is the consolidated, human/machine-readable summary written
// alongside the cube store.
type Metadata struct {
	Description string                    `json:"description"`
	Dimensions  []quality.Dimension       `json:"dimensions"`
	Variables   []quality.Variable        `json:"variables"`
	FillRatio   float64                   `json:"fill_ratio"`
	ChunkStats  quality.ChunkStats        `json:"chunk_stats"`
	Preview     quality.PreviewAssignment `json:"preview"`
	Indicators  quality.Indicators        `json:"indicators"`
}

// Build runs the full pipeline for req: validate, stage every raster
// concurrently, elect a center granule and derive the master grid (skipped
// for a single-granule request), mosaic and stack into a cube, evaluate
// derived bands, compute quality metadata, and write the cube (and,
// if requested, a pivot distribution archive) to the output collaborator.
// The scratch directory allocated for this build is always removed before
// Build returns, regardless of outcome.
func (c *Controller) Build(ctx context.Context, req *model.BuildRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// A uuid suffix, not just the cube ID, keeps concurrent builds of the
	// same cube (e.g. a retry racing a still-running attempt) from sharing
	// scratch space.
	scratchDir := filepath.Join(c.ScratchRoot, req.CubeID+"-"+uuid.NewString())
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return nil, errs.UploadErrorf(scratchDir, "creating scratch directory: %v", err)
	}
	defer os.RemoveAll(scratchDir)

	roi, err := geo.ParseROI(req.ROI)
	if err != nil {
		return nil, err
	}
	subbandsByAlias := subbandRefsByAlias(req.Bands)
	aliasByProductType := aliasIndex(req.Aliases)

	staged, err := orchestrate.StageGroups(ctx, req.Groups, c.stageFunc(req, roi, subbandsByAlias, aliasByProductType, scratchDir))
	if err != nil {
		return nil, err
	}

	timestamps := req.SortedTimestamps()
	perTimestamp := map[int64]*dataset.Dataset{}

	if req.IsSingleGranule() {
		ds, err := orchestrate.OpenGranuleDataset(staged[0].StorePath)
		if err != nil {
			return nil, err
		}
		perTimestamp[timestamps[0]] = ds
	} else {
		grouped := orchestrate.GroupByTimestamp(staged)
		center, err := orchestrate.ElectCenterGranule(roi, staged)
		if err != nil {
			return nil, err
		}
		master, err := orchestrate.DeriveMasterGrid(center, geo.PolygonBounds(roi))
		if err != nil {
			return nil, err
		}
		for _, ts := range timestamps {
			ds, err := orchestrate.MosaicTimestamp(master, grouped[ts])
			if err != nil {
				return nil, err
			}
			perTimestamp[ts] = ds
		}
	}

	bandNames := make([]string, len(req.Bands))
	for i, b := range req.Bands {
		bandNames[i] = b.Name
	}

	varExtents := make(map[string][2]float64, len(req.Bands))
	for _, b := range req.Bands {
		varExtents[b.Name] = [2]float64{math.Inf(1), math.Inf(-1)}
	}

	fillRatioSum := 0.0
	for _, ts := range timestamps {
		ds := perTimestamp[ts]
		if err := evaluateBands(ds, req.Bands); err != nil {
			return nil, err
		}
		fillRatioSum += quality.FillRatio(ds, bandNames)
		for _, b := range req.Bands {
			vd := quality.VariableDescriptor(b, ds, b.Name)
			cur := varExtents[b.Name]
			if vd.ExtentMin < cur[0] {
				cur[0] = vd.ExtentMin
			}
			if vd.ExtentMax > cur[1] {
				cur[1] = vd.ExtentMax
			}
			varExtents[b.Name] = cur
		}
	}
	fillRatio := 0.0
	if len(timestamps) > 0 {
		fillRatio = fillRatioSum / float64(len(timestamps))
	}

	cube := orchestrate.BuildCube(timestamps, perTimestamp)

	template, err := chunk.Lookup(string(req.ChunkStrategy))
	if err != nil {
		return nil, err
	}
	nx, ny, nt := cube.Dims()
	plan := chunk.Plan3D(template, nt, ny, nx)

	indicators, err := computeIndicators(ctx, c.Cache, req.TargetCRS, roi, timestamps, orchestrate.GroupByTimestamp(staged), aliasByProductType, req.Bands)
	if err != nil {
		return nil, err
	}
	metadata := buildMetadata(req, cube, fillRatio, plan, indicators, varExtents)

	finalDir := filepath.Join(c.OutputRoot, req.CubeID)
	attrs := map[string]interface{}{
		"description": req.Description,
		"fill_ratio":  fillRatio,
	}
	if err := store.WriteCube(finalDir, cube, plan, attrs); err != nil {
		return nil, err
	}
	metadataPath, err := writeMetadata(finalDir, metadata)
	if err != nil {
		return nil, err
	}

	result := &Result{CubePath: finalDir, MetadataPath: metadataPath}

	if req.Pivot {
		previewPath, err := writePreviewFile(scratchDir, cube, metadata.Preview)
		if err != nil {
			return nil, err
		}
		archivePath, _, err := store.BuildPivotArchive(finalDir, previewPath, ".png", store.PivotRequest{
			ID:             req.CubeID,
			Title:          req.CubeID,
			Description:    req.Description,
			TargetCRSEPSG:  epsgCode(req.TargetCRS),
			TargetResMeter: int(req.TargetResolution),
			Bands:          bandNames,
			BBox:           boundsArray(geo.PolygonBounds(roi)),
			TMin:           timestamps[0],
			TMax:           timestamps[len(timestamps)-1],
		})
		if err != nil {
			return nil, err
		}
		result.PreviewPath = previewPath
		result.ArchivePath = archivePath
	}

	if c.OutputBucketURL != "" {
		if err := uploadDir(ctx, c.OutputBucketURL, finalDir); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// stageFunc closes over the per-request context a StagedFile needs, so
// orchestrate.StageGroups can stay request-agnostic.
func (c *Controller) stageFunc(req *model.BuildRequest, roi geom.Polygon, subbandsByAlias map[string][]string, aliasByProductType map[model.ProductType]string, scratchDir string) orchestrate.StageFunc {
	return func(ctx context.Context, g model.RasterGroup, f model.RasterFile) (string, error) {
		alias, ok := aliasByProductType[f.ProductType]
		if !ok {
			return "", errs.BadRequestf("aliases", "file %q has no declared alias for product type %+v", f.URI, f.ProductType)
		}
		subbandsRequired := map[string]string{}
		for _, subband := range subbandsByAlias[alias] {
			subbandsRequired[alias+"."+subband] = subband
		}
		fileScratch := filepath.Join(scratchDir, fmt.Sprintf("group_%d", g.Timestamp), fmt.Sprintf("file_%s", f.ID))
		stageReq := raster.StageRequest{
			Storage:          c.Storage,
			Registry:         c.Registry,
			Cache:            c.Cache,
			URI:              f.URI,
			ProductType:      f.ProductType,
			SubbandsRequired: subbandsRequired,
			TargetResolution: req.TargetResolution,
			Timestamp:        g.Timestamp,
			ScratchDir:       fileScratch,
			ROI:              roi,
			TargetCRS:        req.TargetCRS,
		}
		return raster.Stage(ctx, stageReq)
	}
}
