package raster

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ctessum/geom"

	"github.com/dc3/cubebuilder/cache"
	"github.com/dc3/cubebuilder/chunk"
	"github.com/dc3/cubebuilder/dataset"
	"github.com/dc3/cubebuilder/errs"
	"github.com/dc3/cubebuilder/geo"
	"github.com/dc3/cubebuilder/model"
	"github.com/dc3/cubebuilder/storage"
	"github.com/dc3/cubebuilder/store"
)

// roiCRS is the coordinate reference system a build request's ROI is
// expressed in. ParseROI produces raw coordinate pairs with
// no CRS of their own; WGS84 is the universal convention for a BBOX/WKT
// ROI supplied alongside a separate target_crs.
const roiCRS = "EPSG:4326"

// StageRequest carries everything Stage needs for one (group, file) input.
type StageRequest struct {
	Storage          *storage.Storage
	Registry         *Registry
	Cache            *cache.Cache
	URI              string
	ProductType      model.ProductType
	SubbandsRequired map[string]string // cube band var name -> product subband name
	TargetResolution float64
	Timestamp        int64
	ScratchDir       string // <scratch>/<cube>/<group>/<file>
	ROI              geom.Polygon
	TargetCRS        string
}

// sentinel2Source is the ProductType.Source value that triggers the
// negative-to-NaN no-data convention.
const sentinel2Source = "Sentinel2"

// Stage implements the Raster Stager (C3): decode, crop+reproject every
// required subband, merge onto a common grid, apply sensor-specific
// no-data handling, emit a Cached Raster Record, and persist the merged
// per-granule store. Returns the final store path.
func Stage(ctx context.Context, req StageRequest) (string, error) {
	decoder, err := req.Registry.Lookup(req.ProductType)
	if err != nil {
		return "", err
	}

	r, err := req.Storage.Open(ctx, req.URI)
	if err != nil {
		return "", err
	}
	defer r.Close()

	archive, err := OpenArchive(req.URI, r)
	if err != nil {
		return "", err
	}

	timestamp, err := decoder.AcquisitionTimestamp(archive)
	if err != nil {
		return "", errs.DownloadErrorf(req.URI, "extracting acquisition timestamp: %v", err)
	}
	sourceCRS, err := decoder.SourceCRS(archive)
	if err != nil {
		return "", errs.DownloadErrorf(req.URI, "extracting source CRS: %v", err)
	}

	roiInSourceCRS, err := reprojectROI(req.URI, req.ROI, sourceCRS)
	if err != nil {
		return "", err
	}

	var subbandDatasets []*dataset.Dataset
	var sourceBounds [4]float64
	for cubeVar, productSubband := range req.SubbandsRequired {
		raw, err := decoder.DecodeSubband(archive, productSubband, req.TargetResolution)
		if err != nil {
			return "", errs.DownloadErrorf(req.URI, "decoding subband %q: %v", productSubband, err)
		}
		cropped, err := CropToPolygon(req.URI, raw, roiInSourceCRS)
		if err != nil {
			return "", err
		}
		sourceBounds = [4]float64{cropped.XMin, cropped.YMin, cropped.XMax, cropped.YMax}

		reprojected, err := ReprojectToTargetGrid(req.URI, cubeVar, cropped, req.TargetCRS, req.TargetResolution)
		if err != nil {
			return "", err
		}
		reprojected.Attrs["product_timestamp"] = float64(timestamp)

		subStorePath := filepath.Join(req.ScratchDir, fmt.Sprintf("subband_%s", cubeVar))
		if err := writeSingleVarStore(subStorePath, reprojected, cubeVar, timestamp); err != nil {
			return "", err
		}
		subbandDatasets = append(subbandDatasets, reprojected)
	}
	if len(subbandDatasets) == 0 {
		return "", errs.BadRequestf(req.URI, "no subbands requested for product type %+v", req.ProductType)
	}

	finestX, finestY := FinestGrid(subbandDatasets)
	merged := dataset.New(finestX, finestY)
	merged.Attrs["product_timestamp"] = float64(timestamp)
	for _, d := range subbandDatasets {
		onGrid := dataset.InterpolateNearest(d, finestX, finestY)
		for name, arr := range onGrid.Vars {
			merged.Vars[name] = arr
		}
	}

	if req.ProductType.Source == sentinel2Source {
		for _, arr := range merged.Vars {
			arr.ReplaceNegativeWithNaN()
		}
	}

	if req.Cache != nil {
		record := model.CachedRasterRecord{
			ProductTimestamp: timestamp,
			SourceCRS:        sourceCRS,
			SourceBoundsLBRT: sourceBounds,
			ProductType:      req.ProductType,
		}
		if err := req.Cache.Put(ctx, req.URI, record); err != nil {
			return "", errs.DownloadErrorf(req.URI, "caching raster record: %v", err)
		}
	}

	finalPath := filepath.Join(req.ScratchDir, "final")
	if err := writeMultiVarStore(finalPath, merged, timestamp); err != nil {
		return "", err
	}
	return finalPath, nil
}

func reprojectROI(uri string, roi geom.Polygon, sourceCRS string) (geom.Polygon, error) {
	reprojected, err := geo.ReprojectPolygon(roi, roiCRS, sourceCRS)
	if err != nil {
		return nil, errs.DownloadErrorf(uri, "reprojecting ROI into source CRS: %v", err)
	}
	return reprojected, nil
}

// writeSingleVarStore persists one reprojected subband as its own per-band
// intermediate chunked store, SPINACH-chunked.
func writeSingleVarStore(dir string, d *dataset.Dataset, varName string, timestamp int64) error {
	cube := dataset.Stack([]*dataset.Dataset{d}, []int64{timestamp})
	plan := chunk.Plan3D(chunk.Spinach, 1, len(d.Y), len(d.X))
	return store.WriteCube(dir, cube, plan, cube.Attrs)
}

// writeMultiVarStore persists the merged, all-subbands granule dataset as
// the final per-granule store.
func writeMultiVarStore(dir string, d *dataset.Dataset, timestamp int64) error {
	cube := dataset.Stack([]*dataset.Dataset{d}, []int64{timestamp})
	plan := chunk.Plan3D(chunk.Spinach, 1, len(d.Y), len(d.X))
	return store.WriteCube(dir, cube, plan, cube.Attrs)
}
