// Package orchestrate implements the Mosaic/Stack Orchestrator (C5):
// concurrently staging every (group, file) in a build request, electing a
// center granule, deriving the master grid, mosaicking each timestamp onto
// it, and stacking the per-timestamp mosaics into a cube. The map-phase
// worker pool follows (*InMAP).addCells's shape: a fixed pool of
// goroutines reading job indices off an unbuffered channel, pushing
// results to a channel sized to the job count.
package orchestrate

import (
	"context"
	"math"
	"runtime"
	"sort"

	"github.com/ctessum/geom"

	"github.com/dc3/cubebuilder/dataset"
	"github.com/dc3/cubebuilder/errs"
	"github.com/dc3/cubebuilder/geo"
	"github.com/dc3/cubebuilder/model"
	"github.com/dc3/cubebuilder/ndarray"
	"github.com/dc3/cubebuilder/store"
)

// StagedFile is one successfully staged (group, file) input: its group
// timestamp, source file, and the path of its merged per-granule store.
type StagedFile struct {
	Timestamp int64
	File      model.RasterFile
	StorePath string
}

// StageFunc stages a single raster file within its group and returns the
// path of the resulting per-granule store, per raster.Stage's contract.
type StageFunc func(ctx context.Context, g model.RasterGroup, f model.RasterFile) (string, error)

// StageGroups runs stage concurrently over every file in every group, using
// a worker pool sized to GOMAXPROCS. The first error observed is returned;
// results are otherwise returned in request order.
func StageGroups(ctx context.Context, groups []model.RasterGroup, stage StageFunc) ([]StagedFile, error) {
	type job struct {
		idx   int
		group model.RasterGroup
		file  model.RasterFile
	}
	var jobs []job
	for _, g := range groups {
		for _, f := range g.Files {
			jobs = append(jobs, job{idx: len(jobs), group: g, file: f})
		}
	}
	if len(jobs) == 0 {
		return nil, nil
	}

	type result struct {
		idx    int
		staged StagedFile
		err    error
	}
	jobChan := make(chan job)
	resultChan := make(chan result, len(jobs))
	nprocs := runtime.GOMAXPROCS(-1)

	for p := 0; p < nprocs; p++ {
		go func() {
			for j := range jobChan {
				path, err := stage(ctx, j.group, j.file)
				resultChan <- result{idx: j.idx, staged: StagedFile{Timestamp: j.group.Timestamp, File: j.file, StorePath: path}, err: err}
			}
		}()
	}
	for _, j := range jobs {
		jobChan <- j
	}
	close(jobChan)

	out := make([]StagedFile, len(jobs))
	var firstErr error
	for range jobs {
		r := <-resultChan
		if r.err != nil && firstErr == nil {
			firstErr = r.err
		}
		out[r.idx] = r.staged
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// GroupByTimestamp buckets staged files by their group timestamp, the
// reduce side of the map-reduce staging step.
func GroupByTimestamp(staged []StagedFile) map[int64][]StagedFile {
	out := map[int64][]StagedFile{}
	for _, s := range staged {
		out[s.Timestamp] = append(out[s.Timestamp], s)
	}
	return out
}

// GranuleBounds opens a staged granule's store just far enough to read its
// x/y coordinate extent, without decoding any data variable.
func GranuleBounds(storePath string) (geo.Bounds, error) {
	x, err := store.ReadArray1D(storePath, "x")
	if err != nil {
		return geo.Bounds{}, err
	}
	y, err := store.ReadArray1D(storePath, "y")
	if err != nil {
		return geo.Bounds{}, err
	}
	if len(x) == 0 || len(y) == 0 {
		return geo.Bounds{}, errs.MosaickingErrorf(storePath, "granule store has an empty coordinate grid")
	}
	return geo.Bounds{XMin: x[0], XMax: x[len(x)-1], YMin: y[0], YMax: y[len(y)-1]}, nil
}

// ElectCenterGranule picks the granule whose bounds center is closest to
// the ROI's centroid ("elect the granule closest to the ROI
// center"), breaking ties by URI ascending for determinism.
func ElectCenterGranule(roi geom.Polygon, files []StagedFile) (StagedFile, error) {
	if len(files) == 0 {
		return StagedFile{}, errs.MosaickingErrorf("orchestrate", "no granules to elect a center from")
	}
	centroid := geo.Centroid(roi)
	sorted := append([]StagedFile{}, files...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].File.URI < sorted[j].File.URI })

	best := sorted[0]
	bestDist := math.Inf(1)
	for _, f := range sorted {
		b, err := GranuleBounds(f.StorePath)
		if err != nil {
			return StagedFile{}, err
		}
		cx, cy := (b.XMin+b.XMax)/2, (b.YMin+b.YMax)/2
		d := math.Hypot(cx-centroid.X, cy-centroid.Y)
		if d < bestDist {
			bestDist = d
			best = f
		}
	}
	return best, nil
}

// MasterGrid is the common (x, y) coordinate grid every timestamp's mosaic
// is resampled onto, along with the step sizes it was derived at.
type MasterGrid struct {
	X, Y   []float64
	DX, DY float64
}

// DeriveMasterGrid builds the master grid from the center granule's own
// coordinate spacing, extended to cover roiBounds: dx and dy come from the
// center granule's coordinate spacing, then its grid is completed to cover
// the ROI.
func DeriveMasterGrid(center StagedFile, roiBounds geo.Bounds) (MasterGrid, error) {
	x, err := store.ReadArray1D(center.StorePath, "x")
	if err != nil {
		return MasterGrid{}, err
	}
	y, err := store.ReadArray1D(center.StorePath, "y")
	if err != nil {
		return MasterGrid{}, err
	}
	dx, dy := meanStep(x), meanStep(y)
	mx, my := geo.CompleteGrid(x, y, dx, dy, roiBounds)
	return MasterGrid{X: mx, Y: my, DX: dx, DY: dy}, nil
}

func meanStep(coords []float64) float64 {
	if len(coords) < 2 {
		return 1
	}
	sum := 0.0
	for i := 1; i < len(coords); i++ {
		sum += coords[i] - coords[i-1]
	}
	return sum / float64(len(coords)-1)
}

// OpenGranuleDataset reconstructs the single-timestamp Dataset held in a
// granule store written by store.WriteCube with one t slice.
func OpenGranuleDataset(storePath string) (*dataset.Dataset, error) {
	meta, err := store.ReadMeta(storePath)
	if err != nil {
		return nil, err
	}
	x, err := store.ReadArray1D(storePath, "x")
	if err != nil {
		return nil, err
	}
	y, err := store.ReadArray1D(storePath, "y")
	if err != nil {
		return nil, err
	}
	d := dataset.New(x, y)
	d.Attrs = meta.Attrs

	for name, vmeta := range meta.Variables {
		arr3d, err := store.ReadArray3D(storePath, name, vmeta)
		if err != nil {
			return nil, err
		}
		nx, ny := vmeta.Shape[0], vmeta.Shape[1]
		arr2d := ndarray.NewArray(ny, nx)
		for xi := 0; xi < nx; xi++ {
			for yi := 0; yi < ny; yi++ {
				arr2d.Set(arr3d.Get(xi, yi, 0), yi, xi)
			}
		}
		d.Vars[name] = arr2d
	}
	return d, nil
}

func restrictRange(coords []float64, min, max float64) []float64 {
	out := make([]float64, 0, len(coords))
	for _, c := range coords {
		if c >= min && c <= max {
			out = append(out, c)
		}
	}
	return out
}

// MosaicTimestamp reduces every granule staged for one timestamp onto the
// master grid: each granule's sub-grid (the master grid restricted to, and
// completed over, the granule's own bounds) is nearest-neighbor
// interpolated, then reduced pairwise via dataset.Mosaic in URI order.
func MosaicTimestamp(master MasterGrid, files []StagedFile) (*dataset.Dataset, error) {
	if len(files) == 0 {
		return nil, errs.MosaickingErrorf("orchestrate", "no granules to mosaic for this timestamp")
	}
	sorted := append([]StagedFile{}, files...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].File.URI < sorted[j].File.URI })

	var acc *dataset.Dataset
	for _, f := range sorted {
		d, err := OpenGranuleDataset(f.StorePath)
		if err != nil {
			return nil, err
		}
		gb := dataset.BoundsOf(d)
		subX, subY := geo.CompleteGrid(
			restrictRange(master.X, gb.XMin, gb.XMax),
			restrictRange(master.Y, gb.YMin, gb.YMax),
			master.DX, master.DY,
			geo.Bounds{XMin: gb.XMin, YMin: gb.YMin, XMax: gb.XMax, YMax: gb.YMax},
		)
		onGrid := dataset.InterpolateNearest(d, subX, subY)
		onGrid.Attrs = d.Attrs
		acc, err = dataset.Mosaic(acc, onGrid)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// BuildCube stacks one mosaicked Dataset per sorted timestamp into the
// final cube.
func BuildCube(timestamps []int64, perTimestamp map[int64]*dataset.Dataset) *dataset.Cube {
	slices := make([]*dataset.Dataset, len(timestamps))
	for i, t := range timestamps {
		slices[i] = perTimestamp[t]
	}
	return dataset.Stack(slices, timestamps)
}
