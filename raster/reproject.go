package raster

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"

	"github.com/dc3/cubebuilder/dataset"
	"github.com/dc3/cubebuilder/errs"
	"github.com/dc3/cubebuilder/geo"
	"github.com/dc3/cubebuilder/ndarray"
)

// CropToPolygon crops b to the bounding box of roi (both in b's source
// CRS), dropping any columns/rows entirely outside it; cells inside the
// box but outside the polygon itself are kept unmasked. Returns
// DownloadError if the intersection is empty.
func CropToPolygon(uri string, b *SubbandRaster, roi geom.Polygon) (*SubbandRaster, error) {
	rb := geo.PolygonBounds(roi)
	xmin, ymin := math.Max(b.XMin, rb.XMin), math.Max(b.YMin, rb.YMin)
	xmax, ymax := math.Min(b.XMax, rb.XMax), math.Min(b.YMax, rb.YMax)
	if xmin >= xmax || ymin >= ymax {
		return nil, errs.DownloadErrorf(uri, "empty intersection between raster bounds (%v,%v,%v,%v) and ROI (%v,%v,%v,%v)",
			b.XMin, b.YMin, b.XMax, b.YMax, rb.XMin, rb.YMin, rb.XMax, rb.YMax)
	}

	rows, cols := b.Data.Shape[0], b.Data.Shape[1]
	colOf := func(x float64) int { return int((x - b.XMin) / b.PixelSizeX) }
	rowOf := func(y float64) int { return int((b.YMax - y) / b.PixelSizeY) } // row 0 = north

	c0, c1 := clampInt(colOf(xmin), 0, cols), clampInt(int(math.Ceil((xmax-b.XMin)/b.PixelSizeX)), 0, cols)
	r0, r1 := clampInt(rowOf(ymax), 0, rows), clampInt(int(math.Ceil((b.YMax-ymin)/b.PixelSizeY)), 0, rows)
	if c1 <= c0 || r1 <= r0 {
		return nil, errs.DownloadErrorf(uri, "empty intersection after pixel clamping")
	}

	out := ndarray.NewArray(r1-r0, c1-c0)
	for r := r0; r < r1; r++ {
		for c := c0; c < c1; c++ {
			out.Set(b.Data.Get(r, c), r-r0, c-c0)
		}
	}

	return &SubbandRaster{
		Data:       out,
		XMin:       b.XMin + float64(c0)*b.PixelSizeX,
		XMax:       b.XMin + float64(c1)*b.PixelSizeX,
		YMax:       b.YMax - float64(r0)*b.PixelSizeY,
		YMin:       b.YMax - float64(r1)*b.PixelSizeY,
		PixelSizeX: b.PixelSizeX,
		PixelSizeY: b.PixelSizeY,
		SourceCRS:  b.SourceCRS,
	}, nil
}

// ReprojectToTargetGrid reprojects b (in its source CRS) onto a regular
// grid in targetCRS at targetResolution, using nearest-neighbor resampling:
// each target cell's center is transformed back into
// the source CRS and sampled from the nearest source pixel. The target
// grid's extent is the reprojected source bounds. Returns a Dataset with a
// single variable named varName, x/y ascending.
func ReprojectToTargetGrid(uri, varName string, b *SubbandRaster, targetCRS string, targetResolution float64) (*dataset.Dataset, error) {
	src, err := proj.Parse(b.SourceCRS)
	if err != nil {
		return nil, errs.MosaickingErrorf(uri, "parsing source CRS %q: %v", b.SourceCRS, err)
	}
	dst, err := proj.Parse(targetCRS)
	if err != nil {
		return nil, errs.MosaickingErrorf(uri, "parsing target CRS %q: %v", targetCRS, err)
	}
	fwd, err := src.NewTransform(dst)
	if err != nil {
		return nil, errs.MosaickingErrorf(uri, "building source->target transform: %v", err)
	}
	inv, err := dst.NewTransform(src)
	if err != nil {
		return nil, errs.MosaickingErrorf(uri, "building target->source transform: %v", err)
	}

	corners := [][2]float64{{b.XMin, b.YMin}, {b.XMax, b.YMin}, {b.XMax, b.YMax}, {b.XMin, b.YMax}}
	xmin, ymin := math.Inf(1), math.Inf(1)
	xmax, ymax := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		tx, ty, err := fwd(c[0], c[1])
		if err != nil {
			return nil, errs.MosaickingErrorf(uri, "reprojecting bounds corner: %v", err)
		}
		xmin, xmax = math.Min(xmin, tx), math.Max(xmax, tx)
		ymin, ymax = math.Min(ymin, ty), math.Max(ymax, ty)
	}

	nx := int(math.Ceil((xmax - xmin) / targetResolution))
	ny := int(math.Ceil((ymax - ymin) / targetResolution))
	if nx < 1 {
		nx = 1
	}
	if ny < 1 {
		ny = 1
	}
	x := make([]float64, nx)
	for i := range x {
		x[i] = xmin + (float64(i)+0.5)*targetResolution
	}
	y := make([]float64, ny)
	for i := range y {
		y[i] = ymin + (float64(i)+0.5)*targetResolution
	}

	srcRows, srcCols := b.Data.Shape[0], b.Data.Shape[1]
	arr := ndarray.NewArray(ny, nx)
	for yi, ty := range y {
		for xi, tx := range x {
			sx, sy, err := inv(tx, ty)
			if err != nil {
				arr.Set(math.NaN(), yi, xi)
				continue
			}
			col := int((sx - b.XMin) / b.PixelSizeX)
			row := int((b.YMax - sy) / b.PixelSizeY)
			if col < 0 || col >= srcCols || row < 0 || row >= srcRows {
				arr.Set(math.NaN(), yi, xi)
				continue
			}
			arr.Set(b.Data.Get(row, col), yi, xi)
		}
	}

	ds := dataset.New(x, y)
	ds.Vars[varName] = arr
	return ds, nil
}

// FinestGrid returns the (x, y) coordinate arrays among datasets with the
// smallest step size along each axis (the finest x-axis and y-axis among
// them).
func FinestGrid(datasets []*dataset.Dataset) (x, y []float64) {
	x, y = datasets[0].X, datasets[0].Y
	for _, d := range datasets[1:] {
		if step(d.X) < step(x) {
			x = d.X
		}
		if step(d.Y) < step(y) {
			y = d.Y
		}
	}
	return
}

func step(coords []float64) float64 {
	if len(coords) < 2 {
		return math.Inf(1)
	}
	return (coords[len(coords)-1] - coords[0]) / float64(len(coords)-1)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
