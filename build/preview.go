package build

import (
	"image"
	"image/color"
	"image/color/palette"
	"math"

	"github.com/dc3/cubebuilder/dataset"
	"github.com/dc3/cubebuilder/quality"
)

// RenderPreview rasterizes cube's most recent timestamp slice into a
// preview image per the channel assignment quality.ElectPreview produced:
// a 3-entry RGB assignment renders a true-color composite, a single
// colormap/rainbow assignment renders a paletted image (stdlib
// image/color/palette.WebSafe, since no ecosystem colormap library is in
// the corpus).
func RenderPreview(cube *dataset.Cube, assignment quality.PreviewAssignment) image.Image {
	nx, ny, nt := cube.Dims()
	ti := nt - 1

	if r, g, b, ok := rgbChannels(assignment); ok {
		img := image.NewRGBA(image.Rect(0, 0, nx, ny))
		rb, gb, bb := normalizedBytes(cube, r, ti), normalizedBytes(cube, g, ti), normalizedBytes(cube, b, ti)
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				img.SetRGBA(x, y, color.RGBA{R: rb[x][y], G: gb[x][y], B: bb[x][y], A: 255})
			}
		}
		return img
	}

	varName := ""
	for _, v := range assignment {
		varName = v
	}
	vb := normalizedBytes(cube, varName, ti)
	img := image.NewPaletted(image.Rect(0, 0, nx, ny), palette.WebSafe)
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			idx := palette.WebSafe.Index(color.Gray{Y: vb[x][y]})
			img.SetColorIndex(x, y, uint8(idx))
		}
	}
	return img
}

func rgbChannels(a quality.PreviewAssignment) (r, g, b string, ok bool) {
	r, rok := a["RED"]
	g, gok := a["GREEN"]
	b, bok := a["BLUE"]
	return r, g, b, rok && gok && bok
}

// normalizedBytes maps variable name's t=ti slice into [0,255], indexed
// [x][y], scaling by the min and max of the whole variable across all
// timestamps (not of the slice alone); NaN cells map to 0.
func normalizedBytes(cube *dataset.Cube, name string, ti int) [][]uint8 {
	nx, ny, _ := cube.Dims()
	out := make([][]uint8, nx)
	for x := range out {
		out[x] = make([]uint8, ny)
	}
	arr, ok := cube.Vars[name]
	if !ok {
		return out
	}
	min, _ := arr.Min()
	max, _ := arr.Max()
	span := max - min
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			v := cube.Get(name, x, y, ti)
			if math.IsNaN(v) || span == 0 {
				out[x][y] = 0
				continue
			}
			scaled := (v - min) / span * 255
			out[x][y] = uint8(math.Max(0, math.Min(255, scaled)))
		}
	}
	return out
}
