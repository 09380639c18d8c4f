package geo

import "math"

// CompleteGrid extends lon/lat coordinate arrays so they cover bounds at the
// given steps: prepend arange(lon[0]-dx, xmin, -dx) reversed and append
// arange(lon[-1]+dx, xmax, dx) (same for lat/dy), then adjust the length to
// ceil((xmax-xmin)/dx) by adding or dropping on the side furthest from the
// bound.
func CompleteGrid(lon, lat []float64, dx, dy float64, bounds Bounds) (outLon, outLat []float64) {
	outLon = completeAxis(lon, dx, bounds.XMin, bounds.XMax)
	outLat = completeAxis(lat, dy, bounds.YMin, bounds.YMax)
	return outLon, outLat
}

// arangeExclusive mimics numpy.arange(start, stop, step): values starting at
// start, advancing by step, stopping strictly before stop.
func arangeExclusive(start, stop, step float64) []float64 {
	var out []float64
	if step > 0 {
		for v := start; v < stop; v += step {
			out = append(out, v)
		}
	} else if step < 0 {
		for v := start; v > stop; v += step {
			out = append(out, v)
		}
	}
	return out
}

func reversed(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

func completeAxis(coords []float64, step, min, max float64) []float64 {
	before := reversed(arangeExclusive(coords[0]-step, min, -step))
	after := arangeExclusive(coords[len(coords)-1]+step, max, step)

	grid := make([]float64, 0, len(before)+len(coords)+len(after))
	grid = append(grid, before...)
	grid = append(grid, coords...)
	grid = append(grid, after...)

	target := int(math.Ceil((max - min) / step))

	// The side further from its bound is the one that gets extended (when
	// short) or trimmed (when long); "further" means the larger of the two
	// endpoint-to-bound distances. On a tie the first side is extended and
	// the last side trimmed.
	for len(grid) < target {
		distLast, distFirst := math.Abs(grid[len(grid)-1]-max), math.Abs(grid[0]-min)
		if distLast <= distFirst {
			grid = append([]float64{grid[0] - step}, grid...)
		} else {
			grid = append(grid, grid[len(grid)-1]+step)
		}
	}
	for len(grid) > target {
		distLast, distFirst := math.Abs(grid[len(grid)-1]-max), math.Abs(grid[0]-min)
		if distLast < distFirst {
			grid = grid[1:]
		} else {
			grid = grid[:len(grid)-1]
		}
	}
	return grid
}
