package optimizer

import (
	"image"
	"image/color"
	"math"
)

// scoreImportance implements spec §4.5 Stage B scoring: a weighted blend of
// contrast, complexity, and edge density, each normalized to 0-100, with
// contrast weighted 0.4 and the other two 0.3 each. The per-term computation
// style (downscale, grayscale, first-difference, edge response) is grounded
// on original_source/backend/processing/image_optimization.py's
// ImageContentAnalyzer.analyze_content.
func (o *Optimizer) scoreImportance(img image.Image) Importance {
	gray := grayscale32x32(img)

	contrast := contrastScore(gray)
	complexity := complexityScore(gray)
	edges := edgeDensityScore(gray)

	score := 0.4*contrast + 0.3*complexity + 0.3*edges

	switch {
	case score > 60:
		return ImportanceHigh
	case score >= 30:
		return ImportanceMedium
	default:
		return ImportanceLow
	}
}

// grayscale32x32 downsamples img to a fixed 32x32 grid of 0-255 luma values
// using simple block averaging, matching the original's coarse downscale
// before content analysis.
func grayscale32x32(img image.Image) [32][32]float64 {
	const n = 32
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	var out [n][n]float64
	if w == 0 || h == 0 {
		return out
	}

	for gy := 0; gy < n; gy++ {
		y0 := bounds.Min.Y + gy*h/n
		y1 := bounds.Min.Y + (gy+1)*h/n
		if y1 <= y0 {
			y1 = y0 + 1
		}
		for gx := 0; gx < n; gx++ {
			x0 := bounds.Min.X + gx*w/n
			x1 := bounds.Min.X + (gx+1)*w/n
			if x1 <= x0 {
				x1 = x0 + 1
			}
			out[gy][gx] = avgLuma(img, x0, y0, x1, y1)
		}
	}
	return out
}

func avgLuma(img image.Image, x0, y0, x1, y1 int) float64 {
	var sum float64
	var count int
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			sum += luma(img.At(x, y))
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func luma(c color.Color) float64 {
	r, g, b, _ := c.RGBA()
	return 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
}

// contrastScore is the pixel standard deviation of the grid, normalized so
// that a std-dev of ~64 (a quarter of the 0-255 range, a reasonably busy
// frame) maps to 100.
func contrastScore(grid [32][32]float64) float64 {
	var sum, sumSq float64
	n := 0
	for _, row := range grid {
		for _, v := range row {
			sum += v
			sumSq += v * v
			n++
		}
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	stddev := math.Sqrt(variance)
	return clamp100(stddev / 64.0 * 100.0)
}

// complexityScore is the mean magnitude of first-differences (horizontal and
// vertical) across the grid, normalized against a 32-level swing mapping to 100.
func complexityScore(grid [32][32]float64) float64 {
	var sum float64
	var count int
	for y := range grid {
		for x := range grid[y] {
			if x+1 < len(grid[y]) {
				sum += math.Abs(grid[y][x+1] - grid[y][x])
				count++
			}
			if y+1 < len(grid) {
				sum += math.Abs(grid[y+1][x] - grid[y][x])
				count++
			}
		}
	}
	if count == 0 {
		return 0
	}
	mean := sum / float64(count)
	return clamp100(mean / 32.0 * 100.0)
}

// edgeDensityScore approximates a FIND_EDGES response per cell via the
// Laplacian magnitude against four neighbors, and reports the fraction of
// cells whose response exceeds 50 (0-255 scale).
func edgeDensityScore(grid [32][32]float64) float64 {
	rows := len(grid)
	cols := len(grid[0])
	var above int
	var total int

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			center := grid[y][x]
			var sum float64
			var neighbors int
			if x > 0 {
				sum += math.Abs(center - grid[y][x-1])
				neighbors++
			}
			if x+1 < cols {
				sum += math.Abs(center - grid[y][x+1])
				neighbors++
			}
			if y > 0 {
				sum += math.Abs(center - grid[y-1][x])
				neighbors++
			}
			if y+1 < rows {
				sum += math.Abs(center - grid[y+1][x])
				neighbors++
			}
			if neighbors == 0 {
				continue
			}
			response := sum / float64(neighbors)
			total++
			if response > 50 {
				above++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return clamp100(float64(above) / float64(total) * 100.0)
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
