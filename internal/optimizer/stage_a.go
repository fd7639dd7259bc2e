package optimizer

import (
	"image"
	"image/color"
)

// cropStage implements spec §4.5 Stage A: computes a per-pixel RGB mean-diff
// between the full-resolution current and previous frame (sampling every 4th
// pixel in each direction, see diffBoundingBox), finds the bounding box of
// pixels exceeding DiffThreshold, expands it by CropMargin, and abandons
// cropping (returns ok=false) if the box covers too much of the frame or is
// too thin. The first frame in a batch always goes through full, since o.prev
// is nil until Optimize has run once.
func (o *Optimizer) cropStage(img image.Image) (image.Image, bool) {
	if o.prev == nil {
		return img, false
	}

	bounds := img.Bounds()
	prevBounds := o.prev.Bounds()
	if bounds != prevBounds {
		// Previous frame came from a different resolution; nothing comparable.
		return img, false
	}

	minX, minY, maxX, maxY, found := diffBoundingBox(img, o.prev, DiffThreshold)
	if !found {
		return img, false
	}

	minX -= CropMargin
	minY -= CropMargin
	maxX += CropMargin
	maxY += CropMargin
	if minX < bounds.Min.X {
		minX = bounds.Min.X
	}
	if minY < bounds.Min.Y {
		minY = bounds.Min.Y
	}
	if maxX > bounds.Max.X {
		maxX = bounds.Max.X
	}
	if maxY > bounds.Max.Y {
		maxY = bounds.Max.Y
	}

	w := maxX - minX
	h := maxY - minY
	if w <= 0 || h <= 0 {
		return img, false
	}

	frameArea := float64(bounds.Dx() * bounds.Dy())
	bboxArea := float64(w * h)
	if bboxArea/frameArea > AbandonAreaFraction {
		return img, false
	}
	if w < AbandonMinSide || h < AbandonMinSide {
		return img, false
	}

	cropRect := image.Rect(minX, minY, maxX, maxY)
	return cropImage(img, cropRect), true
}

// diffBoundingBox scans both images at a coarse stride and returns the
// bounding box of pixels whose mean RGB difference exceeds threshold.
func diffBoundingBox(cur, prev image.Image, threshold int) (minX, minY, maxX, maxY int, found bool) {
	bounds := cur.Bounds()
	const stride = 4 // sample every 4th pixel; a full frame is too slow and unnecessary for a bbox

	minX, minY = bounds.Max.X, bounds.Max.Y
	maxX, maxY = bounds.Min.X, bounds.Min.Y

	for y := bounds.Min.Y; y < bounds.Max.Y; y += stride {
		for x := bounds.Min.X; x < bounds.Max.X; x += stride {
			if meanDiff(cur.At(x, y), prev.At(x, y)) <= threshold {
				continue
			}
			found = true
			if x < minX {
				minX = x
			}
			if y < minY {
				minY = y
			}
			if x > maxX {
				maxX = x
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	return minX, minY, maxX, maxY, found
}

func meanDiff(a, b color.Color) int {
	ar, ag, ab, _ := a.RGBA()
	br, bg, bb, _ := b.RGBA()
	// RGBA() returns 16-bit channels; scale down to 8-bit before diffing.
	dr := absInt(int(ar>>8) - int(br>>8))
	dg := absInt(int(ag>>8) - int(bg>>8))
	db := absInt(int(ab>>8) - int(bb>>8))
	return (dr + dg + db) / 3
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// cropImage materializes the given rectangle of img into a new RGBA image.
func cropImage(img image.Image, rect image.Rectangle) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			out.Set(x-rect.Min.X, y-rect.Min.Y, img.At(x, y))
		}
	}
	return out
}
