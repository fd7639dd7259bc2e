// Package phash computes the 64-bit perceptual hash used throughout the
// pipeline (Image Store content addressing, C2 frame-change detection, C4
// screenshot dedup, C6 sampling). No dependency in the retrieved corpus implements
// perceptual hashing, so this is built directly against the spec's own
// definition: an 8x8 grayscale downscale compared against its own mean.
package phash

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"math/bits"

	"github.com/nfnt/resize"
)

const (
	gridSize = 8
	bitCount = gridSize * gridSize // 64
)

// Hash is a 64-bit perceptual fingerprint. Hex renders it as 16 hex digits,
// matching the Image Store's content-addressing scheme (spec §4.1).
type Hash uint64

// Hex renders the hash as the 16-hex-character form used for content
// addressing and filenames.
func (h Hash) Hex() string {
	return fmt.Sprintf("%016x", uint64(h))
}

// ParseHex parses a 16-hex-character hash, as produced by Hex.
func ParseHex(s string) (Hash, error) {
	var v uint64
	if _, err := fmt.Sscanf(s, "%016x", &v); err != nil {
		return 0, fmt.Errorf("phash: invalid hex %q: %w", s, err)
	}
	return Hash(v), nil
}

// Hamming returns the number of differing bits between two hashes.
func Hamming(a, b Hash) int {
	return bits.OnesCount64(uint64(a) ^ uint64(b))
}

// OfJPEG decodes a JPEG byte stream and computes its perceptual hash.
func OfJPEG(data []byte) (Hash, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("phash: decode jpeg: %w", err)
	}
	return Of(img), nil
}

// Of computes the perceptual hash of a decoded image: downscale to 8x8
// grayscale, compare each cell against the mean, set a bit where the cell is
// at or above the mean.
func Of(img image.Image) Hash {
	small := resize.Resize(gridSize, gridSize, img, resize.Bilinear)
	gray := make([]float64, 0, bitCount)
	var sum float64
	b := small.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := small.At(x, y).RGBA()
			// luminance from 16-bit channel values
			lum := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)
			gray = append(gray, lum)
			sum += lum
		}
	}
	mean := sum / float64(len(gray))

	var h uint64
	for i, v := range gray {
		if v >= mean {
			h |= 1 << uint(i)
		}
	}
	return Hash(h)
}

// Grayscale8x8 returns the raw 8x8 luminance grid (row-major, 0-255 scale)
// used by the Sampler's content check (contrast and motion), which needs the
// intensities themselves rather than just the derived hash.
func Grayscale8x8(img image.Image) [bitCount]float64 {
	small := resize.Resize(gridSize, gridSize, img, resize.Bilinear)
	var out [bitCount]float64
	b := small.Bounds()
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := small.At(x, y).RGBA()
			lum := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)) / 257 // 16-bit -> 8-bit
			out[i] = lum
			i++
		}
	}
	return out
}
