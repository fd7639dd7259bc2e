package phash

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/require"
)

func solidJPEG(t *testing.T, c color.Gray) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = c.Y
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func TestHammingIdenticalImages(t *testing.T) {
	data := solidJPEG(t, color.Gray{Y: 128})
	h1, err := OfJPEG(data)
	require.NoError(t, err)
	h2, err := OfJPEG(data)
	require.NoError(t, err)
	require.Equal(t, 0, Hamming(h1, h2))
}

func TestOfJPEGHandlesUniformExtremes(t *testing.T) {
	white := solidJPEG(t, color.Gray{Y: 255})
	black := solidJPEG(t, color.Gray{Y: 0})
	hw, err := OfJPEG(white)
	require.NoError(t, err)
	hb, err := OfJPEG(black)
	require.NoError(t, err)
	// A uniform image has every cell equal to the mean, so both hashes are
	// in principle degenerate and need not differ; this only checks that
	// decoding and hashing the two extremes succeed without panicking.
	_ = Hamming(hw, hb)
}

func TestHexRoundTrip(t *testing.T) {
	h := Hash(0x1234567890abcdef)
	parsed, err := ParseHex(h.Hex())
	require.NoError(t, err)
	require.Equal(t, h, parsed)
}
