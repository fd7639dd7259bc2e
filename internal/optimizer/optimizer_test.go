package optimizer

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/require"
)

func solidJPEG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func checkerJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/8+y/8)%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func TestOptimizeFirstFrameIsNeverCropped(t *testing.T) {
	o := New(Options{EnableCropping: true})
	data := solidJPEG(t, 320, 240, color.RGBA{R: 10, G: 10, B: 10, A: 255})

	res, err := o.Optimize(data)
	require.NoError(t, err)
	require.False(t, res.Cropped)
	require.NotEmpty(t, res.JPEG)
}

func TestOptimizeFlatFrameScoresLowImportance(t *testing.T) {
	o := New(Options{CompressionLevel: LevelBalanced})
	data := solidJPEG(t, 320, 240, color.RGBA{R: 200, G: 200, B: 200, A: 255})

	res, err := o.Optimize(data)
	require.NoError(t, err)
	require.Equal(t, ImportanceLow, res.Importance)
}

func TestOptimizeBusyFrameScoresHigherImportance(t *testing.T) {
	o := New(Options{CompressionLevel: LevelBalanced})
	data := checkerJPEG(t, 320, 240)

	res, err := o.Optimize(data)
	require.NoError(t, err)
	require.NotEqual(t, ImportanceLow, res.Importance)
}

func TestOptimizeUltraLevelShrinksMoreThanQualityLevel(t *testing.T) {
	data := checkerJPEG(t, 640, 480)

	ultra := New(Options{CompressionLevel: LevelUltra})
	ultraRes, err := ultra.Optimize(data)
	require.NoError(t, err)

	quality := New(Options{CompressionLevel: LevelQuality})
	qualityRes, err := quality.Optimize(data)
	require.NoError(t, err)

	require.Less(t, len(ultraRes.JPEG), len(qualityRes.JPEG))
}

func TestOptimizeUnchangedFrameIsNotCropped(t *testing.T) {
	o := New(Options{EnableCropping: true})
	still := solidJPEG(t, 320, 240, color.RGBA{R: 50, G: 50, B: 50, A: 255})

	_, err := o.Optimize(still)
	require.NoError(t, err)

	res, err := o.Optimize(still)
	require.NoError(t, err)
	require.False(t, res.Cropped, "an identical second frame has no diff bbox, so cropping is abandoned")
}

func TestOptimizeInvalidJPEGReturnsError(t *testing.T) {
	o := New(Options{})
	_, err := o.Optimize([]byte("not a jpeg"))
	require.Error(t, err)
}

func TestResetClearsPreviousFrame(t *testing.T) {
	o := New(Options{EnableCropping: true})
	data := solidJPEG(t, 320, 240, color.RGBA{R: 10, G: 10, B: 10, A: 255})

	_, err := o.Optimize(data)
	require.NoError(t, err)
	o.Reset()
	require.Nil(t, o.prev)
}
