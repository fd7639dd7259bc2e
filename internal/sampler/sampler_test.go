package sampler

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func checkerImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/4+y/4)%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

func TestFirstFrameAlwaysAccepted(t *testing.T) {
	s := New(Options{})
	now := time.Now()
	d := s.Decide("evt-1", solidImage(64, 64, color.Gray{Y: 128}), now, true)
	require.True(t, d.Accept)
	require.Equal(t, "is_first", d.Reason)
}

func TestLargePHashChangeAcceptsOutsideInterval(t *testing.T) {
	s := New(Options{MinInterval: time.Hour})
	now := time.Now()
	s.Decide("evt-1", solidImage(64, 64, color.Gray{Y: 0}), now, true)

	d := s.Decide("evt-1", checkerImage(64, 64), now.Add(time.Millisecond), false)
	require.True(t, d.Accept)
	require.Equal(t, "phash_distance", d.Reason)
}

func TestLargePHashChangeStillRespectsMaxImagesQuota(t *testing.T) {
	s := New(Options{MinInterval: time.Hour, MaxImages: intPtr(1)})
	now := time.Now()
	s.Decide("evt-1", solidImage(64, 64, color.Gray{Y: 0}), now, true)

	// A second large perceptual jump would normally bypass MinInterval, but
	// the quota is already exhausted by the is_first accept above.
	d := s.Decide("evt-1", checkerImage(64, 64), now.Add(time.Millisecond), false)
	require.False(t, d.Accept)
	require.Equal(t, "max_images_reached", d.Reason)
}

func TestMaxImagesZeroRejectsEveryFrameIncludingFirst(t *testing.T) {
	s := New(Options{MaxImages: intPtr(0)})
	now := time.Now()
	d := s.Decide("evt-1", solidImage(64, 64, color.Gray{Y: 100}), now, true)
	require.False(t, d.Accept)
	require.Equal(t, "max_images_reached", d.Reason)
}

func TestMinIntervalRejectsTooSoon(t *testing.T) {
	s := New(Options{MinInterval: time.Minute})
	now := time.Now()
	s.Decide("evt-1", solidImage(64, 64, color.Gray{Y: 100}), now, true)

	d := s.Decide("evt-1", solidImage(64, 64, color.Gray{Y: 101}), now.Add(time.Second), false)
	require.False(t, d.Accept)
	require.Equal(t, "min_interval_not_elapsed", d.Reason)
}

func TestMaxImagesRejectsBeyondQuota(t *testing.T) {
	s := New(Options{MinInterval: 0, MaxImages: intPtr(1)})
	now := time.Now()
	s.Decide("evt-1", solidImage(64, 64, color.Gray{Y: 100}), now, true)

	d := s.Decide("evt-1", solidImage(64, 64, color.Gray{Y: 101}), now.Add(3*time.Second), false)
	require.False(t, d.Accept)
	require.Equal(t, "max_images_reached", d.Reason)
}

func TestContentCheckRejectsLowContrastNoMotion(t *testing.T) {
	s := New(Options{EnableContentCheck: true, MinInterval: 0})
	now := time.Now()
	s.Decide("evt-1", solidImage(64, 64, color.Gray{Y: 100}), now, true)

	flat := solidImage(64, 64, color.Gray{Y: 101})
	d := s.Decide("evt-1", flat, now.Add(3*time.Second), false)
	require.False(t, d.Accept)
	require.Equal(t, "content_low_contrast_no_motion", d.Reason)
}

func TestResetClearsPerEventState(t *testing.T) {
	s := New(Options{MaxImages: intPtr(1)})
	now := time.Now()
	s.Decide("evt-1", solidImage(64, 64, color.Gray{Y: 100}), now, true)
	require.Len(t, s.events, 1)

	s.Reset()
	require.Empty(t, s.events)

	d := s.Decide("evt-1", solidImage(64, 64, color.Gray{Y: 100}), now, true)
	require.True(t, d.Accept, "fresh state after Reset should accept is_first again")
}

func TestSeparateEventIDsTrackIndependentState(t *testing.T) {
	s := New(Options{MaxImages: intPtr(1)})
	now := time.Now()
	d1 := s.Decide("evt-1", solidImage(64, 64, color.Gray{Y: 100}), now, true)
	d2 := s.Decide("evt-2", solidImage(64, 64, color.Gray{Y: 100}), now, true)
	require.True(t, d1.Accept)
	require.True(t, d2.Accept)
}
