package capture

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"sync"
	"time"

	"chronicle/internal/model"
	"chronicle/internal/phash"

	"github.com/kbinani/screenshot"
	"github.com/nfnt/resize"
	"github.com/rs/zerolog/log"
)

// enumerateMonitors resolves the configured monitor index list against the
// displays actually attached, defaulting to "primary only" (index 0) when
// unset, per spec §4.2.
func enumerateMonitors(configured []int) ([]int, error) {
	n := screenshot.NumActiveDisplays()
	if n <= 0 {
		return nil, fmt.Errorf("capture: no active displays detected")
	}
	if len(configured) == 0 {
		return []int{0}, nil
	}
	out := make([]int, 0, len(configured))
	for _, idx := range configured {
		if idx < 0 || idx >= n {
			log.Warn().Int("monitor", idx).Int("active_displays", n).Msg("configured monitor index out of range, skipping")
			continue
		}
		out = append(out, idx)
	}
	return out, nil
}

// monitorCapturer owns one monitor's capture ticker, last_hash and
// force-save bookkeeping (spec §4.2: "For each frame it computes the
// perceptual hash and compares against a per-monitor last_hash. A frame is
// emitted if (hash changed) OR (time since last forced save >= 5s).").
type monitorCapturer struct {
	index  int
	opts   Options
	images ImageCache
	emit   func(model.RawRecord)

	mu            sync.Mutex
	paused        bool
	haveLastHash  bool
	lastHash      phash.Hash
	lastForceSave time.Time
}

func newMonitorCapturer(index int, opts Options, images ImageCache, emit func(model.RawRecord)) *monitorCapturer {
	return &monitorCapturer{index: index, opts: opts, images: images, emit: emit}
}

func (mc *monitorCapturer) pause() {
	mc.mu.Lock()
	mc.paused = true
	mc.mu.Unlock()
}

func (mc *monitorCapturer) resume() {
	mc.mu.Lock()
	mc.paused = false
	mc.mu.Unlock()
}

func (mc *monitorCapturer) isPaused() bool {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.paused
}

func (mc *monitorCapturer) run(ctx context.Context) {
	ticker := time.NewTicker(mc.opts.CaptureInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if mc.isPaused() {
				continue
			}
			if err := mc.captureOnce(); err != nil {
				log.Error().Err(err).Int("monitor", mc.index).Msg("screen capture failed")
			}
		}
	}
}

func (mc *monitorCapturer) captureOnce() error {
	now := time.Now()
	img, err := screenshot.CaptureDisplay(mc.index)
	if err != nil {
		return fmt.Errorf("capture display %d: %w", mc.index, err)
	}

	hash := phash.Of(img)

	mc.mu.Lock()
	changed := !mc.haveLastHash || phash.Hamming(hash, mc.lastHash) > mc.opts.HashChangeThreshold
	forceDue := now.Sub(mc.lastForceSave) >= mc.opts.ForceSaveInterval
	mc.mu.Unlock()

	if !changed && !forceDue {
		return nil
	}

	resized := resize.Thumbnail(uint(mc.opts.MaxWidth), uint(mc.opts.MaxHeight), img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: mc.opts.JPEGQuality}); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}
	data := buf.Bytes()
	contentHash := hash.Hex()
	mc.images.Cache(contentHash, data)

	mc.mu.Lock()
	mc.lastHash = hash
	mc.haveLastHash = true
	mc.lastForceSave = now
	mc.mu.Unlock()

	bounds := resized.Bounds()
	mc.emit(model.RawRecord{
		Timestamp: now,
		Kind:      model.KindScreenshot,
		Screenshot: &model.ScreenshotPayload{
			MonitorIndex: mc.index,
			Width:        bounds.Dx(),
			Height:       bounds.Dy(),
			Format:       model.FormatJPEG,
			ContentHash:  contentHash,
		},
		ScreenshotBytes: data,
	})
	return nil
}
