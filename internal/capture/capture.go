// Package capture implements the Capture Sources (spec §4.2, component C2):
// keyboard, mouse, screen-state and multi-monitor screen capturers feeding
// RawRecords into the Sliding Window. Grounded on spec.md §4.2's capability
// set {start, stop, poll_stats} and concurrency model (native event loops on
// dedicated threads handing records across a channel boundary, never
// suspending the consumer). No keyboard/mouse global-hook library exists
// anywhere in the retrieved corpus (the nearest candidates are HTTP/gRPC/
// storage clients), so KeyboardSource and MouseSource are defined as
// interfaces the platform-specific hook would satisfy; this package supplies
// the channel handoff, significance filtering, coalescing and pause/resume
// plumbing around them, plus a noop implementation of each so a Manager is
// fully constructible and testable without one (see DESIGN.md).
package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chronicle/internal/model"

	"github.com/rs/zerolog/log"
)

// ImageCache is the narrow Image Store surface the screen capturer writes
// through before a RawRecord is published. Satisfied structurally by
// *imagestore.Store.
type ImageCache interface {
	Cache(hash string, data []byte) string
}

// Options configures a Manager.
type Options struct {
	// Monitors lists the monitor indices to capture. Empty means "primary
	// only", per spec §4.2's "default: primary only if unset".
	Monitors []int
	// CaptureInterval is the screen-capture tick period (config
	// monitoring.capture_interval, default 200ms).
	CaptureInterval time.Duration
	// MaxWidth/MaxHeight bound the downscaled frame before JPEG encoding
	// (spec §4.2 default ceiling 1920x1080).
	MaxWidth, MaxHeight int
	// JPEGQuality is the recompression quality (spec §4.2 default 85).
	JPEGQuality int
	// ForceSaveInterval is the per-monitor "emit anyway" upper bound (spec
	// §4.2: "time since last forced save >= 5s").
	ForceSaveInterval time.Duration
	// HashChangeThreshold is the Hamming-distance cutoff above which a new
	// frame is considered changed from the monitor's last_hash. Reuses
	// filter.DefaultHashThreshold's value rather than inventing a second
	// magic number for what is the same "perceptibly different" judgment.
	HashChangeThreshold int
}

const (
	DefaultCaptureInterval     = 200 * time.Millisecond
	DefaultMaxWidth            = 1920
	DefaultMaxHeight           = 1080
	DefaultJPEGQuality         = 85
	DefaultForceSaveInterval   = 5 * time.Second
	DefaultHashChangeThreshold = 5
)

func (o Options) withDefaults() Options {
	if o.CaptureInterval <= 0 {
		o.CaptureInterval = DefaultCaptureInterval
	}
	if o.MaxWidth <= 0 {
		o.MaxWidth = DefaultMaxWidth
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = DefaultMaxHeight
	}
	if o.JPEGQuality <= 0 {
		o.JPEGQuality = DefaultJPEGQuality
	}
	if o.ForceSaveInterval <= 0 {
		o.ForceSaveInterval = DefaultForceSaveInterval
	}
	if o.HashChangeThreshold <= 0 {
		o.HashChangeThreshold = DefaultHashChangeThreshold
	}
	return o
}

// Manager owns every capture source and republishes their RawRecords onto
// one Emit callback, applying the screen-state pause/resume gate to all of
// them uniformly.
type Manager struct {
	opts   Options
	images ImageCache
	emit   func(model.RawRecord)

	keyboard    KeyboardSource
	mouse       MouseSource
	screenState ScreenStateSource
	screens     []*monitorCapturer

	mu      sync.Mutex
	paused  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New builds a Manager. emit is called once per captured RawRecord, from
// whichever goroutine produced it; it must not block (the Coordinator wires
// it directly to window.Window.Push, which never blocks).
func New(keyboard KeyboardSource, mouse MouseSource, screenState ScreenStateSource, images ImageCache, opts Options, emit func(model.RawRecord)) *Manager {
	if keyboard == nil {
		keyboard = NoopKeyboardSource{}
	}
	if mouse == nil {
		mouse = NoopMouseSource{}
	}
	if screenState == nil {
		screenState = NoopScreenStateSource{}
	}
	return &Manager{
		opts:        opts.withDefaults(),
		images:      images,
		emit:        emit,
		keyboard:    keyboard,
		mouse:       mouse,
		screenState: screenState,
	}
}

// Start launches every capture source. Screen capturers are created lazily
// here (not in New) so a re-Start after Stop re-enumerates monitors.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("capture: manager already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.mu.Unlock()

	monitors, err := enumerateMonitors(m.opts.Monitors)
	if err != nil {
		return fmt.Errorf("capture: enumerate monitors: %w", err)
	}
	for _, idx := range monitors {
		mc := newMonitorCapturer(idx, m.opts, m.images, m.guardedEmit)
		m.screens = append(m.screens, mc)
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			mc.run(ctx)
		}()
	}

	kbEvents, err := m.keyboard.Start(ctx)
	if err != nil {
		return fmt.Errorf("capture: start keyboard source: %w", err)
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		runKeyboardLoop(ctx, kbEvents, m.guardedEmit)
	}()

	mouseEvents, err := m.mouse.Start(ctx)
	if err != nil {
		return fmt.Errorf("capture: start mouse source: %w", err)
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		runMouseLoop(ctx, mouseEvents, m.guardedEmit)
	}()

	stateEvents, err := m.screenState.Start(ctx)
	if err != nil {
		return fmt.Errorf("capture: start screen-state source: %w", err)
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runScreenStateLoop(ctx, stateEvents)
	}()

	return nil
}

// Stop cancels every source and waits for their goroutines to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.mu.Unlock()

	cancel()
	m.keyboard.Stop()
	m.mouse.Stop()
	m.screenState.Stop()
	m.wg.Wait()

	m.mu.Lock()
	m.screens = nil
	m.mu.Unlock()
}

// Stats reports the capture process's current resource usage (spec §4.2's
// poll_stats capability).
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	return PollStats(ctx)
}

// guardedEmit drops records while paused (screen lock/sleep), per spec
// §4.2's "On lock/sleep the manager enters a paused state ... no records are
// accepted."
func (m *Manager) guardedEmit(r model.RawRecord) {
	m.mu.Lock()
	paused := m.paused
	m.mu.Unlock()
	if paused {
		return
	}
	m.emit(r)
}

// runScreenStateLoop toggles the pause gate on lock/unlock (idempotently)
// and stops/restarts the screen capturers so no frames are grabbed while the
// screen is inaccessible.
func (m *Manager) runScreenStateLoop(ctx context.Context, events <-chan ScreenStateEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev {
			case ScreenLocked, ScreenSleeping:
				m.setPaused(true)
			case ScreenUnlocked, ScreenWoken:
				m.setPaused(false)
			}
		}
	}
}

func (m *Manager) setPaused(paused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paused == paused {
		return // idempotent
	}
	m.paused = paused
	for _, mc := range m.screens {
		if paused {
			mc.pause()
		} else {
			mc.resume()
		}
	}
	log.Info().Bool("paused", paused).Msg("capture pause state changed")
}
