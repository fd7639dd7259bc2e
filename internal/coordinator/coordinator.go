// Package coordinator implements the Coordinator (spec §4.11, component
// C11): the lifecycle state machine that validates the active model,
// starts/stops Capture (C2), the Pipeline (C8) and the Aggregation
// Scheduler (C9) together, and drains the Sliding Window (C3) into the
// Pipeline on a fixed cadence. Grounded on original_source's coordinator
// re-architecture notes (state machine, sanitized status, cooperative
// stop) and, for its concurrent-startup shape, on the same
// context+errgroup+WaitGroup pattern already used by pipeline.Pipeline
// (C8) and aggregation.Scheduler (C9).
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"chronicle/internal/aggregation"
	"chronicle/internal/capture"
	"chronicle/internal/config"
	"chronicle/internal/filter"
	"chronicle/internal/imagestore"
	"chronicle/internal/llm"
	"chronicle/internal/llm/anthropic"
	"chronicle/internal/llm/openai"
	"chronicle/internal/model"
	"chronicle/internal/observability"
	"chronicle/internal/optimizer"
	"chronicle/internal/persistence"
	"chronicle/internal/pipeline"
	"chronicle/internal/sampler"
	"chronicle/internal/window"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultFirstDrainDelay is the "100ms" first-tick delay spec §4.11
// describes before the coordinator settles into its steady processing
// cadence.
const DefaultFirstDrainDelay = 100 * time.Millisecond

// DefaultStopTimeout bounds how long Stop waits for cooperative shutdown
// before returning anyway (spec §5: "5s cooperative-stop upper bound").
const DefaultStopTimeout = 5 * time.Second

// Coordinator owns every long-running component and the single state
// machine governing them. All exported methods are safe for concurrent
// use.
type Coordinator struct {
	cfg    config.Config
	store  *persistence.Store
	images *imagestore.Store
	llmMgr *llm.Manager
	pub    *publisher

	window *window.Window
	buffer *window.EventBuffer

	mu        sync.Mutex
	state     State
	lastError string
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	startTime          time.Time
	processingCycles   int64
	lastProcessingTime time.Time

	capture *capture.Manager
	pipe    *pipeline.Pipeline
	agg     *aggregation.Scheduler
}

// New wires a Coordinator against an already-open persistence.Store and
// imagestore.Store. The LLM Manager is constructed once here with both
// known backend factories, matching spec §4.7's "openai"/"anthropic"
// provider set.
func New(cfg config.Config, store *persistence.Store, images *imagestore.Store) *Coordinator {
	httpClient := observability.NewHTTPClient(&http.Client{Timeout: 60 * time.Second})
	llmMgr := llm.NewManager(store, httpClient, map[string]llm.BackendFactory{
		"openai":    openai.New,
		"anthropic": anthropic.New,
	})

	windowSize := time.Duration(cfg.Monitoring.WindowSize) * time.Second
	return &Coordinator{
		cfg:    cfg,
		store:  store,
		images: images,
		llmMgr: llmMgr,
		pub:    newPublisher(0),
		window: window.New(windowSize),
		buffer: window.NewEventBuffer(0),
		state:  StateStopped,
	}
}

// Events returns the UI notification fan-out channel. Events are dropped,
// never buffered indefinitely, if nothing drains this channel.
func (c *Coordinator) Events() <-chan UIEvent {
	return c.pub.ch
}

// State reports the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status builds the full public status report, sanitizing the active model
// row per spec §4.11.
func (c *Coordinator) Status(ctx context.Context) Status {
	c.mu.Lock()
	st := Status{
		Mode:               c.state,
		LastError:          c.lastError,
		WindowLen:          c.window.Len(),
		BufferLen:          c.buffer.Len(),
		StartTime:          c.startTime,
		ProcessingCycles:   c.processingCycles,
		LastProcessingTime: c.lastProcessingTime,
	}
	if c.pipe != nil {
		st.PipelinePending = c.pipe.PendingCount()
	}
	c.mu.Unlock()

	if active, err := c.store.GetActiveModel(); err == nil {
		sanitized := active.Sanitized()
		st.ActiveModel = &sanitized
	}
	if stats, err := capture.PollStats(ctx); err == nil {
		st.Capture = &stats
	}
	return st
}

// Start validates the active model, builds C2/C8/C9 if they don't already
// exist, starts them concurrently, and launches the drain loop. Calling
// Start while already Running is a no-op (idempotent per spec §7).
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateRunning || c.state == StateStarting {
		c.mu.Unlock()
		return nil
	}
	c.state = StateStarting
	c.lastError = ""
	c.startTime = time.Now().UTC()
	c.mu.Unlock()

	if _, err := c.store.GetActiveModel(); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			c.mu.Lock()
			c.state = StateRequiresModel
			c.mu.Unlock()
			return nil
		}
		return c.fail(fmt.Errorf("coordinator: load active model: %w", err))
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	if c.capture == nil {
		c.capture = c.buildCapture()
	}
	if c.pipe == nil {
		c.pipe = c.buildPipeline()
	}
	if c.agg == nil {
		c.agg = c.buildAggregation()
	}
	capMgr, agg := c.capture, c.agg
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return capMgr.Start(gctx) })
	g.Go(func() error {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := agg.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("aggregation scheduler exited")
			}
		}()
		return nil
	})
	if err := g.Wait(); err != nil {
		cancel()
		return c.fail(fmt.Errorf("coordinator: start components: %w", err))
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.drainLoop(runCtx)
	}()

	c.mu.Lock()
	c.state = StateRunning
	c.mu.Unlock()
	return nil
}

func (c *Coordinator) fail(err error) error {
	c.mu.Lock()
	c.state = StateError
	c.lastError = err.Error()
	c.mu.Unlock()
	_ = c.stopLocked()
	return err
}

// Stop cooperatively cancels every component, waits up to
// DefaultStopTimeout for them to exit, and then flushes the Pipeline's
// residual accumulator through Pipeline.Stop. It is idempotent and crash-safe:
// calling it twice, or calling it when Start never ran, is a no-op.
func (c *Coordinator) Stop() {
	c.stopLocked()
}

func (c *Coordinator) stopLocked() error {
	c.mu.Lock()
	cancel := c.cancel
	capMgr := c.capture
	pipe := c.pipe
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if capMgr != nil {
		capMgr.Stop()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(DefaultStopTimeout):
		log.Warn().Msg("coordinator stop: components did not exit within the cooperative timeout")
	}

	if cancel != nil && pipe != nil {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), DefaultStopTimeout)
		pipe.Stop(flushCtx)
		flushCancel()
	}

	c.mu.Lock()
	if c.state != StateError {
		c.state = StateStopped
	}
	c.mu.Unlock()
	return nil
}

func (c *Coordinator) buildCapture() *capture.Manager {
	emit := func(r model.RawRecord) {
		c.window.Push(r)
		c.buffer.Push(r)
		if data, err := json.Marshal(r); err != nil {
			log.Warn().Err(err).Msg("coordinator: marshal raw record for diagnostic log failed")
		} else if err := c.store.InsertRawRecord(r.Timestamp, r.Kind, string(data)); err != nil {
			log.Warn().Err(err).Msg("coordinator: persist diagnostic raw record failed")
		}
	}
	var monitors []int
	for _, s := range c.cfg.Screenshot.ScreenSettings {
		if s.IsEnabled {
			monitors = append(monitors, s.MonitorIndex)
		}
	}
	opts := capture.Options{
		Monitors:        monitors,
		CaptureInterval: time.Duration(c.cfg.Monitoring.CaptureInterval * float64(time.Second)),
	}
	return capture.New(capture.NoopKeyboardSource{}, capture.NoopMouseSource{}, capture.NoopScreenStateSource{}, c.images, opts, emit)
}

func (c *Coordinator) buildPipeline() *pipeline.Pipeline {
	opts := pipeline.Options{
		ScreenshotThreshold: c.cfg.Processing.EventExtractionThreshold,
		Language:            c.cfg.Language.DefaultLanguage,
		Filter: filter.Options{
			EnableScreenshotDedup: c.cfg.Processing.EnableScreenshotDeduplication,
		},
		Optimizer: optimizer.Options{
			EnableCropping:   c.cfg.ImageOptimization.EnableCropping,
			CompressionLevel: optimizer.CompressionLevel(c.cfg.ImageOptimization.CompressionLevel),
		},
		Sampler: sampler.Options{
			PHashThreshold:     c.cfg.ImageOptimization.PHashThreshold,
			MinInterval:        time.Duration(c.cfg.ImageOptimization.MinIntervalSeconds * float64(time.Second)),
			MaxImages:          c.cfg.ImageOptimization.MaxImagesPerEvent,
			EnableContentCheck: c.cfg.ImageOptimization.EnableContentCheck,
		},
	}
	return pipeline.New(opts, c.llmMgr, c.store, c.images)
}

func (c *Coordinator) buildAggregation() *aggregation.Scheduler {
	opts := aggregation.Options{
		ActivityInterval:  time.Duration(c.cfg.Processing.ActivitySummaryInterval) * time.Second,
		KnowledgeInterval: time.Duration(c.cfg.Processing.KnowledgeMergeInterval) * time.Second,
		TodoInterval:      time.Duration(c.cfg.Processing.TodoMergeInterval) * time.Second,
		Language:          c.cfg.Language.DefaultLanguage,
	}
	return aggregation.New(c.store, c.llmMgr, opts)
}

// drainLoop fires once after DefaultFirstDrainDelay, then every
// processing_interval, handing the window's current contents to the
// Pipeline (spec §4.11: "100ms then processing_interval").
func (c *Coordinator) drainLoop(ctx context.Context) {
	interval := time.Duration(c.cfg.Monitoring.ProcessingInterval) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	windowSize := time.Duration(c.cfg.Monitoring.WindowSize) * time.Second
	if windowSize <= 0 {
		windowSize = window.DefaultSize
	}

	timer := time.NewTimer(DefaultFirstDrainDelay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			c.drainOnce(ctx, windowSize)
			timer.Reset(interval)
		}
	}
}

func (c *Coordinator) drainOnce(ctx context.Context, windowSize time.Duration) {
	records := c.window.SnapshotLastSeconds(windowSize)
	if len(records) == 0 {
		return
	}

	c.mu.Lock()
	c.processingCycles++
	c.lastProcessingTime = time.Now().UTC()
	c.mu.Unlock()

	result := c.pipe.ProcessBatch(ctx, records)
	if result.Err != "" {
		log.Error().Str("err", result.Err).Msg("pipeline drain tick degraded to fallback")
	}
	if result.Extracted {
		c.pub.publish(EventBulkUpdateCompleted, result)
	}
}

// ForceFinalize runs the aggregation passes immediately, bypassing their
// timers (used by the processing.finalize_current_activity operation).
func (c *Coordinator) ForceFinalize(ctx context.Context) error {
	c.mu.Lock()
	agg := c.agg
	c.mu.Unlock()
	if agg == nil {
		return fmt.Errorf("coordinator: not running")
	}
	return agg.ForceFinalize(ctx)
}
