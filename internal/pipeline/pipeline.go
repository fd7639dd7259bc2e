// Package pipeline implements the Pipeline (spec §4.8, component C8): the
// accumulate-then-extract state machine sitting between the Sliding Window
// and the LLM. Grounded on original_source/backend/processing/pipeline_new.py's
// NewProcessingPipeline (screenshot_accumulator, screenshot_threshold trigger,
// input-usage hint, fallback-on-failure degrade), adapted from its async
// task-per-batch shape into a synchronous call the Coordinator drives from
// its own drain loop.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"sort"
	"sync"
	"time"

	"chronicle/internal/filter"
	"chronicle/internal/imagestore"
	"chronicle/internal/llm"
	"chronicle/internal/model"
	"chronicle/internal/optimizer"
	"chronicle/internal/phash"
	"chronicle/internal/sampler"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultScreenshotThreshold is the accumulated-screenshot count that
// triggers extraction (spec §4.8: "default 20").
const DefaultScreenshotThreshold = 20

// batchEventID is the Sampler's per-event-id key. One Pipeline extraction
// call processes one accumulated batch, so a single constant id is enough —
// every call builds a fresh Sampler, so its state never outlives the call
// regardless of how many ids were used during it.
const batchEventID = "batch"

// LLMClient is the subset of llm.Manager the Pipeline calls. A narrow
// interface keeps this package testable without constructing a real Manager.
type LLMClient interface {
	ChatCompletion(ctx context.Context, msgs []llm.Message) (llm.Response, error)
}

// EventStore is the subset of persistence.Store the Pipeline writes through.
type EventStore interface {
	CreateEvent(e model.Event) error
	CreateKnowledge(k model.Knowledge) error
	CreateTodo(t model.Todo) error
	LinkEventImage(eventID, hash string) error
}

// ImageCache is the subset of imagestore.Store the Pipeline uses to hand
// accepted frames to the LLM and retain them for later retrieval.
type ImageCache interface {
	Cache(hash string, data []byte) string
	Persist(hash string, data []byte, keepOriginal bool) (imagestore.PersistResult, error)
}

// Options configures a Pipeline; zero values fall back to spec defaults.
type Options struct {
	ScreenshotThreshold int
	Language            string
	KeepOriginals       bool
	Filter              filter.Options
	Optimizer           optimizer.Options
	Sampler             sampler.Options
}

func (o Options) withDefaults() Options {
	if o.ScreenshotThreshold <= 0 {
		o.ScreenshotThreshold = DefaultScreenshotThreshold
	}
	if o.Language == "" {
		o.Language = "en"
	}
	return o
}

// Result reports the outcome of one ProcessBatch or Stop call, matching
// spec §4.8's "{processed, accumulated, extracted}" return contract. Err
// is set (without failing the call) when extraction degraded to fallback
// because of an internal error — the drain loop logs it but keeps running,
// per spec §7: "Pipeline tick catches-log-continues".
type Result struct {
	Processed  int
	Accumulated int
	Extracted  bool
	Err        string
}

// Pipeline accumulates screenshots across successive batches and, once the
// threshold is reached, runs the optimize→sample→extract→persist sequence.
// All exported methods are safe for concurrent use.
type Pipeline struct {
	opts   Options
	llmc   LLMClient
	store  EventStore
	images ImageCache

	mu          sync.Mutex
	accumulated []model.RawRecord
	sawKeyboard bool
	sawMouse    bool
}

// New creates a Pipeline. llmc, store, and images must be non-nil.
func New(opts Options, llmc LLMClient, store EventStore, images ImageCache) *Pipeline {
	return &Pipeline{opts: opts.withDefaults(), llmc: llmc, store: store, images: images}
}

// ProcessBatch runs one drain tick's worth of raw records through C4, folds
// any screenshots into the accumulator, and triggers extraction once the
// threshold is met. It never returns a Go error: anything that goes wrong
// downstream of filtering is reflected in Result.Err and Result.Extracted,
// matching the resilience contract in spec §7.
func (p *Pipeline) ProcessBatch(ctx context.Context, records []model.RawRecord) Result {
	if len(records) == 0 {
		return Result{}
	}

	filtered := filter.Apply(records, p.opts.Filter)
	if len(filtered) == 0 {
		return Result{}
	}

	var screenshots []model.RawRecord
	hadKeyboard, hadMouse := false, false
	for _, r := range filtered {
		switch r.Kind {
		case model.KindScreenshot:
			screenshots = append(screenshots, r)
		case model.KindKeyboard:
			hadKeyboard = true
		case model.KindMouse:
			hadMouse = true
		}
	}

	p.mu.Lock()
	p.accumulated = append(p.accumulated, screenshots...)
	p.sawKeyboard = p.sawKeyboard || hadKeyboard
	p.sawMouse = p.sawMouse || hadMouse
	triggered := len(p.accumulated) >= p.opts.ScreenshotThreshold
	accumulatedLen := len(p.accumulated)
	p.mu.Unlock()

	if !triggered {
		return Result{Processed: len(screenshots), Accumulated: accumulatedLen, Extracted: false}
	}

	processed, errMsg := p.extractAndReset(ctx)
	return Result{Processed: processed, Accumulated: 0, Extracted: true, Err: errMsg}
}

// Stop flushes any residual accumulator through extraction before the
// Coordinator releases the Pipeline, per spec §4.8: "On pipeline stop, any
// residual accumulator is flushed through step 2 before resources are
// released."
func (p *Pipeline) Stop(ctx context.Context) Result {
	p.mu.Lock()
	residual := len(p.accumulated)
	p.mu.Unlock()

	if residual == 0 {
		return Result{}
	}
	processed, errMsg := p.extractAndReset(ctx)
	return Result{Processed: processed, Accumulated: 0, Extracted: true, Err: errMsg}
}

// PendingCount reports how many screenshots are currently accumulated, for
// stats reporting.
func (p *Pipeline) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.accumulated)
}

// extractAndReset runs the optimize→sample→LLM→persist sequence over the
// current accumulator and always resets it afterward, whether extraction
// succeeded or degraded to fallback.
func (p *Pipeline) extractAndReset(ctx context.Context) (processed int, errMsg string) {
	p.mu.Lock()
	batch := p.accumulated
	hint := inputUsageHint(p.opts.Language, p.sawKeyboard, p.sawMouse)
	p.accumulated = nil
	p.sawKeyboard = false
	p.sawMouse = false
	p.mu.Unlock()

	processed = len(batch)
	if processed == 0 {
		return 0, ""
	}

	sort.SliceStable(batch, func(i, j int) bool { return batch[i].Timestamp.Before(batch[j].Timestamp) })
	eventTimestamp := batch[len(batch)-1].Timestamp

	images, acceptedHashes := p.sampleAndEncode(batch)

	msgs := buildMessages(p.opts.Language, hint, images)
	resp, err := p.llmc.ChatCompletion(ctx, msgs)
	if err != nil {
		log.Warn().Err(err).Msg("pipeline: llm extraction failed, degrading to fallback")
		p.persistFallback(batch, eventTimestamp, acceptedHashes)
		return processed, err.Error()
	}

	ext, ok := parseExtraction(resp.Content)
	if !ok {
		log.Warn().Str("content", truncate(resp.Content, 200)).Msg("pipeline: unparseable llm response, degrading to fallback")
		p.persistFallback(batch, eventTimestamp, acceptedHashes)
		return processed, "unparseable extraction response"
	}

	p.persistExtraction(ext, eventTimestamp, acceptedHashes)
	return processed, ""
}

// sampleAndEncode runs every accumulated screenshot through C5 then C6 in
// order, returning accepted frames as image parts (in timestamp order) plus
// their content hashes for later event-image linking. A frame that fails to
// decode or optimize is dropped and logged; it never aborts the batch.
func (p *Pipeline) sampleAndEncode(batch []model.RawRecord) ([]llm.ImagePart, []string) {
	opt := optimizer.New(p.opts.Optimizer)
	samp := sampler.New(p.opts.Sampler)

	var parts []llm.ImagePart
	var hashes []string

	for i, rec := range batch {
		raw := rec.ScreenshotBytes
		if len(raw) == 0 {
			continue // no in-flight bytes available; nothing to optimize or sample
		}

		result, err := opt.Optimize(raw)
		if err != nil {
			log.Warn().Err(err).Msg("pipeline: optimize frame failed, skipping")
			continue
		}

		img, err := jpeg.Decode(bytes.NewReader(result.JPEG))
		if err != nil {
			log.Warn().Err(err).Msg("pipeline: decode optimized frame failed, skipping")
			continue
		}

		decision := samp.Decide(batchEventID, img, rec.Timestamp, i == 0)
		if !decision.Accept {
			continue
		}

		hash := contentHash(rec, img)
		b64 := p.images.Cache(hash, result.JPEG)
		if _, err := p.images.Persist(hash, result.JPEG, p.opts.KeepOriginals); err != nil {
			log.Warn().Err(err).Str("hash", hash).Msg("pipeline: persist accepted frame failed")
		}

		parts = append(parts, llm.ImagePart{MimeType: "image/jpeg", Base64Data: b64})
		hashes = append(hashes, hash)
	}

	return parts, hashes
}

// contentHash prefers the record's own content hash (set once the frame has
// passed through the Image Store upstream) and falls back to hashing the
// optimized pixels directly, so every accepted frame is addressable even
// when it arrived without a precomputed hash.
func contentHash(rec model.RawRecord, optimized image.Image) string {
	if rec.Screenshot != nil && rec.Screenshot.ContentHash != "" {
		return rec.Screenshot.ContentHash
	}
	return phash.Of(optimized).Hex()
}

func (p *Pipeline) persistExtraction(ext extraction, timestamp time.Time, hashes []string) {
	var eventIDs []string
	for _, e := range ext.Events {
		id := uuid.NewString()
		if err := p.store.CreateEvent(model.Event{
			ID:          id,
			Title:       e.Title,
			Description: e.Description,
			Keywords:    e.Keywords,
			Timestamp:   timestamp,
		}); err != nil {
			log.Warn().Err(err).Msg("pipeline: persist event failed")
			continue
		}
		eventIDs = append(eventIDs, id)
	}

	for _, k := range ext.Knowledge {
		if err := p.store.CreateKnowledge(model.Knowledge{
			ID:          uuid.NewString(),
			Title:       k.Title,
			Description: k.Description,
			Keywords:    k.Keywords,
		}); err != nil {
			log.Warn().Err(err).Msg("pipeline: persist knowledge failed")
		}
	}

	for _, t := range ext.Todos {
		if err := p.store.CreateTodo(model.Todo{
			ID:          uuid.NewString(),
			Title:       t.Title,
			Description: t.Description,
			Keywords:    t.Keywords,
			Completed:   false,
		}); err != nil {
			log.Warn().Err(err).Msg("pipeline: persist todo failed")
		}
	}

	p.linkImages(eventIDs, hashes)
}

// persistFallback synthesizes the single "[Fallback] ..." event spec §4.8
// step 2d requires when extraction cannot be parsed or the LLM call failed.
// No knowledge or todos are emitted in fallback mode.
func (p *Pipeline) persistFallback(batch []model.RawRecord, timestamp time.Time, hashes []string) {
	id := uuid.NewString()
	event := model.Event{
		ID:          id,
		Title:       "[Fallback] Unprocessed activity",
		Description: fallbackDescription(batch),
		Keywords:    nil,
		Timestamp:   timestamp,
	}
	if err := p.store.CreateEvent(event); err != nil {
		log.Error().Err(err).Msg("pipeline: persist fallback event failed")
		return
	}
	p.linkImages([]string{id}, hashes)
}

func (p *Pipeline) linkImages(eventIDs, hashes []string) {
	for _, eventID := range eventIDs {
		for _, hash := range hashes {
			if err := p.store.LinkEventImage(eventID, hash); err != nil {
				log.Warn().Err(err).Str("event_id", eventID).Str("hash", hash).Msg("pipeline: link event image failed")
			}
		}
	}
}

// fallbackDescription concatenates a coarse descriptor per coalesced input
// kind, mirroring the original's "concatenation of coalesced input
// descriptors" wording without requiring the LLM to phrase it.
func fallbackDescription(batch []model.RawRecord) string {
	counts := map[model.RecordKind]int{}
	for _, r := range batch {
		counts[r.Kind]++
	}
	return fmt.Sprintf("%d screenshot(s) captured without a successful extraction pass", counts[model.KindScreenshot])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
