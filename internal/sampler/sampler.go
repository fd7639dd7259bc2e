// Package sampler implements the Sampler (spec §4.6, component C6): the
// hybrid pHash + content-aware + interval/quota decision on which optimized
// frames reach the LLM. Grounded on original_source/backend/processing/
// image_optimization.py's HybridImageFilter.should_include_image rule
// ordering, with spec.md §4.6's exact thresholds and wording taking
// precedence.
package sampler

import (
	"image"
	"math"
	"time"

	"chronicle/internal/phash"
)

const (
	// DefaultPHashThreshold matches spec §4.6's phash_threshold default.
	DefaultPHashThreshold = 0.10
	// DefaultMinInterval is the minimum spacing between accepted frames for
	// the same event id.
	DefaultMinInterval = 2 * time.Second
	// DefaultMaxImages bounds how many frames one event id can contribute.
	DefaultMaxImages = 8

	contentHighContrast = 50.0
	contentLowContrast  = 20.0
	motionThreshold     = 10.0
)

// Options configures a Sampler; zero values fall back to spec defaults,
// except MaxImages (see its doc comment).
type Options struct {
	PHashThreshold float64
	MinInterval    time.Duration

	// MaxImages is a *int, not a bare int: spec §8 names max_images = 0 as
	// a meaningful boundary ("no images sent, extraction still happens
	// with text-only prompt"), so nil (unset) must fall back to
	// DefaultMaxImages while an explicit 0 must be honored as-is.
	MaxImages *int

	EnableContentCheck bool
}

func (o Options) withDefaults() Options {
	if o.PHashThreshold == 0 {
		o.PHashThreshold = DefaultPHashThreshold
	}
	if o.MinInterval == 0 {
		o.MinInterval = DefaultMinInterval
	}
	if o.MaxImages == nil {
		def := DefaultMaxImages
		o.MaxImages = &def
	}
	return o
}

func (o Options) maxImages() int {
	if o.MaxImages == nil {
		return DefaultMaxImages
	}
	return *o.MaxImages
}

// Decision records whether a candidate frame was accepted and why, for the
// optimization stats spec §4.6 requires ("all decisions are recorded with a
// reason string").
type Decision struct {
	Accept bool
	Reason string
}

type eventState struct {
	lastAcceptedHash phash.Hash
	haveLastHash     bool
	lastAcceptedAt   time.Time
	haveLastAt       bool
	acceptedCount    int
}

// Sampler holds per-event-id state across a batch. The Pipeline constructs
// a fresh Sampler for every extraction batch, so per-event state never
// carries over from one batch to the next; Reset clears the same state for a
// Sampler that is reused.
type Sampler struct {
	opts   Options
	events map[string]*eventState
}

// New creates a Sampler with the given options.
func New(opts Options) *Sampler {
	return &Sampler{
		opts:   opts.withDefaults(),
		events: make(map[string]*eventState),
	}
}

// Reset clears all per-event-id state.
func (s *Sampler) Reset() {
	s.events = make(map[string]*eventState)
}

// Decide evaluates the four-rule hybrid decision for one candidate frame.
// img is the decoded (already-optimized) frame; isFirst marks the first
// candidate observed for eventID in this batch.
func (s *Sampler) Decide(eventID string, img image.Image, now time.Time, isFirst bool) Decision {
	st := s.events[eventID]
	if st == nil {
		st = &eventState{}
		s.events[eventID] = st
	}

	// max_images = 0 means no images at all, per spec §8's boundary case:
	// extraction still runs, but text-only. This takes precedence over
	// every other rule, including is_first.
	if s.opts.maxImages() <= 0 {
		return Decision{Accept: false, Reason: "max_images_reached"}
	}

	// Rule 1: is_first always accepts.
	if isFirst {
		return s.accept(st, img, now, "is_first")
	}

	hash := phash.Of(img)

	// Rule 2: large perceptual change from the last accepted frame bypasses
	// the interval gate below (spec: "candidate accepted, fall through to
	// 4" describes the original's continuation to the quota *bookkeeping*
	// step), but never the max_images quota — an unbounded run of large
	// pHash jumps must still stop at max_images, same as the original's
	// should_include_image still checking current_count >= max_images on
	// its significant-change branch.
	distanceThreshold := int((1 - s.opts.PHashThreshold) * 64)
	if st.haveLastHash && phash.Hamming(hash, st.lastAcceptedHash) >= distanceThreshold {
		if st.acceptedCount >= s.opts.maxImages() {
			return Decision{Accept: false, Reason: "max_images_reached"}
		}
		return s.acceptWithHash(st, hash, now, "phash_distance")
	}

	// Rule 3: content check, if enabled.
	if s.opts.EnableContentCheck {
		grid := phash.Grayscale8x8(img)
		contrast := contrastOf(grid)
		motion := motionOf(grid)

		if contrast > contentHighContrast || motion > motionThreshold {
			// keep: fall through to the interval/quota gate
		} else if contrast < contentLowContrast && motion <= motionThreshold {
			return Decision{Accept: false, Reason: "content_low_contrast_no_motion"}
		}
	}

	// Rule 4: interval/quota gate.
	if st.acceptedCount >= s.opts.maxImages() {
		return Decision{Accept: false, Reason: "max_images_reached"}
	}
	if st.haveLastAt && now.Sub(st.lastAcceptedAt) < s.opts.MinInterval {
		return Decision{Accept: false, Reason: "min_interval_not_elapsed"}
	}

	return s.acceptWithHash(st, hash, now, "interval_quota")
}

func (s *Sampler) accept(st *eventState, img image.Image, now time.Time, reason string) Decision {
	return s.acceptWithHash(st, phash.Of(img), now, reason)
}

func (s *Sampler) acceptWithHash(st *eventState, hash phash.Hash, now time.Time, reason string) Decision {
	st.lastAcceptedHash = hash
	st.haveLastHash = true
	st.lastAcceptedAt = now
	st.haveLastAt = true
	st.acceptedCount++
	return Decision{Accept: true, Reason: reason}
}

// contrastOf is the pixel standard deviation of the 8x8 grid.
func contrastOf(grid [64]float64) float64 {
	var sum, sumSq float64
	for _, v := range grid {
		sum += v
		sumSq += v * v
	}
	n := float64(len(grid))
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// motionOf is the mean of first-difference magnitudes across the flattened
// grayscale grid, per spec §4.6.
func motionOf(grid [64]float64) float64 {
	var sum float64
	var count int
	for i := 1; i < len(grid); i++ {
		diff := grid[i] - grid[i-1]
		if diff < 0 {
			diff = -diff
		}
		sum += diff
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
