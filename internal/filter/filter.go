// Package filter implements the Filter/Dedup stage (spec §4.4, component
// C4): screenshot perceptual-hash dedup, keyboard/mouse retention, the
// screenshot rate limit, and the merging pass. Grounded on
// original_source/backend/processing/filter_rules.py's EventFilter, with
// spec.md's exact constants and ordering taking precedence.
package filter

import (
	"sort"
	"time"

	"chronicle/internal/model"
	"chronicle/internal/phash"
)

const (
	// DefaultHashThreshold is the Hamming-distance cutoff at or below which two
	// screenshots are considered duplicates (spec §4.4 step 1).
	DefaultHashThreshold = 5
	// DefaultMinScreenshotsPerWindow bounds how many screenshots survive any
	// 1-second bucket (spec §4.4 step 4).
	DefaultMinScreenshotsPerWindow = 2

	keyboardMergeWindow = 100 * time.Millisecond
	scrollMergeWindow   = 100 * time.Millisecond
	clickMergeWindow    = 500 * time.Millisecond
	screenshotMergeWindow = time.Second
	rateLimitBucket     = time.Second
)

// Options configures a Filter pass; zero values fall back to spec defaults.
type Options struct {
	EnableScreenshotDedup   bool
	HashThreshold           int
	MinScreenshotsPerWindow int
}

func (o Options) withDefaults() Options {
	if o.HashThreshold == 0 {
		o.HashThreshold = DefaultHashThreshold
	}
	if o.MinScreenshotsPerWindow == 0 {
		o.MinScreenshotsPerWindow = DefaultMinScreenshotsPerWindow
	}
	return o
}

// Apply runs the five-step pipeline over a snapshot of RawRecords and
// returns the filtered, merged, timestamp-sorted result. State (last
// accepted screenshot hash) is local to this call — spec §4.4: "State
// (last_hash) resets at the start of every pass."
func Apply(records []model.RawRecord, opts Options) []model.RawRecord {
	opts = opts.withDefaults()

	deduped := dedupScreenshots(records, opts)

	keyboard := retainKeyboard(deduped)
	mouse := retainMouse(deduped)
	screenshots := rateLimitScreenshots(deduped, opts)

	all := make([]model.RawRecord, 0, len(keyboard)+len(mouse)+len(screenshots))
	all = append(all, keyboard...)
	all = append(all, mouse...)
	all = append(all, screenshots...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp.Before(all[j].Timestamp) })

	return mergeConsecutive(all)
}

// dedupScreenshots implements spec §4.4 step 1. A record whose hash cannot
// be computed (e.g. bytes unavailable) is retained, matching the original's
// "can't compute hash, keep the record" fallback.
func dedupScreenshots(records []model.RawRecord, opts Options) []model.RawRecord {
	if !opts.EnableScreenshotDedup {
		return records
	}
	out := make([]model.RawRecord, 0, len(records))
	var lastHash phash.Hash
	haveLast := false

	for _, r := range records {
		if r.Kind != model.KindScreenshot {
			out = append(out, r)
			continue
		}
		h, ok := screenshotHash(r)
		if !ok {
			out = append(out, r)
			continue
		}
		if haveLast && phash.Hamming(h, lastHash) <= opts.HashThreshold {
			continue // duplicate, drop
		}
		lastHash = h
		haveLast = true
		out = append(out, r)
	}
	return out
}

func screenshotHash(r model.RawRecord) (phash.Hash, bool) {
	if r.Screenshot == nil {
		return 0, false
	}
	if r.Screenshot.ContentHash != "" {
		if h, err := phash.ParseHex(r.Screenshot.ContentHash); err == nil {
			return h, true
		}
	}
	if len(r.ScreenshotBytes) > 0 {
		if h, err := phash.OfJPEG(r.ScreenshotBytes); err == nil {
			return h, true
		}
	}
	return 0, false
}

// retainKeyboard implements spec §4.4 step 2: all keyboard records retained.
func retainKeyboard(records []model.RawRecord) []model.RawRecord {
	out := make([]model.RawRecord, 0)
	for _, r := range records {
		if r.Kind == model.KindKeyboard {
			out = append(out, r)
		}
	}
	return out
}

// retainMouse implements spec §4.4 step 3: only "important" mouse actions
// retained (press/release/click/drag/drag_end/scroll).
func retainMouse(records []model.RawRecord) []model.RawRecord {
	out := make([]model.RawRecord, 0)
	for _, r := range records {
		if r.Kind == model.KindMouse && r.Mouse != nil && r.Mouse.IsImportant() {
			out = append(out, r)
		}
	}
	return out
}

// rateLimitScreenshots implements spec §4.4 step 4: within any 1-second
// sliding bucket, at most MinScreenshotsPerWindow screenshots are accepted.
func rateLimitScreenshots(records []model.RawRecord, opts Options) []model.RawRecord {
	out := make([]model.RawRecord, 0)
	var windowStart time.Time
	haveWindow := false
	inWindow := 0

	for _, r := range records {
		if r.Kind != model.KindScreenshot {
			continue
		}
		if !haveWindow {
			windowStart = r.Timestamp
			haveWindow = true
			inWindow = 0
		}
		elapsed := r.Timestamp.Sub(windowStart)
		if elapsed >= rateLimitBucket {
			windowStart = r.Timestamp
			inWindow = 0
			elapsed = 0
		}
		if elapsed < rateLimitBucket && inWindow >= opts.MinScreenshotsPerWindow {
			continue
		}
		out = append(out, r)
		inWindow++
	}
	return out
}
