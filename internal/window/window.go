// Package window implements the Sliding Window (spec §4.3, component C3):
// a bounded, time-ordered in-memory buffer of raw records, plus the
// companion EventBuffer used for transient downstream handoff.
package window

import (
	"sort"
	"sync"
	"time"

	"chronicle/internal/model"
)

// DefaultSize is the default age bound (spec §4.3: "default 20 s").
const DefaultSize = 20 * time.Second

// Window is a bounded time-indexed buffer of RawRecords. All operations are
// safe for concurrent use behind a single fine-grained mutex, matching
// §5's "fine-grained lock around the deque; all operations are O(1)
// amortized" (amortized here because Push does a linear expiry scan, but the
// scan only ever touches records already past expiry — each record is
// visited for removal at most once).
type Window struct {
	mu      sync.Mutex
	size    time.Duration
	records []model.RawRecord
	now     func() time.Time
}

// New creates a Window with the given age bound. A size <= 0 uses
// DefaultSize.
func New(size time.Duration) *Window {
	if size <= 0 {
		size = DefaultSize
	}
	return &Window{size: size, now: time.Now}
}

// Push appends a record and opportunistically expires anything older than
// the window size. Push never blocks and never fails: if a caller pushes
// faster than the window drains, the oldest records are simply dropped —
// spec §4.3 treats this as acceptable because capture sources can
// cheaply re-produce a dropped sample on the next tick.
func (w *Window) Push(r model.RawRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records = append(w.records, r)
	w.expireLocked(w.now())
}

// expireLocked drops everything past the window size. Records are kept in
// push order, not timestamp order (cross-source interleaving), so expiry
// can't assume a contiguous expirable prefix — it compacts in place instead.
func (w *Window) expireLocked(now time.Time) {
	cutoff := now.Add(-w.size)
	kept := w.records[:0]
	for _, rec := range w.records {
		if rec.Timestamp.After(cutoff) {
			kept = append(kept, rec)
		}
	}
	w.records = kept
}

func sortedCopy(records []model.RawRecord) []model.RawRecord {
	out := make([]model.RawRecord, len(records))
	copy(out, records)
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// SnapshotLast returns the last n records (by timestamp order), after
// expiring anything past the window size.
func (w *Window) SnapshotLast(n int) []model.RawRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expireLocked(w.now())
	sorted := sortedCopy(w.records)
	if n <= 0 || n >= len(sorted) {
		return sorted
	}
	return sorted[len(sorted)-n:]
}

// SnapshotByKind returns all non-expired records of the given kind, in
// timestamp order.
func (w *Window) SnapshotByKind(kind model.RecordKind) []model.RawRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expireLocked(w.now())
	sorted := sortedCopy(w.records)
	out := sorted[:0:0]
	for _, r := range sorted {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// SnapshotRange returns non-expired records with start <= timestamp < end.
func (w *Window) SnapshotRange(start, end time.Time) []model.RawRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expireLocked(w.now())
	sorted := sortedCopy(w.records)
	out := sorted[:0:0]
	for _, r := range sorted {
		if !r.Timestamp.Before(start) && r.Timestamp.Before(end) {
			out = append(out, r)
		}
	}
	return out
}

// SnapshotLastSeconds returns non-expired records from the last n seconds;
// this is the Coordinator's drain primitive (spec §4.11 step 4).
func (w *Window) SnapshotLastSeconds(n time.Duration) []model.RawRecord {
	w.mu.Lock()
	now := w.now()
	w.expireLocked(now)
	sorted := sortedCopy(w.records)
	w.mu.Unlock()

	cutoff := now.Add(-n)
	out := sorted[:0:0]
	for _, r := range sorted {
		if r.Timestamp.After(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the current (possibly stale by one Push) record count; mainly
// for stats reporting.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.records)
}
