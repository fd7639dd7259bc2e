package capture

import (
	"context"
	"sync"
	"testing"
	"time"

	"chronicle/internal/model"

	"github.com/stretchr/testify/require"
)

// mouseHarness drives runMouseLoop against a live channel so the
// select-driven coalescing deadlines run in real time, matching how events
// actually arrive from a MouseSource.
type mouseHarness struct {
	in   chan MouseEvent
	mu   sync.Mutex
	out  []model.RawRecord
	done chan struct{}
}

func newMouseHarness() *mouseHarness {
	return &mouseHarness{in: make(chan MouseEvent), done: make(chan struct{})}
}

func (h *mouseHarness) start(ctx context.Context) {
	go func() {
		runMouseLoop(ctx, h.in, func(r model.RawRecord) {
			h.mu.Lock()
			h.out = append(h.out, r)
			h.mu.Unlock()
		})
		close(h.done)
	}()
}

func (h *mouseHarness) send(ev MouseEvent) {
	h.in <- ev
}

func (h *mouseHarness) records() []model.RawRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]model.RawRecord(nil), h.out...)
}

func (h *mouseHarness) stop(t *testing.T, cancel context.CancelFunc) {
	t.Helper()
	cancel()
	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		t.Fatal("runMouseLoop did not return")
	}
}

func TestMouseLoopDropsPureMovement(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := newMouseHarness()
	h.start(ctx)

	h.send(MouseEvent{Action: model.MouseActionMove, Position: model.Point{X: 1, Y: 1}, At: time.Now()})
	h.send(MouseEvent{Action: model.MouseActionMove, Position: model.Point{X: 2, Y: 2}, At: time.Now()})

	h.stop(t, cancel)
	require.Empty(t, h.records())
}

func TestMouseLoopCollapsesPressReleaseIntoClick(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := newMouseHarness()
	h.start(ctx)

	pressAt := time.Now()
	h.send(MouseEvent{Action: model.MouseActionPress, Button: "left", Position: model.Point{X: 1, Y: 1}, At: pressAt})
	h.send(MouseEvent{Action: model.MouseActionRelease, Button: "left", Position: model.Point{X: 1, Y: 1}, At: pressAt.Add(50 * time.Millisecond)})

	h.stop(t, cancel)
	out := h.records()
	require.Len(t, out, 1)
	require.Equal(t, model.MouseActionClick, out[0].Mouse.Action)
	require.Equal(t, "left", out[0].Mouse.Button)
	require.NotNil(t, out[0].Mouse.EndPosition)
}

func TestMouseLoopEmitsBarePressWhenReleaseTooLate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := newMouseHarness()
	h.start(ctx)

	h.send(MouseEvent{Action: model.MouseActionPress, Button: "left", Position: model.Point{X: 1, Y: 1}, At: time.Now()})

	time.Sleep(clickMergeWindow + 100*time.Millisecond)
	h.stop(t, cancel)
	out := h.records()
	require.Len(t, out, 1)
	require.Equal(t, model.MouseActionPress, out[0].Mouse.Action)
}

func TestMouseLoopEmitsBareReleaseWhenNoPrecedingPress(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := newMouseHarness()
	h.start(ctx)

	h.send(MouseEvent{Action: model.MouseActionRelease, Button: "left", Position: model.Point{X: 3, Y: 3}, At: time.Now()})

	h.stop(t, cancel)
	out := h.records()
	require.Len(t, out, 1)
	require.Equal(t, model.MouseActionRelease, out[0].Mouse.Action)
}

func TestMouseLoopAccumulatesScrollWithinWindow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := newMouseHarness()
	h.start(ctx)

	h.send(MouseEvent{Action: model.MouseActionScroll, ScrollDelta: model.Point{Y: 1}, Position: model.Point{X: 5, Y: 5}, At: time.Now()})
	h.send(MouseEvent{Action: model.MouseActionScroll, ScrollDelta: model.Point{Y: 2}, Position: model.Point{X: 5, Y: 5}, At: time.Now()})
	h.send(MouseEvent{Action: model.MouseActionScroll, ScrollDelta: model.Point{Y: 1}, Position: model.Point{X: 5, Y: 5}, At: time.Now()})

	time.Sleep(scrollMergeWindow + 100*time.Millisecond)
	h.stop(t, cancel)
	out := h.records()
	require.Len(t, out, 1)
	require.Equal(t, model.MouseActionScroll, out[0].Mouse.Action)
	require.Equal(t, 4.0, out[0].Mouse.ScrollDelta.Y)
}

func TestMouseLoopSplitsScrollAcrossGap(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := newMouseHarness()
	h.start(ctx)

	h.send(MouseEvent{Action: model.MouseActionScroll, ScrollDelta: model.Point{Y: 1}, At: time.Now()})
	time.Sleep(scrollMergeWindow + 50*time.Millisecond)
	h.send(MouseEvent{Action: model.MouseActionScroll, ScrollDelta: model.Point{Y: 1}, At: time.Now()})

	time.Sleep(scrollMergeWindow + 100*time.Millisecond)
	h.stop(t, cancel)
	require.Len(t, h.records(), 2)
}

func TestMouseLoopPassesThroughDrag(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := newMouseHarness()
	h.start(ctx)

	h.send(MouseEvent{Action: model.MouseActionDrag, Button: "left", Position: model.Point{X: 1, Y: 1}, At: time.Now()})

	h.stop(t, cancel)
	out := h.records()
	require.Len(t, out, 1)
	require.Equal(t, model.MouseActionDrag, out[0].Mouse.Action)
}
