package capture

import (
	"context"
	"time"

	"chronicle/internal/model"
)

const (
	// scrollMergeWindow is the spec §4.2 100ms scroll-coalescing window.
	scrollMergeWindow = 100 * time.Millisecond
	// clickMergeWindow is the spec §4.2 500ms Press/Release-to-Click window.
	clickMergeWindow = 500 * time.Millisecond
)

// MouseEvent is one raw OS-level mouse signal, as a platform-specific global
// hook would deliver it. ScrollDelta is only meaningful on a Scroll action.
type MouseEvent struct {
	Action      model.MouseAction
	Button      string
	Position    model.Point
	ScrollDelta model.Point
	At          time.Time
}

// MouseSource runs a native OS event loop on a dedicated thread and
// delivers events across a channel, never blocking the consumer (spec §4.2).
type MouseSource interface {
	Start(ctx context.Context) (<-chan MouseEvent, error)
	Stop()
}

// NoopMouseSource never produces events; see NoopKeyboardSource.
type NoopMouseSource struct{}

func (NoopMouseSource) Start(ctx context.Context) (<-chan MouseEvent, error) {
	return make(chan MouseEvent), nil
}

func (NoopMouseSource) Stop() {}

type pendingScroll struct {
	delta       model.Point
	startPos    model.Point
	firstAt, at time.Time
}

type pendingPress struct {
	button   string
	position model.Point
	at       time.Time
}

// runMouseLoop applies spec §4.2's significance filter (only Press, Release,
// Click, Drag, DragEnd, Scroll are forwarded — matching
// model.MousePayload.IsImportant, so pure Move is dropped without any extra
// drag-tracking: an in-progress drag already arrives as the Drag action) and
// local coalescing: consecutive scrolls within 100ms accumulate into one
// record, and a Press followed by a Release within 500ms collapses into a
// Click carrying both positions and the elapsed duration.
func runMouseLoop(ctx context.Context, events <-chan MouseEvent, emit func(model.RawRecord)) {
	var scroll *pendingScroll
	var press *pendingPress

	flushScroll := func() {
		if scroll == nil {
			return
		}
		delta := scroll.delta
		emit(model.RawRecord{
			Timestamp: scroll.firstAt,
			Kind:      model.KindMouse,
			Mouse: &model.MousePayload{
				Action:      model.MouseActionScroll,
				Position:    scroll.startPos,
				ScrollDelta: &delta,
			},
		})
		scroll = nil
	}
	flushPress := func() {
		if press == nil {
			return
		}
		emit(model.RawRecord{
			Timestamp: press.at,
			Kind:      model.KindMouse,
			Mouse: &model.MousePayload{
				Action:   model.MouseActionPress,
				Button:   press.button,
				Position: press.position,
			},
		})
		press = nil
	}

	for {
		var scrollDeadline, pressDeadline <-chan time.Time
		if scroll != nil {
			if remaining := scrollMergeWindow - time.Since(scroll.at); remaining > 0 {
				scrollDeadline = time.After(remaining)
			} else {
				flushScroll()
			}
		}
		if press != nil {
			if remaining := clickMergeWindow - time.Since(press.at); remaining > 0 {
				pressDeadline = time.After(remaining)
			} else {
				flushPress()
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-scrollDeadline:
			flushScroll()
		case <-pressDeadline:
			flushPress()
		case ev, ok := <-events:
			if !ok {
				return
			}
			handleMouseEvent(ev, &scroll, &press, flushScroll, flushPress, emit)
		}
	}
}

func handleMouseEvent(ev MouseEvent, scroll **pendingScroll, press **pendingPress, flushScroll, flushPress func(), emit func(model.RawRecord)) {
	switch ev.Action {
	case model.MouseActionScroll:
		flushPress()
		if *scroll != nil && ev.At.Sub((*scroll).at) <= scrollMergeWindow {
			(*scroll).delta.X += ev.ScrollDelta.X
			(*scroll).delta.Y += ev.ScrollDelta.Y
			(*scroll).at = ev.At
			return
		}
		flushScroll()
		*scroll = &pendingScroll{delta: ev.ScrollDelta, startPos: ev.Position, firstAt: ev.At, at: ev.At}

	case model.MouseActionPress:
		flushScroll()
		flushPress()
		*press = &pendingPress{button: ev.Button, position: ev.Position, at: ev.At}

	case model.MouseActionRelease:
		flushScroll()
		if *press != nil && (*press).button == ev.Button && ev.At.Sub((*press).at) <= clickMergeWindow {
			p := *press
			*press = nil
			d := ev.At.Sub(p.at)
			emit(model.RawRecord{
				Timestamp: p.at,
				Kind:      model.KindMouse,
				Mouse: &model.MousePayload{
					Action:      model.MouseActionClick,
					Button:      p.button,
					Position:    p.position,
					EndPosition: &ev.Position,
					Duration:    d,
				},
			})
			return
		}
		flushPress()
		emit(model.RawRecord{
			Timestamp: ev.At,
			Kind:      model.KindMouse,
			Mouse: &model.MousePayload{
				Action:   model.MouseActionRelease,
				Button:   ev.Button,
				Position: ev.Position,
			},
		})

	case model.MouseActionClick, model.MouseActionDrag, model.MouseActionDragEnd:
		flushScroll()
		flushPress()
		emit(model.RawRecord{
			Timestamp: ev.At,
			Kind:      model.KindMouse,
			Mouse: &model.MousePayload{
				Action:   ev.Action,
				Button:   ev.Button,
				Position: ev.Position,
			},
		})

	default:
		// pure movement; not in the significance set, dropped.
	}
}
