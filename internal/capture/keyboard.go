package capture

import (
	"context"
	"time"

	"chronicle/internal/model"
)

// KeyboardEvent is one raw OS-level keyboard signal, as a platform-specific
// global hook would deliver it.
type KeyboardEvent struct {
	Key       string
	KeyType   model.KeyType
	Action    model.KeyAction
	Modifiers []model.Modifier
	At        time.Time
}

// KeyboardSource runs a native OS event loop on a dedicated thread and
// delivers events across a channel, never blocking the consumer (spec §4.2).
type KeyboardSource interface {
	Start(ctx context.Context) (<-chan KeyboardEvent, error)
	Stop()
}

// NoopKeyboardSource never produces events. It lets a Manager be built and
// exercised (screen capture, pause/resume, poll_stats) on a machine with no
// platform-specific hook wired in.
type NoopKeyboardSource struct{}

func (NoopKeyboardSource) Start(ctx context.Context) (<-chan KeyboardEvent, error) {
	ch := make(chan KeyboardEvent)
	return ch, nil
}

func (NoopKeyboardSource) Stop() {}

// runKeyboardLoop republishes every KeyboardEvent as a RawRecord. All
// keyboard events are recorded regardless of significance (spec §4.2: "all
// keyboard events are still recorded, but downstream consumers may use this
// flag") — IsSpecial is computed on read by model.KeyboardPayload itself.
func runKeyboardLoop(ctx context.Context, events <-chan KeyboardEvent, emit func(model.RawRecord)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			emit(model.RawRecord{
				Timestamp: ev.At,
				Kind:      model.KindKeyboard,
				Keyboard: &model.KeyboardPayload{
					Key:       ev.Key,
					KeyType:   ev.KeyType,
					Action:    ev.Action,
					Modifiers: ev.Modifiers,
				},
			})
		}
	}
}
