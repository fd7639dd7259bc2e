package capture

import (
	"context"
	"testing"
	"time"

	"chronicle/internal/model"

	"github.com/stretchr/testify/require"
)

func TestRunKeyboardLoopRepublishesEveryEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan KeyboardEvent)
	var out []model.RawRecord
	done := make(chan struct{})
	go func() {
		runKeyboardLoop(ctx, in, func(r model.RawRecord) { out = append(out, r) })
		close(done)
	}()

	in <- KeyboardEvent{Key: "a", KeyType: model.KeyChar, Action: model.KeyActionPress, At: time.Now()}
	in <- KeyboardEvent{Key: "Escape", KeyType: model.KeySpecial, Action: model.KeyActionPress, At: time.Now()}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runKeyboardLoop did not return")
	}

	require.Len(t, out, 2)
	require.Equal(t, model.KindKeyboard, out[0].Kind)
	require.Equal(t, "a", out[0].Keyboard.Key)
	require.True(t, out[1].Keyboard.IsSpecial())
}

func TestRunKeyboardLoopStopsOnClosedChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan KeyboardEvent)
	done := make(chan struct{})
	go func() {
		runKeyboardLoop(ctx, in, func(model.RawRecord) {})
		close(done)
	}()

	close(in)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runKeyboardLoop did not return on closed channel")
	}
}
