package window

import (
	"testing"
	"time"

	"chronicle/internal/model"
	"github.com/stretchr/testify/require"
)

func kbRecord(ts time.Time) model.RawRecord {
	return model.RawRecord{
		Timestamp: ts,
		Kind:      model.KindKeyboard,
		Keyboard:  &model.KeyboardPayload{Key: "a", KeyType: model.KeyChar, Action: model.KeyActionPress},
	}
}

func TestPushAndSnapshotLast(t *testing.T) {
	w := New(time.Minute)
	base := time.Now()
	w.Push(kbRecord(base))
	w.Push(kbRecord(base.Add(time.Second)))
	w.Push(kbRecord(base.Add(2 * time.Second)))

	last := w.SnapshotLast(2)
	require.Len(t, last, 2)
	require.True(t, last[0].Timestamp.Before(last[1].Timestamp))
}

func TestExpiryDropsOldRecords(t *testing.T) {
	w := New(50 * time.Millisecond)
	w.Push(kbRecord(time.Now()))
	time.Sleep(100 * time.Millisecond)
	w.Push(kbRecord(time.Now()))

	all := w.SnapshotLast(100)
	require.Len(t, all, 1)
}

func TestSnapshotByKindFiltersType(t *testing.T) {
	w := New(time.Minute)
	now := time.Now()
	w.Push(kbRecord(now))
	w.Push(model.RawRecord{Timestamp: now, Kind: model.KindMouse, Mouse: &model.MousePayload{Action: model.MouseActionClick}})

	kb := w.SnapshotByKind(model.KindKeyboard)
	require.Len(t, kb, 1)
	require.Equal(t, model.KindKeyboard, kb[0].Kind)
}

func TestSnapshotRangeBounds(t *testing.T) {
	w := New(time.Minute)
	base := time.Now()
	w.Push(kbRecord(base))
	w.Push(kbRecord(base.Add(10 * time.Second)))
	w.Push(kbRecord(base.Add(20 * time.Second)))

	got := w.SnapshotRange(base.Add(5*time.Second), base.Add(15*time.Second))
	require.Len(t, got, 1)
}

func TestSnapshotLastSecondsNeverReturnsOlderThanRequestedSpan(t *testing.T) {
	w := New(time.Hour)
	now := time.Now()
	w.Push(kbRecord(now.Add(-30 * time.Second)))
	w.Push(kbRecord(now))

	got := w.SnapshotLastSeconds(10 * time.Second)
	for _, r := range got {
		require.WithinDuration(t, now, r.Timestamp, 10*time.Second)
	}
}

func TestEventBufferTakeAllDrains(t *testing.T) {
	b := NewEventBuffer(10)
	b.Push(kbRecord(time.Now()))
	b.Push(kbRecord(time.Now()))

	require.Equal(t, 2, b.Len())
	taken := b.TakeAll()
	require.Len(t, taken, 2)
	require.Equal(t, 0, b.Len())
}

func TestEventBufferDropsOldestAtCapacity(t *testing.T) {
	b := NewEventBuffer(2)
	b.Push(kbRecord(time.Now()))
	b.Push(kbRecord(time.Now().Add(time.Second)))
	b.Push(kbRecord(time.Now().Add(2 * time.Second)))

	got := b.TakeAll()
	require.Len(t, got, 2)
}
