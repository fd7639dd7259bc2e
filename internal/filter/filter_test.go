package filter

import (
	"testing"
	"time"

	"chronicle/internal/model"
	"github.com/stretchr/testify/require"
)

func screenshotRecord(ts time.Time, hash string) model.RawRecord {
	return model.RawRecord{
		Timestamp:  ts,
		Kind:       model.KindScreenshot,
		Screenshot: &model.ScreenshotPayload{ContentHash: hash, Format: model.FormatJPEG},
	}
}

func keyRecord(ts time.Time, key string) model.RawRecord {
	return model.RawRecord{
		Timestamp: ts,
		Kind:      model.KindKeyboard,
		Keyboard:  &model.KeyboardPayload{Key: key, KeyType: model.KeyChar, Action: model.KeyActionPress},
	}
}

func TestDedupDropsIdenticalHashes(t *testing.T) {
	base := time.Now()
	records := []model.RawRecord{
		screenshotRecord(base, "0000000000000000"),
		screenshotRecord(base.Add(2*time.Second), "0000000000000000"),
		screenshotRecord(base.Add(4*time.Second), "ffffffffffffffff"),
	}
	out := Apply(records, Options{EnableScreenshotDedup: true})
	require.Len(t, out, 2)
}

func TestMouseRetentionDropsMovement(t *testing.T) {
	records := []model.RawRecord{
		{Timestamp: time.Now(), Kind: model.KindMouse, Mouse: &model.MousePayload{Action: model.MouseActionMove}},
		{Timestamp: time.Now(), Kind: model.KindMouse, Mouse: &model.MousePayload{Action: model.MouseActionClick}},
	}
	out := Apply(records, Options{})
	require.Len(t, out, 1)
	require.Equal(t, model.MouseActionClick, out[0].Mouse.Action)
}

func TestKeyboardMergeCollapsesSameKeyWithin100ms(t *testing.T) {
	base := time.Now()
	records := []model.RawRecord{
		keyRecord(base, "a"),
		keyRecord(base.Add(50*time.Millisecond), "a"),
		keyRecord(base.Add(300*time.Millisecond), "a"),
	}
	out := Apply(records, Options{})
	require.Len(t, out, 2)
	require.Equal(t, 2, out[0].Keyboard.SequenceCount)
}

func TestRateLimitCapsScreenshotsPerSecondBucket(t *testing.T) {
	base := time.Now()
	records := make([]model.RawRecord, 0, 5)
	for i := 0; i < 5; i++ {
		records = append(records, screenshotRecord(base.Add(time.Duration(i)*100*time.Millisecond), "abc"))
	}
	out := rateLimitScreenshots(records, Options{MinScreenshotsPerWindow: 2})
	require.Len(t, out, 2)
}

func TestClickMergeCollapsesPressRelease(t *testing.T) {
	base := time.Now()
	records := []model.RawRecord{
		{Timestamp: base, Kind: model.KindMouse, Mouse: &model.MousePayload{Action: model.MouseActionPress, Position: model.Point{X: 1, Y: 1}}},
		{Timestamp: base.Add(200 * time.Millisecond), Kind: model.KindMouse, Mouse: &model.MousePayload{Action: model.MouseActionRelease, Position: model.Point{X: 5, Y: 5}}},
	}
	out := Apply(records, Options{})
	require.Len(t, out, 1)
	require.Equal(t, model.MouseActionClick, out[0].Mouse.Action)
	require.Equal(t, model.Point{X: 5, Y: 5}, *out[0].Mouse.EndPosition)
}
