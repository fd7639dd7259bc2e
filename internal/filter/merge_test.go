package filter

import (
	"testing"
	"time"

	"chronicle/internal/model"
	"github.com/stretchr/testify/require"
)

func screenshotRecordWithBytes(ts time.Time, hash string, bytes []byte) model.RawRecord {
	r := screenshotRecord(ts, hash)
	r.ScreenshotBytes = bytes
	return r
}

func TestMergeScreenshotGroupKeepsFirstRecordsHashAndBytesTogether(t *testing.T) {
	base := time.Now()
	firstBytes := []byte("first-frame-jpeg")
	lastBytes := []byte("last-frame-jpeg")
	records := []model.RawRecord{
		screenshotRecordWithBytes(base, "aaaaaaaaaaaaaaaa", firstBytes),
		screenshotRecordWithBytes(base.Add(200*time.Millisecond), "bbbbbbbbbbbbbbbb", lastBytes),
	}

	out := mergeConsecutive(records)
	require.Len(t, out, 1)
	require.Equal(t, "aaaaaaaaaaaaaaaa", out[0].Screenshot.ContentHash)
	require.Equal(t, firstBytes, out[0].ScreenshotBytes)
}
