package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCleanupOldDataRemovesOldSoftDeletedRowsOnly(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC()

	old := sampleEvent("evt-old")
	old.Timestamp = now.AddDate(0, 0, -100)
	require.NoError(t, s.CreateEvent(old))
	require.NoError(t, s.DeleteEvent("evt-old"))

	recentDeleted := sampleEvent("evt-recent-deleted")
	recentDeleted.Timestamp = now
	require.NoError(t, s.CreateEvent(recentDeleted))
	require.NoError(t, s.DeleteEvent("evt-recent-deleted"))

	stillLive := sampleEvent("evt-live")
	stillLive.Timestamp = now.AddDate(0, 0, -100)
	require.NoError(t, s.CreateEvent(stillLive))

	require.NoError(t, s.InsertRawRecord(now.AddDate(0, 0, -100), "mouse_record", `{}`))
	require.NoError(t, s.InsertRawRecord(now, "mouse_record", `{}`))

	removed, err := s.CleanupOldData(90)
	require.NoError(t, err)
	require.Equal(t, 2, removed) // evt-old + one aged raw_record

	_, err = s.GetEvent("evt-old")
	require.ErrorIs(t, err, ErrNotFound)

	got, err := s.GetEvent("evt-recent-deleted")
	require.NoError(t, err)
	require.True(t, got.Deleted)

	got, err = s.GetEvent("evt-live")
	require.NoError(t, err)
	require.False(t, got.Deleted)

	records, err := s.ListRawRecords("", time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestCleanupOldDataIsZeroOnEmptyStore(t *testing.T) {
	s := openTestStore(t)
	removed, err := s.CleanupOldData(30)
	require.NoError(t, err)
	require.Equal(t, 0, removed)
}
