package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateAndGetEvent(t *testing.T) {
	s := openTestStore(t)
	e := sampleEvent("evt-1")
	require.NoError(t, s.CreateEvent(e))

	got, err := s.GetEvent("evt-1")
	require.NoError(t, err)
	require.Equal(t, e.Title, got.Title)
	require.Equal(t, e.Keywords, got.Keywords)
	require.False(t, got.Deleted)
}

func TestGetEventMissingReturnsNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetEvent("does-not-exist")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListEventsExcludesDeleted(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateEvent(sampleEvent("evt-1")))
	require.NoError(t, s.CreateEvent(sampleEvent("evt-2")))
	require.NoError(t, s.DeleteEvent("evt-1"))

	got, err := s.ListEvents(time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "evt-2", got[0].ID)
}

func TestGetEventIgnoresDeletedFlag(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateEvent(sampleEvent("evt-1")))
	require.NoError(t, s.DeleteEvent("evt-1"))

	got, err := s.GetEvent("evt-1")
	require.NoError(t, err)
	require.True(t, got.Deleted)
}

func TestDeleteEventMissingReturnsNotFound(t *testing.T) {
	s := openTestStore(t)
	require.ErrorIs(t, s.DeleteEvent("missing"), ErrNotFound)
}

func TestInsertRawRecordDoesNotError(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.InsertRawRecord(time.Now(), "screenshot_record", `{"hash":"abc"}`))
}

func TestListRawRecordsFiltersByKindAndRange(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC()
	require.NoError(t, s.InsertRawRecord(now.Add(-time.Hour), "keyboard_record", `{"n":1}`))
	require.NoError(t, s.InsertRawRecord(now, "screenshot_record", `{"hash":"abc"}`))

	all, err := s.ListRawRecords("", time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)

	onlyScreenshots, err := s.ListRawRecords("screenshot_record", time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, onlyScreenshots, 1)
	require.Equal(t, "screenshot_record", onlyScreenshots[0].Kind)

	recent, err := s.ListRawRecords("", now.Add(-time.Minute), now.Add(time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
}

func TestListRawRecordsRespectsLimit(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.InsertRawRecord(time.Now(), "mouse_record", `{}`))
	}
	got, err := s.ListRawRecords("", time.Time{}, time.Time{}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestClearRawRecordsRemovesEverything(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.InsertRawRecord(time.Now(), "mouse_record", `{}`))
	require.NoError(t, s.ClearRawRecords())

	got, err := s.ListRawRecords("", time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	require.Empty(t, got)
}
