package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateActivityDefaultsVersionToOne(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateActivity(sampleActivity("act-1")))

	got, err := s.GetActivity("act-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, got.Version)
}

func TestUpdateActivityBumpsVersion(t *testing.T) {
	s := openTestStore(t)
	a := sampleActivity("act-1")
	require.NoError(t, s.CreateActivity(a))

	a.Title = "Updated title"
	require.NoError(t, s.UpdateActivity(a))

	got, err := s.GetActivity("act-1")
	require.NoError(t, err)
	require.Equal(t, "Updated title", got.Title)
	require.EqualValues(t, 2, got.Version)
}

func TestListActivitiesSinceReturnsOnlyNewerVersions(t *testing.T) {
	s := openTestStore(t)
	a := sampleActivity("act-1")
	require.NoError(t, s.CreateActivity(a))
	require.NoError(t, s.UpdateActivity(a)) // version -> 2
	require.NoError(t, s.UpdateActivity(a)) // version -> 3

	got, err := s.ListActivitiesSince(1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.EqualValues(t, 3, got[0].Version)

	none, err := s.ListActivitiesSince(3)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestActivityCountByDateGroupsByUTCDay(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateActivity(sampleActivity("act-1")))
	require.NoError(t, s.CreateActivity(sampleActivity("act-2")))

	counts, err := s.ActivityCountByDate()
	require.NoError(t, err)
	require.Len(t, counts, 1)
	for _, c := range counts {
		require.Equal(t, 2, c)
	}
}

func TestDeleteActivitySoftDeletes(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateActivity(sampleActivity("act-1")))
	require.NoError(t, s.DeleteActivity("act-1"))

	got, err := s.ListActivities(time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	require.Empty(t, got)
}
