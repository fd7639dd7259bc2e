package persistence

import (
	"testing"

	"chronicle/internal/model"
	"github.com/stretchr/testify/require"
)

func TestUpsertDiaryCreatesThenReplaces(t *testing.T) {
	s := openTestStore(t)
	d := model.Diary{ID: "diary-1", Date: "2026-07-30", Content: "first draft", SourceActivityID: []string{"act-1"}}
	require.NoError(t, s.UpsertDiary(d))

	d.Content = "revised draft"
	require.NoError(t, s.UpsertDiary(d))

	got, err := s.GetDiaryByDate("2026-07-30")
	require.NoError(t, err)
	require.Equal(t, "revised draft", got.Content)

	all, err := s.ListDiaries(0)
	require.NoError(t, err)
	require.Len(t, all, 1, "upsert must not create a second row for the same date")
}

func TestGetDiaryByDateMissingReturnsNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetDiaryByDate("2026-01-01")
	require.ErrorIs(t, err, ErrNotFound)
}
