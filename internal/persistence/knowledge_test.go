package persistence

import (
	"testing"

	"chronicle/internal/model"
	"github.com/stretchr/testify/require"
)

func TestCreateAndListKnowledge(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateKnowledge(sampleKnowledge("kn-1")))

	got, err := s.ListKnowledge(0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "kn-1", got[0].ID)
}

func TestCreateCombinedKnowledgeSupersedesSourceRows(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateKnowledge(sampleKnowledge("kn-1")))
	require.NoError(t, s.CreateKnowledge(sampleKnowledge("kn-2")))

	ck := model.CombinedKnowledge{
		ID:            "ck-1",
		Title:         "Go toolchain facts",
		Description:   "Merged notes about the project's Go setup",
		Keywords:      []string{"go"},
		MergedFromIDs: []string{"kn-1", "kn-2"},
	}
	require.NoError(t, s.CreateCombinedKnowledge(ck))

	remaining, err := s.ListKnowledge(0)
	require.NoError(t, err)
	require.Empty(t, remaining, "both source rows should be soft-deleted")

	combined, err := s.ListCombinedKnowledge(0)
	require.NoError(t, err)
	require.Len(t, combined, 1)
	require.Equal(t, []string{"kn-1", "kn-2"}, combined[0].MergedFromIDs)
}

func TestDeleteKnowledgeMissingReturnsNotFound(t *testing.T) {
	s := openTestStore(t)
	require.ErrorIs(t, s.DeleteKnowledge("missing"), ErrNotFound)
}
