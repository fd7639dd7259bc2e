package persistence

import (
	"testing"
	"time"

	"chronicle/internal/model"
	"github.com/stretchr/testify/require"
)

func TestInsertAndQueryUsage(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.InsertUsage(model.LLMUsage{
		Timestamp: time.Now(), Model: "gpt-4o", PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150,
		Cost: 0.01, RequestType: "chat_completion",
	}))

	rows, err := s.UsageSince(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "gpt-4o", rows[0].Model)
}

func TestSetActiveModelInvariantAtMostOneActive(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateModel(sampleModel("m-1", "primary")))
	require.NoError(t, s.CreateModel(sampleModel("m-2", "secondary")))

	require.NoError(t, s.SetActiveModel("m-1"))
	active, err := s.GetActiveModel()
	require.NoError(t, err)
	require.Equal(t, "m-1", active.ID)

	require.NoError(t, s.SetActiveModel("m-2"))
	active, err = s.GetActiveModel()
	require.NoError(t, err)
	require.Equal(t, "m-2", active.ID)

	all, err := s.ListModels()
	require.NoError(t, err)
	activeCount := 0
	for _, m := range all {
		if m.IsActive {
			activeCount++
		}
	}
	require.Equal(t, 1, activeCount)
}

func TestGetActiveModelReturnsNotFoundWhenNoneSet(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateModel(sampleModel("m-1", "primary")))

	_, err := s.GetActiveModel()
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSanitizedDropsSecrets(t *testing.T) {
	m := sampleModel("m-1", "primary")
	san := m.Sanitized()
	require.Empty(t, san.APIKey)
	require.Empty(t, san.APIURL)
	require.Equal(t, m.Name, san.Name)
}

func TestLinkEventImageIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateEvent(sampleEvent("evt-1")))
	require.NoError(t, s.LinkEventImage("evt-1", "abc123"))
	require.NoError(t, s.LinkEventImage("evt-1", "abc123"))

	hashes, err := s.EventImages("evt-1")
	require.NoError(t, err)
	require.Equal(t, []string{"abc123"}, hashes)
}
