package aggregation

import (
	"context"
	"errors"
	"testing"
	"time"

	"chronicle/internal/llm"
	"chronicle/internal/model"

	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	resp  llm.Response
	err   error
	calls int
}

func (f *fakeLLM) ChatCompletion(ctx context.Context, msgs []llm.Message) (llm.Response, error) {
	f.calls++
	return f.resp, f.err
}

type fakeStore struct {
	unsummarized []model.Event
	activities   []model.Activity

	unmergedKnowledge []model.Knowledge
	combinedKnowledge []model.CombinedKnowledge

	unmergedTodos []model.Todo
	combinedTodos []model.CombinedTodo

	diaryActivities []model.Activity
	diaries         map[string]model.Diary
}

func newFakeStore() *fakeStore { return &fakeStore{diaries: map[string]model.Diary{}} }

func (s *fakeStore) ListUnsummarizedEvents() ([]model.Event, error) { return s.unsummarized, nil }
func (s *fakeStore) CreateActivity(a model.Activity) error {
	s.activities = append(s.activities, a)
	return nil
}

func (s *fakeStore) ListUnmergedKnowledge() ([]model.Knowledge, error) { return s.unmergedKnowledge, nil }
func (s *fakeStore) CreateCombinedKnowledge(ck model.CombinedKnowledge) error {
	s.combinedKnowledge = append(s.combinedKnowledge, ck)
	return nil
}

func (s *fakeStore) ListUnmergedTodos() ([]model.Todo, error) { return s.unmergedTodos, nil }
func (s *fakeStore) CreateCombinedTodo(ct model.CombinedTodo) error {
	s.combinedTodos = append(s.combinedTodos, ct)
	return nil
}

func (s *fakeStore) ListActivities(start, end time.Time, limit int) ([]model.Activity, error) {
	return s.diaryActivities, nil
}

func (s *fakeStore) UpsertDiary(d model.Diary) error {
	s.diaries[d.Date] = d
	return nil
}

func TestRunActivitySummarySkipsWhenNoEvents(t *testing.T) {
	store := newFakeStore()
	llmc := &fakeLLM{}
	sch := New(store, llmc, Options{})

	require.NoError(t, sch.runActivitySummary(context.Background()))
	require.Zero(t, llmc.calls)
	require.Empty(t, store.activities)
}

func TestRunActivitySummaryCreatesActivityFromEvents(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore()
	store.unsummarized = []model.Event{
		{ID: "evt-1", Title: "Reviewed PR", Timestamp: now.Add(-10 * time.Minute)},
		{ID: "evt-2", Title: "Merged PR", Timestamp: now},
	}
	llmc := &fakeLLM{resp: llm.Response{Content: `{"activities":[{"title":"Code review session","description":"Reviewed and merged a PR","event_ids":["evt-1","evt-2"]}]}`}}
	sch := New(store, llmc, Options{})

	require.NoError(t, sch.runActivitySummary(context.Background()))
	require.Len(t, store.activities, 1)
	act := store.activities[0]
	require.Equal(t, "Code review session", act.Title)
	require.ElementsMatch(t, []string{"evt-1", "evt-2"}, act.SourceEventID)
	require.True(t, act.StartTime.Equal(now.Add(-10 * time.Minute)))
	require.True(t, act.EndTime.Equal(now))
}

func TestRunActivitySummaryDropsUnknownEventIDs(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore()
	store.unsummarized = []model.Event{{ID: "evt-1", Title: "A", Timestamp: now}}
	llmc := &fakeLLM{resp: llm.Response{Content: `{"activities":[{"title":"Only hallucinated ids","description":"","event_ids":["evt-ghost"]}]}`}}
	sch := New(store, llmc, Options{})

	require.NoError(t, sch.runActivitySummary(context.Background()))
	require.Empty(t, store.activities)
}

func TestRunActivitySummaryReturnsErrorOnUnparseableResponse(t *testing.T) {
	store := newFakeStore()
	store.unsummarized = []model.Event{{ID: "evt-1", Title: "A", Timestamp: time.Now()}}
	llmc := &fakeLLM{resp: llm.Response{Content: "not json"}}
	sch := New(store, llmc, Options{})

	err := sch.runActivitySummary(context.Background())
	require.Error(t, err)
	require.Empty(t, store.activities)
}

func TestRunActivitySummaryPropagatesLLMError(t *testing.T) {
	store := newFakeStore()
	store.unsummarized = []model.Event{{ID: "evt-1", Title: "A", Timestamp: time.Now()}}
	llmc := &fakeLLM{err: errors.New("boom")}
	sch := New(store, llmc, Options{})

	require.Error(t, sch.runActivitySummary(context.Background()))
}

func TestRunKnowledgeMergeSkipsBelowTwoItems(t *testing.T) {
	store := newFakeStore()
	store.unmergedKnowledge = []model.Knowledge{{ID: "kn-1", Title: "Solo"}}
	llmc := &fakeLLM{}
	sch := New(store, llmc, Options{})

	require.NoError(t, sch.runKnowledgeMerge(context.Background()))
	require.Zero(t, llmc.calls)
	require.Empty(t, store.combinedKnowledge)
}

func TestRunKnowledgeMergeCreatesCombinedRow(t *testing.T) {
	store := newFakeStore()
	store.unmergedKnowledge = []model.Knowledge{
		{ID: "kn-1", Title: "Go version"},
		{ID: "kn-2", Title: "Go module layout"},
	}
	llmc := &fakeLLM{resp: llm.Response{Content: `{"merges":[{"title":"Go project facts","description":"merged","keywords":["go"],"source_ids":["kn-1","kn-2"]}]}`}}
	sch := New(store, llmc, Options{})

	require.NoError(t, sch.runKnowledgeMerge(context.Background()))
	require.Len(t, store.combinedKnowledge, 1)
	require.ElementsMatch(t, []string{"kn-1", "kn-2"}, store.combinedKnowledge[0].MergedFromIDs)
}

func TestRunKnowledgeMergeSkipsCandidateWithFewerThanTwoKnownSources(t *testing.T) {
	store := newFakeStore()
	store.unmergedKnowledge = []model.Knowledge{
		{ID: "kn-1", Title: "A"},
		{ID: "kn-2", Title: "B"},
	}
	llmc := &fakeLLM{resp: llm.Response{Content: `{"merges":[{"title":"Bad merge","description":"","keywords":[],"source_ids":["kn-1","kn-ghost"]}]}`}}
	sch := New(store, llmc, Options{})

	require.NoError(t, sch.runKnowledgeMerge(context.Background()))
	require.Empty(t, store.combinedKnowledge)
}

func TestRunTodoMergeMarksCombinedCompletedOnlyWhenAllSourcesAre(t *testing.T) {
	store := newFakeStore()
	store.unmergedTodos = []model.Todo{
		{ID: "td-1", Title: "Write tests", Completed: true},
		{ID: "td-2", Title: "Fix bug", Completed: false},
	}
	llmc := &fakeLLM{resp: llm.Response{Content: `{"merges":[{"title":"Finish feature","description":"","keywords":[],"source_ids":["td-1","td-2"]}]}`}}
	sch := New(store, llmc, Options{})

	require.NoError(t, sch.runTodoMerge(context.Background()))
	require.Len(t, store.combinedTodos, 1)
	require.False(t, store.combinedTodos[0].Completed)
}

func TestRunTodoMergeMarksCombinedCompletedWhenAllSourcesCompleted(t *testing.T) {
	store := newFakeStore()
	store.unmergedTodos = []model.Todo{
		{ID: "td-1", Title: "Write tests", Completed: true},
		{ID: "td-2", Title: "Fix bug", Completed: true},
	}
	llmc := &fakeLLM{resp: llm.Response{Content: `{"merges":[{"title":"Finish feature","description":"","keywords":[],"source_ids":["td-1","td-2"]}]}`}}
	sch := New(store, llmc, Options{})

	require.NoError(t, sch.runTodoMerge(context.Background()))
	require.Len(t, store.combinedTodos, 1)
	require.True(t, store.combinedTodos[0].Completed)
}

func TestForceFinalizeRunsAllThreePasses(t *testing.T) {
	store := newFakeStore()
	store.unsummarized = []model.Event{{ID: "evt-1", Title: "A", Timestamp: time.Now()}}
	store.unmergedKnowledge = []model.Knowledge{{ID: "kn-1"}, {ID: "kn-2"}}
	store.unmergedTodos = []model.Todo{{ID: "td-1"}, {ID: "td-2"}}
	llmc := &fakeLLM{resp: llm.Response{Content: `{"activities":[],"merges":[]}`}}
	sch := New(store, llmc, Options{})

	require.NoError(t, sch.ForceFinalize(context.Background()))
	require.Equal(t, 3, llmc.calls)
}

func TestGenerateDiaryReturnsErrNoActivityWhenEmpty(t *testing.T) {
	store := newFakeStore()
	llmc := &fakeLLM{}
	sch := New(store, llmc, Options{})

	_, err := sch.GenerateDiary(context.Background(), "2026-07-30")
	require.ErrorIs(t, err, ErrNoActivity)
}

func TestGenerateDiaryPersistsDiaryForDate(t *testing.T) {
	store := newFakeStore()
	store.diaryActivities = []model.Activity{
		{ID: "act-1", Title: "Code review", Description: "Reviewed PRs", StartTime: time.Now(), EndTime: time.Now()},
	}
	llmc := &fakeLLM{resp: llm.Response{Content: "Today I reviewed several pull requests."}}
	sch := New(store, llmc, Options{})

	d, err := sch.GenerateDiary(context.Background(), "2026-07-30")
	require.NoError(t, err)
	require.Equal(t, "2026-07-30", d.Date)
	require.Equal(t, "Today I reviewed several pull requests.", d.Content)
	require.Equal(t, []string{"act-1"}, d.SourceActivityID)
	require.Contains(t, store.diaries, "2026-07-30")
}
