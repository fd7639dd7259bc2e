package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListUnsummarizedEventsExcludesReferenced(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.CreateEvent(sampleEvent("evt-free")))
	require.NoError(t, s.CreateEvent(sampleEvent("evt-1")))
	require.NoError(t, s.CreateEvent(sampleEvent("evt-2")))
	require.NoError(t, s.CreateActivity(sampleActivity("act-1")))

	got, err := s.ListUnsummarizedEvents()
	require.NoError(t, err)

	ids := make([]string, len(got))
	for i, e := range got {
		ids[i] = e.ID
	}
	require.ElementsMatch(t, []string{"evt-free"}, ids)
}

func TestListUnsummarizedEventsIgnoresDeletedActivity(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.CreateEvent(sampleEvent("evt-1")))
	require.NoError(t, s.CreateEvent(sampleEvent("evt-2")))
	require.NoError(t, s.CreateActivity(sampleActivity("act-1")))
	require.NoError(t, s.DeleteActivity("act-1"))

	got, err := s.ListUnsummarizedEvents()
	require.NoError(t, err)

	ids := make([]string, len(got))
	for i, e := range got {
		ids[i] = e.ID
	}
	require.ElementsMatch(t, []string{"evt-1", "evt-2"}, ids)
}

func TestListUnsummarizedEventsExcludesDeletedEvents(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.CreateEvent(sampleEvent("evt-1")))
	require.NoError(t, s.DeleteEvent("evt-1"))

	got, err := s.ListUnsummarizedEvents()
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestListUnmergedKnowledgeExcludesSubsumed(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.CreateKnowledge(sampleKnowledge("kn-free")))
	require.NoError(t, s.CreateKnowledge(sampleKnowledge("kn-1")))
	require.NoError(t, s.CreateKnowledge(sampleKnowledge("kn-2")))

	// Insert the combined row directly so the source rows stay non-deleted,
	// isolating the NOT EXISTS check from the deleted-flag check.
	_, err := s.conn().Exec(
		`INSERT INTO combined_knowledge (id, title, description, keywords_json, merged_from_ids_json, deleted)
		 VALUES ('ck-1', 'merged knowledge', 'combined', '[]', '["kn-1","kn-2"]', 0)`,
	)
	require.NoError(t, err)

	got, err := s.ListUnmergedKnowledge()
	require.NoError(t, err)

	ids := make([]string, len(got))
	for i, k := range got {
		ids[i] = k.ID
	}
	require.ElementsMatch(t, []string{"kn-free"}, ids)
}

func TestListUnmergedKnowledgeIgnoresDeletedCombinedKnowledge(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.CreateKnowledge(sampleKnowledge("kn-1")))

	_, err := s.conn().Exec(
		`INSERT INTO combined_knowledge (id, title, description, keywords_json, merged_from_ids_json, deleted)
		 VALUES ('ck-1', 'merged knowledge', 'combined', '[]', '["kn-1"]', 1)`,
	)
	require.NoError(t, err)

	got, err := s.ListUnmergedKnowledge()
	require.NoError(t, err)

	ids := make([]string, len(got))
	for i, k := range got {
		ids[i] = k.ID
	}
	require.ElementsMatch(t, []string{"kn-1"}, ids)
}

func TestListUnmergedTodosExcludesSubsumed(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.CreateTodo(sampleTodo("td-free")))
	require.NoError(t, s.CreateTodo(sampleTodo("td-1")))
	require.NoError(t, s.CreateTodo(sampleTodo("td-2")))

	_, err := s.conn().Exec(
		`INSERT INTO combined_todos (id, title, description, keywords_json, merged_from_ids_json, completed, deleted)
		 VALUES ('ct-1', 'merged todo', 'combined', '[]', '["td-1","td-2"]', 0, 0)`,
	)
	require.NoError(t, err)

	got, err := s.ListUnmergedTodos()
	require.NoError(t, err)

	ids := make([]string, len(got))
	for i, td := range got {
		ids[i] = td.ID
	}
	require.ElementsMatch(t, []string{"td-free"}, ids)
}

func TestListUnmergedTodosIgnoresDeletedCombinedTodo(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.CreateTodo(sampleTodo("td-1")))

	_, err := s.conn().Exec(
		`INSERT INTO combined_todos (id, title, description, keywords_json, merged_from_ids_json, completed, deleted)
		 VALUES ('ct-1', 'merged todo', 'combined', '[]', '["td-1"]', 0, 1)`,
	)
	require.NoError(t, err)

	got, err := s.ListUnmergedTodos()
	require.NoError(t, err)

	ids := make([]string, len(got))
	for i, td := range got {
		ids[i] = td.ID
	}
	require.ElementsMatch(t, []string{"td-1"}, ids)
}

func TestListUnmergedTodosExcludesDeletedTodos(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.CreateTodo(sampleTodo("td-1")))
	require.NoError(t, s.DeleteTodo("td-1"))

	got, err := s.ListUnmergedTodos()
	require.NoError(t, err)
	require.Empty(t, got)
}
