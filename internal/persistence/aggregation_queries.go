package persistence

import (
	"fmt"

	"chronicle/internal/model"
)

// ListUnsummarizedEvents returns non-deleted events not yet referenced by any
// non-deleted Activity's source_event_ids, oldest first — the Activity
// summarization timer's read side (spec §4.9).
func (s *Store) ListUnsummarizedEvents() ([]model.Event, error) {
	rows, err := s.conn().Query(`
		SELECT id, title, description, keywords_json, timestamp, deleted, created_at
		FROM events e
		WHERE e.deleted = 0
		AND NOT EXISTS (
			SELECT 1 FROM activities a, json_each(a.source_event_ids_json)
			WHERE a.deleted = 0 AND json_each.value = e.id
		)
		ORDER BY e.timestamp ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("persistence: list unsummarized events: %w", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListUnmergedKnowledge returns non-deleted Knowledge rows not yet subsumed
// by any non-deleted CombinedKnowledge, oldest first.
func (s *Store) ListUnmergedKnowledge() ([]model.Knowledge, error) {
	rows, err := s.conn().Query(`
		SELECT id, title, description, keywords_json, deleted, created_at
		FROM knowledge k
		WHERE k.deleted = 0
		AND NOT EXISTS (
			SELECT 1 FROM combined_knowledge ck, json_each(ck.merged_from_ids_json)
			WHERE ck.deleted = 0 AND json_each.value = k.id
		)
		ORDER BY k.created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("persistence: list unmerged knowledge: %w", err)
	}
	defer rows.Close()

	var out []model.Knowledge
	for rows.Next() {
		k, err := scanKnowledge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// ListUnmergedTodos returns non-deleted Todo rows not yet subsumed by any
// non-deleted CombinedTodo, oldest first.
func (s *Store) ListUnmergedTodos() ([]model.Todo, error) {
	rows, err := s.conn().Query(`
		SELECT id, title, description, keywords_json, completed, deleted, created_at
		FROM todos t
		WHERE t.deleted = 0
		AND NOT EXISTS (
			SELECT 1 FROM combined_todos ct, json_each(ct.merged_from_ids_json)
			WHERE ct.deleted = 0 AND json_each.value = t.id
		)
		ORDER BY t.created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("persistence: list unmerged todos: %w", err)
	}
	defer rows.Close()

	var out []model.Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
