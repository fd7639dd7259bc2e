package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"chronicle/internal/model"
)

// CreateTodo persists a new Todo row.
func (s *Store) CreateTodo(t model.Todo) error {
	keywords, err := json.Marshal(t.Keywords)
	if err != nil {
		return fmt.Errorf("persistence: marshal todo keywords: %w", err)
	}
	_, err = s.conn().Exec(
		`INSERT INTO todos (id, title, description, keywords_json, completed, deleted) VALUES (?, ?, ?, ?, ?, 0)`,
		t.ID, t.Title, t.Description, string(keywords), boolToInt(t.Completed),
	)
	if err != nil {
		return fmt.Errorf("persistence: insert todo: %w", err)
	}
	return nil
}

// GetTodo returns a Todo by id, ignoring deleted.
func (s *Store) GetTodo(id string) (model.Todo, error) {
	row := s.conn().QueryRow(
		`SELECT id, title, description, keywords_json, completed, deleted, created_at FROM todos WHERE id = ?`, id,
	)
	return scanTodo(row)
}

// ListTodos returns non-deleted todos, newest first; pendingOnly restricts
// the result to incomplete todos.
func (s *Store) ListTodos(pendingOnly bool) ([]model.Todo, error) {
	query := `SELECT id, title, description, keywords_json, completed, deleted, created_at FROM todos WHERE deleted = 0`
	if pendingOnly {
		query += ` AND completed = 0`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.conn().Query(query)
	if err != nil {
		return nil, fmt.Errorf("persistence: list todos: %w", err)
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

// CompleteTodo marks a todo completed.
func (s *Store) CompleteTodo(id string) error {
	res, err := s.conn().Exec(`UPDATE todos SET completed = 1 WHERE id = ? AND deleted = 0`, id)
	if err != nil {
		return fmt.Errorf("persistence: complete todo: %w", err)
	}
	return requireAffected(res)
}

// DeleteTodo soft-deletes a todo.
func (s *Store) DeleteTodo(id string) error {
	res, err := s.conn().Exec(`UPDATE todos SET deleted = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("persistence: delete todo: %w", err)
	}
	return requireAffected(res)
}

func scanTodo(row rowScanner) (model.Todo, error) {
	var (
		t            model.Todo
		keywordsJSON string
		completed    int
		deleted      int
		createdAt    string
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &keywordsJSON, &completed, &deleted, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return model.Todo{}, ErrNotFound
		}
		return model.Todo{}, fmt.Errorf("persistence: scan todo: %w", err)
	}
	if err := json.Unmarshal([]byte(keywordsJSON), &t.Keywords); err != nil {
		return model.Todo{}, fmt.Errorf("persistence: unmarshal todo keywords: %w", err)
	}
	t.Completed = completed != 0
	t.Deleted = deleted != 0
	t.CreatedAt = mustParseTime(createdAt)
	return t, nil
}

// CreateCombinedTodo persists a merged-todo row and soft-deletes the rows it
// supersedes, in one transaction. Completed is true only when every
// subsumed Todo was completed, per model.CombinedTodo's contract.
func (s *Store) CreateCombinedTodo(ct model.CombinedTodo) error {
	keywords, err := json.Marshal(ct.Keywords)
	if err != nil {
		return fmt.Errorf("persistence: marshal combined todo keywords: %w", err)
	}
	merged, err := json.Marshal(ct.MergedFromIDs)
	if err != nil {
		return fmt.Errorf("persistence: marshal combined todo merged ids: %w", err)
	}

	tx, err := s.conn().Begin()
	if err != nil {
		return fmt.Errorf("persistence: begin combined todo tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO combined_todos (id, title, description, keywords_json, merged_from_ids_json, completed, deleted) VALUES (?, ?, ?, ?, ?, ?, 0)`,
		ct.ID, ct.Title, ct.Description, string(keywords), string(merged), boolToInt(ct.Completed),
	); err != nil {
		return fmt.Errorf("persistence: insert combined todo: %w", err)
	}

	for _, id := range ct.MergedFromIDs {
		if _, err := tx.Exec(`UPDATE todos SET deleted = 1 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("persistence: supersede todo %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// ListCombinedTodos returns non-deleted combined todos, newest first.
func (s *Store) ListCombinedTodos() ([]model.CombinedTodo, error) {
	rows, err := s.conn().Query(
		`SELECT id, title, description, keywords_json, merged_from_ids_json, completed, deleted, created_at
		 FROM combined_todos WHERE deleted = 0 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("persistence: list combined todos: %w", err)
	}
	defer rows.Close()

	var out []model.CombinedTodo
	for rows.Next() {
		var (
			ct           model.CombinedTodo
			keywordsJSON string
			mergedJSON   string
			completed    int
			deleted      int
			createdAt    string
		)
		if err := rows.Scan(&ct.ID, &ct.Title, &ct.Description, &keywordsJSON, &mergedJSON, &completed, &deleted, &createdAt); err != nil {
			return nil, fmt.Errorf("persistence: scan combined todo: %w", err)
		}
		if err := json.Unmarshal([]byte(keywordsJSON), &ct.Keywords); err != nil {
			return nil, fmt.Errorf("persistence: unmarshal combined todo keywords: %w", err)
		}
		if err := json.Unmarshal([]byte(mergedJSON), &ct.MergedFromIDs); err != nil {
			return nil, fmt.Errorf("persistence: unmarshal combined todo merged ids: %w", err)
		}
		ct.Completed = completed != 0
		ct.Deleted = deleted != 0
		ct.CreatedAt = mustParseTime(createdAt)
		out = append(out, ct)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
