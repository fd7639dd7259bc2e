package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"chronicle/internal/model"
)

// CreateKnowledge persists a new Knowledge row.
func (s *Store) CreateKnowledge(k model.Knowledge) error {
	keywords, err := json.Marshal(k.Keywords)
	if err != nil {
		return fmt.Errorf("persistence: marshal knowledge keywords: %w", err)
	}
	_, err = s.conn().Exec(
		`INSERT INTO knowledge (id, title, description, keywords_json, deleted) VALUES (?, ?, ?, ?, 0)`,
		k.ID, k.Title, k.Description, string(keywords),
	)
	if err != nil {
		return fmt.Errorf("persistence: insert knowledge: %w", err)
	}
	return nil
}

// GetKnowledge returns a Knowledge row by id, ignoring deleted.
func (s *Store) GetKnowledge(id string) (model.Knowledge, error) {
	row := s.conn().QueryRow(
		`SELECT id, title, description, keywords_json, deleted, created_at FROM knowledge WHERE id = ?`, id,
	)
	return scanKnowledge(row)
}

// ListKnowledge returns non-deleted knowledge rows, newest first.
func (s *Store) ListKnowledge(limit int) ([]model.Knowledge, error) {
	query := `SELECT id, title, description, keywords_json, deleted, created_at FROM knowledge WHERE deleted = 0 ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("persistence: list knowledge: %w", err)
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

// DeleteKnowledge soft-deletes a knowledge row.
func (s *Store) DeleteKnowledge(id string) error {
	res, err := s.conn().Exec(`UPDATE knowledge SET deleted = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("persistence: delete knowledge: %w", err)
	}
	return requireAffected(res)
}

func scanKnowledge(row rowScanner) (model.Knowledge, error) {
	var (
		k            model.Knowledge
		keywordsJSON string
		deleted      int
		createdAt    string
	)
	if err := row.Scan(&k.ID, &k.Title, &k.Description, &keywordsJSON, &deleted, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return model.Knowledge{}, ErrNotFound
		}
		return model.Knowledge{}, fmt.Errorf("persistence: scan knowledge: %w", err)
	}
	if err := json.Unmarshal([]byte(keywordsJSON), &k.Keywords); err != nil {
		return model.Knowledge{}, fmt.Errorf("persistence: unmarshal knowledge keywords: %w", err)
	}
	k.Deleted = deleted != 0
	k.CreatedAt = mustParseTime(createdAt)
	return k, nil
}

// CreateCombinedKnowledge persists a merged-knowledge row and soft-deletes
// the rows it supersedes, in one transaction.
func (s *Store) CreateCombinedKnowledge(ck model.CombinedKnowledge) error {
	keywords, err := json.Marshal(ck.Keywords)
	if err != nil {
		return fmt.Errorf("persistence: marshal combined knowledge keywords: %w", err)
	}
	merged, err := json.Marshal(ck.MergedFromIDs)
	if err != nil {
		return fmt.Errorf("persistence: marshal combined knowledge merged ids: %w", err)
	}

	tx, err := s.conn().Begin()
	if err != nil {
		return fmt.Errorf("persistence: begin combined knowledge tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO combined_knowledge (id, title, description, keywords_json, merged_from_ids_json, deleted) VALUES (?, ?, ?, ?, ?, 0)`,
		ck.ID, ck.Title, ck.Description, string(keywords), string(merged),
	); err != nil {
		return fmt.Errorf("persistence: insert combined knowledge: %w", err)
	}

	for _, id := range ck.MergedFromIDs {
		if _, err := tx.Exec(`UPDATE knowledge SET deleted = 1 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("persistence: supersede knowledge %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// ListCombinedKnowledge returns non-deleted combined knowledge rows, newest first.
func (s *Store) ListCombinedKnowledge(limit int) ([]model.CombinedKnowledge, error) {
	query := `SELECT id, title, description, keywords_json, merged_from_ids_json, deleted, created_at
		FROM combined_knowledge WHERE deleted = 0 ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("persistence: list combined knowledge: %w", err)
	}
	defer rows.Close()

	var out []model.CombinedKnowledge
	for rows.Next() {
		var (
			ck           model.CombinedKnowledge
			keywordsJSON string
			mergedJSON   string
			deleted      int
			createdAt    string
		)
		if err := rows.Scan(&ck.ID, &ck.Title, &ck.Description, &keywordsJSON, &mergedJSON, &deleted, &createdAt); err != nil {
			return nil, fmt.Errorf("persistence: scan combined knowledge: %w", err)
		}
		if err := json.Unmarshal([]byte(keywordsJSON), &ck.Keywords); err != nil {
			return nil, fmt.Errorf("persistence: unmarshal combined knowledge keywords: %w", err)
		}
		if err := json.Unmarshal([]byte(mergedJSON), &ck.MergedFromIDs); err != nil {
			return nil, fmt.Errorf("persistence: unmarshal combined knowledge merged ids: %w", err)
		}
		ck.Deleted = deleted != 0
		ck.CreatedAt = mustParseTime(createdAt)
		out = append(out, ck)
	}
	return out, rows.Err()
}
