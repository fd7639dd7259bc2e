package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"chronicle/internal/model"
)

// UpsertDiary creates or replaces the diary for its Date (at most one
// non-deleted Diary exists per UTC day, per model.Diary's contract).
func (s *Store) UpsertDiary(d model.Diary) error {
	sourceIDs, err := json.Marshal(d.SourceActivityID)
	if err != nil {
		return fmt.Errorf("persistence: marshal diary source ids: %w", err)
	}
	_, err = s.conn().Exec(
		`INSERT INTO diaries (id, date, content, source_activity_ids_json, deleted) VALUES (?, ?, ?, ?, 0)
		 ON CONFLICT(date) DO UPDATE SET content = excluded.content,
		 source_activity_ids_json = excluded.source_activity_ids_json, deleted = 0`,
		d.ID, d.Date, d.Content, string(sourceIDs),
	)
	if err != nil {
		return fmt.Errorf("persistence: upsert diary: %w", err)
	}
	return nil
}

// GetDiaryByDate returns the diary for a UTC day (YYYY-MM-DD), ignoring deleted.
func (s *Store) GetDiaryByDate(date string) (model.Diary, error) {
	row := s.conn().QueryRow(
		`SELECT id, date, content, source_activity_ids_json, deleted, created_at FROM diaries WHERE date = ?`, date,
	)
	return scanDiary(row)
}

// ListDiaries returns non-deleted diaries, newest date first.
func (s *Store) ListDiaries(limit int) ([]model.Diary, error) {
	query := `SELECT id, date, content, source_activity_ids_json, deleted, created_at FROM diaries WHERE deleted = 0 ORDER BY date DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("persistence: list diaries: %w", err)
	}
	defer rows.Close()

	var out []model.Diary
	for rows.Next() {
		d, err := scanDiary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDiary(row rowScanner) (model.Diary, error) {
	var (
		d          model.Diary
		sourceJSON string
		deleted    int
		createdAt  string
	)
	if err := row.Scan(&d.ID, &d.Date, &d.Content, &sourceJSON, &deleted, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return model.Diary{}, ErrNotFound
		}
		return model.Diary{}, fmt.Errorf("persistence: scan diary: %w", err)
	}
	if err := json.Unmarshal([]byte(sourceJSON), &d.SourceActivityID); err != nil {
		return model.Diary{}, fmt.Errorf("persistence: unmarshal diary source ids: %w", err)
	}
	d.Deleted = deleted != 0
	d.CreatedAt = mustParseTime(createdAt)
	return d, nil
}
