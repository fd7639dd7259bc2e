package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"chronicle/internal/model"
)

// InsertRawRecord appends one diagnostic row; not on the hot path per spec.
func (s *Store) InsertRawRecord(timestamp time.Time, kind model.RecordKind, dataJSON string) error {
	_, err := s.conn().Exec(
		`INSERT INTO raw_records (timestamp, type, data_json) VALUES (?, ?, ?)`,
		timestamp.UTC().Format(time.RFC3339Nano), string(kind), dataJSON,
	)
	if err != nil {
		return fmt.Errorf("persistence: insert raw_record: %w", err)
	}
	return nil
}

// RawRecordRow is one diagnostic row from the raw_records table, backing
// the perception.records read operation.
type RawRecordRow struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"type"`
	DataJSON  string    `json:"dataJson"`
}

// ListRawRecords returns diagnostic raw_records rows, most recent first,
// optionally filtered by kind (empty means any) and a [start, end) range
// (zero values mean unbounded).
func (s *Store) ListRawRecords(kind string, start, end time.Time, limit int) ([]RawRecordRow, error) {
	query := `SELECT id, timestamp, type, data_json FROM raw_records WHERE 1=1`
	args := []any{}
	if kind != "" {
		query += ` AND type = ?`
		args = append(args, kind)
	}
	if !start.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, start.UTC().Format(time.RFC3339Nano))
	}
	if !end.IsZero() {
		query += ` AND timestamp < ?`
		args = append(args, end.UTC().Format(time.RFC3339Nano))
	}
	query += ` ORDER BY timestamp DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("persistence: list raw_records: %w", err)
	}
	defer rows.Close()

	var out []RawRecordRow
	for rows.Next() {
		var r RawRecordRow
		var ts string
		if err := rows.Scan(&r.ID, &ts, &r.Kind, &r.DataJSON); err != nil {
			return nil, fmt.Errorf("persistence: scan raw_record: %w", err)
		}
		r.Timestamp = mustParseTime(ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ClearRawRecords deletes every diagnostic raw_records row, backing the
// perception.clear_records operation.
func (s *Store) ClearRawRecords() error {
	if _, err := s.conn().Exec(`DELETE FROM raw_records`); err != nil {
		return fmt.Errorf("persistence: clear raw_records: %w", err)
	}
	return nil
}

// CreateEvent persists a new Event with a caller-supplied id.
func (s *Store) CreateEvent(e model.Event) error {
	keywords, err := json.Marshal(e.Keywords)
	if err != nil {
		return fmt.Errorf("persistence: marshal event keywords: %w", err)
	}
	_, err = s.conn().Exec(
		`INSERT INTO events (id, title, description, keywords_json, timestamp, deleted) VALUES (?, ?, ?, ?, ?, 0)`,
		e.ID, e.Title, e.Description, string(keywords), e.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("persistence: insert event: %w", err)
	}
	return nil
}

// GetEvent returns an Event by id, ignoring its deleted flag (spec §4.10:
// "get_by_id ignores deleted").
func (s *Store) GetEvent(id string) (model.Event, error) {
	row := s.conn().QueryRow(
		`SELECT id, title, description, keywords_json, timestamp, deleted, created_at FROM events WHERE id = ?`, id,
	)
	return scanEvent(row)
}

// ListEvents returns non-deleted events in descending timestamp order,
// optionally filtered by a [start, end) range.
func (s *Store) ListEvents(start, end time.Time, limit int) ([]model.Event, error) {
	query := `SELECT id, title, description, keywords_json, timestamp, deleted, created_at FROM events WHERE deleted = 0`
	args := []any{}
	if !start.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, start.UTC().Format(time.RFC3339Nano))
	}
	if !end.IsZero() {
		query += ` AND timestamp < ?`
		args = append(args, end.UTC().Format(time.RFC3339Nano))
	}
	query += ` ORDER BY timestamp DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("persistence: list events: %w", err)
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

// DeleteEvent soft-deletes an event.
func (s *Store) DeleteEvent(id string) error {
	res, err := s.conn().Exec(`UPDATE events SET deleted = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("persistence: delete event: %w", err)
	}
	return requireAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (model.Event, error) {
	var (
		e            model.Event
		keywordsJSON string
		timestamp    string
		deleted      int
		createdAt    string
	)
	if err := row.Scan(&e.ID, &e.Title, &e.Description, &keywordsJSON, &timestamp, &deleted, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return model.Event{}, ErrNotFound
		}
		return model.Event{}, fmt.Errorf("persistence: scan event: %w", err)
	}
	if err := json.Unmarshal([]byte(keywordsJSON), &e.Keywords); err != nil {
		return model.Event{}, fmt.Errorf("persistence: unmarshal event keywords: %w", err)
	}
	e.Timestamp = mustParseTime(timestamp)
	e.Deleted = deleted != 0
	e.CreatedAt = mustParseTime(createdAt)
	return e, nil
}

func mustParseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		// created_at columns use SQLite's CURRENT_TIMESTAMP default format.
		t, err = time.Parse("2006-01-02 15:04:05", s)
		if err != nil {
			return time.Time{}
		}
	}
	return t
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("persistence: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
