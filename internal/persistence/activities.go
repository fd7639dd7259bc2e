package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"chronicle/internal/model"
)

// CreateActivity persists a new Activity at version 1.
func (s *Store) CreateActivity(a model.Activity) error {
	sourceIDs, err := json.Marshal(a.SourceEventID)
	if err != nil {
		return fmt.Errorf("persistence: marshal activity source ids: %w", err)
	}
	if a.Version == 0 {
		a.Version = 1
	}
	_, err = s.conn().Exec(
		`INSERT INTO activities (id, title, description, start_time, end_time, source_event_ids_json, version, deleted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		a.ID, a.Title, a.Description, a.StartTime.UTC().Format(time.RFC3339Nano), a.EndTime.UTC().Format(time.RFC3339Nano),
		string(sourceIDs), a.Version,
	)
	if err != nil {
		return fmt.Errorf("persistence: insert activity: %w", err)
	}
	return nil
}

// UpdateActivity replaces an existing Activity's mutable fields and bumps
// its version, supporting the activities_incremental(since_version) pull.
func (s *Store) UpdateActivity(a model.Activity) error {
	sourceIDs, err := json.Marshal(a.SourceEventID)
	if err != nil {
		return fmt.Errorf("persistence: marshal activity source ids: %w", err)
	}
	res, err := s.conn().Exec(
		`UPDATE activities SET title = ?, description = ?, start_time = ?, end_time = ?,
		 source_event_ids_json = ?, version = version + 1 WHERE id = ? AND deleted = 0`,
		a.Title, a.Description, a.StartTime.UTC().Format(time.RFC3339Nano), a.EndTime.UTC().Format(time.RFC3339Nano),
		string(sourceIDs), a.ID,
	)
	if err != nil {
		return fmt.Errorf("persistence: update activity: %w", err)
	}
	return requireAffected(res)
}

// GetActivity returns an Activity by id, ignoring its deleted flag.
func (s *Store) GetActivity(id string) (model.Activity, error) {
	row := s.conn().QueryRow(
		`SELECT id, title, description, start_time, end_time, source_event_ids_json, version, deleted, created_at
		 FROM activities WHERE id = ?`, id,
	)
	return scanActivity(row)
}

// ListActivities returns non-deleted activities in descending start_time order.
func (s *Store) ListActivities(start, end time.Time, limit int) ([]model.Activity, error) {
	query := `SELECT id, title, description, start_time, end_time, source_event_ids_json, version, deleted, created_at
		FROM activities WHERE deleted = 0`
	args := []any{}
	if !start.IsZero() {
		query += ` AND start_time >= ?`
		args = append(args, start.UTC().Format(time.RFC3339Nano))
	}
	if !end.IsZero() {
		query += ` AND start_time < ?`
		args = append(args, end.UTC().Format(time.RFC3339Nano))
	}
	query += ` ORDER BY start_time DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("persistence: list activities: %w", err)
	}
	defer rows.Close()

	var out []model.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListActivitiesSince returns non-deleted activities with version > sinceVersion,
// for the activities_incremental operation.
func (s *Store) ListActivitiesSince(sinceVersion int64) ([]model.Activity, error) {
	rows, err := s.conn().Query(
		`SELECT id, title, description, start_time, end_time, source_event_ids_json, version, deleted, created_at
		 FROM activities WHERE deleted = 0 AND version > ? ORDER BY version ASC`, sinceVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("persistence: list activities since: %w", err)
	}
	defer rows.Close()

	var out []model.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ActivityCountByDate returns a UTC-day -> count map over non-deleted activities.
func (s *Store) ActivityCountByDate() (map[string]int, error) {
	rows, err := s.conn().Query(
		`SELECT substr(start_time, 1, 10) AS day, COUNT(*) FROM activities WHERE deleted = 0 GROUP BY day`,
	)
	if err != nil {
		return nil, fmt.Errorf("persistence: activity count by date: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var day string
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("persistence: scan activity count: %w", err)
		}
		out[day] = count
	}
	return out, rows.Err()
}

// DeleteActivity soft-deletes an activity.
func (s *Store) DeleteActivity(id string) error {
	res, err := s.conn().Exec(`UPDATE activities SET deleted = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("persistence: delete activity: %w", err)
	}
	return requireAffected(res)
}

func scanActivity(row rowScanner) (model.Activity, error) {
	var (
		a          model.Activity
		sourceJSON string
		startTime  string
		endTime    string
		deleted    int
		createdAt  string
	)
	if err := row.Scan(&a.ID, &a.Title, &a.Description, &startTime, &endTime, &sourceJSON, &a.Version, &deleted, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return model.Activity{}, ErrNotFound
		}
		return model.Activity{}, fmt.Errorf("persistence: scan activity: %w", err)
	}
	if err := json.Unmarshal([]byte(sourceJSON), &a.SourceEventID); err != nil {
		return model.Activity{}, fmt.Errorf("persistence: unmarshal activity source ids: %w", err)
	}
	a.StartTime = mustParseTime(startTime)
	a.EndTime = mustParseTime(endTime)
	a.Deleted = deleted != 0
	a.CreatedAt = mustParseTime(createdAt)
	return a, nil
}
