package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"chronicle/internal/model"
)

// InsertUsage writes one llm_token_usage accounting row. Callers (the LLM
// client's usage writer) treat a failure here as non-fatal per spec §4.7.
func (s *Store) InsertUsage(u model.LLMUsage) error {
	_, err := s.conn().Exec(
		`INSERT INTO llm_token_usage (timestamp, model, prompt_tokens, completion_tokens, total_tokens, cost, request_type)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Timestamp.UTC().Format(time.RFC3339Nano), u.Model, u.PromptTokens, u.CompletionTokens, u.TotalTokens, u.Cost, u.RequestType,
	)
	if err != nil {
		return fmt.Errorf("persistence: insert usage: %w", err)
	}
	return nil
}

// UsageSince returns usage rows at or after start, for stats aggregation.
func (s *Store) UsageSince(start time.Time) ([]model.LLMUsage, error) {
	rows, err := s.conn().Query(
		`SELECT id, timestamp, model, prompt_tokens, completion_tokens, total_tokens, cost, request_type
		 FROM llm_token_usage WHERE timestamp >= ? ORDER BY timestamp DESC`,
		start.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("persistence: usage since: %w", err)
	}
	defer rows.Close()

	var out []model.LLMUsage
	for rows.Next() {
		var (
			u         model.LLMUsage
			id        int64
			timestamp string
		)
		if err := rows.Scan(&id, &timestamp, &u.Model, &u.PromptTokens, &u.CompletionTokens, &u.TotalTokens, &u.Cost, &u.RequestType); err != nil {
			return nil, fmt.Errorf("persistence: scan usage: %w", err)
		}
		u.ID = fmt.Sprintf("%d", id)
		u.Timestamp = mustParseTime(timestamp)
		out = append(out, u)
	}
	return out, rows.Err()
}

// CreateModel inserts a new llm_models row. is_active starts false; use
// SetActiveModel to flip the single-active-row invariant.
func (s *Store) CreateModel(m model.LLMModel) error {
	_, err := s.conn().Exec(
		`INSERT INTO llm_models (id, name, provider, api_url, model, api_key, input_token_price, output_token_price, currency, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		m.ID, m.Name, m.Provider, m.APIURL, m.Model, m.APIKey, m.InputTokenPrice, m.OutputTokenPrice, m.Currency,
	)
	if err != nil {
		return fmt.Errorf("persistence: insert model: %w", err)
	}
	return nil
}

// UpdateModel replaces an existing model row's editable fields.
func (s *Store) UpdateModel(m model.LLMModel) error {
	res, err := s.conn().Exec(
		`UPDATE llm_models SET name = ?, provider = ?, api_url = ?, model = ?, api_key = ?,
		 input_token_price = ?, output_token_price = ?, currency = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		m.Name, m.Provider, m.APIURL, m.Model, m.APIKey, m.InputTokenPrice, m.OutputTokenPrice, m.Currency, m.ID,
	)
	if err != nil {
		return fmt.Errorf("persistence: update model: %w", err)
	}
	return requireAffected(res)
}

// DeleteModel removes a model row outright; models are not soft-deleted
// since spec §4.10 only names soft-delete for perception/processing
// artifacts, and a stale provider credential should not linger.
func (s *Store) DeleteModel(id string) error {
	res, err := s.conn().Exec(`DELETE FROM llm_models WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("persistence: delete model: %w", err)
	}
	return requireAffected(res)
}

// GetModel returns a model row by id.
func (s *Store) GetModel(id string) (model.LLMModel, error) {
	row := s.conn().QueryRow(
		`SELECT id, name, provider, api_url, model, api_key, input_token_price, output_token_price, currency,
		 is_active, last_test_status, last_tested_at, last_test_error, created_at, updated_at
		 FROM llm_models WHERE id = ?`, id,
	)
	return scanModel(row)
}

// ListModels returns all model rows, most recently created first.
func (s *Store) ListModels() ([]model.LLMModel, error) {
	rows, err := s.conn().Query(
		`SELECT id, name, provider, api_url, model, api_key, input_token_price, output_token_price, currency,
		 is_active, last_test_status, last_tested_at, last_test_error, created_at, updated_at
		 FROM llm_models ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("persistence: list models: %w", err)
	}
	defer rows.Close()

	var out []model.LLMModel
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetActiveModel returns the single is_active=1 row, or ErrNotFound if none
// is set (the coordinator treats that as RequiresModel, per spec §4.11).
func (s *Store) GetActiveModel() (model.LLMModel, error) {
	row := s.conn().QueryRow(
		`SELECT id, name, provider, api_url, model, api_key, input_token_price, output_token_price, currency,
		 is_active, last_test_status, last_tested_at, last_test_error, created_at, updated_at
		 FROM llm_models WHERE is_active = 1 LIMIT 1`,
	)
	return scanModel(row)
}

// SetActiveModel clears is_active on every row and sets it on id, inside one
// transaction, preserving the "at most one row has is_active=1" invariant.
func (s *Store) SetActiveModel(id string) error {
	tx, err := s.conn().Begin()
	if err != nil {
		return fmt.Errorf("persistence: begin set active model tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE llm_models SET is_active = 0`); err != nil {
		return fmt.Errorf("persistence: clear active models: %w", err)
	}
	res, err := tx.Exec(`UPDATE llm_models SET is_active = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("persistence: set active model: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordModelTest stores the outcome of a models.test(id) probe.
func (s *Store) RecordModelTest(id string, status string, testErr string, testedAt time.Time) error {
	res, err := s.conn().Exec(
		`UPDATE llm_models SET last_test_status = ?, last_test_error = ?, last_tested_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, testErr, testedAt.UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("persistence: record model test: %w", err)
	}
	return requireAffected(res)
}

func scanModel(row rowScanner) (model.LLMModel, error) {
	var (
		m             model.LLMModel
		isActive      int
		lastTestedAt  sql.NullString
		createdAt     string
		updatedAt     string
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Provider, &m.APIURL, &m.Model, &m.APIKey, &m.InputTokenPrice, &m.OutputTokenPrice,
		&m.Currency, &isActive, &m.LastTestStatus, &lastTestedAt, &m.LastTestError, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return model.LLMModel{}, ErrNotFound
		}
		return model.LLMModel{}, fmt.Errorf("persistence: scan model: %w", err)
	}
	m.IsActive = isActive != 0
	if lastTestedAt.Valid {
		t := mustParseTime(lastTestedAt.String)
		m.LastTestedAt = &t
	}
	m.CreatedAt = mustParseTime(createdAt)
	m.UpdatedAt = mustParseTime(updatedAt)
	return m, nil
}

// LinkEventImage records that event eventID cites a screenshot hash retained
// in the Image Store. Duplicate links are silent no-ops (UNIQUE(event_id, hash)).
func (s *Store) LinkEventImage(eventID, hash string) error {
	_, err := s.conn().Exec(
		`INSERT INTO event_images (event_id, hash) VALUES (?, ?) ON CONFLICT(event_id, hash) DO NOTHING`,
		eventID, hash,
	)
	if err != nil {
		return fmt.Errorf("persistence: link event image: %w", err)
	}
	return nil
}

// EventImages returns every hash linked to eventID.
func (s *Store) EventImages(eventID string) ([]string, error) {
	rows, err := s.conn().Query(`SELECT hash FROM event_images WHERE event_id = ?`, eventID)
	if err != nil {
		return nil, fmt.Errorf("persistence: event images: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("persistence: scan event image: %w", err)
		}
		out = append(out, hash)
	}
	return out, rows.Err()
}
