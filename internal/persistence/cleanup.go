package persistence

import (
	"fmt"
	"time"
)

// CleanupOldData hard-deletes soft-deleted rows (and diagnostic raw_records,
// which carry no deleted flag) older than `days` days, backing the
// processing.cleanup_old_data(days) operation. It returns the total number
// of rows removed across every table.
func (s *Store) CleanupOldData(days int) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339Nano)

	stmts := []struct {
		query string
		args  []any
	}{
		{`DELETE FROM raw_records WHERE timestamp < ?`, []any{cutoff}},
		{`DELETE FROM events WHERE deleted = 1 AND timestamp < ?`, []any{cutoff}},
		{`DELETE FROM knowledge WHERE deleted = 1 AND created_at < ?`, []any{cutoff}},
		{`DELETE FROM combined_knowledge WHERE deleted = 1 AND created_at < ?`, []any{cutoff}},
		{`DELETE FROM todos WHERE deleted = 1 AND created_at < ?`, []any{cutoff}},
		{`DELETE FROM combined_todos WHERE deleted = 1 AND created_at < ?`, []any{cutoff}},
		{`DELETE FROM activities WHERE deleted = 1 AND end_time < ?`, []any{cutoff}},
		{`DELETE FROM diaries WHERE deleted = 1 AND created_at < ?`, []any{cutoff}},
	}

	total := 0
	for _, st := range stmts {
		res, err := s.conn().Exec(st.query, st.args...)
		if err != nil {
			return total, fmt.Errorf("persistence: cleanup old data: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("persistence: cleanup rows affected: %w", err)
		}
		total += int(n)
	}
	return total, nil
}
