package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/inboxpilot/inboxpilot/internal/rules"
)

// Append stores one debug-log entry. When a retention window is configured,
// entries older than the window are pruned in the same call; a pruning
// failure is logged but never fails the append.
func (s *Store) Append(ctx context.Context, entry rules.DebugLogEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode debug entry: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO debug_log (id, email_id, subject, sender, timestamp, entry)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.EmailID, entry.Subject, entry.From,
		formatTime(entry.Timestamp), string(payload))
	if err != nil {
		return fmt.Errorf("failed to append debug entry: %w", err)
	}

	if s.debugRetention > 0 {
		cutoff := formatTime(time.Now().Add(-s.debugRetention))
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM debug_log WHERE timestamp < ?`, cutoff); err != nil {
			s.logger.Warn("failed to prune debug log", "error", err.Error())
		}
	}
	return nil
}

// RecentDebugEntries returns the newest entries first, up to limit.
func (s *Store) RecentDebugEntries(ctx context.Context, limit int) ([]rules.DebugLogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry FROM debug_log ORDER BY timestamp DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list debug entries: %w", err)
	}
	defer rows.Close()

	var out []rules.DebugLogEntry
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var entry rules.DebugLogEntry
		if err := json.Unmarshal([]byte(payload), &entry); err != nil {
			return nil, fmt.Errorf("failed to decode debug entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// ClearDebugLog removes every stored entry.
func (s *Store) ClearDebugLog(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM debug_log`); err != nil {
		return fmt.Errorf("failed to clear debug log: %w", err)
	}
	return nil
}
