package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// LinkSummary is one stored summary (or save-for-later placeholder) keyed by
// email or link id.
type LinkSummary struct {
	Key         string
	Summary     string
	SourceBody  string
	SourceLabel string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ErrSummaryNotFound is returned when no summary exists for a key.
var ErrSummaryNotFound = errors.New("summary not found")

// SaveLinkSummary upserts a summary. Saving again for the same key replaces
// the previous summary, so a placeholder can later be overwritten by the
// real text.
func (s *Store) SaveLinkSummary(ctx context.Context, key, summary, sourceBody, sourceLabel string) error {
	now := formatTime(time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO link_summaries (key, summary, source_body, source_label, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			summary = excluded.summary,
			source_body = excluded.source_body,
			source_label = excluded.source_label,
			updated_at = excluded.updated_at`,
		key, summary, sourceBody, sourceLabel, now, now)
	if err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

// GetLinkSummary fetches one summary by key.
func (s *Store) GetLinkSummary(ctx context.Context, key string) (*LinkSummary, error) {
	var (
		ls        LinkSummary
		createdAt string
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT key, summary, source_body, source_label, created_at, updated_at
		FROM link_summaries WHERE key = ?`, key).
		Scan(&ls.Key, &ls.Summary, &ls.SourceBody, &ls.SourceLabel, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSummaryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}
	if ls.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("summary %s: bad created_at: %w", key, err)
	}
	if ls.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("summary %s: bad updated_at: %w", key, err)
	}
	return &ls, nil
}

// ListSummariesMatching returns the summaries whose text equals the given
// value, oldest first. Used to find save-for-later placeholders awaiting
// real summarization.
func (s *Store) ListSummariesMatching(ctx context.Context, summary string) ([]LinkSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, summary, source_body, source_label, created_at, updated_at
		FROM link_summaries WHERE summary = ? ORDER BY created_at, key`, summary)
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}
	defer rows.Close()

	var out []LinkSummary
	for rows.Next() {
		var (
			ls        LinkSummary
			createdAt string
			updatedAt string
		)
		if err := rows.Scan(&ls.Key, &ls.Summary, &ls.SourceBody, &ls.SourceLabel, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if ls.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("summary %s: bad created_at: %w", ls.Key, err)
		}
		if ls.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("summary %s: bad updated_at: %w", ls.Key, err)
		}
		out = append(out, ls)
	}
	return out, rows.Err()
}
