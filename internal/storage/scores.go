package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SenderScore is one row of the per-sender aggregate score table.
type SenderScore struct {
	Email     string
	Name      string
	Score     float64
	UpdatedAt time.Time
}

// Score returns the sender's aggregate score. Unknown senders score zero.
func (s *Store) Score(ctx context.Context, email string) (float64, error) {
	var score float64
	err := s.db.QueryRowContext(ctx,
		`SELECT score FROM sender_scores WHERE email = ?`, email).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read sender score: %w", err)
	}
	return score, nil
}

// AddPoints records a score event and folds it into the sender's aggregate.
// Both writes happen in one transaction so the aggregate never drifts from
// the event history.
func (s *Store) AddPoints(ctx context.Context, email, name string, points float64, emailID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin score transaction: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(time.Now())
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO score_events (email, points, email_id, created_at) VALUES (?, ?, ?, ?)`,
		email, points, emailID, now); err != nil {
		return fmt.Errorf("failed to record score event: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sender_scores (email, name, score, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			score = score + excluded.score,
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE name END,
			updated_at = excluded.updated_at`,
		email, name, points, now); err != nil {
		return fmt.Errorf("failed to update sender score: %w", err)
	}

	return tx.Commit()
}

// TopSenders lists the highest-scored senders, up to limit.
func (s *Store) TopSenders(ctx context.Context, limit int) ([]SenderScore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT email, name, score, updated_at FROM sender_scores
		 ORDER BY score DESC, email LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sender scores: %w", err)
	}
	defer rows.Close()

	var out []SenderScore
	for rows.Next() {
		var (
			sc        SenderScore
			updatedAt string
		)
		if err := rows.Scan(&sc.Email, &sc.Name, &sc.Score, &updatedAt); err != nil {
			return nil, err
		}
		if sc.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("sender %s: bad updated_at: %w", sc.Email, err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
