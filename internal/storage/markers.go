package storage

import (
	"context"
	"fmt"
	"time"
)

// AppendMarker records an email id in a named bucket. Re-marking the same
// email in the same bucket is a no-op.
func (s *Store) AppendMarker(ctx context.Context, bucket, emailID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO markers (bucket, email_id, created_at) VALUES (?, ?, ?)`,
		bucket, emailID, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to append marker: %w", err)
	}
	return nil
}

// ListMarkers returns the email ids in a bucket, oldest first.
func (s *Store) ListMarkers(ctx context.Context, bucket string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT email_id FROM markers WHERE bucket = ? ORDER BY created_at, email_id`, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list markers: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
