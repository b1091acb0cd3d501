package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/inkwell-ai/inkwell/internal/durable"
	"github.com/inkwell-ai/inkwell/internal/platform/logger"
)

// DBTX is an interface that abstracts the database access layer.
// It is implemented by both *sql.DB and *sql.Tx, allowing our code
// to work with either a database connection or a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SnapshotKV implements durable.KV on a PostgreSQL table. The byte quota is
// enforced before writing so the durable layer's tier fallback can react the
// same way it does for genuinely quota-limited backends.
type SnapshotKV struct {
	db    DBTX
	quota int
}

// NewSnapshotKV creates a SnapshotKV over the given connection. A
// non-positive quota means unlimited.
func NewSnapshotKV(db DBTX, quota int) *SnapshotKV {
	return &SnapshotKV{db: db, quota: quota}
}

// Get returns the value for key.
func (s *SnapshotKV) Get(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM inkwell_state WHERE key = $1`

	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read state row: %w", err)
	}
	return value, true, nil
}

// Set upserts the value for key, enforcing the byte quota.
func (s *SnapshotKV) Set(ctx context.Context, key, value string) error {
	if s.quota > 0 && len(value) > s.quota {
		return fmt.Errorf("%w: value is %d bytes, quota is %d",
			durable.ErrQuotaExceeded, len(value), s.quota)
	}

	query := `
		INSERT INTO inkwell_state (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		logger.FromContext(ctx).Error("failed to write state row", "key", key, "error", err)
		return fmt.Errorf("failed to write state row: %w", err)
	}
	return nil
}

// Delete removes the key's row. Deleting an absent key is a no-op.
func (s *SnapshotKV) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM inkwell_state WHERE key = $1`
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete state row: %w", err)
	}
	return nil
}
