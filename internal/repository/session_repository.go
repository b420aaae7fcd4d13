package repository

import (
	"context"
	"errors"
	"time"

	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ddfinv/portal/internal/entity"
)

// SessionRepository is the durable key/value backend for session state.
// All entries of one Set land in a single transaction, so concurrent
// readers see either the previous session or the new one, never half.
type SessionRepository struct {
	db *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Set(ctx context.Context, entries map[string]string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	q := `
	INSERT INTO session_kv (key, value, updated_at) VALUES ($1, $2, NOW())
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	for key, value := range entries {
		_, err = tx.Exec(ctx, q, key, value)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *SessionRepository) Get(ctx context.Context, key string) (string, error) {
	var value string

	q := `SELECT value FROM session_kv WHERE key = $1`

	err := r.db.QueryRow(ctx, q, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", entity.ErrNotFound
		}

		return "", err
	}

	return value, nil
}

func (r *SessionRepository) Delete(ctx context.Context, keys ...string) error {
	q := `DELETE FROM session_kv WHERE key = ANY($1)`

	_, err := r.db.Exec(ctx, q, keys)
	if err != nil {
		return err
	}

	return nil
}

// DeleteStale drops entries not touched within maxAge. Tokens expire on
// their own; this only keeps the table from growing without bound.
func (r *SessionRepository) DeleteStale(ctx context.Context, maxAge time.Duration) error {
	q := `DELETE FROM session_kv WHERE updated_at < NOW() - make_interval(secs => $1)`

	_, err := r.db.Exec(ctx, q, maxAge.Seconds())
	if err != nil {
		return err
	}

	return nil
}
