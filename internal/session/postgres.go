package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createSessionsTable = `
CREATE TABLE IF NOT EXISTS smartclean_sessions (
	id         TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS smartclean_sessions_expires_at_idx ON smartclean_sessions (expires_at);`

// PostgresStore keeps sessions as JSONB rows. Update locks the row with
// SELECT ... FOR UPDATE for the duration of the callback.
type PostgresStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// NewPostgresStore creates a store over pool.
func NewPostgresStore(pool *pgxpool.Pool, ttl time.Duration) *PostgresStore {
	return &PostgresStore{pool: pool, ttl: ttl}
}

// EnsureSchema creates the sessions table if it does not exist.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, createSessionsTable); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	return nil
}

func (p *PostgresStore) expiry(now time.Time) time.Time {
	if p.ttl <= 0 {
		return now.AddDate(100, 0, 0)
	}
	return now.Add(p.ttl)
}

// Get loads a live session.
func (p *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	var data []byte
	err := p.pool.QueryRow(ctx,
		`SELECT data FROM smartclean_sessions WHERE id = $1 AND expires_at > now()`, id,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return decode(data)
}

// Put upserts a session.
func (p *PostgresStore) Put(ctx context.Context, s *Session) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	data, err := encode(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO smartclean_sessions (id, data, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at`,
		s.ID, data, p.expiry(now),
	)
	if err != nil {
		return fmt.Errorf("put session %s: %w", s.ID, err)
	}
	return nil
}

// Update applies fn inside a transaction holding the row lock.
func (p *PostgresStore) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var data []byte
	err = tx.QueryRow(ctx,
		`SELECT data FROM smartclean_sessions WHERE id = $1 AND expires_at > now() FOR UPDATE`, id,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock session %s: %w", id, err)
	}

	s, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	s.ID = id
	now := time.Now().UTC()
	s.UpdatedAt = now

	out, err := encode(s)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", id, err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE smartclean_sessions SET data = $2, expires_at = $3 WHERE id = $1`,
		id, out, p.expiry(now),
	); err != nil {
		return nil, fmt.Errorf("update session %s: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s, nil
}

// Delete removes a session.
func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM smartclean_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// Sweep deletes expired rows and returns how many were removed.
func (p *PostgresStore) Sweep(ctx context.Context) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM smartclean_sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
