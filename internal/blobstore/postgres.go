package blobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStore keeps objects in the blob_objects table created by
// database.RunMigrations.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Put(ctx context.Context, key string, body []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blob_objects (key, body, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (key) DO UPDATE SET
			body = EXCLUDED.body,
			updated_at = EXCLUDED.updated_at
	`, key, string(body))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) PutIfAbsent(ctx context.Context, key string, body []byte) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO blob_objects (key, body, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (key) DO NOTHING
	`, key, string(body))
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", key, err)
	}
	return n == 1, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM blob_objects WHERE key = $1`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return body, nil
}

func (s *PostgresStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM blob_objects WHERE key LIKE $1 ESCAPE '\' ORDER BY key`,
		likePrefix(prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blob_objects WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
