// Package pgstore keeps artifacts as rows of a single Postgres table.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"pitch-scorer/internal/store"

	"github.com/lib/pq"
)

type Store struct {
	db    *sql.DB
	table string
}

// New stores rows in table. The name is quoted, so any identifier is safe.
func New(db *sql.DB, table string) *Store {
	return &Store{db: db, table: pq.QuoteIdentifier(table)}
}

// EnsureSchema creates the blob table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	key          TEXT PRIMARY KEY,
	content_type TEXT NOT NULL,
	data         BYTEA NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	return nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	query := fmt.Sprintf(`INSERT INTO %s (key, content_type, data) VALUES ($1, $2, $3)
ON CONFLICT (key) DO NOTHING`, s.table)
	res, err := s.db.ExecContext(ctx, query, key, contentType, data)
	if err != nil {
		return fmt.Errorf("postgres put %s: %w", key, describe(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres put %s: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("postgres put %s: %w", key, store.ErrExists)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	query := fmt.Sprintf(`SELECT data FROM %s WHERE key = $1`, s.table)

	var data []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres get %s: %w", key, describe(err))
	}
	return data, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	query := fmt.Sprintf(`SELECT key FROM %s WHERE key LIKE $1 ESCAPE '\' ORDER BY key`, s.table)

	rows, err := s.db.QueryContext(ctx, query, escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("postgres list %s: %w", prefix, describe(err))
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("postgres list %s: %w", prefix, err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres list %s: %w", prefix, err)
	}
	return store.ChildPrefixes(keys, prefix), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike keeps '_' in record names from acting as a wildcard.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// describe adds the SQLSTATE to driver errors.
func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%w (sqlstate %s)", err, pqErr.Code)
	}
	return err
}
