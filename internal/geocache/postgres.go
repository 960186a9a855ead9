package geocache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skysight/thunderhead/internal/domain"
)

// PostgresStore persists cache entries in a geo_cache table so warmed cells
// survive restarts and can be shared by multiple service instances.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and ensures the schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS geo_cache (
			grid_key   TEXT PRIMARY KEY,
			results    JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		);`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create geo_cache table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key domain.GridKey) (domain.CacheEntry, bool, error) {
	const q = `SELECT results, created_at, expires_at FROM geo_cache WHERE grid_key = $1`

	var (
		raw       []byte
		createdAt time.Time
		expiresAt time.Time
	)
	err := s.pool.QueryRow(ctx, q, string(key)).Scan(&raw, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CacheEntry{}, false, nil
		}
		return domain.CacheEntry{}, false, fmt.Errorf("get %s: %w", key, err)
	}

	var results map[domain.Direction]domain.DirectionalResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("decode results for %s: %w", key, err)
	}
	return domain.CacheEntry{
		GridKey:   key,
		Results:   results,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, entry domain.CacheEntry) error {
	raw, err := json.Marshal(entry.Results)
	if err != nil {
		return fmt.Errorf("encode results for %s: %w", entry.GridKey, err)
	}
	// Upsert replaces the row wholesale to match the replace-not-merge
	// contract of the in-memory store.
	const q = `
		INSERT INTO geo_cache (grid_key, results, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (grid_key) DO UPDATE
		SET results = EXCLUDED.results,
		    created_at = EXCLUDED.created_at,
		    expires_at = EXCLUDED.expires_at`
	if _, err := s.pool.Exec(ctx, q, string(entry.GridKey), raw, entry.CreatedAt, entry.ExpiresAt); err != nil {
		return fmt.Errorf("set %s: %w", entry.GridKey, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key domain.GridKey) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM geo_cache WHERE grid_key = $1`, string(key)); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) All(ctx context.Context) ([]domain.CacheEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT grid_key, results, created_at, expires_at FROM geo_cache`)
	if err != nil {
		return nil, fmt.Errorf("scan geo_cache: %w", err)
	}
	defer rows.Close()

	var out []domain.CacheEntry
	for rows.Next() {
		var (
			key       string
			raw       []byte
			createdAt time.Time
			expiresAt time.Time
		)
		if err := rows.Scan(&key, &raw, &createdAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var results map[domain.Direction]domain.DirectionalResult
		if err := json.Unmarshal(raw, &results); err != nil {
			return nil, fmt.Errorf("decode results for %s: %w", key, err)
		}
		out = append(out, domain.CacheEntry{
			GridKey:   domain.GridKey(key),
			Results:   results,
			CreatedAt: createdAt,
			ExpiresAt: expiresAt,
		})
	}
	return out, rows.Err()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
