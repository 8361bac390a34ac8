package database

import (
	"context"
	"fmt"
	"time"

	"waitwith/internal/config"
	"waitwith/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS media (
	id            BIGSERIAL PRIMARY KEY,
	source        TEXT NOT NULL,
	external_id   TEXT NOT NULL,
	title         TEXT NOT NULL,
	content_type  TEXT NOT NULL DEFAULT 'movie',
	release_date  DATE NOT NULL,
	director      TEXT,
	distributor   TEXT,
	cast_names    TEXT,
	genres        TEXT,
	poster_url    TEXT,
	is_re_release BOOLEAN NOT NULL DEFAULT FALSE,
	last_updated  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT uq_media_source_external UNIQUE (source, external_id)
);

CREATE TABLE IF NOT EXISTS wait_entries (
	id         BIGSERIAL PRIMARY KEY,
	user_id    TEXT NOT NULL,
	media_id   BIGINT NOT NULL REFERENCES media(id) ON DELETE CASCADE,
	query_name TEXT NOT NULL,
	dday_label TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT uq_wait_user_media UNIQUE (user_id, media_id)
);

CREATE INDEX IF NOT EXISTS idx_wait_entries_user ON wait_entries (user_id);
CREATE INDEX IF NOT EXISTS idx_media_release_date ON media (release_date);
`

func New(ctx context.Context) (*pgxpool.Pool, error) {
	host, port, user, password, databaseName := config.DatabaseConfig()

	if host == "" || port == "" || user == "" || databaseName == "" {
		return nil, fmt.Errorf("missing required database configuration")
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, databaseName)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Get().Info("Database connection successful")
	return pool, nil
}

// EnsureSchema creates the tables if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	logger.Get().Info("Database schema ensured")
	return nil
}
