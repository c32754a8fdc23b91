package persist

import (
	"context"
	"fmt"

	"github.com/Clemdlc1/CustomMonster-sub001/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DB wraps the connection pool shared by every repo.
type DB struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

// NewDB opens the pool and checks connectivity.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	log.Info("database connected",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns),
	)
	return &DB{Pool: pool, log: log}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS event_results (
		instance_id TEXT PRIMARY KEY,
		event_id    TEXT        NOT NULL,
		event_name  TEXT        NOT NULL,
		event_type  TEXT        NOT NULL,
		reason      TEXT        NOT NULL,
		forced      BOOLEAN     NOT NULL DEFAULT FALSE,
		started_at  TIMESTAMPTZ NOT NULL,
		ended_at    TIMESTAMPTZ NOT NULL,
		winner      TEXT        NOT NULL DEFAULT '',
		rankings    JSONB       NOT NULL DEFAULT '[]'
	)`,
	`CREATE INDEX IF NOT EXISTS event_results_event_id ON event_results (event_id, ended_at DESC)`,
	`CREATE TABLE IF NOT EXISTS event_members (
		instance_id     TEXT    NOT NULL REFERENCES event_results (instance_id) ON DELETE CASCADE,
		player          TEXT    NOT NULL,
		group_name      TEXT    NOT NULL,
		personal_points INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (instance_id, player)
	)`,
	`CREATE INDEX IF NOT EXISTS event_members_player ON event_members (player)`,
	`CREATE TABLE IF NOT EXISTS boss_outcomes (
		session_id   TEXT PRIMARY KEY,
		mob_id       TEXT        NOT NULL,
		defeated     BOOLEAN     NOT NULL,
		killer_name  TEXT        NOT NULL DEFAULT '',
		started_at   TIMESTAMPTZ NOT NULL,
		ended_at     TIMESTAMPTZ NOT NULL,
		minion_kills INTEGER     NOT NULL DEFAULT 0,
		participants JSONB       NOT NULL DEFAULT '[]'
	)`,
}

// RunMigrations creates the archive tables. Safe to run on every boot.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
