// Package settings persists per-channel bot configuration in SQLite.
package settings

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// Store holds channel toggles and extra Mastodon instance hosts.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open creates the database file if needed, applies the schema and returns a
// ready Store. SQLite gets a single connection and WAL so concurrent handler
// goroutines never trip over a write lock.
func Open(dbPath string, logger *zap.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS channel_settings (
		channel_id  TEXT PRIMARY KEY,
		enabled     INTEGER NOT NULL DEFAULT 1,
		updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS mastodon_instances (
		host        TEXT PRIMARY KEY,
		added_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Enabled reports whether the bot acts in the channel. Channels with no row
// default to enabled.
func (s *Store) Enabled(ctx context.Context, channelID string) (bool, error) {
	var enabled bool
	err := s.db.QueryRowContext(ctx,
		`SELECT enabled FROM channel_settings WHERE channel_id = ?`, channelID,
	).Scan(&enabled)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read channel settings: %w", err)
	}
	return enabled, nil
}

// SetEnabled flips the channel toggle.
func (s *Store) SetEnabled(ctx context.Context, channelID string, enabled bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO channel_settings (channel_id, enabled, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(channel_id) DO UPDATE SET enabled = excluded.enabled, updated_at = CURRENT_TIMESTAMP`,
		channelID, enabled,
	)
	if err != nil {
		return fmt.Errorf("write channel settings: %w", err)
	}
	s.logger.Info("channel toggle updated",
		zap.String("channel_id", channelID),
		zap.Bool("enabled", enabled),
	)
	return nil
}

// AddMastodonInstance registers a host whose status URLs classify as Mastodon
// even without the @user path shape.
func (s *Store) AddMastodonInstance(ctx context.Context, host string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO mastodon_instances (host) VALUES (?)`, host,
	)
	if err != nil {
		return fmt.Errorf("add mastodon instance: %w", err)
	}
	return nil
}

// MastodonInstances returns every registered instance host.
func (s *Store) MastodonInstances(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT host FROM mastodon_instances ORDER BY host`)
	if err != nil {
		return nil, fmt.Errorf("list mastodon instances: %w", err)
	}
	defer rows.Close()

	var hosts []string
	for rows.Next() {
		var host string
		if err := rows.Scan(&host); err != nil {
			return nil, fmt.Errorf("scan mastodon instance: %w", err)
		}
		hosts = append(hosts, host)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mastodon instances: %w", err)
	}
	return hosts, nil
}
