package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgnsrekt/tradeplan_saver/internal/types"
	_ "modernc.org/sqlite"
)

const schemaVersion = 1

const (
	keyIsEnabled     = "isEnabled"
	keyAudioEnabled  = "audioEnabled"
	keyVolume        = "volume"
	keyDirectoryPath = "directoryPath"
)

// SQLiteStore keeps settings as key/value rows in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read user_version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create settings table: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Load(ctx context.Context) (types.Settings, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return types.Settings{}, fmt.Errorf("settings store: query: %w", err)
	}
	defer rows.Close()

	out := types.DefaultSettings()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return types.Settings{}, fmt.Errorf("settings store: scan: %w", err)
		}
		var target any
		switch key {
		case keyIsEnabled:
			target = &out.IsEnabled
		case keyAudioEnabled:
			target = &out.AudioEnabled
		case keyVolume:
			target = &out.Volume
		case keyDirectoryPath:
			target = &out.DirectoryPath
		default:
			continue
		}
		if err := json.Unmarshal([]byte(value), target); err != nil {
			return types.Settings{}, fmt.Errorf("settings store: decode %s: %w", key, err)
		}
	}
	if err := rows.Err(); err != nil {
		return types.Settings{}, fmt.Errorf("settings store: rows: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Save(ctx context.Context, settings types.Settings) error {
	values := map[string]any{
		keyIsEnabled:     settings.IsEnabled,
		keyAudioEnabled:  settings.AudioEnabled,
		keyVolume:        settings.Volume,
		keyDirectoryPath: settings.DirectoryPath,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("settings store: begin: %w", err)
	}
	defer tx.Rollback()

	for key, v := range values {
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("settings store: encode %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, string(encoded)); err != nil {
			return fmt.Errorf("settings store: upsert %s: %w", key, err)
		}
	}
	return tx.Commit()
}
