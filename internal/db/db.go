package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/council/internal/config"
	_ "modernc.org/sqlite"
)

// FileName is the database file inside the base directory.
const FileName = "council.db"

// migration upgrades the schema to version.
type migration struct {
	version int
	stmts   []string
}

// migrations run in order; each one is applied once, tracked by user_version.
var migrations = []migration{
	{
		version: 1,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS active_slot (
			  key        TEXT PRIMARY KEY,
			  payload    TEXT NOT NULL,
			  updated_at INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS sessions (
			  id              TEXT PRIMARY KEY,
			  position        INTEGER NOT NULL,
			  problem         TEXT NOT NULL,
			  selected_json   TEXT NOT NULL,
			  transcript_json TEXT NOT NULL,
			  updated_at      INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_sessions_position ON sessions(position)`,
		},
	},
}

// SchemaVersion is the version the last migration brings the database to.
var SchemaVersion = migrations[len(migrations)-1].version

// Init opens baseDir/council.db, creating baseDir and its exports directory
// with owner-only permissions, and migrates the schema.
// Tests pass t.TempDir() instead of ~/.council.
func Init(baseDir string) (*sql.DB, error) {
	for _, dir := range []string{baseDir, filepath.Join(baseDir, "exports")} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
		_ = os.Chmod(dir, 0700) // best-effort on platforms without unix modes
	}

	dbPath := filepath.Join(baseDir, FileName)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := prepare(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)
	return db, nil
}

func prepare(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return migrate(db)
}

// ConfigurePool applies the connection limits set in cfg. Zero values keep
// the sql.DB defaults.
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies every migration newer than the stored user_version. A
// database written by a newer build is refused rather than guessed at.
func migrate(db *sql.DB) error {
	current, err := UserVersion(db)
	if err != nil {
		return err
	}
	if current > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", current, SchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
		for _, stmt := range m.stmts {
			if _, err := tx.Exec(stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d failed: %w", m.version, err)
			}
		}
		// PRAGMA takes no bind parameters; version is a compile-time int.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: failed to set user_version: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
	}
	return nil
}

// UserVersion returns the stored schema version.
func UserVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return v, nil
}
