// Package db provides the SQLite persistence layer: schema migrations,
// bulk ingestion writers, and the read-side queries used by the
// knowledge-graph engine.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/rhizome/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Init opens (creating if necessary) the knowledge-base database at
// dbPath and applies migrations.
func Init(dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Pragmas in the connection string apply to every pooled connection.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Open opens an existing knowledge base for querying. Unlike Init it
// refuses to create an empty store, since a query against one would
// silently return nothing.
func Open(dbPath string) (*sql.DB, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("knowledge base not found at %s (run ingest first)", dbPath)
	}
	return Init(dbPath)
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
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

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS notes (
		  note_id          INTEGER PRIMARY KEY,
		  file_path        TEXT NOT NULL UNIQUE,
		  slug             TEXT NOT NULL UNIQUE,
		  title            TEXT,
		  content          TEXT NOT NULL,
		  frontmatter_json TEXT,
		  tags_json        TEXT,
		  aliases_json     TEXT,
		  created_date     TEXT,
		  modified_date    INTEGER NOT NULL,
		  word_count       INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS links (
		  link_id     INTEGER PRIMARY KEY,
		  source_slug TEXT NOT NULL,
		  target_slug TEXT NOT NULL,
		  link_text   TEXT,
		  link_type   TEXT NOT NULL DEFAULT 'wikilink'
		);

		CREATE TABLE IF NOT EXISTS chunks (
		  chunk_id        INTEGER PRIMARY KEY,
		  note_id         INTEGER NOT NULL REFERENCES notes(note_id),
		  chunk_index     INTEGER NOT NULL,
		  content         TEXT NOT NULL,
		  heading_context TEXT,
		  chunk_type      TEXT,
		  start_line      INTEGER,
		  end_line        INTEGER
		);

		CREATE TABLE IF NOT EXISTS embeddings (
		  embedding_id INTEGER PRIMARY KEY,
		  chunk_id     INTEGER NOT NULL UNIQUE REFERENCES chunks(chunk_id),
		  vector       BLOB NOT NULL,
		  model_name   TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS hyperedges (
		  hyperedge_id INTEGER PRIMARY KEY,
		  edge_type    TEXT NOT NULL,
		  edge_value   TEXT NOT NULL,
		  UNIQUE(edge_type, edge_value)
		);

		CREATE TABLE IF NOT EXISTS hyperedge_members (
		  hyperedge_id INTEGER NOT NULL REFERENCES hyperedges(hyperedge_id),
		  note_id      INTEGER NOT NULL REFERENCES notes(note_id),
		  UNIQUE(hyperedge_id, note_id)
		);

		CREATE TABLE IF NOT EXISTS meta (
		  key   TEXT PRIMARY KEY,
		  value TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_notes_slug ON notes(slug);
		CREATE INDEX IF NOT EXISTS idx_notes_title ON notes(title);
		CREATE INDEX IF NOT EXISTS idx_links_source ON links(source_slug);
		CREATE INDEX IF NOT EXISTS idx_links_target ON links(target_slug);
		CREATE INDEX IF NOT EXISTS idx_chunks_note ON chunks(note_id);
		CREATE INDEX IF NOT EXISTS idx_members_note ON hyperedge_members(note_id);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// Rebuild drops every table and re-applies the schema. Ingestion always
// starts from a clean store so partially populated states from an
// interrupted run are never queried.
func Rebuild(db *sql.DB) error {
	drops := []string{
		"DROP TABLE IF EXISTS hyperedge_members",
		"DROP TABLE IF EXISTS hyperedges",
		"DROP TABLE IF EXISTS embeddings",
		"DROP TABLE IF EXISTS chunks",
		"DROP TABLE IF EXISTS links",
		"DROP TABLE IF EXISTS notes",
		"DROP TABLE IF EXISTS meta",
	}
	for _, stmt := range drops {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("rebuild: %w", err)
		}
	}
	if err := SetUserVersion(db, 0); err != nil {
		return err
	}
	return migrate(db)
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

// SetMeta stores a key/value pair in the meta table, replacing any
// prior value.
func SetMeta(db *sql.DB, key, value string) error {
	_, err := db.Exec(
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// GetMeta returns the value for a meta key, or "" if absent.
func GetMeta(db *sql.DB, key string) (string, error) {
	var value string
	err := db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}
