// Package store persists translations in a local SQLite database so
// repeated lookups of the same text skip the backend entirely.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"
)

// schemaVersion is bumped on incompatible schema changes; a mismatch
// is reported, not migrated.
const schemaVersion = 1

// Store is the persistent translation cache.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (creating if necessary) the cache database at dbPath and
// ensures the schema.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS translations (
		hash TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		translation TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_timestamp ON translations(timestamp);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version").Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion)
		return err
	case err != nil:
		return err
	case version != schemaVersion:
		return fmt.Errorf("schema version mismatch: expected %d, got %d", schemaVersion, version)
	}
	return nil
}

// Key derives the cache key for a request: SHA-256 over the
// NFC-normalized text and the language pair plus context, so visually
// identical Unicode spellings share an entry.
func Key(text, sourceLang, targetLang, context string) string {
	keyString := fmt.Sprintf("%s|%s|%s|%s", norm.NFC.String(text), sourceLang, targetLang, context)
	sum := sha256.Sum256([]byte(keyString))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached translation for key. A miss is not an
// error; it is reported through found=false.
func (s *Store) Get(ctx context.Context, key string) (translation string, found bool, err error) {
	err = s.db.QueryRowContext(ctx,
		"SELECT translation FROM translations WHERE hash = ?", key).Scan(&translation)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return translation, true, nil
}

// Put inserts or replaces the cached translation for key.
func (s *Store) Put(ctx context.Context, key, text, sourceLang, targetLang, translation string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO translations
		(hash, text, source_lang, target_lang, translation, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		key, text, sourceLang, targetLang, translation, time.Now().Unix())
	return err
}

// PurgeExpired deletes entries older than ttl and reports how many
// were removed.
func (s *Store) PurgeExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := time.Now().Add(-ttl).Unix()
	res, err := s.db.ExecContext(ctx, "DELETE FROM translations WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Clear removes every cached translation.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM translations")
	return err
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries   int64
	SizeBytes int64
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM translations").Scan(&st.Entries); err != nil {
		return st, err
	}
	if fi, err := os.Stat(s.path); err == nil {
		st.SizeBytes = fi.Size()
	}
	return st, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
