// Package cache stores compiled bytecode keyed by source content hash,
// so unchanged sources skip recompilation across runs.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// ErrNotFound indicates no cached program exists for the key.
var ErrNotFound = errors.New("program not found in cache")

// Cache is a SQLite-backed store of serialized programs.
type Cache struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) a cache database at the given path.
func Open(dbPath string) (*Cache, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "creating cache directory")
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "opening cache database")
	}

	// Busy timeout for concurrent invocations sharing one cache file
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "setting busy timeout")
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		hash TEXT PRIMARY KEY,
		bytecode BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating programs table")
	}

	return &Cache{db: db}, nil
}

// OpenDefault opens the cache at its default location,
// $HOME/.luna/cache.db.
func OpenDefault() (*Cache, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Wrap(err, "getting home dir")
	}
	return Open(filepath.Join(home, ".luna", "cache.db"))
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Key derives the cache key for a source text.
func Key(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Get returns the serialized program for a key, or ErrNotFound.
func (c *Cache) Get(key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var data []byte
	err := c.db.QueryRow("SELECT bytecode FROM programs WHERE hash = ?", key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "querying program")
	}
	return data, nil
}

// Put stores a serialized program under a key, replacing any previous entry.
func (c *Cache) Put(key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO programs (hash, bytecode) VALUES (?, ?)",
		key, data,
	)
	if err != nil {
		return errors.Wrap(err, "saving program")
	}
	return nil
}
