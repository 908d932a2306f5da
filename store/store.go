// Package store caches compiled programs keyed by the content hash of
// their source graph. Programs are stored as canonical CBOR in SQLite or
// DuckDB.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/graphc/graph"
	"github.com/chazu/graphc/graph/hash"
	"github.com/chazu/graphc/pkg/bytecode"
)

var log = commonlog.GetLogger("graphc.store")

// ErrNotFound indicates the requested program is not cached.
var ErrNotFound = errors.New("program not found")

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverDuckDB = "duckdb"
)

// Store is a program cache. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	driver string
	path   string
	mu     sync.Mutex
}

// Stats summarizes the cache contents.
type Stats struct {
	Programs int
	Bytes    int64
}

// Key returns the cache key of g. Salt values name compile options that
// change the output, such as the offset width.
func Key(g *graph.Graph, salt ...string) string {
	return hash.String(hash.Graph(g, salt...))
}

// Open opens or creates the cache at path. An empty path opens an
// in-memory database.
func Open(driver, path string) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverDuckDB:
	default:
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}
	dsn := path
	if driver == DriverSQLite && path == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if driver == DriverSQLite {
		// A single connection keeps an in-memory database alive and
		// serializes writers.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting busy timeout: %w", err)
		}
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		key TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		build TEXT NOT NULL,
		data BLOB NOT NULL,
		created BIGINT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	log.Debugf("opened %s cache %s", driver, path)
	return &Store{db: db, driver: driver, path: path}, nil
}

// Driver reports the database driver in use.
func (s *Store) Driver() string { return s.driver }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores p under key, replacing any previous entry.
func (s *Store) Put(ctx context.Context, key string, p *bytecode.Program) error {
	data, err := p.Marshal()
	if err != nil {
		return fmt.Errorf("encoding program %s: %w", p.Name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO programs (key, name, build, data, created) VALUES (?, ?, ?, ?, ?)",
		key, p.Name, p.Build, data, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("saving program %s: %w", p.Name, err)
	}
	return nil
}

// Get returns the program stored under key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (*bytecode.Program, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM programs WHERE key = ?", key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying program: %w", err)
	}
	p, err := bytecode.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("cached program %s: %w", key, err)
	}
	log.Debugf("cache hit %s (%s)", key, p.Name)
	return p, nil
}

// Delete removes the entry for key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM programs WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting program: %w", err)
	}
	return nil
}

// Keys returns the cached keys for programs called name, newest first.
func (s *Store) Keys(ctx context.Context, name string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key FROM programs WHERE name = ? ORDER BY created DESC, key", name)
	if err != nil {
		return nil, fmt.Errorf("listing programs: %w", err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Stats counts the cached programs and their encoded size.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	size := "LENGTH(data)"
	if s.driver == DriverDuckDB {
		size = "octet_length(data)"
	}
	var st Stats
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), CAST(COALESCE(SUM("+size+"), 0) AS BIGINT) FROM programs").Scan(&st.Programs, &st.Bytes)
	if err != nil {
		return Stats{}, fmt.Errorf("reading cache stats: %w", err)
	}
	return st, nil
}
