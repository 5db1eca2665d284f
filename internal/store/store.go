// Package store is the durable local persistence layer. Entities (quizzes,
// results, media) live in an object store backed by sqlite, one JSON document
// per row with indexed columns for the secondary lookups. Small values
// (preferences, user id, caches, the error log) go through a narrow key-value
// backend that shares the same database file.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrorKind classifies storage failures.
type ErrorKind string

const (
	KindUnsupported ErrorKind = "UNSUPPORTED"
	KindQuota       ErrorKind = "QUOTA_EXCEEDED"
	KindCorrupt     ErrorKind = "CORRUPT"
	KindIO          ErrorKind = "IO"
)

// StorageError wraps a backend failure with its classification and the
// operation that produced it.
type StorageError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("storage %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("storage %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// storageErr classifies err and wraps it. sqlite reports quota exhaustion as
// a full database/disk; everything else unexpected is IO.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	kind := KindIO
	msg := err.Error()
	if strings.Contains(msg, "database or disk is full") || strings.Contains(msg, "disk is full") {
		kind = KindQuota
	}
	return &StorageError{Kind: kind, Op: op, Err: err}
}

// Store is the persistence layer. A single Store handle is shared per
// process; the underlying database opens lazily on first use so concurrent
// first users do not race two handles open.
type Store struct {
	path string
	now  func() time.Time

	once    sync.Once
	db      *sql.DB
	kv      KV
	openErr error

	mu          sync.Mutex
	ephemeralID string
}

// New creates a Store for the given database path. The database is opened
// and migrated lazily by the first operation; use HealthCheck to fail fast.
func New(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// ensure opens and migrates the database exactly once.
func (s *Store) ensure() error {
	s.once.Do(func() {
		db, err := sql.Open("sqlite", s.path+"?_journal_mode=WAL&_busy_timeout=5000")
		if err != nil {
			s.openErr = &StorageError{Kind: KindUnsupported, Op: "open", Err: err}
			return
		}
		if err := db.Ping(); err != nil {
			db.Close()
			s.openErr = &StorageError{Kind: KindUnsupported, Op: "open", Err: err}
			return
		}
		if err := migrate(db); err != nil {
			db.Close()
			s.openErr = storageErr("migrate", err)
			return
		}
		s.db = db
		s.kv = &sqliteKV{db: db}
	})
	return s.openErr
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// KVStore returns the key-value backend, opening the store if needed.
// Callers that only need KV access (the explanation cache) share the handle.
func (s *Store) KVStore() (KV, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	return s.kv, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS quizzes (
		id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_quizzes_created_at ON quizzes(created_at);
	CREATE INDEX IF NOT EXISTS idx_quizzes_updated_at ON quizzes(updated_at);

	CREATE TABLE IF NOT EXISTS results (
		id TEXT PRIMARY KEY,
		quiz_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		completed_at DATETIME NOT NULL,
		data TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_results_quiz_id ON results(quiz_id);
	CREATE INDEX IF NOT EXISTS idx_results_user_id ON results(user_id);
	CREATE INDEX IF NOT EXISTS idx_results_completed_at ON results(completed_at);

	CREATE TABLE IF NOT EXISTS media (
		id TEXT PRIMARY KEY,
		mime_type TEXT NOT NULL,
		data_url TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// EntityStats holds per-store counters.
type EntityStats struct {
	Count int   `json:"count"`
	Bytes int64 `json:"bytes"`
}

// Stats summarizes store contents with estimated serialized sizes.
type Stats struct {
	Quizzes EntityStats `json:"quizzes"`
	Results EntityStats `json:"results"`
	Media   EntityStats `json:"media"`
}

// Stats returns entity counts and estimated byte sizes per store.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	if err := s.ensure(); err != nil {
		return st, err
	}
	for _, probe := range []struct {
		query string
		dst   *EntityStats
	}{
		{`SELECT COUNT(*), COALESCE(SUM(LENGTH(data)), 0) FROM quizzes`, &st.Quizzes},
		{`SELECT COUNT(*), COALESCE(SUM(LENGTH(data)), 0) FROM results`, &st.Results},
		{`SELECT COUNT(*), COALESCE(SUM(LENGTH(data_url)), 0) FROM media`, &st.Media},
	} {
		if err := s.db.QueryRow(probe.query).Scan(&probe.dst.Count, &probe.dst.Bytes); err != nil {
			return st, storageErr("stats", err)
		}
	}
	return st, nil
}

// Health reports the outcome of probing both backends.
type Health struct {
	Initialized bool `json:"initialized"`
	ObjectStore bool `json:"objectStore"`
	KVStore     bool `json:"kvStore"`
}

// HealthCheck probes the object store and the key-value backend.
func (s *Store) HealthCheck() Health {
	h := Health{}
	if err := s.ensure(); err != nil {
		return h
	}
	h.Initialized = true
	h.ObjectStore = s.db.Ping() == nil

	const probeKey = "quizforge-health-probe"
	if err := s.kv.Set(probeKey, "ok"); err == nil {
		if v, ok, err := s.kv.Get(probeKey); err == nil && ok && v == "ok" {
			h.KVStore = true
		}
		_ = s.kv.Delete(probeKey)
	}
	return h
}

// ClearAll removes every stored entity and key. The confirm flag must be the
// literal true; anything else refuses.
func (s *Store) ClearAll(confirm bool) error {
	if !confirm {
		return &StorageError{Kind: KindIO, Op: "clearAll", Err: fmt.Errorf("refusing to clear without confirmation")}
	}
	if err := s.ensure(); err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return storageErr("clearAll", err)
	}
	defer tx.Rollback()
	for _, table := range []string{"quizzes", "results", "media", "kv"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return storageErr("clearAll", err)
		}
	}
	return storageErr("clearAll", tx.Commit())
}
