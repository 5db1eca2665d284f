package store

import (
	"database/sql"
	"sync"
)

// KV is the key-value backend consumed by the store and the explanation
// cache. Implementations report quota exhaustion through their error; a
// missing key is (_, false, nil).
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// sqliteKV stores keys in the kv table of the shared database.
type sqliteKV struct {
	db *sql.DB
}

func (k *sqliteKV) Get(key string) (string, bool, error) {
	var value string
	err := k.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, storageErr("kv.get", err)
	}
	return value, true, nil
}

func (k *sqliteKV) Set(key, value string) error {
	_, err := k.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return storageErr("kv.set", err)
}

func (k *sqliteKV) Delete(key string) error {
	_, err := k.db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	return storageErr("kv.delete", err)
}

// MemKV is an in-memory KV used in tests and as the ephemeral fallback when
// the durable backend is unavailable.
type MemKV struct {
	mu sync.Mutex
	m  map[string]string
}

// NewMemKV returns an empty in-memory KV.
func NewMemKV() *MemKV {
	return &MemKV{m: make(map[string]string)}
}

func (k *MemKV) Get(key string) (string, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.m[key]
	return v, ok, nil
}

func (k *MemKV) Set(key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.m[key] = value
	return nil
}

func (k *MemKV) Delete(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.m, key)
	return nil
}
