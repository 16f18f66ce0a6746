// Package storage provides the key/value backends the session layer
// persists into.
//
// The unit of storage is an opaque string value under a flat string key,
// mirroring the layout the rest of the application is specified against:
// one key per session record plus one fixed key for the session index.
// Values are already obfuscation-encoded by the caller; backends never
// interpret them.
//
// Two implementations exist: [File], a directory of one-file-per-key with
// atomic writes, cross-process locking and a change watcher, and [Memory]
// for tests.
package storage

import (
	"errors"
	"sync"
)

// ErrKeyNotFound indicates the key has no stored value.
// Check with errors.Is().
var ErrKeyNotFound = errors.New("storage: key not found")

// ErrInvalidKey indicates the key contains characters the backends
// cannot represent (path separators, control characters, or empty).
var ErrInvalidKey = errors.New("storage: invalid key")

// Backend is the consumer-side contract for a key/value store.
// Implementations must serialize individual calls; callers own any
// multi-key consistency (the session layer writes record then index).
type Backend interface {
	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
}

// validKey reports whether key can be used by every backend.
// Keys are namespace-prefixed identifiers (letters, digits, '_', '-', '.')
// and must not look like paths.
func validKey(key string) bool {
	if key == "" {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-' || c == '.':
		default:
			return false
		}
	}
	// Dot-only keys ("..") would escape the storage directory as filenames.
	for i := 0; i < len(key); i++ {
		if key[i] != '.' {
			return true
		}
	}
	return false
}

// Memory is an in-memory Backend for tests.
// Safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string

	// FailWrites makes every Set return an error, simulating a full
	// store (the quota-exceeded path).
	FailWrites bool
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Get implements Backend.
func (m *Memory) Get(key string) (string, error) {
	if !validKey(key) {
		return "", ErrInvalidKey
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

// Set implements Backend.
func (m *Memory) Set(key, value string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errors.New("storage: write refused")
	}
	m.values[key] = value
	return nil
}

// Delete implements Backend.
func (m *Memory) Delete(key string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
