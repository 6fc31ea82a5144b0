// Package storage is the persistence adapter shared by every store: a flat
// key-value space holding JSON documents.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"
)

// Keys used by the stores.
const (
	KeyTasks        = "tasks"
	KeyMembers      = "members"
	KeyGroups       = "groups"
	KeyAchievements = "achievements"
	KeyCurrentUser  = "currentUser"
	KeyUsers        = "users"
	KeySharedFiles  = "sharedFiles"
)

// ErrNotFound is returned by KV.Get when the key has never been written.
var ErrNotFound = errors.New("key not found")

// KV is a byte-oriented key-value backend. Values are whole documents;
// Set overwrites unconditionally.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Lister is implemented by backends that can enumerate their keys.
type Lister interface {
	Keys(ctx context.Context) ([]string, error)
}

// Load decodes the JSON document under key into dst and reports whether a
// usable value was found. A missing key leaves dst untouched. A failed read
// or malformed document is logged and dst is reset to its zero value.
func Load(ctx context.Context, kv KV, key string, dst any, logger *slog.Logger) bool {
	if logger == nil {
		logger = slog.Default()
	}

	raw, err := kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err != nil {
		logger.Warn("storage read failed; starting empty", slog.String("key", key), slog.String("error", err.Error()))
		resetValue(dst)
		return false
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		logger.Warn("malformed stored document; starting empty", slog.String("key", key), slog.String("error", err.Error()))
		resetValue(dst)
		return false
	}
	return true
}

// Save encodes v as JSON and overwrites the value under key.
func Save(ctx context.Context, kv KV, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Remove deletes key. Deleting a missing key is not an error.
func Remove(ctx context.Context, kv KV, key string) error {
	if err := kv.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func resetValue(dst any) {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return
	}
	v.Elem().SetZero()
}

// Memory is a process-local KV, used for tests and the "memory" driver.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemory returns an empty in-memory KV.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *Memory) Close() error { return nil }

// Keys lists stored keys in lexical order.
func (m *Memory) Keys(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}
