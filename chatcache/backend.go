// Package chatcache holds the shared user and channel caches the sync engine reads from.
// Caches are read-mostly and shared between engines; missing entries are fetched on demand.
package chatcache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	libkv "github.com/contenox/chatsync/libkvstore"
)

var ErrNotFound = errors.New("chatcache: not found")

// Backend stores encoded cache entries.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

type memoryBackend struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryBackend keeps entries in process memory.
func NewMemoryBackend() Backend {
	return &memoryBackend{entries: make(map[string][]byte)}
}

func (b *memoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (b *memoryBackend) Set(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[key] = value
	return nil
}

type kvBackend struct {
	exec libkv.KVExec
	ttl  time.Duration
}

// NewKVBackend stores entries in valkey so several clients can share one cache.
// A zero ttl keeps entries until they are overwritten.
func NewKVBackend(exec libkv.KVExec, ttl time.Duration) Backend {
	return &kvBackend{exec: exec, ttl: ttl}
}

func (b *kvBackend) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := b.exec.Get(ctx, key)
	if errors.Is(err, libkv.ErrNotFound) {
		return nil, ErrNotFound
	}
	return v, err
}

func (b *kvBackend) Set(ctx context.Context, key string, value []byte) error {
	if b.ttl > 0 {
		return b.exec.SetWithTTL(ctx, key, json.RawMessage(value), b.ttl)
	}
	return b.exec.Set(ctx, key, json.RawMessage(value))
}

func getJSON[T any](ctx context.Context, b Backend, key string) (T, error) {
	var out T
	data, err := b.Get(ctx, key)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}

func setJSON(ctx context.Context, b Backend, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Set(ctx, key, data)
}
