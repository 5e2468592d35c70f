// Package libkvstore is a thin key/value layer over valkey.
package libkvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

var ErrNotFound = errors.New("libkvstore: key not found")

type Config struct {
	KVAddr     string
	KVPassword string
}

// KVManager owns the connection and hands out executors.
type KVManager interface {
	Executor(ctx context.Context) (KVExec, error)
	Close() error
}

// KVExec runs key/value operations.
type KVExec interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Set(ctx context.Context, key string, value json.RawMessage) error
	SetWithTTL(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) error
}

type valkeyManager struct {
	client  valkey.Client
	timeout time.Duration
}

// NewManager connects to valkey. timeout bounds every single operation.
func NewManager(cfg Config, timeout time.Duration) (KVManager, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{cfg.KVAddr},
		Password:    cfg.KVPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}
	return &valkeyManager{client: client, timeout: timeout}, nil
}

func (m *valkeyManager) Executor(ctx context.Context) (KVExec, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &valkeyExec{client: m.client, timeout: m.timeout}, nil
}

func (m *valkeyManager) Close() error {
	m.client.Close()
	return nil
}

type valkeyExec struct {
	client  valkey.Client
	timeout time.Duration
}

func (e *valkeyExec) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

func (e *valkeyExec) Get(ctx context.Context, key string) (json.RawMessage, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	data, err := e.client.Do(ctx, e.client.B().Get().Key(key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %q: %w", key, err)
	}
	return json.RawMessage(data), nil
}

func (e *valkeyExec) Set(ctx context.Context, key string, value json.RawMessage) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	err := e.client.Do(ctx, e.client.B().Set().Key(key).Value(valkey.BinaryString(value)).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	return nil
}

func (e *valkeyExec) SetWithTTL(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	err := e.client.Do(ctx, e.client.B().Set().Key(key).Value(valkey.BinaryString(value)).PxMilliseconds(ttl.Milliseconds()).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to set %q with ttl: %w", key, err)
	}
	return nil
}
