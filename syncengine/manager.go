package syncengine

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Manager keeps at most one engine per channel.
type Manager struct {
	deps Deps
	cfg  Config

	mu      sync.Mutex
	engines map[string]*Engine
	opening map[string]*opening
}

type opening struct {
	done   chan struct{}
	engine *Engine
	err    error
}

// NewManager creates a Manager whose engines share deps.
func NewManager(deps Deps, cfg Config) *Manager {
	return &Manager{
		deps:    deps,
		cfg:     cfg,
		engines: make(map[string]*Engine),
		opening: make(map[string]*opening),
	}
}

// Open returns the engine attached to channelID, attaching a new one if needed.
// Concurrent opens of the same channel share one attach.
func (m *Manager) Open(ctx context.Context, channelID string) (*Engine, error) {
	m.mu.Lock()
	if e, ok := m.engines[channelID]; ok {
		m.mu.Unlock()
		return e, nil
	}
	if op, ok := m.opening[channelID]; ok {
		m.mu.Unlock()
		select {
		case <-op.done:
			return op.engine, op.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	op := &opening{done: make(chan struct{})}
	m.opening[channelID] = op
	m.mu.Unlock()

	e := New(m.deps, m.cfg)
	err := e.Attach(ctx, channelID)

	m.mu.Lock()
	delete(m.opening, channelID)
	if err == nil {
		m.engines[channelID] = e
		op.engine = e
	} else {
		e.Dispose()
		op.err = err
	}
	m.mu.Unlock()
	close(op.done)
	return op.engine, op.err
}

// Get returns the attached engine for channelID, if any.
func (m *Manager) Get(channelID string) (*Engine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.engines[channelID]
	return e, ok
}

// Close disposes the engine of channelID. Closing an unknown channel is a no-op.
func (m *Manager) Close(channelID string) {
	m.mu.Lock()
	e, ok := m.engines[channelID]
	delete(m.engines, channelID)
	m.mu.Unlock()
	if ok {
		e.Dispose()
	}
}

// CloseAll disposes every engine.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	engines := m.engines
	m.engines = make(map[string]*Engine)
	m.mu.Unlock()

	var g errgroup.Group
	for _, e := range engines {
		g.Go(func() error {
			e.Dispose()
			return nil
		})
	}
	return g.Wait()
}
