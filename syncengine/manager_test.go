package syncengine_test

import (
	"context"
	"sync"
	"testing"

	"github.com/contenox/chatsync/syncengine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit_Manager_OneEnginePerChannel(t *testing.T) {
	h := newHarness(t, scenarioSeed(), "")
	m := syncengine.NewManager(h.deps, h.cfg)
	defer m.CloseAll()

	var wg sync.WaitGroup
	engines := make([]*syncengine.Engine, 4)
	for i := range engines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := m.Open(context.Background(), "c1")
			assert.NoError(t, err)
			engines[i] = e
		}()
	}
	wg.Wait()
	for _, e := range engines[1:] {
		assert.Same(t, engines[0], e)
	}

	got, ok := m.Get("c1")
	require.True(t, ok)
	assert.Same(t, engines[0], got)

	m.Close("c1")
	m.Close("c1")
	assert.Equal(t, syncengine.StateDisposed, engines[0].State())
	_, ok = m.Get("c1")
	assert.False(t, ok)

	again, err := m.Open(context.Background(), "c1")
	require.NoError(t, err)
	assert.NotSame(t, engines[0], again)
}

func TestUnit_Manager_CloseAll(t *testing.T) {
	h := newHarness(t, scenarioSeed(), "")
	m := syncengine.NewManager(h.deps, h.cfg)

	a, err := m.Open(context.Background(), "c1")
	require.NoError(t, err)
	b, err := m.Open(context.Background(), "c2")
	require.NoError(t, err)

	require.NoError(t, m.CloseAll())
	assert.Equal(t, syncengine.StateDisposed, a.State())
	assert.Equal(t, syncengine.StateDisposed, b.State())
}
