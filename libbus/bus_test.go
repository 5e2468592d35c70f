package libbus_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/contenox/chatsync/libbus"
	"github.com/stretchr/testify/require"
)

type factory func(t *testing.T) libbus.Messenger

func inmem(t *testing.T) libbus.Messenger {
	ps := libbus.NewInMem()
	t.Cleanup(func() { _ = ps.Close() })
	return ps
}

func natsBacked(t *testing.T) libbus.Messenger {
	ps, cleanup, err := libbus.NewTestPubSub()
	if err != nil {
		cleanup()
		t.Skipf("nats container unavailable: %v", err)
	}
	t.Cleanup(cleanup)
	return ps
}

func forEachMessenger(t *testing.T, fn func(t *testing.T, newPS factory)) {
	t.Run("inmem", func(t *testing.T) { fn(t, inmem) })
	t.Run("nats", func(t *testing.T) { fn(t, natsBacked) })
}

func TestSystem_StreamPreservesOrder(t *testing.T) {
	forEachMessenger(t, func(t *testing.T, newPS factory) {
		ps := newPS(t)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		ch := make(chan []byte, 16)
		sub, err := ps.Stream(ctx, "channel.c1", ch)
		require.NoError(t, err)
		defer sub.Unsubscribe()

		for i := range 10 {
			require.NoError(t, ps.Publish(ctx, "channel.c1", fmt.Appendf(nil, "%d", i)))
		}
		for i := range 10 {
			select {
			case got := <-ch:
				require.Equal(t, fmt.Sprint(i), string(got))
			case <-ctx.Done():
				t.Fatal("timed out waiting for streamed message")
			}
		}
	})
}

func TestSystem_UnsubscribeStopsDelivery(t *testing.T) {
	forEachMessenger(t, func(t *testing.T, newPS factory) {
		ps := newPS(t)
		ctx := context.Background()

		ch := make(chan []byte, 4)
		sub, err := ps.Stream(ctx, "channel.c2", ch)
		require.NoError(t, err)
		require.NoError(t, sub.Unsubscribe())

		require.NoError(t, ps.Publish(ctx, "channel.c2", []byte("late")))
		select {
		case <-ch:
			t.Fatal("message delivered after unsubscribe")
		case <-time.After(100 * time.Millisecond):
		}
	})
}

func TestSystem_PublishWithClosedConnection(t *testing.T) {
	forEachMessenger(t, func(t *testing.T, newPS factory) {
		ps := newPS(t)
		require.NoError(t, ps.Close())
		err := ps.Publish(context.Background(), "test.closed", []byte("data"))
		require.ErrorIs(t, err, libbus.ErrConnectionClosed)
	})
}

func TestSystem_PublishContextCanceled(t *testing.T) {
	forEachMessenger(t, func(t *testing.T, newPS factory) {
		ps := newPS(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.ErrorIs(t, ps.Publish(ctx, "test.canceled", []byte("data")), context.Canceled)

		_, err := ps.Stream(ctx, "test.canceled", make(chan []byte, 1))
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestUnit_InMemReconnectListeners(t *testing.T) {
	ps := libbus.NewInMem()
	var calls atomic.Int32
	cancel := ps.OnReconnect(func() { calls.Add(1) })

	ps.SimulateReconnect()
	require.Equal(t, int32(1), calls.Load())

	cancel()
	ps.SimulateReconnect()
	require.Equal(t, int32(1), calls.Load())
}
