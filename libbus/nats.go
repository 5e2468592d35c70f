package libbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Config configures the NATS-backed messenger.
type Config struct {
	NATSURL      string
	NATSUser     string
	NATSPassword string
	Name         string
}

// PS is a Messenger backed by a NATS connection.
type PS struct {
	nc *nats.Conn

	mu         sync.RWMutex
	reconnects listeners
}

// NewPubSub connects to NATS. The connection reconnects indefinitely; every
// successful reconnect is reported to OnReconnect listeners.
func NewPubSub(ctx context.Context, cfg *Config) (*PS, error) {
	ps := &PS{}
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500 * time.Millisecond),
		nats.ReconnectHandler(func(*nats.Conn) {
			ps.notifyReconnect()
		}),
	}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}
	if cfg.NATSUser != "" {
		opts = append(opts, nats.UserInfo(cfg.NATSUser, cfg.NATSPassword))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	nc, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	ps.nc = nc
	return ps, nil
}

func (p *PS) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.nc.IsClosed() {
		return ErrConnectionClosed
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish: %w", err)
	}
	return nil
}

// Stream delivers every message on subject to ch until ctx is done or the subscription is removed.
// A single NATS subscription callback delivers messages in arrival order.
func (p *PS) Stream(ctx context.Context, subject string, ch chan<- []byte) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.nc.IsClosed() {
		return nil, ErrConnectionClosed
	}
	done := make(chan struct{})
	sub, err := p.nc.Subscribe(subject, func(msg *nats.Msg) {
		select {
		case ch <- msg.Data:
		case <-done:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	s := &natsSubscription{sub: sub, done: done}
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Unsubscribe()
		case <-done:
		}
	}()
	return s, nil
}

func (p *PS) OnReconnect(fn func()) func() {
	p.mu.Lock()
	id := p.reconnects.add(fn)
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.reconnects.fns, id)
		p.mu.Unlock()
	}
}

func (p *PS) notifyReconnect() {
	p.mu.RLock()
	fns := p.reconnects.snapshot()
	p.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

func (p *PS) Close() error {
	if p.nc.IsClosed() {
		return nil
	}
	p.nc.Close()
	return nil
}

type natsSubscription struct {
	sub  *nats.Subscription
	once sync.Once
	done chan struct{}
}

func (s *natsSubscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.sub.Unsubscribe()
		if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
			err = nil
		}
	})
	return err
}

var (
	_ Messenger         = (*PS)(nil)
	_ ReconnectNotifier = (*PS)(nil)
)
