// Package libbus is the publish/subscribe transport the realtime layer is built on.
package libbus

import (
	"context"
	"errors"
)

var ErrConnectionClosed = errors.New("libbus: connection closed")

// Subscription is a registration that can be torn down.
type Subscription interface {
	Unsubscribe() error
}

// Messenger publishes and streams messages on subjects.
type Messenger interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Stream(ctx context.Context, subject string, ch chan<- []byte) (Subscription, error)
	Close() error
}

// ReconnectNotifier is implemented by messengers that can lose and regain
// their connection. Messages published while disconnected may be lost, so
// listeners must resynchronize when notified.
type ReconnectNotifier interface {
	OnReconnect(fn func()) (cancel func())
}

// listeners is a registry of reconnect callbacks shared by the implementations.
type listeners struct {
	next int
	fns  map[int]func()
}

func (l *listeners) add(fn func()) int {
	if l.fns == nil {
		l.fns = make(map[int]func())
	}
	l.next++
	l.fns[l.next] = fn
	return l.next
}

func (l *listeners) snapshot() []func() {
	out := make([]func(), 0, len(l.fns))
	for _, fn := range l.fns {
		out = append(out, fn)
	}
	return out
}
