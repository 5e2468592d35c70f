// Package ackdebounce coalesces "read up to" signals into a single delayed network acknowledgement.
package ackdebounce

import (
	"context"
	"sync"
	"time"

	"github.com/contenox/chatsync/libroutine"
	"github.com/contenox/chatsync/libtracker"
)

// DefaultDelay is how long a read position must stay unchanged before it is sent.
const DefaultDelay = time.Second

const ackTimeout = 10 * time.Second

// LocalAcker applies a read position locally, without a network round trip.
type LocalAcker interface {
	ProcessLocalAck(channelID, messageID string)
}

// Acker sends a read position to the server.
type Acker interface {
	AckChannel(ctx context.Context, channelID, messageID string) error
}

// Debouncer is Idle while nothing is scheduled and Pending while a timer waits
// to acknowledge the latest requested position. A new request replaces the
// pending one, so bursts collapse into one call for the final position.
type Debouncer struct {
	channelID string
	delay     time.Duration
	local     LocalAcker
	remote    Acker
	breaker   *libroutine.Routine
	tracker   libtracker.ActivityTracker

	mu      sync.Mutex
	synced  string
	pending string
	timer   *time.Timer
	gen     uint64

	// sendMu keeps network acks in request order.
	sendMu sync.Mutex
}

// New creates a debouncer for one channel. A nil breaker or tracker is replaced with a default.
func New(channelID string, delay time.Duration, local LocalAcker, remote Acker, breaker *libroutine.Routine, tracker libtracker.ActivityTracker) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if breaker == nil {
		breaker = libroutine.NewRoutine(3, 30*time.Second)
	}
	if tracker == nil {
		tracker = libtracker.NoopTracker{}
	}
	return &Debouncer{
		channelID: channelID,
		delay:     delay,
		local:     local,
		remote:    remote,
		breaker:   breaker,
		tracker:   tracker,
	}
}

// RequestAck marks messageID as read. The local effect is applied immediately;
// the network call is (re)scheduled after the debounce delay. Requesting the
// position that is already applied is a no-op and reports false.
func (d *Debouncer) RequestAck(ctx context.Context, messageID string) bool {
	if messageID == "" {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if messageID == d.synced {
		return false
	}
	d.synced = messageID
	if d.local != nil {
		d.local.ProcessLocalAck(d.channelID, messageID)
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = messageID
	detached := libtracker.CopyTrackingValues(ctx, context.Background())
	d.timer = time.AfterFunc(d.delay, func() {
		d.fire(detached, gen, messageID)
	})
	return true
}

// Reset cancels a pending acknowledgement without sending it.
// The local read position that was already applied is kept.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.pending = ""
}

// Pending returns the position waiting to be acknowledged, if any.
func (d *Debouncer) Pending() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending, d.pending != ""
}

// LastSynced returns the most recently applied read position.
func (d *Debouncer) LastSynced() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.synced
}

func (d *Debouncer) fire(ctx context.Context, gen uint64, messageID string) {
	d.sendMu.Lock()
	defer d.sendMu.Unlock()

	d.mu.Lock()
	if gen != d.gen {
		// Superseded or reset after the timer was already running.
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.pending = ""
	d.mu.Unlock()

	if d.remote == nil {
		return
	}

	reportErr, reportChange, end := d.tracker.Start(ctx, "ack", "channel", "channelID", d.channelID, "messageID", messageID)
	defer end()

	ctx, cancel := context.WithTimeout(ctx, ackTimeout)
	defer cancel()
	err := d.breaker.Execute(ctx, func(ctx context.Context) error {
		return d.remote.AckChannel(ctx, d.channelID, messageID)
	})
	if err != nil {
		reportErr(err)
		return
	}
	reportChange(d.channelID, messageID)
}
