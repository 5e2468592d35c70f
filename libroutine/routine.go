// Package libroutine guards calls to flaky collaborators with a circuit breaker.
package libroutine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the circuit breaker state.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Routine is a circuit breaker. After threshold consecutive failures it opens
// and rejects calls until resetTimeout has passed; then it lets a single
// probe through and closes again if the probe succeeds.
type Routine struct {
	mu           sync.Mutex
	state        State
	failures     int
	threshold    int
	resetTimeout time.Duration
	openedAt     time.Time
	probing      bool
}

func NewRoutine(threshold int, resetTimeout time.Duration) *Routine {
	if threshold < 1 {
		threshold = 1
	}
	return &Routine{
		state:        Closed,
		threshold:    threshold,
		resetTimeout: resetTimeout,
	}
}

// Allow reports whether a call may proceed. In half-open state only one probe is admitted.
func (rm *Routine) Allow() bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	switch rm.state {
	case Closed:
		return true
	case Open:
		if time.Since(rm.openedAt) < rm.resetTimeout {
			return false
		}
		rm.state = HalfOpen
		rm.probing = true
		return true
	case HalfOpen:
		if rm.probing {
			return false
		}
		rm.probing = true
		return true
	}
	return false
}

// MarkSuccess closes the circuit.
func (rm *Routine) MarkSuccess() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.failures = 0
	rm.state = Closed
	rm.probing = false
}

// MarkFailure records a failure and opens the circuit once the threshold is reached.
func (rm *Routine) MarkFailure() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.failures++
	rm.probing = false
	if rm.state == HalfOpen || rm.failures >= rm.threshold {
		rm.state = Open
		rm.openedAt = time.Now()
	}
}

// Execute runs fn if the circuit allows it and records the outcome.
func (rm *Routine) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if !rm.Allow() {
		return ErrCircuitOpen
	}
	if err := fn(ctx); err != nil {
		rm.MarkFailure()
		return err
	}
	rm.MarkSuccess()
	return nil
}

// ExecuteWithRetry calls Execute up to attempts times, sleeping interval between failures.
// It stops early when the circuit opens or ctx is done.
func (rm *Routine) ExecuteWithRetry(ctx context.Context, interval time.Duration, attempts int, fn func(ctx context.Context) error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = rm.Execute(ctx, fn)
		if err == nil || errors.Is(err, ErrCircuitOpen) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return err
}

func (rm *Routine) GetState() State {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.state
}

// ForceClose closes the circuit and clears the failure count.
func (rm *Routine) ForceClose() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.state = Closed
	rm.failures = 0
	rm.probing = false
}
