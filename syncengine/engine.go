package syncengine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/contenox/chatsync/ackdebounce"
	"github.com/contenox/chatsync/chattypes"
	"github.com/contenox/chatsync/libroutine"
	"github.com/contenox/chatsync/libtracker"
	"github.com/contenox/chatsync/messagestore"
	"github.com/contenox/chatsync/pagination"
	"github.com/contenox/chatsync/realtime"
	"github.com/contenox/chatsync/typingset"
	"github.com/google/uuid"
)

// Engine synchronizes a single channel. Mutations of the owned timeline,
// typing set, cursor and debouncer are serialized by mu and never wait on I/O.
type Engine struct {
	deps    Deps
	cfg     Config
	tracker libtracker.ActivityTracker

	store   messagestore.Store
	typing  *typingset.Set
	cursor  *pagination.Cursor
	breaker *libroutine.Routine

	mu        sync.Mutex
	state     State
	channelID string
	epoch     uint64
	acks      *ackdebounce.Debouncer
	sub       *realtime.Subscription
	unwatch   func()

	atBottom atomic.Bool
	updates  chan struct{}

	life   context.Context
	cancel context.CancelFunc
}

// New creates an engine in the Uninitialized state.
func New(deps Deps, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	tracker := deps.Tracker
	if tracker == nil {
		tracker = libtracker.NoopTracker{}
	}
	life, cancel := context.WithCancel(context.Background())
	return &Engine{
		deps:    deps,
		cfg:     cfg,
		tracker: tracker,
		store:   messagestore.New(),
		typing:  typingset.New(),
		cursor:  pagination.New(),
		breaker: libroutine.NewRoutine(cfg.BreakerThreshold, cfg.BreakerReset),
		updates: make(chan struct{}, 1),
		life:    life,
		cancel:  cancel,
	}
}

// Attach resolves the channel, seeds the timeline with the newest page and
// subscribes to realtime events. On failure the engine returns to Uninitialized.
func (e *Engine) Attach(ctx context.Context, channelID string) (err error) {
	e.mu.Lock()
	switch e.state {
	case StateDisposed:
		e.mu.Unlock()
		return ErrDisposed
	case StateUninitialized:
	default:
		e.mu.Unlock()
		return ErrAlreadyAttached
	}
	e.state = StateLoading
	e.channelID = channelID
	e.mu.Unlock()

	ctx = libtracker.WithChannel(ctx, channelID)
	reportErr, reportChange, end := e.tracker.Start(ctx, "attach", "channel", "channelID", channelID)
	defer end()
	defer func() {
		if err != nil {
			reportErr(err)
			e.mu.Lock()
			if e.state == StateLoading {
				e.state = StateUninitialized
			}
			e.mu.Unlock()
		}
	}()

	var snapshot chattypes.ChannelSnapshot
	if e.deps.Channels != nil {
		snapshot, err = e.deps.Channels.Resolve(ctx, channelID)
		if err != nil {
			return err
		}
	}

	page, err := e.fetchPage(ctx, "")
	if err != nil {
		return fmt.Errorf("initial history load: %w", err)
	}

	e.mu.Lock()
	if e.state != StateLoading {
		e.mu.Unlock()
		return ErrDisposed
	}
	e.applySeed(page)
	acks := ackdebounce.New(channelID, e.cfg.AckDelay, e.deps.Unread, e.deps.Acker,
		libroutine.NewRoutine(e.cfg.BreakerThreshold, e.cfg.BreakerReset), e.tracker)
	e.acks = acks
	// Events may be dispatched before Subscribe returns; they must land on the seeded timeline.
	e.state = StateReady
	e.mu.Unlock()

	sub, err := e.deps.Realtime.Subscribe(e.life, channelID, e.handlers())
	if err != nil {
		e.mu.Lock()
		if e.state == StateReady {
			e.state = StateUninitialized
			e.acks = nil
		}
		e.mu.Unlock()
		acks.Reset()
		return err
	}

	e.mu.Lock()
	if e.state == StateDisposed {
		e.mu.Unlock()
		_ = sub.Unsubscribe()
		return ErrDisposed
	}
	e.sub = sub
	if e.deps.Channels != nil {
		e.unwatch = e.deps.Channels.Watch(channelID, e.onChannelChanged)
	}
	e.mu.Unlock()

	if snapshot.LastMessageID != "" {
		acks.RequestAck(ctx, snapshot.LastMessageID)
	}
	reportChange(channelID, e.store.Len())
	e.notify()
	return nil
}

// fetchPage loads one history page through the breaker, retrying transient
// failures, and caches the users it carries.
func (e *Engine) fetchPage(ctx context.Context, before string) (chattypes.HistoryPage, error) {
	var page chattypes.HistoryPage
	err := e.breaker.ExecuteWithRetry(ctx, e.cfg.FetchRetryInterval, e.cfg.FetchAttempts, func(ctx context.Context) error {
		var err error
		page, err = e.deps.History.FetchMessages(ctx, e.channelID, e.cfg.PageSize, before)
		return err
	})
	if err != nil {
		return chattypes.HistoryPage{}, err
	}
	if e.deps.Users != nil && len(page.Users) > 0 {
		if err := e.deps.Users.Put(ctx, page.Users...); err != nil {
			reportErr, _, end := e.tracker.Start(ctx, "cache", "user")
			reportErr(err)
			end()
		}
	}
	return page, nil
}

// applySeed replaces the timeline. Callers hold mu.
func (e *Engine) applySeed(page chattypes.HistoryPage) {
	e.store.Seed(page.Messages)
	oldest := ""
	if m, ok := e.store.Oldest(); ok {
		oldest = m.ID
	}
	e.cursor.Reset(oldest, len(page.Messages), e.cfg.PageSize)
	e.epoch++
}

// LoadOlder fetches the page before the oldest loaded message and merges it.
// It returns no messages and does not touch the network while another fetch is
// outstanding or history is exhausted. Results arriving after Dispose or a
// reconnect re-seed are discarded.
func (e *Engine) LoadOlder(ctx context.Context) ([]chattypes.Message, error) {
	e.mu.Lock()
	state, epoch := e.state, e.epoch
	e.mu.Unlock()
	switch state {
	case StateReady, StateRecovering:
	case StateDisposed:
		return nil, ErrDisposed
	default:
		return nil, ErrNotReady
	}

	ctx = libtracker.WithChannel(ctx, e.channelID)
	reportErr, reportChange, end := e.tracker.Start(ctx, "load_older", "channel", "channelID", e.channelID)
	defer end()

	fetch := func(ctx context.Context, before string, _ int) ([]chattypes.Message, error) {
		page, err := e.fetchPage(ctx, before)
		if err != nil {
			return nil, err
		}
		return page.Messages, nil
	}
	merge := func(page []chattypes.Message) ([]chattypes.Message, bool) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.state == StateDisposed || e.epoch != epoch {
			return nil, false
		}
		return e.store.Prepend(page), true
	}

	retained, err := e.cursor.FetchOlder(ctx, e.cfg.PageSize, fetch, merge)
	if err != nil {
		reportErr(err)
		return nil, err
	}
	if len(retained) > 0 {
		reportChange(e.channelID, len(retained))
		e.notify()
	}
	return retained, nil
}

// Send uploads the pending attachments one after another and then submits the
// message. If any upload fails nothing is submitted and a *SendError is
// returned; req.Attachments is never modified so the caller can retry.
func (e *Engine) Send(ctx context.Context, req SendRequest) (chattypes.Message, error) {
	channelID, err := e.activeChannel()
	if err != nil {
		return chattypes.Message{}, err
	}

	ctx = libtracker.WithChannel(ctx, channelID)
	reportErr, reportChange, end := e.tracker.Start(ctx, "send", "message", "channelID", channelID, "attachments", len(req.Attachments))
	defer end()

	ids := make([]string, 0, len(req.Attachments))
	for i, a := range req.Attachments {
		var progress chattypes.ProgressFunc
		if req.Progress != nil {
			index := i
			progress = func(sent, total int64) { req.Progress(index, sent, total) }
		}
		id, err := e.deps.Sender.UploadAttachment(ctx, a.Data, a.Filename, e.cfg.Bucket, a.ContentType, progress)
		if err != nil {
			sendErr := &SendError{Index: i, Filename: a.Filename, Err: err}
			reportErr(sendErr)
			return chattypes.Message{}, sendErr
		}
		ids = append(ids, id)
	}

	out := chattypes.OutgoingMessage{
		Content: req.Content,
		Replies: append([]chattypes.Reply(nil), req.Replies...),
		Nonce:   uuid.NewString(),
	}
	if len(ids) > 0 {
		out.Attachments = ids
	}
	msg, err := e.deps.Sender.SendMessage(ctx, channelID, out)
	if err != nil {
		reportErr(err)
		return chattypes.Message{}, err
	}

	e.mu.Lock()
	applied := e.state == StateReady || e.state == StateRecovering
	if applied && msg.ID != "" {
		e.store.Upsert(msg)
	}
	e.mu.Unlock()
	if applied {
		e.notify()
	}
	reportChange(msg.ID, msg)
	return msg, nil
}

// RequestRead marks the channel as read up to messageID.
func (e *Engine) RequestRead(ctx context.Context, messageID string) error {
	if _, err := e.activeChannel(); err != nil {
		return err
	}
	e.mu.Lock()
	acks := e.acks
	e.mu.Unlock()
	if acks == nil {
		return ErrNotReady
	}
	acks.RequestAck(ctx, messageID)
	return nil
}

// SetAtBottom records whether the newest message is visible. Moving to the
// bottom acknowledges the newest loaded message.
func (e *Engine) SetAtBottom(ctx context.Context, atBottom bool) {
	e.atBottom.Store(atBottom)
	if !atBottom {
		return
	}
	if newest, ok := e.store.Newest(); ok {
		_ = e.RequestRead(ctx, newest.ID)
	}
}

func (e *Engine) AtBottom() bool {
	return e.atBottom.Load()
}

func (e *Engine) onChannelChanged(ch chattypes.ChannelSnapshot) {
	if ch.LastMessageID == "" || !e.atBottom.Load() {
		return
	}
	_ = e.RequestRead(e.life, ch.LastMessageID)
}

// Dispose cancels the pending ack, unsubscribes and discards the results of
// in-flight fetches. The optimistic local read state is kept.
func (e *Engine) Dispose() {
	e.mu.Lock()
	if e.state == StateDisposed {
		e.mu.Unlock()
		return
	}
	e.state = StateDisposed
	e.epoch++
	acks, sub, unwatch := e.acks, e.sub, e.unwatch
	e.sub, e.unwatch = nil, nil
	e.mu.Unlock()

	if acks != nil {
		acks.Reset()
	}
	if unwatch != nil {
		unwatch()
	}
	if sub != nil {
		_ = sub.Unsubscribe()
	}
	e.cancel()
}

func (e *Engine) activeChannel() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case StateReady, StateRecovering:
		return e.channelID, nil
	case StateDisposed:
		return "", ErrDisposed
	default:
		return "", ErrNotReady
	}
}

// Snapshot returns the timeline, newest first, with tails computed.
func (e *Engine) Snapshot() []chattypes.Message {
	return e.store.Snapshot()
}

// TypingUsers returns the ids of the users currently typing, sorted.
func (e *Engine) TypingUsers() []string {
	return e.typing.Users()
}

// IsExhausted reports whether the oldest history has been reached.
func (e *Engine) IsExhausted() bool {
	return e.cursor.Exhausted()
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) ChannelID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.channelID
}

// Updates signals visible state changes. Signals coalesce; receivers should
// re-read Snapshot and TypingUsers on each one.
func (e *Engine) Updates() <-chan struct{} {
	return e.updates
}

func (e *Engine) notify() {
	select {
	case e.updates <- struct{}{}:
	default:
	}
}
