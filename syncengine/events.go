package syncengine

import (
	"context"

	"github.com/contenox/chatsync/ackdebounce"
	"github.com/contenox/chatsync/chattypes"
	"github.com/contenox/chatsync/libroutine"
	"github.com/contenox/chatsync/libtracker"
	"github.com/contenox/chatsync/realtime"
)

// handlers runs on the subscription's dispatch goroutine, so events are
// applied one at a time in arrival order.
func (e *Engine) handlers() realtime.Handlers {
	return realtime.Handlers{
		OnReconnect:         e.onReconnect,
		OnMessageCreate:     e.onMessageCreate,
		OnMessageUpdate:     e.onMessageUpdate,
		OnMessageDelete:     func(id string) { e.onMessagesDeleted([]string{id}) },
		OnMessageBulkDelete: e.onMessagesDeleted,
		OnReactionAdd: func(messageID, userID, emoji string) {
			e.ensureUser(userID)
			e.deriveMessage(messageID, func(m chattypes.Message) chattypes.Message {
				return m.WithReaction(emoji, userID)
			})
		},
		OnReactionRemove: func(messageID, userID, emoji string) {
			e.deriveMessage(messageID, func(m chattypes.Message) chattypes.Message {
				return m.WithoutReaction(emoji, userID)
			})
		},
		OnReactionRemoveAll: func(messageID, emoji string) {
			e.deriveMessage(messageID, func(m chattypes.Message) chattypes.Message {
				return m.WithoutEmoji(emoji)
			})
		},
		OnTypingStart: func(userID string) {
			e.ensureUser(userID)
			if e.mutate(func() bool { return e.typing.MarkTyping(userID) }) {
				e.notify()
			}
		},
		OnTypingStop: func(userID string) {
			if e.mutate(func() bool { return e.typing.MarkStopped(userID) }) {
				e.notify()
			}
		},
	}
}

// mutate runs fn under mu while the engine accepts events and reports fn's result.
func (e *Engine) mutate(fn func() bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady && e.state != StateRecovering {
		return false
	}
	return fn()
}

func (e *Engine) eventContext() (context.Context, context.CancelFunc) {
	ctx := libtracker.WithChannel(e.life, e.channelID)
	return context.WithTimeout(ctx, e.cfg.EventTimeout)
}

// ensureUser fetches an unseen user. A failed fetch leaves a placeholder and never blocks the event.
func (e *Engine) ensureUser(userID string) {
	if e.deps.Users == nil || userID == "" {
		return
	}
	ctx, cancel := e.eventContext()
	defer cancel()
	e.deps.Users.Ensure(ctx, userID)
}

func (e *Engine) onMessageCreate(m chattypes.Message) {
	if m.ChannelID != "" && m.ChannelID != e.channelID {
		return
	}
	e.ensureUser(m.AuthorID)
	var acks *ackdebounce.Debouncer
	applied := e.mutate(func() bool {
		e.store.Upsert(m)
		acks = e.acks
		return true
	})
	if !applied {
		return
	}
	e.notify()
	ctx, cancel := e.eventContext()
	defer cancel()
	acks.RequestAck(ctx, m.ID)
	e.advanceChannel(ctx, m.ID)
}

// advanceChannel moves the cached channel's last message forward to messageID.
// Channels that were never resolved are left to the next Resolve.
func (e *Engine) advanceChannel(ctx context.Context, messageID string) {
	if e.deps.Channels == nil {
		return
	}
	ch, err := e.deps.Channels.Get(ctx, e.channelID)
	if err != nil || chattypes.CompareIDs(messageID, ch.LastMessageID) <= 0 {
		return
	}
	ch.LastMessageID = messageID
	if err := e.deps.Channels.Put(ctx, ch); err != nil {
		reportErr, _, end := e.tracker.Start(ctx, "cache", "channel", "channelID", e.channelID)
		reportErr(err)
		end()
	}
}

// onMessageUpdate upserts the new payload. An update for an unseen id is inserted.
func (e *Engine) onMessageUpdate(m chattypes.Message) {
	if m.ChannelID != "" && m.ChannelID != e.channelID {
		return
	}
	if e.mutate(func() bool {
		e.store.Upsert(m)
		return true
	}) {
		e.notify()
	}
}

func (e *Engine) onMessagesDeleted(ids []string) {
	if e.mutate(func() bool {
		removed := false
		for _, id := range ids {
			if e.store.Remove(id) {
				removed = true
			}
		}
		return removed
	}) {
		e.notify()
	}
}

// deriveMessage replaces a loaded message with fn's copy of it. Messages
// outside the loaded window are left alone.
func (e *Engine) deriveMessage(id string, fn func(chattypes.Message) chattypes.Message) {
	if e.mutate(func() bool {
		m, err := e.store.Get(id)
		if err != nil {
			return false
		}
		e.store.Upsert(fn(m))
		return true
	}) {
		e.notify()
	}
}

// onReconnect clears typing and replaces the timeline with a fresh newest page.
// When the re-seed fails the previous timeline is kept.
func (e *Engine) onReconnect() {
	e.mu.Lock()
	if e.state != StateReady {
		e.mu.Unlock()
		return
	}
	e.state = StateRecovering
	e.typing.Clear()
	e.mu.Unlock()
	e.notify()

	// Failures recorded while the transport was down say nothing about the server now.
	if e.breaker.GetState() != libroutine.Closed {
		e.breaker.ForceClose()
	}

	ctx, cancel := e.eventContext()
	defer cancel()
	reportErr, reportChange, end := e.tracker.Start(ctx, "recover", "channel", "channelID", e.channelID)
	defer end()

	page, err := e.fetchPage(ctx, "")

	e.mu.Lock()
	defer e.notify()
	defer e.mu.Unlock()
	if e.state != StateRecovering {
		return
	}
	e.state = StateReady
	if err != nil {
		reportErr(err)
		return
	}
	e.applySeed(page)
	reportChange(e.channelID, len(page.Messages))
}
