// Package unread keeps per-channel read watermarks on the client.
// A watermark is the id of the newest message the user has read; every
// message with a greater id is unread.
package unread

import (
	"sync"

	"github.com/contenox/chatsync/chattypes"
)

// Tracker holds the local read position of every channel.
type Tracker struct {
	mu         sync.RWMutex
	watermarks map[string]string
}

func NewTracker() *Tracker {
	return &Tracker{watermarks: make(map[string]string)}
}

// ProcessLocalAck optimistically moves the read watermark of a channel.
// The watermark never moves backwards.
func (t *Tracker) ProcessLocalAck(channelID, messageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.watermarks[channelID]; ok && chattypes.CompareIDs(messageID, cur) <= 0 {
		return
	}
	t.watermarks[channelID] = messageID
}

// LastRead returns the read watermark of a channel.
func (t *Tracker) LastRead(channelID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.watermarks[channelID]
	return id, ok
}

// IsUnread reports whether the channel has a message newer than its watermark.
func (t *Tracker) IsUnread(ch chattypes.ChannelSnapshot) bool {
	if ch.LastMessageID == "" {
		return false
	}
	last, ok := t.LastRead(ch.ID)
	if !ok {
		return true
	}
	return chattypes.CompareIDs(ch.LastMessageID, last) > 0
}
