// Package realtime delivers the channel-scoped realtime event stream to the sync engine.
package realtime

import (
	"encoding/json"

	"github.com/contenox/chatsync/chattypes"
)

// EventType names a realtime event.
type EventType string

const (
	EventReconnect         EventType = "reconnect"
	EventMessageCreate     EventType = "message_create"
	EventMessageUpdate     EventType = "message_update"
	EventMessageDelete     EventType = "message_delete"
	EventMessageBulkDelete EventType = "message_bulk_delete"
	EventReactionAdd       EventType = "reaction_add"
	EventReactionRemove    EventType = "reaction_remove"
	EventReactionRemoveAll EventType = "reaction_remove_all"
	EventTypingStart       EventType = "typing_start"
	EventTypingStop        EventType = "typing_stop"
)

// Event is the envelope every realtime message is wrapped in.
type Event struct {
	Type    EventType       `json:"type"`
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type MessageDeleteData struct {
	ID string `json:"id"`
}

type BulkDeleteData struct {
	IDs []string `json:"ids"`
}

type ReactionData struct {
	MessageID string `json:"id"`
	UserID    string `json:"user_id,omitempty"`
	Emoji     string `json:"emoji_id"`
}

type TypingData struct {
	UserID string `json:"user"`
}

// Handlers receives decoded events. Nil handlers are skipped.
type Handlers struct {
	OnReconnect         func()
	OnMessageCreate     func(chattypes.Message)
	OnMessageUpdate     func(chattypes.Message)
	OnMessageDelete     func(messageID string)
	OnMessageBulkDelete func(messageIDs []string)
	OnReactionAdd       func(messageID, userID, emoji string)
	OnReactionRemove    func(messageID, userID, emoji string)
	OnReactionRemoveAll func(messageID, emoji string)
	OnTypingStart       func(userID string)
	OnTypingStop        func(userID string)
}
