// Package chattypes holds the value types shared by the channel synchronization packages.
package chattypes

import "time"

// ChannelType is the kind of a channel.
type ChannelType string

const (
	ChannelDirect ChannelType = "direct"
	ChannelGroup  ChannelType = "group"
	ChannelText   ChannelType = "text"
	ChannelVoice  ChannelType = "voice"
	ChannelNotes  ChannelType = "notes"
)

// ChannelSnapshot is a read-only view of a channel as held by the channel cache.
type ChannelSnapshot struct {
	ID            string      `json:"id"`
	Type          ChannelType `json:"type"`
	Name          string      `json:"name,omitempty"`
	LastMessageID string      `json:"last_message_id,omitempty"`
}

// Masquerade overrides the displayed identity of a message author.
type Masquerade struct {
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Colour string `json:"colour,omitempty"`
}

// SystemInfo marks a message as system generated.
type SystemInfo struct {
	Type string `json:"type"`
	By   string `json:"by,omitempty"`
	Text string `json:"text,omitempty"`
}

// Attachment is an uploaded file referenced by a message.
type Attachment struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// PendingAttachment is a local file waiting to be uploaded with the next send.
type PendingAttachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Reply references a message the outgoing message replies to.
type Reply struct {
	ID      string `json:"id"`
	Mention bool   `json:"mention"`
}

// Message is an immutable chat message. Changes produce a replacement with the same ID.
type Message struct {
	ID          string       `json:"id"`
	ChannelID   string       `json:"channel"`
	AuthorID    string       `json:"author"`
	Content     string       `json:"content,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Reactions   Reactions    `json:"reactions,omitempty"`
	EditedAt    *time.Time   `json:"edited,omitempty"`
	Replies     []string     `json:"replies,omitempty"`
	Masquerade  *Masquerade  `json:"masquerade,omitempty"`
	System      *SystemInfo  `json:"system,omitempty"`
	Nonce       string       `json:"nonce,omitempty"`

	// IsTail is derived by the message store and never sent over the wire.
	IsTail bool `json:"-"`
}

// IsSystem reports whether the message was generated by the server.
func (m Message) IsSystem() bool {
	return m.System != nil
}

// HasReplies reports whether the message references other messages.
func (m Message) HasReplies() bool {
	return len(m.Replies) > 0
}

// Clone returns a deep copy of m.
func (m Message) Clone() Message {
	out := m
	if m.Attachments != nil {
		out.Attachments = append([]Attachment(nil), m.Attachments...)
	}
	if m.Replies != nil {
		out.Replies = append([]string(nil), m.Replies...)
	}
	out.Reactions = m.Reactions.clone()
	if m.EditedAt != nil {
		t := *m.EditedAt
		out.EditedAt = &t
	}
	if m.Masquerade != nil {
		mq := *m.Masquerade
		out.Masquerade = &mq
	}
	if m.System != nil {
		s := *m.System
		out.System = &s
	}
	return out
}

// User is a cached author or typing user.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	Bot         bool   `json:"bot,omitempty"`

	// Placeholder is set when the user could not be fetched.
	Placeholder bool `json:"placeholder,omitempty"`
}

// PlaceholderUser stands in for a user whose profile could not be fetched.
func PlaceholderUser(id string) User {
	return User{ID: id, Username: "Unknown User", Placeholder: true}
}

// Member is a server membership record returned alongside history pages.
type Member struct {
	ServerID string `json:"server"`
	UserID   string `json:"user"`
	Nickname string `json:"nickname,omitempty"`
}

// HistoryPage is the result of a history fetch.
type HistoryPage struct {
	Messages []Message `json:"messages"`
	Users    []User    `json:"users,omitempty"`
	Members  []Member  `json:"members,omitempty"`
}

// OutgoingMessage is the body of a send request.
type OutgoingMessage struct {
	Content     string   `json:"content,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
	Replies     []Reply  `json:"replies,omitempty"`
	Nonce       string   `json:"nonce,omitempty"`
}

// ProgressFunc reports how many bytes of an upload have been sent.
type ProgressFunc func(sent, total int64)
