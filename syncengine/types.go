// Package syncengine keeps one channel's timeline, typing set and read position
// consistent across history fetches, realtime events and local intents.
package syncengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/contenox/chatsync/ackdebounce"
	"github.com/contenox/chatsync/chatcache"
	"github.com/contenox/chatsync/chattypes"
	"github.com/contenox/chatsync/libtracker"
	"github.com/contenox/chatsync/realtime"
)

var (
	ErrNotReady         = errors.New("syncengine: engine is not ready")
	ErrAlreadyAttached  = errors.New("syncengine: engine is already attached")
	ErrDisposed         = errors.New("syncengine: engine is disposed")
	ErrAttachmentUpload = errors.New("syncengine: attachment upload failed")
)

// SendError reports which attachment stopped a send. Nothing was submitted.
type SendError struct {
	Index    int
	Filename string
	Err      error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("attachment %d (%s): %v", e.Index, e.Filename, e.Err)
}

func (e *SendError) Unwrap() []error {
	return []error{ErrAttachmentUpload, e.Err}
}

// State is the lifecycle state of an Engine.
type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateRecovering
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateRecovering:
		return "recovering"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// HistoryAPI returns at most limit messages older than before, or the newest page when before is empty.
type HistoryAPI interface {
	FetchMessages(ctx context.Context, channelID string, limit int, before string) (chattypes.HistoryPage, error)
}

// SendAPI uploads attachments and submits messages.
type SendAPI interface {
	UploadAttachment(ctx context.Context, data []byte, filename, bucket, contentType string, onProgress chattypes.ProgressFunc) (string, error)
	SendMessage(ctx context.Context, channelID string, msg chattypes.OutgoingMessage) (chattypes.Message, error)
}

// Subscriber opens the realtime subscription of a channel.
type Subscriber interface {
	Subscribe(ctx context.Context, channelID string, h realtime.Handlers) (*realtime.Subscription, error)
}

// Deps are the collaborators an engine is built from. Users and Channels are shared between engines.
type Deps struct {
	History  HistoryAPI
	Sender   SendAPI
	Acker    ackdebounce.Acker
	Realtime Subscriber
	Users    *chatcache.Users
	Channels *chatcache.Channels
	Unread   ackdebounce.LocalAcker
	Tracker  libtracker.ActivityTracker
}

// Config tunes an engine. Zero values fall back to defaults.
type Config struct {
	PageSize         int
	AckDelay         time.Duration
	BreakerThreshold int
	BreakerReset     time.Duration
	Bucket           string
	EventTimeout     time.Duration

	// FetchAttempts bounds the tries for one history page; FetchRetryInterval is the pause between them.
	FetchAttempts      int
	FetchRetryInterval time.Duration
}

const (
	DefaultPageSize         = 50
	DefaultBreakerThreshold = 3
	DefaultBreakerReset     = 30 * time.Second
	DefaultEventTimeout     = 10 * time.Second
	DefaultFetchAttempts    = 2
	DefaultFetchRetry       = 500 * time.Millisecond
)

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.AckDelay <= 0 {
		c.AckDelay = ackdebounce.DefaultDelay
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = DefaultBreakerThreshold
	}
	if c.BreakerReset <= 0 {
		c.BreakerReset = DefaultBreakerReset
	}
	if c.Bucket == "" {
		c.Bucket = "attachments"
	}
	if c.EventTimeout <= 0 {
		c.EventTimeout = DefaultEventTimeout
	}
	if c.FetchAttempts <= 0 {
		c.FetchAttempts = DefaultFetchAttempts
	}
	if c.FetchRetryInterval <= 0 {
		c.FetchRetryInterval = DefaultFetchRetry
	}
	return c
}

// SendRequest is a local send intent.
type SendRequest struct {
	Content     string
	Attachments []chattypes.PendingAttachment
	Replies     []chattypes.Reply

	// Progress, when set, is called while attachment index is uploading.
	Progress func(index int, sent, total int64)
}
