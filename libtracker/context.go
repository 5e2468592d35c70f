package libtracker

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

var ContextKeyRequestID = contextKey("request_id")
var ContextKeyChannelID = contextKey("channel_id")

// WithNewRequestID stamps a fresh request ID into ctx.
// Call this at the top of any CLI command or goroutine entry-point that
// doesn't already have one so every tracked operation can be correlated.
func WithNewRequestID(ctx context.Context) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, uuid.NewString())
}

// WithChannel attaches the channel an operation belongs to.
func WithChannel(ctx context.Context, channelID string) context.Context {
	return context.WithValue(ctx, ContextKeyChannelID, channelID)
}

// RequestID returns the request ID stored in ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyRequestID).(string)
	return id
}

// CopyTrackingValues carries the tracking values of src over to dst.
// Used when work outlives the request context, such as a debounced network call.
func CopyTrackingValues(src context.Context, dst context.Context) context.Context {
	ctx := context.WithValue(dst, ContextKeyRequestID, src.Value(ContextKeyRequestID))
	return context.WithValue(ctx, ContextKeyChannelID, src.Value(ContextKeyChannelID))
}
