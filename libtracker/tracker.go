// Package libtracker reports the start, outcome and duration of operations.
package libtracker

import (
	"context"
	"log/slog"
	"time"
)

// ActivityTracker starts tracking an operation on a subject.
// The returned functions report a failure, report a state change, and end the operation.
type ActivityTracker interface {
	Start(
		ctx context.Context,
		operation string,
		subject string,
		kvArgs ...any,
	) (reportErr func(err error), reportChange func(id string, data any), end func())
}

// NoopTracker discards everything.
type NoopTracker struct{}

func (NoopTracker) Start(context.Context, string, string, ...any) (func(error), func(string, any), func()) {
	return func(error) {}, func(string, any) {}, func() {}
}

type logActivityTracker struct {
	logger *slog.Logger
}

// NewLogActivityTracker logs every tracked operation through logger.
func NewLogActivityTracker(logger *slog.Logger) ActivityTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &logActivityTracker{logger: logger}
}

func (t *logActivityTracker) Start(ctx context.Context, operation string, subject string, kvArgs ...any) (func(error), func(string, any), func()) {
	attrs := []any{"operation", operation, "subject", subject}
	if id := RequestID(ctx); id != "" {
		attrs = append(attrs, "request_id", id)
	}
	if ch, ok := ctx.Value(ContextKeyChannelID).(string); ok && ch != "" {
		attrs = append(attrs, "channel_id", ch)
	}
	attrs = append(attrs, kvArgs...)

	logger := t.logger.With(attrs...)
	start := time.Now()
	logger.DebugContext(ctx, "operation started")

	reportErr := func(err error) {
		logger.ErrorContext(ctx, "operation failed", "error", err, "elapsed", time.Since(start))
	}
	reportChange := func(id string, data any) {
		logger.InfoContext(ctx, "state changed", "id", id, "data", data)
	}
	end := func() {
		logger.DebugContext(ctx, "operation finished", "elapsed", time.Since(start))
	}
	return reportErr, reportChange, end
}

var _ ActivityTracker = NoopTracker{}
