// Package pagination tracks the backward history boundary of a channel timeline.
package pagination

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/contenox/chatsync/chattypes"
)

// PageFunc fetches at most limit messages strictly older than before.
// An empty before requests the newest page.
type PageFunc func(ctx context.Context, before string, limit int) ([]chattypes.Message, error)

// MergeFunc applies a fetched page and returns the messages that were retained.
// Returning nil for a non-empty page means the page was discarded or fully deduplicated.
type MergeFunc func(page []chattypes.Message) (retained []chattypes.Message, applied bool)

// Cursor holds the oldest loaded message id and the exhaustion flag.
// Once exhausted, it never reverts for the lifetime of the cursor.
type Cursor struct {
	mu        sync.Mutex
	oldest    string
	exhausted bool
	inFlight  atomic.Bool
}

func New() *Cursor {
	return &Cursor{}
}

// Oldest returns the id of the oldest loaded message, or "" if nothing is loaded.
func (c *Cursor) Oldest() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.oldest
}

func (c *Cursor) Exhausted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exhausted
}

// InFlight reports whether a FetchOlder call is outstanding.
func (c *Cursor) InFlight() bool {
	return c.inFlight.Load()
}

// Reset moves the boundary after a full seed of pageLen messages fetched with pageSize.
// Exhaustion is sticky: a short seed page can set it, nothing clears it.
func (c *Cursor) Reset(oldest string, pageLen, pageSize int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.oldest = oldest
	if pageLen < pageSize {
		c.exhausted = true
	}
}

// FetchOlder requests the page before the current boundary and merges it.
// It returns immediately without contacting the network when the cursor is
// exhausted or another fetch is outstanding. A failed fetch leaves the cursor unchanged.
func (c *Cursor) FetchOlder(ctx context.Context, pageSize int, fetch PageFunc, merge MergeFunc) ([]chattypes.Message, error) {
	if c.Exhausted() {
		return nil, nil
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, nil
	}
	defer c.inFlight.Store(false)

	before := c.Oldest()
	page, err := fetch(ctx, before, pageSize)
	if err != nil {
		return nil, err
	}

	retained, applied := merge(page)
	if !applied {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(page) < pageSize {
		c.exhausted = true
	}
	candidate := oldestID(retained)
	if candidate == "" {
		candidate = oldestID(page)
	}
	if candidate != "" && (c.oldest == "" || chattypes.CompareIDs(candidate, c.oldest) < 0) {
		c.oldest = candidate
	}
	return retained, nil
}

func oldestID(msgs []chattypes.Message) string {
	var oldest string
	for _, m := range msgs {
		if oldest == "" || chattypes.CompareIDs(m.ID, oldest) < 0 {
			oldest = m.ID
		}
	}
	return oldest
}
