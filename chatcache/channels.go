package chatcache

import (
	"context"
	"fmt"
	"sync"

	"github.com/contenox/chatsync/chattypes"
	"golang.org/x/sync/singleflight"
)

// ChannelFetcher loads a channel from the server.
type ChannelFetcher interface {
	FetchChannel(ctx context.Context, channelID string) (chattypes.ChannelSnapshot, error)
}

// Channels caches channel snapshots and notifies watchers when a channel's
// last message changes.
type Channels struct {
	backend Backend
	fetcher ChannelFetcher
	group   singleflight.Group

	mu       sync.Mutex
	nextID   int
	watchers map[string]map[int]func(chattypes.ChannelSnapshot)
}

func NewChannels(backend Backend, fetcher ChannelFetcher) *Channels {
	return &Channels{
		backend:  backend,
		fetcher:  fetcher,
		watchers: make(map[string]map[int]func(chattypes.ChannelSnapshot)),
	}
}

func channelKey(id string) string {
	return "chatsync:channel:" + id
}

func (c *Channels) Get(ctx context.Context, id string) (chattypes.ChannelSnapshot, error) {
	return getJSON[chattypes.ChannelSnapshot](ctx, c.backend, channelKey(id))
}

// Resolve returns the cached channel or fetches it.
func (c *Channels) Resolve(ctx context.Context, id string) (chattypes.ChannelSnapshot, error) {
	if ch, err := c.Get(ctx, id); err == nil {
		return ch, nil
	}
	if c.fetcher == nil {
		return chattypes.ChannelSnapshot{}, fmt.Errorf("channel %s: %w", id, ErrNotFound)
	}
	v, err, _ := c.group.Do(id, func() (any, error) {
		ch, err := c.fetcher.FetchChannel(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := setJSON(ctx, c.backend, channelKey(id), ch); err != nil {
			return nil, err
		}
		return ch, nil
	})
	if err != nil {
		return chattypes.ChannelSnapshot{}, fmt.Errorf("failed to resolve channel %s: %w", id, err)
	}
	return v.(chattypes.ChannelSnapshot), nil
}

// Put stores a snapshot. Watchers run when LastMessageID changed.
func (c *Channels) Put(ctx context.Context, ch chattypes.ChannelSnapshot) error {
	prev, err := c.Get(ctx, ch.ID)
	changed := err != nil || prev.LastMessageID != ch.LastMessageID
	if err := setJSON(ctx, c.backend, channelKey(ch.ID), ch); err != nil {
		return fmt.Errorf("failed to cache channel %s: %w", ch.ID, err)
	}
	if !changed {
		return nil
	}

	c.mu.Lock()
	fns := make([]func(chattypes.ChannelSnapshot), 0, len(c.watchers[ch.ID]))
	for _, fn := range c.watchers[ch.ID] {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(ch)
	}
	return nil
}

// Watch registers fn for last-message changes of a channel until the returned func is called.
func (c *Channels) Watch(channelID string, fn func(chattypes.ChannelSnapshot)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	if c.watchers[channelID] == nil {
		c.watchers[channelID] = make(map[int]func(chattypes.ChannelSnapshot))
	}
	c.watchers[channelID][id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.watchers[channelID], id)
		if len(c.watchers[channelID]) == 0 {
			delete(c.watchers, channelID)
		}
	}
}
