package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/contenox/chatsync/chattypes"
	"github.com/contenox/chatsync/libbus"
	"github.com/contenox/chatsync/libtracker"
)

// DefaultSubjectPrefix is prepended to the channel id to form the bus subject.
const DefaultSubjectPrefix = "chatsync.channel"

const queueSize = 256

// Client subscribes to and publishes channel events on a bus.
type Client struct {
	bus     libbus.Messenger
	prefix  string
	tracker libtracker.ActivityTracker
}

func NewClient(bus libbus.Messenger, prefix string, tracker libtracker.ActivityTracker) *Client {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if tracker == nil {
		tracker = libtracker.NoopTracker{}
	}
	return &Client{bus: bus, prefix: prefix, tracker: tracker}
}

// Subject returns the bus subject carrying the events of a channel.
func (c *Client) Subject(channelID string) string {
	return c.prefix + "." + channelID
}

// Publish wraps payload in an Event envelope and sends it to the channel.
func (c *Client) Publish(ctx context.Context, channelID string, typ EventType, payload any) error {
	ev := Event{Type: typ, Channel: channelID}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode %s payload: %w", typ, err)
		}
		ev.Data = data
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return c.bus.Publish(ctx, c.Subject(channelID), raw)
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	cancel        context.CancelFunc
	sub           libbus.Subscription
	stopReconnect func()
	once          sync.Once
}

// Unsubscribe stops delivery. Handlers may still be running when it returns,
// but no new event is dispatched afterwards.
func (s *Subscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		if s.stopReconnect != nil {
			s.stopReconnect()
		}
		err = s.sub.Unsubscribe()
		s.cancel()
	})
	return err
}

// Subscribe dispatches the events of channelID to h, one at a time and in arrival order.
// When the bus can report reconnects, each reconnect is delivered to OnReconnect in line with the events.
func (c *Client) Subscribe(ctx context.Context, channelID string, h Handlers) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	queue := make(chan []byte, queueSize)

	sub, err := c.bus.Stream(ctx, c.Subject(channelID), queue)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to channel %s: %w", channelID, err)
	}
	s := &Subscription{cancel: cancel, sub: sub}

	if notifier, ok := c.bus.(libbus.ReconnectNotifier); ok {
		marker, _ := json.Marshal(Event{Type: EventReconnect, Channel: channelID})
		s.stopReconnect = notifier.OnReconnect(func() {
			select {
			case queue <- marker:
			case <-ctx.Done():
			}
		})
	}

	go c.dispatch(ctx, channelID, queue, h)
	return s, nil
}

func (c *Client) dispatch(ctx context.Context, channelID string, queue <-chan []byte, h Handlers) {
	ctx = libtracker.WithChannel(ctx, channelID)
	for {
		select {
		case <-ctx.Done():
			return
		case raw := <-queue:
			if ctx.Err() != nil {
				return
			}
			if err := c.apply(channelID, raw, h); err != nil {
				reportErr, _, end := c.tracker.Start(ctx, "apply", "realtime_event")
				reportErr(err)
				end()
			}
		}
	}
}

func (c *Client) apply(channelID string, raw []byte, h Handlers) error {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return fmt.Errorf("undecodable event: %w", err)
	}
	if ev.Channel != "" && ev.Channel != channelID {
		return nil
	}

	switch ev.Type {
	case EventReconnect:
		if h.OnReconnect != nil {
			h.OnReconnect()
		}
	case EventMessageCreate, EventMessageUpdate:
		var m chattypes.Message
		if err := json.Unmarshal(ev.Data, &m); err != nil {
			return fmt.Errorf("bad %s payload: %w", ev.Type, err)
		}
		if m.ChannelID == "" {
			m.ChannelID = channelID
		}
		if ev.Type == EventMessageCreate && h.OnMessageCreate != nil {
			h.OnMessageCreate(m)
		}
		if ev.Type == EventMessageUpdate && h.OnMessageUpdate != nil {
			h.OnMessageUpdate(m)
		}
	case EventMessageDelete:
		var d MessageDeleteData
		if err := json.Unmarshal(ev.Data, &d); err != nil {
			return fmt.Errorf("bad %s payload: %w", ev.Type, err)
		}
		if h.OnMessageDelete != nil {
			h.OnMessageDelete(d.ID)
		}
	case EventMessageBulkDelete:
		var d BulkDeleteData
		if err := json.Unmarshal(ev.Data, &d); err != nil {
			return fmt.Errorf("bad %s payload: %w", ev.Type, err)
		}
		if h.OnMessageBulkDelete != nil {
			h.OnMessageBulkDelete(d.IDs)
		}
	case EventReactionAdd, EventReactionRemove, EventReactionRemoveAll:
		var d ReactionData
		if err := json.Unmarshal(ev.Data, &d); err != nil {
			return fmt.Errorf("bad %s payload: %w", ev.Type, err)
		}
		switch {
		case ev.Type == EventReactionAdd && h.OnReactionAdd != nil:
			h.OnReactionAdd(d.MessageID, d.UserID, d.Emoji)
		case ev.Type == EventReactionRemove && h.OnReactionRemove != nil:
			h.OnReactionRemove(d.MessageID, d.UserID, d.Emoji)
		case ev.Type == EventReactionRemoveAll && h.OnReactionRemoveAll != nil:
			h.OnReactionRemoveAll(d.MessageID, d.Emoji)
		}
	case EventTypingStart, EventTypingStop:
		var d TypingData
		if err := json.Unmarshal(ev.Data, &d); err != nil {
			return fmt.Errorf("bad %s payload: %w", ev.Type, err)
		}
		if ev.Type == EventTypingStart && h.OnTypingStart != nil {
			h.OnTypingStart(d.UserID)
		}
		if ev.Type == EventTypingStop && h.OnTypingStop != nil {
			h.OnTypingStop(d.UserID)
		}
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	return nil
}
