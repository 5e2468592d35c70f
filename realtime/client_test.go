package realtime_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/contenox/chatsync/chattypes"
	"github.com/contenox/chatsync/libbus"
	"github.com/contenox/chatsync/realtime"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) handlers() realtime.Handlers {
	return realtime.Handlers{
		OnReconnect:         func() { r.add("reconnect") },
		OnMessageCreate:     func(m chattypes.Message) { r.add("create:" + m.ID + ":" + m.ChannelID) },
		OnMessageUpdate:     func(m chattypes.Message) { r.add("update:" + m.ID) },
		OnMessageDelete:     func(id string) { r.add("delete:" + id) },
		OnMessageBulkDelete: func(ids []string) { r.add("bulk:" + ids[0] + "," + ids[1]) },
		OnReactionAdd:       func(mid, uid, e string) { r.add("react+:" + mid + ":" + uid + ":" + e) },
		OnReactionRemove:    func(mid, uid, e string) { r.add("react-:" + mid + ":" + uid + ":" + e) },
		OnReactionRemoveAll: func(mid, e string) { r.add("react0:" + mid + ":" + e) },
		OnTypingStart:       func(uid string) { r.add("typing+:" + uid) },
		OnTypingStop:        func(uid string) { r.add("typing-:" + uid) },
	}
}

func TestUnit_Subscribe_DispatchesInOrder(t *testing.T) {
	ctx := context.Background()
	bus := libbus.NewInMem()
	client := realtime.NewClient(bus, "", nil)
	rec := &recorder{}

	sub, err := client.Subscribe(ctx, "c1", rec.handlers())
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, client.Publish(ctx, "c1", realtime.EventMessageCreate, chattypes.Message{ID: "m1", AuthorID: "u1"}))
	require.NoError(t, client.Publish(ctx, "c1", realtime.EventMessageUpdate, chattypes.Message{ID: "m1", Content: "edited"}))
	require.NoError(t, client.Publish(ctx, "c1", realtime.EventReactionAdd, realtime.ReactionData{MessageID: "m1", UserID: "u2", Emoji: "👍"}))
	require.NoError(t, client.Publish(ctx, "c1", realtime.EventReactionRemove, realtime.ReactionData{MessageID: "m1", UserID: "u2", Emoji: "👍"}))
	require.NoError(t, client.Publish(ctx, "c1", realtime.EventReactionRemoveAll, realtime.ReactionData{MessageID: "m1", Emoji: "👍"}))
	require.NoError(t, client.Publish(ctx, "c1", realtime.EventTypingStart, realtime.TypingData{UserID: "u3"}))
	require.NoError(t, client.Publish(ctx, "c1", realtime.EventTypingStop, realtime.TypingData{UserID: "u3"}))
	require.NoError(t, client.Publish(ctx, "c1", realtime.EventMessageDelete, realtime.MessageDeleteData{ID: "m1"}))
	require.NoError(t, client.Publish(ctx, "c1", realtime.EventMessageBulkDelete, realtime.BulkDeleteData{IDs: []string{"m2", "m3"}}))
	require.NoError(t, client.Publish(ctx, "c1", realtime.EventReconnect, nil))

	want := []string{
		"create:m1:c1",
		"update:m1",
		"react+:m1:u2:👍",
		"react-:m1:u2:👍",
		"react0:m1:👍",
		"typing+:u3",
		"typing-:u3",
		"delete:m1",
		"bulk:m2,m3",
		"reconnect",
	}
	require.Eventually(t, func() bool { return len(rec.list()) == len(want) }, time.Second, 5*time.Millisecond)
	require.Equal(t, want, rec.list())
}

func TestUnit_Subscribe_DropsOtherChannelsAndBadEvents(t *testing.T) {
	ctx := context.Background()
	bus := libbus.NewInMem()
	client := realtime.NewClient(bus, "test", nil)
	rec := &recorder{}

	sub, err := client.Subscribe(ctx, "c1", rec.handlers())
	require.NoError(t, err)
	defer sub.Unsubscribe()

	foreign, err := json.Marshal(realtime.Event{Type: realtime.EventTypingStart, Channel: "c2", Data: json.RawMessage(`{"user":"u9"}`)})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, client.Subject("c1"), foreign))
	require.NoError(t, bus.Publish(ctx, client.Subject("c1"), []byte("not json")))
	require.NoError(t, bus.Publish(ctx, client.Subject("c1"), []byte(`{"type":"mystery","channel":"c1"}`)))
	require.NoError(t, client.Publish(ctx, "c1", realtime.EventTypingStart, realtime.TypingData{UserID: "u1"}))

	require.Eventually(t, func() bool { return len(rec.list()) == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"typing+:u1"}, rec.list())
}

func TestUnit_Subscribe_TransportReconnect(t *testing.T) {
	ctx := context.Background()
	bus := libbus.NewInMem()
	client := realtime.NewClient(bus, "", nil)
	rec := &recorder{}

	sub, err := client.Subscribe(ctx, "c1", rec.handlers())
	require.NoError(t, err)

	bus.SimulateReconnect()
	require.Eventually(t, func() bool { return len(rec.list()) == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"reconnect"}, rec.list())

	require.NoError(t, sub.Unsubscribe())
	bus.SimulateReconnect()
	require.NoError(t, client.Publish(ctx, "c1", realtime.EventTypingStart, realtime.TypingData{UserID: "u1"}))
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, []string{"reconnect"}, rec.list())
}

func TestUnit_Unsubscribe_Idempotent(t *testing.T) {
	bus := libbus.NewInMem()
	client := realtime.NewClient(bus, "", nil)

	sub, err := client.Subscribe(context.Background(), "c1", realtime.Handlers{})
	require.NoError(t, err)
	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe())
}
