package chatsdk_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/contenox/chatsync/apiframework"
	"github.com/contenox/chatsync/chatsdk"
	"github.com/contenox/chatsync/chattypes"
	"github.com/contenox/chatsync/libtracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *chatsdk.Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return chatsdk.NewClient(chatsdk.Config{BaseURL: srv.URL + "/", Token: "secret"}, srv.Client())
}

func TestUnit_FetchMessages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /channels/c1/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "m9", r.URL.Query().Get("before"))
		assert.Equal(t, "req-1", r.Header.Get(apiframework.RequestIDHeader))
		_ = json.NewEncoder(w).Encode(chattypes.HistoryPage{
			Messages: []chattypes.Message{{ID: "m8", AuthorID: "u1"}},
			Users:    []chattypes.User{{ID: "u1", Username: "alice"}},
		})
	})
	client := newTestClient(t, mux)

	ctx := context.WithValue(context.Background(), libtracker.ContextKeyRequestID, "req-1")
	page, err := client.FetchMessages(ctx, "c1", 50, "m9")
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "c1", page.Messages[0].ChannelID)
	assert.Equal(t, "alice", page.Users[0].Username)
}

func TestUnit_FetchMessages_NewestPageOmitsBefore(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /channels/c1/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("before"))
		_, _ = w.Write([]byte(`{"messages":[]}`))
	})
	client := newTestClient(t, mux)

	page, err := client.FetchMessages(context.Background(), "c1", 10, "")
	require.NoError(t, err)
	assert.Empty(t, page.Messages)
}

func TestUnit_SendMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /channels/c1/messages", func(w http.ResponseWriter, r *http.Request) {
		var in chattypes.OutgoingMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "hello", in.Content)
		assert.Equal(t, []string{"a1"}, in.Attachments)
		assert.Equal(t, []chattypes.Reply{{ID: "m1", Mention: true}}, in.Replies)
		assert.Equal(t, "n1", in.Nonce)
		_ = json.NewEncoder(w).Encode(chattypes.Message{ID: "m2", AuthorID: "u1", Content: in.Content, Nonce: in.Nonce})
	})
	client := newTestClient(t, mux)

	msg, err := client.SendMessage(context.Background(), "c1", chattypes.OutgoingMessage{
		Content:     "hello",
		Attachments: []string{"a1"},
		Replies:     []chattypes.Reply{{ID: "m1", Mention: true}},
		Nonce:       "n1",
	})
	require.NoError(t, err)
	assert.Equal(t, "m2", msg.ID)
	assert.Equal(t, "c1", msg.ChannelID)
}

func TestUnit_FetchMessages_NoContentIsAnError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /channels/c1/messages", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	client := newTestClient(t, mux)

	page, err := client.FetchMessages(context.Background(), "c1", 50, "m9")
	require.Error(t, err)
	assert.Empty(t, page.Messages)

	var apiErr *apiframework.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNoContent, apiErr.StatusCode())
}

func TestUnit_AckChannel(t *testing.T) {
	called := false
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /channels/c1/ack/m5", func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("PUT /channels/c2/ack/m5", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"type":"MissingPermission"}`))
	})
	client := newTestClient(t, mux)

	require.NoError(t, client.AckChannel(context.Background(), "c1", "m5"))
	assert.True(t, called)

	err := client.AckChannel(context.Background(), "c2", "m5")
	require.Error(t, err)
	assert.ErrorIs(t, err, apiframework.ErrForbidden)
}

func TestUnit_UploadAttachment(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /attachments", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		assert.NoError(t, err)
		assert.Equal(t, "notes.txt", header.Filename)
		assert.Equal(t, "text/plain", header.Header.Get("Content-Type"))
		assert.Equal(t, "file body", string(data))
		_, _ = w.Write([]byte(`{"id":"att-1"}`))
	})
	mux.HandleFunc("POST /broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	})
	client := newTestClient(t, mux)

	var lastSent, lastTotal int64
	id, err := client.UploadAttachment(context.Background(), []byte("file body"), "notes.txt", "", "text/plain", func(sent, total int64) {
		lastSent, lastTotal = sent, total
	})
	require.NoError(t, err)
	assert.Equal(t, "att-1", id)
	assert.Positive(t, lastTotal)
	assert.Equal(t, lastTotal, lastSent)

	_, err = client.UploadAttachment(context.Background(), []byte("x"), "big.bin", "broken", "", nil)
	assert.ErrorIs(t, err, apiframework.ErrFileSizeLimitExceeded)
}

func TestUnit_FetchUserAndChannel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/u1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"u1","username":"alice"}`))
	})
	mux.HandleFunc("GET /channels/c1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"c1","type":"text","last_message_id":"m3"}`))
	})
	client := newTestClient(t, mux)

	u, err := client.FetchUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	ch, err := client.FetchChannel(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, chattypes.ChannelText, ch.Type)
	assert.Equal(t, "m3", ch.LastMessageID)

	_, err = client.FetchUser(context.Background(), "missing")
	assert.ErrorIs(t, err, apiframework.ErrNotFound)
}
