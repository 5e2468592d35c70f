package unread_test

import (
	"testing"
	"time"

	"github.com/contenox/chatsync/chattypes"
	"github.com/contenox/chatsync/unread"
	"github.com/stretchr/testify/require"
)

func TestTracker_WatermarkOnlyMovesForward(t *testing.T) {
	tr := unread.NewTracker()
	older := chattypes.NewID(time.Now())
	newer := chattypes.NewID(time.Now().Add(time.Minute))

	_, ok := tr.LastRead("c1")
	require.False(t, ok)

	tr.ProcessLocalAck("c1", newer)
	tr.ProcessLocalAck("c1", older)

	got, ok := tr.LastRead("c1")
	require.True(t, ok)
	require.Equal(t, newer, got)
}

func TestTracker_IsUnread(t *testing.T) {
	tr := unread.NewTracker()
	read := chattypes.NewID(time.Now())
	later := chattypes.NewID(time.Now().Add(time.Second))

	require.False(t, tr.IsUnread(chattypes.ChannelSnapshot{ID: "c1"}))
	require.True(t, tr.IsUnread(chattypes.ChannelSnapshot{ID: "c1", LastMessageID: read}))

	tr.ProcessLocalAck("c1", read)
	require.False(t, tr.IsUnread(chattypes.ChannelSnapshot{ID: "c1", LastMessageID: read}))
	require.True(t, tr.IsUnread(chattypes.ChannelSnapshot{ID: "c1", LastMessageID: later}))
}
