// output.go renders timelines for the terminal.
package chatcli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/contenox/chatsync/chattypes"
)

// authorLookup returns the display record of a user.
type authorLookup func(ctx context.Context, id string) chattypes.User

func displayName(m chattypes.Message, u chattypes.User) string {
	if m.Masquerade != nil && m.Masquerade.Name != "" {
		return m.Masquerade.Name
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Username != "" {
		return u.Username
	}
	return m.AuthorID
}

// writeTimeline prints msgs (newest first, as held by the engine) oldest first.
// A message that continues its author's group is printed without a header.
func writeTimeline(ctx context.Context, w io.Writer, msgs []chattypes.Message, lookup authorLookup) {
	for i := len(msgs) - 1; i >= 0; i-- {
		writeMessage(ctx, w, msgs[i], lookup)
	}
}

func writeMessage(ctx context.Context, w io.Writer, m chattypes.Message, lookup authorLookup) {
	if m.System != nil {
		fmt.Fprintf(w, "-- %s %s\n", m.System.Type, m.System.Text)
		return
	}
	if !m.IsTail {
		stamp := "--:--"
		if t, err := chattypes.IDTime(m.ID); err == nil {
			stamp = t.Local().Format("15:04")
		}
		fmt.Fprintf(w, "[%s] %s\n", stamp, displayName(m, lookup(ctx, m.AuthorID)))
	}
	if len(m.Replies) > 0 {
		fmt.Fprintf(w, "    ↳ replying to %s\n", strings.Join(m.Replies, ", "))
	}
	for _, line := range strings.Split(m.Content, "\n") {
		if line != "" {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
	for _, a := range m.Attachments {
		fmt.Fprintf(w, "    [attachment %s]\n", a.Filename)
	}
	if len(m.Reactions) > 0 {
		emojis := make([]string, 0, len(m.Reactions))
		for e := range m.Reactions {
			emojis = append(emojis, e)
		}
		sort.Strings(emojis)
		parts := make([]string, 0, len(emojis))
		for _, e := range emojis {
			parts = append(parts, fmt.Sprintf("%s %d", e, m.Reactions.Count(e)))
		}
		fmt.Fprintf(w, "    (%s)\n", strings.Join(parts, "  "))
	}
}

func writeTyping(w io.Writer, names []string) {
	switch len(names) {
	case 0:
	case 1:
		fmt.Fprintf(w, "* %s is typing\n", names[0])
	default:
		fmt.Fprintf(w, "* %s are typing\n", strings.Join(names, ", "))
	}
}
