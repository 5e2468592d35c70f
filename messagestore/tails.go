package messagestore

import (
	"time"

	"github.com/contenox/chatsync/chattypes"
)

// TailWindow is the largest gap between two messages that still groups them.
const TailWindow = 7 * time.Minute

// computeTails recomputes IsTail for msgs[lo:hi] in one pass.
// msgs is newest-first, so the chronological predecessor of msgs[i] is msgs[i+1].
func computeTails(msgs []chattypes.Message, lo, hi int) {
	lo = max(lo, 0)
	hi = min(hi, len(msgs))
	for i := lo; i < hi; i++ {
		if i+1 >= len(msgs) {
			msgs[i].IsTail = false
			continue
		}
		msgs[i].IsTail = isTail(msgs[i], msgs[i+1])
	}
}

// isTail reports whether current visually merges with older, the message sent just before it.
func isTail(current, older chattypes.Message) bool {
	if current.AuthorID != older.AuthorID {
		return false
	}
	if current.IsSystem() || older.IsSystem() {
		return false
	}
	if current.HasReplies() {
		return false
	}
	if !sameMasquerade(current.Masquerade, older.Masquerade) {
		return false
	}
	a, err := chattypes.IDTime(current.ID)
	if err != nil {
		return false
	}
	b, err := chattypes.IDTime(older.ID)
	if err != nil {
		return false
	}
	gap := a.Sub(b)
	if gap < 0 {
		gap = -gap
	}
	return gap < TailWindow
}

func sameMasquerade(a, b *chattypes.Masquerade) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
