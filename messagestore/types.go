package messagestore

import (
	"github.com/contenox/chatsync/chattypes"
)

// Store defines the timeline of one channel.
// Messages are kept newest-first in id order, at most once per id.
type Store interface {
	// Bulk operations
	Seed(messages []chattypes.Message)
	Prepend(messages []chattypes.Message) []chattypes.Message

	// Single message operations
	Upsert(message chattypes.Message)
	Remove(id string) bool
	Get(id string) (chattypes.Message, error)

	// Reads
	Snapshot() []chattypes.Message
	Len() int
	Newest() (chattypes.Message, bool)
	Oldest() (chattypes.Message, bool)
}
