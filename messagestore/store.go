// Package messagestore keeps the ordered, deduplicated message timeline of a channel.
package messagestore

import (
	"errors"
	"slices"
	"sync"

	"github.com/contenox/chatsync/chattypes"
)

var ErrNotFound = errors.New("not found")

type store struct {
	mu sync.RWMutex
	// msgs is sorted newest-first.
	msgs  []chattypes.Message
	index map[string]struct{}
}

// New creates an empty message store.
func New() Store {
	return &store{index: make(map[string]struct{})}
}

// Seed replaces the timeline. Duplicate ids in the input keep the last occurrence.
func (s *store) Seed(messages []chattypes.Message) {
	byID := make(map[string]chattypes.Message, len(messages))
	for _, m := range messages {
		byID[m.ID] = m
	}
	msgs := make([]chattypes.Message, 0, len(byID))
	for _, m := range byID {
		msgs = append(msgs, m)
	}
	sortNewestFirst(msgs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = msgs
	s.index = make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		s.index[m.ID] = struct{}{}
	}
	computeTails(s.msgs, 0, len(s.msgs))
}

// Prepend merges a page of older history and returns the messages that were retained.
// Ids already present are dropped.
func (s *store) Prepend(messages []chattypes.Message) []chattypes.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var retained []chattypes.Message
	for _, m := range messages {
		if _, ok := s.index[m.ID]; ok {
			continue
		}
		s.index[m.ID] = struct{}{}
		retained = append(retained, m)
	}
	if len(retained) == 0 {
		return nil
	}
	s.msgs = append(s.msgs, retained...)
	sortNewestFirst(s.msgs)
	computeTails(s.msgs, 0, len(s.msgs))

	out := make([]chattypes.Message, len(retained))
	copy(out, retained)
	sortNewestFirst(out)
	return out
}

// Upsert inserts a message or replaces the one with the same id.
func (s *store) Upsert(message chattypes.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, found := s.search(message.ID)
	if found {
		s.msgs[i] = message
	} else {
		s.msgs = slices.Insert(s.msgs, i, message)
		s.index[message.ID] = struct{}{}
	}
	// The newer neighbour at i-1 compares against position i.
	computeTails(s.msgs, i-1, i+1)
}

// Remove deletes a message. Removing an absent id is a no-op.
func (s *store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, found := s.search(id)
	if !found {
		return false
	}
	s.msgs = slices.Delete(s.msgs, i, i+1)
	delete(s.index, id)
	computeTails(s.msgs, i-1, i+1)
	return true
}

func (s *store) Get(id string) (chattypes.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, found := s.search(id)
	if !found {
		return chattypes.Message{}, ErrNotFound
	}
	return s.msgs[i].Clone(), nil
}

// Snapshot returns the render-ready timeline, newest first.
func (s *store) Snapshot() []chattypes.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]chattypes.Message, len(s.msgs))
	for i, m := range s.msgs {
		out[i] = m.Clone()
	}
	return out
}

func (s *store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.msgs)
}

func (s *store) Newest() (chattypes.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.msgs) == 0 {
		return chattypes.Message{}, false
	}
	return s.msgs[0].Clone(), true
}

func (s *store) Oldest() (chattypes.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.msgs) == 0 {
		return chattypes.Message{}, false
	}
	return s.msgs[len(s.msgs)-1].Clone(), true
}

// search returns the position of id in the newest-first slice, or where it would be inserted.
func (s *store) search(id string) (int, bool) {
	return slices.BinarySearchFunc(s.msgs, id, func(m chattypes.Message, target string) int {
		return chattypes.CompareIDs(target, m.ID)
	})
}

func sortNewestFirst(msgs []chattypes.Message) {
	slices.SortFunc(msgs, func(a, b chattypes.Message) int {
		return chattypes.CompareIDs(b.ID, a.ID)
	})
}
