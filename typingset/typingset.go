// Package typingset tracks the users currently typing in a channel.
package typingset

import (
	"slices"
	"sync"
)

// Set is a concurrency-safe set of typing user ids.
// Membership only changes through explicit start/stop signals or Clear.
type Set struct {
	mu    sync.RWMutex
	users map[string]struct{}
}

func New() *Set {
	return &Set{users: make(map[string]struct{})}
}

// MarkTyping adds userID and reports whether the set changed.
func (s *Set) MarkTyping(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; ok {
		return false
	}
	s.users[userID] = struct{}{}
	return true
}

// MarkStopped removes userID and reports whether the set changed.
func (s *Set) MarkStopped(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return false
	}
	delete(s.users, userID)
	return true
}

// Clear empties the set and reports whether anything was removed.
func (s *Set) Clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.users) == 0 {
		return false
	}
	clear(s.users)
	return true
}

func (s *Set) Contains(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[userID]
	return ok
}

func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// Users returns the typing user ids in sorted order.
func (s *Set) Users() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.users))
	for id := range s.users {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
