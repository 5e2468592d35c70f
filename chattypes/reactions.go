package chattypes

import (
	"encoding/json"
	"slices"
)

// Reactions maps an emoji to the ids of the users that reacted with it.
// User lists are kept sorted and free of duplicates.
type Reactions map[string][]string

func (r Reactions) clone() Reactions {
	if r == nil {
		return nil
	}
	out := make(Reactions, len(r))
	for emoji, users := range r {
		if users = normalizeUsers(users); len(users) > 0 {
			out[emoji] = users
		}
	}
	return out
}

// normalizeUsers returns a sorted, deduplicated copy of users.
func normalizeUsers(users []string) []string {
	out := slices.Clone(users)
	slices.Sort(out)
	return slices.Compact(out)
}

// UnmarshalJSON decodes a reaction map and normalizes every user list,
// since the server does not promise any order.
func (r *Reactions) UnmarshalJSON(data []byte) error {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*r = nil
		return nil
	}
	*r = Reactions(raw).clone()
	return nil
}

// Has reports whether userID reacted with emoji.
func (r Reactions) Has(emoji, userID string) bool {
	return slices.Contains(r[emoji], userID)
}

// Count returns the number of users that reacted with emoji.
func (r Reactions) Count(emoji string) int {
	return len(r[emoji])
}

// WithReaction returns a copy of m with userID added to emoji.
func (m Message) WithReaction(emoji, userID string) Message {
	out := m.Clone()
	if out.Reactions == nil {
		out.Reactions = Reactions{}
	}
	users := out.Reactions[emoji]
	i, found := slices.BinarySearch(users, userID)
	if !found {
		users = slices.Insert(users, i, userID)
	}
	out.Reactions[emoji] = users
	return out
}

// WithoutReaction returns a copy of m with userID removed from emoji.
func (m Message) WithoutReaction(emoji, userID string) Message {
	out := m.Clone()
	users := out.Reactions[emoji]
	i, found := slices.BinarySearch(users, userID)
	if !found {
		return out
	}
	users = slices.Delete(users, i, i+1)
	if len(users) == 0 {
		delete(out.Reactions, emoji)
	} else {
		out.Reactions[emoji] = users
	}
	return out
}

// WithoutEmoji returns a copy of m with every reaction for emoji cleared.
func (m Message) WithoutEmoji(emoji string) Message {
	out := m.Clone()
	delete(out.Reactions, emoji)
	return out
}
