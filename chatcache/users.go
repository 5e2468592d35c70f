package chatcache

import (
	"context"
	"fmt"

	"github.com/contenox/chatsync/chattypes"
	"github.com/contenox/chatsync/libtracker"
	"golang.org/x/sync/singleflight"
)

// UserFetcher loads a user profile from the server.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) (chattypes.User, error)
}

// Users caches user profiles.
type Users struct {
	backend Backend
	fetcher UserFetcher
	tracker libtracker.ActivityTracker
	group   singleflight.Group
}

func NewUsers(backend Backend, fetcher UserFetcher, tracker libtracker.ActivityTracker) *Users {
	if tracker == nil {
		tracker = libtracker.NoopTracker{}
	}
	return &Users{backend: backend, fetcher: fetcher, tracker: tracker}
}

func userKey(id string) string {
	return "chatsync:user:" + id
}

// Get returns a cached user or ErrNotFound.
func (u *Users) Get(ctx context.Context, id string) (chattypes.User, error) {
	return getJSON[chattypes.User](ctx, u.backend, userKey(id))
}

// Put stores users, typically the ones returned alongside a history page.
func (u *Users) Put(ctx context.Context, users ...chattypes.User) error {
	for _, user := range users {
		if err := setJSON(ctx, u.backend, userKey(user.ID), user); err != nil {
			return fmt.Errorf("failed to cache user %s: %w", user.ID, err)
		}
	}
	return nil
}

// Ensure returns the user, fetching it when unseen. Concurrent lookups of the
// same id share one fetch. When the fetch fails a placeholder is returned so
// the caller can still apply the event that referenced the user.
func (u *Users) Ensure(ctx context.Context, id string) chattypes.User {
	if user, err := u.Get(ctx, id); err == nil {
		return user
	}
	if u.fetcher == nil {
		return chattypes.PlaceholderUser(id)
	}

	v, err, _ := u.group.Do(id, func() (any, error) {
		reportErr, _, end := u.tracker.Start(ctx, "fetch", "user", "userID", id)
		defer end()

		user, err := u.fetcher.FetchUser(ctx, id)
		if err != nil {
			reportErr(err)
			return nil, err
		}
		if err := u.Put(ctx, user); err != nil {
			reportErr(err)
		}
		return user, nil
	})
	if err != nil {
		return chattypes.PlaceholderUser(id)
	}
	return v.(chattypes.User)
}
