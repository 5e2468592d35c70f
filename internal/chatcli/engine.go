// engine.go builds the sync runtime (HTTP client, bus, caches, engine manager) from settings.
package chatcli

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/contenox/chatsync/chatcache"
	"github.com/contenox/chatsync/chatsdk"
	"github.com/contenox/chatsync/libbus"
	libkv "github.com/contenox/chatsync/libkvstore"
	"github.com/contenox/chatsync/libtracker"
	"github.com/contenox/chatsync/realtime"
	"github.com/contenox/chatsync/syncengine"
	"github.com/contenox/chatsync/unread"
)

const (
	kvTimeout = 2 * time.Second
	cacheTTL  = 10 * time.Minute
)

type appRuntime struct {
	sdk      *chatsdk.Client
	users    *chatcache.Users
	channels *chatcache.Channels
	unread   *unread.Tracker
	realtime *realtime.Client
	manager  *syncengine.Manager
	closers  []func() error
}

func buildRuntime(ctx context.Context, s settings, logger *slog.Logger) (*appRuntime, error) {
	rt := &appRuntime{unread: unread.NewTracker()}
	tracker := libtracker.NewLogActivityTracker(logger)

	rt.sdk = chatsdk.NewClient(chatsdk.Config{BaseURL: s.apiURL, FilesURL: s.filesURL, Token: s.token}, nil)

	var bus libbus.Messenger
	if s.natsURL != "" {
		ps, err := libbus.NewPubSub(ctx, &libbus.Config{NATSURL: s.natsURL, Name: "chatsync"})
		if err != nil {
			return nil, err
		}
		bus = ps
	} else {
		slog.Warn("No nats_url configured, realtime events are limited to this process")
		bus = libbus.NewInMem()
	}
	rt.closers = append(rt.closers, bus.Close)

	userBackend, channelBackend := chatcache.NewMemoryBackend(), chatcache.NewMemoryBackend()
	if s.valkeyAddr != "" {
		kv, err := libkv.NewManager(libkv.Config{KVAddr: s.valkeyAddr, KVPassword: s.valkeyPassword}, kvTimeout)
		if err != nil {
			rt.close()
			return nil, err
		}
		rt.closers = append(rt.closers, kv.Close)
		exec, err := kv.Executor(ctx)
		if err != nil {
			rt.close()
			return nil, err
		}
		userBackend = chatcache.NewKVBackend(exec, cacheTTL)
		channelBackend = chatcache.NewKVBackend(exec, cacheTTL)
	}
	rt.users = chatcache.NewUsers(userBackend, rt.sdk, tracker)
	rt.channels = chatcache.NewChannels(channelBackend, rt.sdk)
	rt.realtime = realtime.NewClient(bus, s.subjectPrefix, tracker)

	rt.manager = syncengine.NewManager(syncengine.Deps{
		History:  rt.sdk,
		Sender:   rt.sdk,
		Acker:    rt.sdk,
		Realtime: rt.realtime,
		Users:    rt.users,
		Channels: rt.channels,
		Unread:   rt.unread,
		Tracker:  tracker,
	}, syncengine.Config{
		PageSize: s.pageSize,
		AckDelay: s.ackDelay,
	})
	return rt, nil
}

func (rt *appRuntime) close() error {
	var errs []error
	if rt.manager != nil {
		errs = append(errs, rt.manager.CloseAll())
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	return errors.Join(errs...)
}
