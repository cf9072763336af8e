package cache

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const invalidationChannel = "beacon.invalidate"

// Broadcaster fans snapshot invalidations out to every instance over Redis
// pub/sub. Local invalidation always happens first, so the mutating instance
// never serves stale state even if Redis is down.
type Broadcaster struct {
	store *SnapshotStore
	rdb   *redis.Client
	log   *zap.Logger
}

func NewBroadcaster(store *SnapshotStore, rdb *redis.Client, log *zap.Logger) *Broadcaster {
	return &Broadcaster{
		store: store,
		rdb:   rdb,
		log:   log.Named("cache.broadcast"),
	}
}

func (b *Broadcaster) InvalidateFlag(ctx context.Context, name string) {
	b.store.InvalidateFlag(ctx, name)
	b.publish(ctx, "flag:"+strings.TrimSpace(name))
}

func (b *Broadcaster) InvalidateGroup(ctx context.Context, name string) {
	b.store.InvalidateGroup(ctx, name)
	b.publish(ctx, "group:"+strings.TrimSpace(name))
}

func (b *Broadcaster) publish(ctx context.Context, message string) {
	if err := b.rdb.Publish(ctx, invalidationChannel, message).Err(); err != nil {
		b.log.Warn("invalidation broadcast failed",
			zap.String("message", message),
			zap.Error(err),
		)
	}
}

// Listen applies invalidations published by other instances. It returns when
// ctx is canceled.
func (b *Broadcaster) Listen(ctx context.Context) {
	sub := b.rdb.Subscribe(ctx, invalidationChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.apply(ctx, msg.Payload)
		}
	}
}

func (b *Broadcaster) apply(ctx context.Context, payload string) {
	kind, name, found := strings.Cut(payload, ":")
	if !found || name == "" {
		return
	}
	switch kind {
	case "flag":
		b.store.InvalidateFlag(ctx, name)
	case "group":
		b.store.InvalidateGroup(ctx, name)
	}
}

var _ Invalidator = (*Broadcaster)(nil)
