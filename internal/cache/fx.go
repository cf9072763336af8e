package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/beacon/internal/config"
	evaluationdomain "github.com/smallbiznis/beacon/internal/evaluation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module wires the snapshot read path. With REDIS_ADDR set, invalidations
// are broadcast across instances; otherwise they stay local and remote
// instances converge within the snapshot TTL.
var Module = fx.Module("cache",
	fx.Provide(NewSnapshotStore),
	fx.Provide(func(store *SnapshotStore) evaluationdomain.SnapshotSource { return store }),
	fx.Provide(provideInvalidator),
	fx.Invoke(runListener),
)

type invalidatorResult struct {
	fx.Out

	Invalidator Invalidator
	Broadcaster *Broadcaster
}

func provideInvalidator(cfg config.Config, store *SnapshotStore, log *zap.Logger) invalidatorResult {
	if cfg.RedisAddr == "" {
		return invalidatorResult{Invalidator: store}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	broadcaster := NewBroadcaster(store, rdb, log)
	return invalidatorResult{Invalidator: broadcaster, Broadcaster: broadcaster}
}

func runListener(lc fx.Lifecycle, broadcaster *Broadcaster) {
	if broadcaster == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go broadcaster.Listen(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
