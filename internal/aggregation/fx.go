package aggregation

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/greentrack/internal/config"
	programdomain "github.com/smallbiznis/greentrack/internal/program/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("aggregation",
	fx.Provide(NewLocker),
	fx.Provide(New),
	fx.Provide(func(e *Engine) programdomain.Recomputer { return e }),
)

// NewLocker picks the recompute lock backend. Redis is used when several
// processes write to the same database.
func NewLocker(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Locker {
	if cfg.Lock.Backend != config.LockBackendRedis || strings.TrimSpace(cfg.Redis.Addr) == "" {
		return NewMemoryLocker()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis recompute lock unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return NewRedisLocker(client, cfg.Lock.TTL)
}
