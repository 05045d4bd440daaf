package ledger

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/cardwatch/internal/config"
	"github.com/smallbiznis/cardwatch/internal/ledger/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("ledger",
	fx.Provide(newLocker),
	fx.Provide(service.NewService),
)

// newLocker picks the serialization backend: a Redis token lock when an
// address is configured (multi-replica deployments), otherwise an
// in-process keyed mutex.
func newLocker(cfg config.Config, log *zap.Logger) service.Locker {
	if cfg.RedisAddr == "" {
		return service.NewKeyedMutex()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	log.Info("ledger using redis lock", zap.String("addr", cfg.RedisAddr))
	return service.NewRedisLocker(client)
}
