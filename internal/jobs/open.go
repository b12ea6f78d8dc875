package jobs

import (
	"context"
	"fmt"

	"github.com/simonhull/firebird-suite/nest/internal/config"
	"github.com/simonhull/firebird-suite/nest/internal/logger"
)

// Open creates the store selected by cfg.
func Open(ctx context.Context, cfg config.JobsConfig, log logger.Logger) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return NewMemoryStore(cfg.TTL, cfg.Sweep, WithMemoryLogger(log)), nil
	case config.BackendRedis:
		s, err := NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.TTL)
		if err != nil {
			return nil, err
		}
		log.Info("job store connected", logger.F("backend", "redis"), logger.F("addr", cfg.RedisAddr))
		return s, nil
	default:
		return nil, fmt.Errorf("unknown job store backend: %s", cfg.Backend)
	}
}
