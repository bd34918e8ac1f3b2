package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Karimk94/edms-archive-gateway/pkg/config"
)

const pingTimeout = 5 * time.Second

// NewRedis connects the catalog-cache client and verifies the connection up
// front. The gateway treats the cache as optional, so a failure here should
// be logged and tolerated by the caller, not treated as fatal.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis at %s:%d unreachable: %w", cfg.Host, cfg.Port, err)
	}

	return client, nil
}
