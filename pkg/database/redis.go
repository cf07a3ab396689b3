package database

import (
	"context"
	"fmt"

	"testwise_attempt/internal/config"
	"testwise_attempt/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisOptions maps the redis section onto client options. Pool settings
// left at zero use the client defaults.
func RedisOptions(cfg *config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
	}
}

// InitRedis connects the client shared by the recovery cache and the session
// event fan-out, and fails fast if the server cannot be reached.
func InitRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	opts := RedisOptions(cfg)
	rdb := redis.NewClient(opts)

	ctx := context.Background()
	if opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.DialTimeout)
		defer cancel()
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis %s: %w", opts.Addr, err)
	}

	logger.Log.Info("Redis connection established",
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB),
		zap.Int("pool_size", opts.PoolSize))
	return rdb, nil
}
