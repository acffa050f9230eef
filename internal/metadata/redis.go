package metadata

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	config "github.com/ledgerlens/defi-insight/configs"
)

var DEFAULT_REDIS_POOL_SIZE = 20

// RedisCache shares metadata between API replicas.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisCache(cfg *config.RedisConfig) (*RedisCache, error) {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = DEFAULT_REDIS_POOL_SIZE
	}
	options := &redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: poolSize,
	}
	if cfg.EnableTLS {
		options.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info().Str("addr", cfg.Addr).Msg("Connected to Redis metadata cache")

	return NewRedisCacheWithClient(client, cfg.KeyPrefix), nil
}

func NewRedisCacheWithClient(client *redis.Client, keyPrefix string) *RedisCache {
	if keyPrefix == "" {
		keyPrefix = "defi-insight:meta:"
	}
	return &RedisCache{client: client, keyPrefix: keyPrefix}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := r.client.Get(ctx, r.keyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Debug().Err(err).Str("key", key).Msg("redis metadata cache read failed")
		}
		return nil, false
	}
	return value, true
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.keyPrefix+key, value, ttl).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
