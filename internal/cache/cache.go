// Package cache — Redis-реализации состояния устройств и ограничения частоты публикаций.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/pribylovaa/thinkedin/internal/devicestate"
	"github.com/redis/go-redis/v9"
)

var (
	_ devicestate.Provider = (*Redis)(nil)
	_ Limiter              = (*Redis)(nil)
)

// Redis хранит состояние каждого устройства в отдельном хэше prefix+"device:"+id.
// TTL хэша продлевается при каждой записи.
type Redis struct {
	rdb       *redis.Client
	prefix    string
	deviceTTL time.Duration
}

// NewRedis создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "thinkedin:".
func NewRedis(ctx context.Context, redisURL, prefix string, deviceTTL time.Duration) (*Redis, error) {
	if prefix == "" {
		prefix = "thinkedin:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return &Redis{rdb: rdb, prefix: prefix, deviceTTL: deviceTTL}, nil
}

// Ping проверяет доступность Redis.
func (c *Redis) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

// Close закрывает клиент Redis.
func (c *Redis) Close() error { return c.rdb.Close() }

// ForDevice возвращает хранилище устройства.
func (c *Redis) ForDevice(deviceID string) devicestate.Store {
	return deviceStore{c: c, key: c.prefix + "device:" + deviceID}
}

type deviceStore struct {
	c   *Redis
	key string
}

func (s deviceStore) Get(ctx context.Context, field string) (string, bool, error) {
	v, err := s.c.rdb.HGet(ctx, s.key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}

	if err != nil {
		return "", false, err
	}

	return v, true, nil
}

func (s deviceStore) Set(ctx context.Context, field, value string) error {
	pipe := s.c.rdb.TxPipeline()
	pipe.HSet(ctx, s.key, field, value)
	if s.c.deviceTTL > 0 {
		pipe.Expire(ctx, s.key, s.c.deviceTTL)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (s deviceStore) Delete(ctx context.Context, field string) error {
	return s.c.rdb.HDel(ctx, s.key, field).Err()
}

// Allow пропускает одно действие на ключ в пределах window (SET NX PX).
func (c *Redis) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, c.prefix+"rl:"+key, 1, window).Result()
}

// Release снимает окно ключа.
func (c *Redis) Release(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, c.prefix+"rl:"+key).Err()
}
