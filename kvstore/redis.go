package kvstore

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps values in redis so several service instances share one "local" store
type RedisStore struct {
	client *redis.Client
	prefix string
}

// OpenRedis connects to redis at addr and verifies the connection
func OpenRedis(addr, password string, db int, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewRedis(client, prefix), nil
}

// NewRedis wraps an existing client
func NewRedis(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.prefix+key, value, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// Each walks the prefixed keyspace with SCAN
func (s *RedisStore) Each(ctx context.Context, fn func(key string, value []byte) error) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		fullKey := iter.Val()
		value, err := s.client.Get(ctx, fullKey).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return err
		}
		if err = fn(strings.TrimPrefix(fullKey, s.prefix), value); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
