// Package kvstore is the instance-local key-value storage the service keeps next to the remote
// database. It plays the role browser local storage plays for a single-page app: the project list
// lives under one key as a JSON array, and the admin session flag lives under its own keys.
package kvstore

import (
	"context"
	"fmt"
	"strings"
)

// Store is a string-keyed byte store
type Store interface {
	// Get returns the value for key; ok is false when the key does not exist.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Each visits every key/value pair. Iteration stops at the first error fn returns.
	Each(ctx context.Context, fn func(key string, value []byte) error) error
	Close() error
}

// Driver names a Store implementation
type Driver string

const (
	DriverBadger Driver = "badger"
	DriverRedis  Driver = "redis"
	DriverMemory Driver = "memory"
)

// Config selects and configures the local store
type Config struct {
	Driver Driver
	// Path is the badger data directory. Empty runs badger in memory.
	Path string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// RedisPrefix namespaces keys so several services can share one redis
	RedisPrefix string
}

// Open builds the Store described by cfg
func Open(cfg Config) (Store, error) {
	switch Driver(strings.ToLower(string(cfg.Driver))) {
	case DriverBadger, "":
		return OpenBadger(cfg.Path)
	case DriverRedis:
		return OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported local store driver: %s", cfg.Driver)
	}
}

// Usage approximates how much space the store occupies the way browsers account local storage:
// two bytes per character of every stored value.
func Usage(ctx context.Context, s Store) (int64, error) {
	var total int64
	err := s.Each(ctx, func(_ string, value []byte) error {
		total += int64(len([]rune(string(value)))) * 2
		return nil
	})
	return total, err
}

// FormatUsage renders a byte count as KB, or MB once it exceeds one megabyte
func FormatUsage(bytes int64) string {
	if bytes > 1024*1024 {
		return fmt.Sprintf("%.2f MB", float64(bytes)/(1024*1024))
	}
	return fmt.Sprintf("%.2f KB", float64(bytes)/1024)
}
