package kvstore

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStores(t *testing.T) map[string]Store {
	t.Helper()

	badgerStore, err := OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = badgerStore.Close() })

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	redisStore := NewRedis(client, "studio:")
	t.Cleanup(func() { _ = redisStore.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"badger": badgerStore,
		"redis":  redisStore,
	}
}

func TestStores_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range setupStores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, "devduo-projects", []byte(`[{"id":"1"}]`)))
			value, ok, err := s.Get(ctx, "devduo-projects")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.JSONEq(t, `[{"id":"1"}]`, string(value))

			require.NoError(t, s.Set(ctx, "devduo-projects", []byte(`[]`)))
			value, _, err = s.Get(ctx, "devduo-projects")
			require.NoError(t, err)
			assert.Equal(t, "[]", string(value))

			require.NoError(t, s.Delete(ctx, "devduo-projects"))
			_, ok, err = s.Get(ctx, "devduo-projects")
			require.NoError(t, err)
			assert.False(t, ok)

			assert.NoError(t, s.Delete(ctx, "never-set"))
		})
	}
}

func TestStores_Each(t *testing.T) {
	ctx := context.Background()
	for name, s := range setupStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set(ctx, "admin_auth", []byte("true")))
			require.NoError(t, s.Set(ctx, "admin_user", []byte("brenno.om")))

			seen := map[string]string{}
			err := s.Each(ctx, func(key string, value []byte) error {
				seen[key] = string(value)
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"admin_auth": "true", "admin_user": "brenno.om"}, seen)

			stop := errors.New("stop")
			err = s.Each(ctx, func(string, []byte) error { return stop })
			assert.ErrorIs(t, err, stop)
		})
	}
}

func TestUsage(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Set(ctx, "a", []byte("12345")))
	require.NoError(t, s.Set(ctx, "b", []byte("ção")))

	used, err := Usage(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, int64(16), used)
}

func TestFormatUsage(t *testing.T) {
	assert.Equal(t, "0.00 KB", FormatUsage(0))
	assert.Equal(t, "1.50 KB", FormatUsage(1536))
	assert.Equal(t, "2.00 MB", FormatUsage(2*1024*1024))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "etcd"})
	assert.Error(t, err)
}
