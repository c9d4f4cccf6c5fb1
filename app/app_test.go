package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/devduo/studio-backend/auth"
	"github.com/devduo/studio-backend/errs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, c map[string]string) *App {
	t.Helper()
	c["LOCAL_STORE"] = "memory"
	a, err := Build(context.Background(), c, WithSyncNotifications())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestBuild_LocalOnly(t *testing.T) {
	a := build(t, map[string]string{})

	assert.Nil(t, a.Database)
	assert.NoError(t, a.RemoteErr)
	assert.False(t, a.Store.UsingRemote())
	assert.Nil(t, a.Uploader)

	require.NoError(t, a.Store.Load(context.Background()))
	assert.Len(t, a.Store.Projects(), 3)
}

func TestBuild_SQLiteRemote(t *testing.T) {
	a := build(t, map[string]string{
		"DB_TYPE":     "sqlite",
		"SQLITE_PATH": filepath.Join(t.TempDir(), "studio.db"),
	})

	require.NotNil(t, a.Database)
	assert.True(t, a.Store.UsingRemote())

	require.NoError(t, a.Store.Load(context.Background()))
	assert.Len(t, a.Store.Projects(), 3)

	count, err := a.Database.ProjectRepo().Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestBuild_UnreachableRemoteFallsBackToLocal(t *testing.T) {
	a := build(t, map[string]string{
		"DB_TYPE":     "sqlite",
		"SQLITE_PATH": filepath.Join(t.TempDir(), "missing", "dir", "studio.db"),
	})

	assert.True(t, errs.IsBackendUnavailable(a.RemoteErr))
	assert.False(t, a.Store.UsingRemote())
	require.NoError(t, a.Store.Load(context.Background()))
	assert.Len(t, a.Store.Projects(), 3)
}

func TestBuildVerifier(t *testing.T) {
	ctx := context.Background()

	v := buildVerifier(map[string]string{})
	assert.True(t, v.Verify(ctx, "gabriel.an", "Gab123456"))

	hash, err := auth.HashPassword("s3cret", auth.Argon2Params{Time: 1, MemoryKiB: 8 * 1024, Parallelism: 1, KeyLen: 32, SaltLen: 16})
	require.NoError(t, err)
	v = buildVerifier(map[string]string{
		"ADMIN_USERS":           "ana:pw1",
		"ADMIN_PASSWORD_HASHES": "bia:" + hash,
	})
	assert.True(t, v.Verify(ctx, "ana", "pw1"))
	assert.True(t, v.Verify(ctx, "bia", "s3cret"))
	assert.False(t, v.Verify(ctx, "gabriel.an", "Gab123456"))
}

func TestSetupLogger(t *testing.T) {
	var out bytes.Buffer
	logger := SetupLogger(map[string]string{"LOG_LEVEL": "warn"}, &out)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "shown")
}
