package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/devduo/studio-backend/errs"
	"github.com/devduo/studio-backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLite(t *testing.T) *Database {
	t.Helper()
	cfg := Config{Driver: DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "studio.db")}
	d, err := Open(cfg)
	require.NoError(t, err)
	require.NotNil(t, d)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestProjectRepo_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	repo := setupSQLite(t).ProjectRepo()

	created, err := repo.Insert(ctx, models.ProjectInput{
		Title:       "X",
		Description: "d",
		Tech:        []string{"Go"},
		Features:    []string{"fast"},
		Category:    "Web",
		Progress:    40,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	require.NotNil(t, created.CreatedAtSnake)
	assert.Nil(t, created.CreatedAt)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, created.ID, all[0].ID)
	assert.Equal(t, []string{"Go"}, all[0].Tech)
	assert.Equal(t, []string{"fast"}, all[0].Features)
	assert.Equal(t, 40, all[0].Progress)
}

func TestProjectRepo_CountAndInsertMany(t *testing.T) {
	ctx := context.Background()
	repo := setupSQLite(t).ProjectRepo()

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, repo.InsertMany(ctx, models.SeedInputs()))
	n, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.NoError(t, repo.InsertMany(ctx, nil))
}

func TestProjectRepo_Update(t *testing.T) {
	ctx := context.Background()
	repo := setupSQLite(t).ProjectRepo()

	created, err := repo.Insert(ctx, models.ProjectInput{Title: "Old", Description: "d"})
	require.NoError(t, err)

	created.Title = "New"
	created.Tech = []string{"React"}
	updated, err := repo.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)
	assert.Equal(t, []string{"React"}, updated.Tech)
	assert.Equal(t, created.ID, updated.ID)

	_, err = repo.Update(ctx, models.Project{ID: "missing", Title: "t"})
	assert.True(t, errs.IsNotFound(err))
}

func TestProjectRepo_Delete(t *testing.T) {
	ctx := context.Background()
	repo := setupSQLite(t).ProjectRepo()

	created, err := repo.Insert(ctx, models.ProjectInput{Title: "X", Description: "d"})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, created.ID))
	require.NoError(t, repo.Delete(ctx, "never-existed"))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestGenerateColumnReport(t *testing.T) {
	d := setupSQLite(t)

	report, err := GenerateColumnReport(d.DB())
	require.NoError(t, err)
	assert.True(t, report.Clean())

	require.NoError(t, d.DB().Exec("ALTER TABLE projects ADD COLUMN legacy_slug text").Error)
	report, err = GenerateColumnReport(d.DB())
	require.NoError(t, err)
	assert.Equal(t, []string{"legacy_slug"}, report.Unmapped)
	assert.Empty(t, report.Missing)
	assert.False(t, report.Clean())
}

func TestConfig_Available(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"none", Config{}, false},
		{"rest ok", Config{Driver: DriverREST, SupabaseURL: "https://x.supabase.co", AnonKey: "k"}, true},
		{"rest placeholder url", Config{Driver: DriverREST, SupabaseURL: "your-project-url", AnonKey: "k"}, false},
		{"rest no key", Config{Driver: DriverREST, SupabaseURL: "https://x.supabase.co"}, false},
		{"supa fields", Config{Driver: DriverSupabase, Supabase: SupabaseDB{Host: "h", User: "u", Password: "p"}}, true},
		{"supa partial", Config{Driver: DriverSupabase, Supabase: SupabaseDB{Host: "h"}}, false},
		{"postgres dsn", Config{Driver: DriverPostgres, DSN: "postgres://"}, true},
		{"mysql no dsn", Config{Driver: DriverMySQL}, false},
		{"sqlite path", Config{Driver: DriverSQLite, SQLitePath: "x.db"}, true},
		{"unknown", Config{Driver: "oracle", DSN: "x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Available())
		})
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(map[string]string{
		"DB_TYPE":           "REST",
		"SUPABASE_URL":      " https://x.supabase.co ",
		"SUPABASE_ANON_KEY": "anon",
	})
	assert.Equal(t, DriverREST, cfg.Driver)
	assert.Equal(t, "https://x.supabase.co", cfg.SupabaseURL)
	assert.True(t, cfg.Available())
	assert.Equal(t, "5432", cfg.Supabase.Port)
}

func TestOpen_Unavailable(t *testing.T) {
	d, err := Open(Config{})
	require.NoError(t, err)
	assert.Nil(t, d)
}
