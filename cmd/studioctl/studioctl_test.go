package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devduo/studio-backend/errs"
	"github.com/devduo/studio-backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type env struct {
	t      *testing.T
	config map[string]string
	// stderr holds what the last run wrote to standard error
	stderr string
}

func newEnv(t *testing.T) *env {
	dir := t.TempDir()
	return &env{t: t, config: map[string]string{
		"LOCAL_STORE":      "badger",
		"LOCAL_STORE_PATH": filepath.Join(dir, "local"),
		"STUDIOCTL_HOME":   filepath.Join(dir, "home"),
		"JWT_SECRET":       "test-secret",
		"LOG_LEVEL":        "error",
	}}
}

// run executes one command line with its own copy of the configuration, the way separate
// invocations of the binary would
func (e *env) run(stdin string, args ...string) (string, error) {
	e.t.Helper()
	c := make(map[string]string, len(e.config))
	for k, v := range e.config {
		c[k] = v
	}

	var out, errOut bytes.Buffer
	s := newCLI(c)
	s.stdin = strings.NewReader(stdin)
	s.stdout = &out
	s.stderr = &errOut
	err := s.execute(context.Background(), args)
	e.stderr = errOut.String()
	return out.String(), err
}

func (e *env) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run("", args...)
	require.NoError(e.t, err)
	return out
}

func (e *env) listProjects() []models.Project {
	e.t.Helper()
	var projects []models.Project
	require.NoError(e.t, json.Unmarshal([]byte(e.mustRun("projects", "list", "--json")), &projects))
	return projects
}

func TestWhoami_Anonymous(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, "anonymous\n", e.mustRun("whoami"))
}

func TestLogin(t *testing.T) {
	e := newEnv(t)

	_, err := e.run("", "login", "-u", "brenno.om", "-p", "wrong")
	assert.True(t, errs.IsInvalidCredentialsError(err))
	assert.Equal(t, "anonymous\n", e.mustRun("whoami"))

	assert.Contains(t, e.mustRun("login", "-u", "brenno.om", "-p", "Bre140903"), "Logged in as brenno.om")
	assert.Equal(t, "brenno.om\n", e.mustRun("whoami"))

	assert.Contains(t, e.mustRun("logout"), "Logged out")
	assert.Equal(t, "anonymous\n", e.mustRun("whoami"))
}

func TestLogin_PromptsForPassword(t *testing.T) {
	e := newEnv(t)

	out, err := e.run("Gab123456\n", "login", "-u", "gabriel.an")
	require.NoError(t, err)
	assert.Contains(t, out, "Password: ")
	assert.Contains(t, out, "Logged in as gabriel.an")
}

func TestProjects_ListIsPublic(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun("projects", "list")
	assert.Contains(t, out, "TITLE")
	assert.Len(t, e.listProjects(), 3)

	out = e.mustRun("projects", "get", "1")
	var p models.Project
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "1", p.ID)

	_, err := e.run("", "projects", "get", "missing")
	assert.True(t, errs.IsNotFound(err))
}

func TestProjects_AdminCommandsNeedSession(t *testing.T) {
	e := newEnv(t)

	_, err := e.run("", "projects", "add", "--title", "X")
	assert.True(t, errs.IsNotAuthenticated(err))
	_, err = e.run("", "projects", "delete", "1", "--yes")
	assert.True(t, errs.IsNotAuthenticated(err))
	assert.Len(t, e.listProjects(), 3)
}

func TestProjects_Lifecycle(t *testing.T) {
	e := newEnv(t)
	e.mustRun("login", "-u", "brenno.om", "-p", "Bre140903")

	out := e.mustRun("projects", "add",
		"--title", "Portal do Cliente",
		"--description", "Área do cliente",
		"--category", "Sistema Web",
		"--tech", "Next.js,Supabase",
		"--feature", "Login",
		"--feature", "Faturas",
		"--progress", "40",
	)
	assert.Contains(t, out, "Added project")

	projects := e.listProjects()
	require.Len(t, projects, 4)
	added := projects[0]
	assert.Equal(t, "Portal do Cliente", added.Title)
	assert.Equal(t, []string{"Next.js", "Supabase"}, added.Tech)
	assert.Equal(t, []string{"Login", "Faturas"}, added.Features)
	assert.Equal(t, models.DefaultImage, added.Image)

	e.mustRun("projects", "update", added.ID, "--progress", "100")
	projects = e.listProjects()
	assert.Equal(t, 100, projects[0].Progress)
	assert.Equal(t, "Portal do Cliente", projects[0].Title)

	out, err := e.run("n\n", "projects", "delete", added.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")
	assert.Len(t, e.listProjects(), 4)

	e.mustRun("projects", "delete", added.ID, "--yes")
	assert.Len(t, e.listProjects(), 3)

	out, err = e.run("y\n", "projects", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Reset to 3 projects")
}

func TestProjects_AddReportsEveryInvalidField(t *testing.T) {
	e := newEnv(t)
	e.mustRun("login", "-u", "brenno.om", "-p", "Bre140903")

	_, err := e.run("", "projects", "add", "--title", "Only a title", "--progress", "150")
	require.Error(t, err)
	for _, field := range []string{"description", "category", "tech", "features", "progress"} {
		assert.Contains(t, err.Error(), field)
	}
	assert.Len(t, e.listProjects(), 3)
}

func TestProjects_AddFromFile(t *testing.T) {
	e := newEnv(t)
	e.mustRun("login", "-u", "brenno.om", "-p", "Bre140903")

	in := `{"title":"Landing","description":"Página","category":"Site","tech":["Go"],"features":["SEO"],"progress":10}`
	_, err := e.run(in, "projects", "add", "--file", "-", "--progress", "20")
	require.NoError(t, err)

	added := e.listProjects()[0]
	assert.Equal(t, "Landing", added.Title)
	assert.Equal(t, 20, added.Progress)
}

func TestProjects_RejectedRemoteWriteIsNotSaved(t *testing.T) {
	e := newEnv(t)
	dbPath := filepath.Join(t.TempDir(), "studio.db")
	e.config["DB_TYPE"] = "sqlite"
	e.config["SQLITE_PATH"] = dbPath
	e.mustRun("login", "-u", "brenno.om", "-p", "Bre140903")
	before := e.listProjects()
	require.Len(t, before, 3)

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	require.NoError(t, err)
	for _, stmt := range []string{
		"CREATE TRIGGER reject_insert BEFORE INSERT ON projects BEGIN SELECT RAISE(ABORT, 'read only'); END",
		"CREATE TRIGGER reject_update BEFORE UPDATE ON projects BEGIN SELECT RAISE(ABORT, 'read only'); END",
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	out, err := e.run("", "projects", "add",
		"--title", "Portal", "--description", "Área do cliente", "--category", "Sistema Web",
		"--tech", "Go", "--feature", "Login",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project Portal was not saved")
	assert.NotContains(t, out, "Added project")
	assert.Contains(t, e.stderr, "The remote database rejected the change. Nothing was saved.")
	assert.NotContains(t, e.stderr, "fallback")

	out, err = e.run("", "projects", "update", before[0].ID, "--title", "Renamed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "was not saved")
	assert.NotContains(t, out, "Updated project")
	assert.Contains(t, e.stderr, "Nothing was saved.")

	after := e.listProjects()
	require.Len(t, after, 3)
	assert.Equal(t, before[0].Title, after[0].Title)
}

func TestStatus(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun("status")
	assert.Contains(t, out, "Backend:")
	assert.Contains(t, out, "local")
	assert.Contains(t, out, "Projects:")
	assert.Contains(t, out, "KB")
	assert.Contains(t, out, "anonymous")
}

func TestDBColumns(t *testing.T) {
	e := newEnv(t)
	_, err := e.run("", "db", "columns")
	assert.Error(t, err)

	e.config["DB_TYPE"] = "sqlite"
	e.config["SQLITE_PATH"] = filepath.Join(t.TempDir(), "studio.db")
	assert.Contains(t, e.mustRun("db", "columns"), "matches the project model")
}

func TestHashPassword(t *testing.T) {
	e := newEnv(t)
	assert.True(t, strings.HasPrefix(e.mustRun("hash-password", "s3cret"), "$argon2id$"))
}
