package database

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/devduo/studio-backend/errs"
	"github.com/devduo/studio-backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgrest(t *testing.T, handler http.HandlerFunc) *PostgrestRepo {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewPostgrestRepo(srv.URL+"/", "anon-key", 5*time.Second)
}

func TestPostgrest_FindAll(t *testing.T) {
	repo := newPostgrest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/projects", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[
			{"id": 7, "title": "Numeric", "tech": ["Go"], "features": null, "progress": 50, "created_at": "2024-06-13T12:00:00.123456+00:00"},
			{"id": "b9f1", "title": "Text", "tech": [], "features": ["x"], "progress": 100}
		]`)
	})

	projects, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "7", projects[0].ID)
	assert.Equal(t, []string{}, projects[0].Features)
	require.NotNil(t, projects[0].CreatedAtSnake)
	assert.Equal(t, 2024, projects[0].CreatedAtSnake.Year())
	assert.Equal(t, "b9f1", projects[1].ID)
	assert.Nil(t, projects[1].CreatedAtSnake)
}

func TestPostgrest_Count(t *testing.T) {
	repo := newPostgrest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		assert.Equal(t, "count=exact", r.Header.Get("Prefer"))
		w.Header().Set("Content-Range", "*/3")
		w.WriteHeader(http.StatusOK)
	})

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestParseContentRangeTotal(t *testing.T) {
	n, err := parseContentRangeTotal("0-2/3")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = parseContentRangeTotal("0-2/*")
	assert.Error(t, err)
	_, err = parseContentRangeTotal("")
	assert.Error(t, err)
}

func TestPostgrest_InsertSendsDomainFieldsOnly(t *testing.T) {
	repo := newPostgrest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		var body []map[string]any
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) || !assert.Len(t, body, 1) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.NotContains(t, body[0], "id")
		assert.NotContains(t, body[0], "createdAt")
		assert.Equal(t, "X", body[0]["title"])

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `[{"id": "new-id", "title": "X", "created_at": "2024-06-13T12:00:00Z"}]`)
	})

	created, err := repo.Insert(context.Background(), models.ProjectInput{Title: "X"})
	require.NoError(t, err)
	assert.Equal(t, "new-id", created.ID)
	assert.NotNil(t, created.CreatedAtSnake)
}

func TestPostgrest_UpdateFiltersByID(t *testing.T) {
	repo := newPostgrest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.abc", r.URL.Query().Get("id"))
		if r.URL.Query().Get("id") == "eq.abc" {
			_, _ = io.WriteString(w, `[{"id": "abc", "title": "New"}]`)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	})

	updated, err := repo.Update(context.Background(), models.Project{ID: "abc", Title: "New"})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)
}

func TestPostgrest_UpdateNoRow(t *testing.T) {
	repo := newPostgrest(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})

	_, err := repo.Update(context.Background(), models.Project{ID: "gone"})
	assert.True(t, errs.IsNotFound(err))
}

func TestPostgrest_ErrorStatus(t *testing.T) {
	repo := newPostgrest(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"Invalid API key"}`)
	})

	err := repo.Delete(context.Background(), "1")
	require.Error(t, err)
	assert.True(t, errs.IsRemoteRequestError(err))
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestPostgrest_Unreachable(t *testing.T) {
	repo := NewPostgrestRepo("http://127.0.0.1:1", "k", time.Second)
	_, err := repo.FindAll(context.Background())
	assert.Error(t, err)
}
