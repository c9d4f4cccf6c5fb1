package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDatabaseError_Classifies(t *testing.T) {
	conn := NewDatabaseError("connect to", "postgres", errors.New("dial tcp: connection refused"))
	assert.True(t, IsDatabaseConnectionError(conn))
	assert.Equal(t, http.StatusServiceUnavailable, conn.StatusCode)

	missing := NewDatabaseError("update", "project", errors.New("record not found"))
	assert.True(t, IsNotFound(missing))
	assert.False(t, IsDatabaseConnectionError(missing))

	query := NewDatabaseError("fetch", "projects", errors.New("syntax error"))
	assert.False(t, IsDatabaseConnectionError(query))
	assert.Equal(t, http.StatusInternalServerError, query.StatusCode)
}

func TestValidationErrors(t *testing.T) {
	v := ValidationErrors{}
	assert.NoError(t, v.Err())

	v.Add("title", "Title is required")
	v.Add("title", "ignored")
	v.Add("category", "Category is required")

	err := fmt.Errorf("add: %w", v.Err())
	assert.True(t, IsValidationError(err))
	assert.Equal(t, "validation failed: category: Category is required; title: Title is required", v.Error())

	apiErr := v.ApiErr()
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "category", apiErr.Field)
	assert.True(t, IsValidationError(apiErr))
	assert.False(t, IsValidationError(NewNotFound("project")))
}
