package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrDatabaseQuery      = errors.New("database query failed")
	ErrDatabaseConnection = errors.New("database connection failed")
)

// Storage backend errors
var (
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrRemoteRequest      = errors.New("remote request failed")
	ErrLocalStorage       = errors.New("local storage failed")
	ErrDegraded           = errors.New("applied locally only")
)

func NewNotFound(entity string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusNotFound,
		err:        fmt.Errorf("%s %w", entity, ErrNotFound),
	}
}

// NewDatabaseError creates a new database error with details about the operation
func NewDatabaseError(operation, entity string, cause error) *ApiErr {
	details := fmt.Sprintf("Failed to %s %s", operation, entity)

	// Check for common database errors and provide more specific messages
	if cause != nil {
		if errors.Is(cause, ErrNotFound) {
			return &ApiErr{
				StatusCode: http.StatusNotFound,
				err:        fmt.Errorf("%s %w", entity, ErrNotFound),
				Details:    details,
				Cause:      cause,
			}
		}

		errStr := strings.ToLower(cause.Error())
		switch {
		case strings.Contains(errStr, "duplicate key"), strings.Contains(errStr, "unique constraint"):
			return &ApiErr{
				StatusCode: http.StatusConflict,
				err:        fmt.Errorf("%s %w", entity, ErrAlreadyExists),
				Details:    details,
				Cause:      cause,
			}
		case strings.Contains(errStr, "not found"), strings.Contains(errStr, "no rows"):
			return &ApiErr{
				StatusCode: http.StatusNotFound,
				err:        fmt.Errorf("%s %w", entity, ErrNotFound),
				Details:    details,
				Cause:      cause,
			}
		case strings.Contains(errStr, "connection"), strings.Contains(errStr, "connect:"):
			return &ApiErr{
				StatusCode: http.StatusServiceUnavailable,
				err:        ErrDatabaseConnection,
				Details:    "Unable to connect to database",
				Cause:      cause,
			}
		}
	}

	// Generic database error
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrDatabaseQuery,
		Details:    details,
		Cause:      cause,
	}
}

// NewRemoteRequestError describes a failed call to the hosted backend's HTTP API
func NewRemoteRequestError(operation string, statusCode int, body string) *ApiErr {
	status := http.StatusBadGateway
	if statusCode == http.StatusNotFound {
		status = http.StatusNotFound
	}
	return &ApiErr{
		StatusCode: status,
		err:        ErrRemoteRequest,
		Details:    fmt.Sprintf("%s returned %d: %s", operation, statusCode, strings.TrimSpace(body)),
	}
}

// NewBackendUnavailableError reports a configured remote backend that could not be opened
func NewBackendUnavailableError(backend string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusServiceUnavailable,
		err:        ErrBackendUnavailable,
		Details:    fmt.Sprintf("%s backend could not be opened", backend),
		Cause:      cause,
	}
}

// NewLocalStorageError wraps a failure of the local key-value store
func NewLocalStorageError(operation string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrLocalStorage,
		Details:    fmt.Sprintf("Local storage failed during %s", operation),
		Cause:      cause,
	}
}

// NewDegradedError reports a write that failed to persist but was still applied to the in-memory list
func NewDegradedError(operation string, cause error) *ApiErr {
	details := operation
	if cause != nil {
		details = fmt.Sprintf("%s: %s", operation, cause.Error())
	}
	return &ApiErr{
		StatusCode: http.StatusAccepted,
		err:        ErrDegraded,
		Details:    details,
		Cause:      cause,
	}
}

func IsDegraded(err error) bool {
	return errors.Is(err, ErrDegraded)
}

func IsBackendUnavailable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}

func IsRemoteRequestError(err error) bool {
	return errors.Is(err, ErrRemoteRequest)
}

func IsDatabaseConnectionError(err error) bool {
	return errors.Is(err, ErrDatabaseConnection)
}
