package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Third-Party API Errors
var (
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
	ErrInvalidAPIKey      = errors.New("invalid API key")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrServiceUnreachable = errors.New("service unreachable")
)

// Configuration & Environment Errors
var (
	ErrConfigMissing = errors.New("configuration missing")
	ErrConfigInvalid = errors.New("configuration invalid")
)

// Data Consistency & Integrity Errors
var (
	ErrPartialFailure = errors.New("partial failure")
)

func NewRateLimitError(service string, retryAfter time.Duration) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusTooManyRequests,
		err:        ErrRateLimitExceeded,
		Details:    fmt.Sprintf("%s rate limit exceeded, retry after %v", service, retryAfter),
		Field:      "rate_limit",
	}
}

func NewInvalidAPIKeyError(service string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		err:        ErrInvalidAPIKey,
		Details:    fmt.Sprintf("%s rejected the configured API key", service),
		Field:      "api_key",
	}
}

func NewServiceUnavailableError(service string, statusCode int) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusServiceUnavailable,
		err:        ErrServiceUnavailable,
		Details:    fmt.Sprintf("%s returned status %d", service, statusCode),
	}
}

func NewServiceUnreachableError(service string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadGateway,
		err:        ErrServiceUnreachable,
		Details:    fmt.Sprintf("Service %s is unreachable", service),
		Cause:      cause,
	}
}

// Configuration & Environment Error Constructors
func NewConfigError(configName string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrConfigInvalid,
		Details:    fmt.Sprintf("Invalid configuration for %s", configName),
		Cause:      cause,
		Field:      configName,
	}
}

func NewEnvironmentVariableError(varName string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrConfigMissing,
		Details:    fmt.Sprintf("Environment variable %s is not set", varName),
		Field:      varName,
	}
}

// NewPartialFailureError reports a batch operation where some steps failed
func NewPartialFailureError(operation string, failedSteps []string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusMultiStatus,
		err:        ErrPartialFailure,
		Details:    fmt.Sprintf("Partial failure during %s: %s", operation, strings.Join(failedSteps, ", ")),
	}
}

func IsRateLimitError(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded)
}

func IsServiceUnavailableError(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrServiceUnreachable)
}

func IsPartialFailureError(err error) bool {
	return errors.Is(err, ErrPartialFailure)
}
