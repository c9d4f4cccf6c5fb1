package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/devduo/studio-backend/errs"
	"github.com/devduo/studio-backend/models"
	"github.com/rs/zerolog"
)

// alertNotifier receives unexpected server errors
type alertNotifier interface {
	Notify(ctx context.Context, n models.Notification)
}

type Responder struct {
	logger zerolog.Logger
	alerts alertNotifier
}

func NewResponder(logger zerolog.Logger) Responder {
	return Responder{logger: logger}
}

// WithAlerts returns a copy of the responder that reports unexpected errors to n
func (r Responder) WithAlerts(n alertNotifier) Responder {
	r.alerts = n
	return r
}

func (r Responder) WriteJSON(w http.ResponseWriter, data any) {
	r.WriteJSONStatus(w, http.StatusOK, data)
}

// WriteJSONStatus writes data with the given status code. Headers are set before the status line
// goes out.
func (r Responder) WriteJSONStatus(w http.ResponseWriter, statusCode int, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		r.logger.Error().Err(err).Msg("error marshaling response data")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	const maxResponseSize = 10 * 1024 * 1024
	if len(jsonData) > maxResponseSize {
		r.logger.Error().
			Int("responseSize", len(jsonData)).
			Int("maxSize", maxResponseSize).
			Msg("response too large")

		statusCode = http.StatusRequestEntityTooLarge
		jsonData, _ = json.Marshal(map[string]any{
			"success":      false,
			"error":        "Response too large",
			"maxSizeMB":    maxResponseSize / (1024 * 1024),
			"actualSizeMB": len(jsonData) / (1024 * 1024),
		})
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if _, err := w.Write(jsonData); err != nil {
		r.logger.Error().Err(err).Msg("error writing response")
	}
}

// WriteError renders err as {"success": false, "error": ...}. Errors that are not *errs.ApiErr are
// logged, reported to the alert notifier and hidden behind a generic 500.
func (r Responder) WriteError(w http.ResponseWriter, err error) {
	var apiErr *errs.ApiErr
	if !errors.As(err, &apiErr) {
		r.logger.Error().Err(err).Msg("unexpected error")
		r.alert(err)
		r.WriteJSONStatus(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Internal Server Error",
			"message": "An unexpected error occurred",
		})
		return
	}

	response := map[string]any{
		"success": false,
		"error":   apiErr.Error(),
	}
	if apiErr.Field != "" {
		response["field"] = apiErr.Field
	}
	if len(apiErr.Fields) > 0 {
		response["fields"] = apiErr.Fields
	}
	if apiErr.Details != "" {
		response["details"] = apiErr.Details
	}

	if apiErr.StatusCode >= http.StatusInternalServerError {
		r.logger.Error().Str("error", apiErr.GetFullError()).Int("status", apiErr.StatusCode).Msg("server error")
		r.alert(apiErr)
	}

	r.WriteJSONStatus(w, apiErr.StatusCode, response)
}

func (r Responder) alert(err error) {
	if r.alerts == nil {
		return
	}
	r.alerts.Notify(context.Background(), models.Notification{
		Title:       "Internal Server Error",
		Description: err.Error(),
		Destructive: true,
		Operation:   "http",
	})
}

// decodeJSON reads a JSON body of at most maxBytes into dst
func decodeJSON(w http.ResponseWriter, req *http.Request, maxBytes int64, dst any) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxBytes)
	dec := json.NewDecoder(req.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errs.NewMaxBodySizeExceededError(maxBytes)
		}
		return errs.NewInvalidJSONError(err)
	}
	return nil
}
