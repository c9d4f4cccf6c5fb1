package errs

import (
	"net/http"
	"sort"
	"strings"
)

// ValidationErrors collects per-field messages produced while checking a submitted form.
// An empty ValidationErrors means the form is valid.
type ValidationErrors map[string]string

// Add records a message for field, keeping the first message when called twice
func (v ValidationErrors) Add(field, message string) {
	if _, ok := v[field]; !ok {
		v[field] = message
	}
}

func (v ValidationErrors) Error() string {
	fields := v.fieldNames()
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is(err, ErrValidation) match
func (v ValidationErrors) Unwrap() error {
	return ErrValidation
}

// Err returns nil when no field failed, so callers can return it directly
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// ApiErr converts the collected messages into a 400 response error.
// Field points at the first failing field in alphabetical order.
func (v ValidationErrors) ApiErr() *ApiErr {
	fields := v.fieldNames()
	e := &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrValidation,
		Fields:     map[string]string(v),
	}
	if len(fields) > 0 {
		e.Field = fields[0]
		e.Details = v[fields[0]]
	}
	return e
}

func (v ValidationErrors) fieldNames() []string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}
