// Package core holds the JSON response conventions shared by every HTTP
// module: one envelope shape, one error shape, one place that maps errors
// to status codes.
package core

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// JSONResponse is the envelope for every API response body.
type JSONResponse struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail carries machine-readable error information.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// JSON writes a success response with the given status and payload.
func JSON(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, JSONResponse{Data: data})
}

// JSONWithMeta writes a success response carrying additional metadata,
// such as usage counters on metered endpoints.
func JSONWithMeta(w http.ResponseWriter, status int, data any, meta map[string]any) {
	writeJSON(w, status, JSONResponse{Data: data, Meta: meta})
}

// Error writes an error response. HTTPError values map to their status and
// key; anything else is an internal error whose detail stays in the logs,
// not the response body.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	ErrorWithDetails(w, r, err, nil)
}

// ErrorWithDetails writes an error response with extra machine-readable
// fields, such as quota numbers on a denial.
func ErrorWithDetails(w http.ResponseWriter, r *http.Request, err error, details map[string]any) {
	status := http.StatusInternalServerError
	detail := &ErrorDetail{Code: ErrInternalServerError.Key, Message: http.StatusText(status)}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Code
		detail.Code = httpErr.Key
		detail.Message = http.StatusText(httpErr.Code)
	} else {
		slog.Default().ErrorContext(r.Context(), "unhandled request error",
			"error", err, "path", r.URL.Path, "method", r.Method)
	}

	detail.Details = details
	writeJSON(w, status, JSONResponse{Error: detail})
}

func writeJSON(w http.ResponseWriter, status int, body JSONResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// DecodeJSON parses a request body into dst, rejecting unknown fields so
// client typos surface as errors instead of silently ignored input.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return ErrBadRequest
	}
	return nil
}
