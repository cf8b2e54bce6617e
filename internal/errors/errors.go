// Package errors defines the JSON error envelope returned by the HTTP API.
//
// Every non-2xx response carries the same shape:
//
//	{"error": {"code": "NOT_FOUND", "message": "job not found"}}
//
// Codes are stable identifiers for clients; messages are for humans.
package errors

import (
	"encoding/json"
	"net/http"
)

// Stable error codes returned by the API.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeBadRequest       = "BAD_REQUEST"
	CodeValidation       = "VALIDATION_ERROR"
	CodeConflict         = "CONFLICT"
	CodeInternal         = "INTERNAL_ERROR"
)

// HTTPErrorResponse is the wire shape of an API error.
type HTTPErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the code, human-readable message, and optional
// correlation data for one error.
type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// WriteError writes an error envelope with the given status and code.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteErrorDetail(w, status, ErrorDetail{Code: code, Message: message})
}

// WriteErrorDetail writes a fully populated error envelope.
func WriteErrorDetail(w http.ResponseWriter, status int, detail ErrorDetail) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{Error: detail})
}

// NotFoundHandler responds with the standard NOT_FOUND envelope. It is
// installed as the router's fallback handler.
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, CodeNotFound, "resource not found")
}

// MethodNotAllowedHandler responds with the standard METHOD_NOT_ALLOWED
// envelope.
func MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
}
