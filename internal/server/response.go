// Package server exposes the HTTP API: personas, uploads, chat,
// debates, and context preview.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sophia-labs/sophia/internal/db"
	"github.com/sophia-labs/sophia/internal/debate"
	"github.com/sophia-labs/sophia/internal/service"
)

// SuccessResponse wraps successful API responses.
type SuccessResponse struct {
	Data any `json:"data"`
}

// ErrorResponse represents an error API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// success writes a successful JSON response.
func success(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, SuccessResponse{Data: data})
}

// writeError writes an error JSON response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// handleError maps service errors to HTTP status codes.
func handleError(w http.ResponseWriter, err error) {
	writeError(w, errorStatus(err), err.Error())
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrConversationNotFound),
		errors.Is(err, service.ErrPersonaNotFound),
		errors.Is(err, service.ErrDebateNotFound),
		errors.Is(err, service.ErrUploadNotFound),
		errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, debate.ErrParticipantCount),
		errors.Is(err, debate.ErrUnknownPersona):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody parses a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
