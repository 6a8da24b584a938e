// Package httputil provides shared HTTP utilities for consistent response handling.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/getmockd/acceptevents/pkg/events"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
// It sets the Content-Type header to application/json.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes a JSON error response with the given status code.
func WriteError(w http.ResponseWriter, status int, errCode, message string) {
	WriteJSON(w, status, ErrorResponse{Error: errCode, Message: message})
}

// WriteErrorWithDetails writes a JSON error response with additional details.
func WriteErrorWithDetails(w http.ResponseWriter, status int, errCode, message string, details any) {
	WriteJSON(w, status, ErrorResponse{Error: errCode, Message: message, Details: details})
}

// WriteEventError writes a failed event delivery as a JSON error response.
// A *events.Status keeps its code and reason. A negotiation with no accepted
// protocol is a 406, one with nothing configured a 503, anything else a 500.
func WriteEventError(w http.ResponseWriter, err error) {
	var st *events.Status
	if !errors.As(err, &st) {
		switch {
		case errors.Is(err, events.ErrNoAcceptedProtocol):
			WriteError(w, http.StatusNotAcceptable, "not_acceptable", err.Error())
		case errors.Is(err, events.ErrNoProtocolConfigured):
			WriteError(w, http.StatusServiceUnavailable, "unconfigured", err.Error())
		default:
			WriteInternalError(w, events.ReasonError, err.Error())
		}
		return
	}
	code := st.Code
	if code < 400 || code > 599 {
		code = http.StatusInternalServerError
	}
	WriteErrorWithDetails(w, code, st.Reason, st.Error(), map[string]string{"protocol": st.Protocol})
}

// WriteNoContent writes a 204 No Content response.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteCreated writes a 201 Created response with the created resource.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, data)
}

// WriteOK writes a 200 OK response with data.
func WriteOK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, data)
}

// WriteBadRequest writes a 400 Bad Request error response.
func WriteBadRequest(w http.ResponseWriter, errCode, message string) {
	WriteError(w, http.StatusBadRequest, errCode, message)
}

// WriteNotFound writes a 404 Not Found error response.
func WriteNotFound(w http.ResponseWriter, errCode, message string) {
	WriteError(w, http.StatusNotFound, errCode, message)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, errCode, message string) {
	WriteError(w, http.StatusInternalServerError, errCode, message)
}
