package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"gitlab.com/judge-relay.net/internal/static/errs"
)

type ErrorMessage struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

func WriteError(w http.ResponseWriter, err ErrorMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	_ = json.NewEncoder(w).Encode(err)
}

func WriteSuccess(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, data)
}

func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// StatusOf maps a service error to its HTTP status code
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrUnknownVerdict):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errs.IsNotFound(err), errors.Is(err, errs.ErrMalformedJobID):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// FromError writes err with its mapped status. Internal failures are not
// described to the client.
func FromError(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = errs.InternalError.Error()
	}
	WriteError(w, ErrorMessage{Message: msg, StatusCode: status})
}
