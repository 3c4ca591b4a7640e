// Package respond writes JSON bodies and maps domain errors to HTTP status
// codes for the API handlers.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kilianp07/dronecoord/core/assignment"
	"github.com/kilianp07/dronecoord/core/model"
)

// ErrorBody is the envelope of every error response.
type ErrorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// JSON encodes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusFor maps the error taxonomy to a status code. A store outage wins
// over the commit failure wrapping it.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, model.ErrNoSuitableCandidate), errors.Is(err, model.ErrCommitFailed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err with the status from StatusFor. Assignment failures
// carry their reason code.
func Error(w http.ResponseWriter, err error) {
	body := ErrorBody{Error: err.Error()}
	var aerr *assignment.Error
	if errors.As(err, &aerr) {
		body.Reason = string(aerr.Reason)
	}
	JSON(w, StatusFor(err), body)
}

// BadRequest writes a 400 with msg.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, ErrorBody{Error: msg})
}
