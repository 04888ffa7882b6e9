// Package rest holds the shared plumbing of the HTTP surface: error
// mapping, JSON writers and the envelope writer used by the payment
// endpoints.
package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/aretechltd/mospay/internal/core/domain"
)

// ErrorResponse is the JSON error body of the REST endpoints. Payment
// endpoints answer with the wire envelope instead, so this shape only
// appears on auth, client queries and transport-level failures.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// StatusCode maps an error to its HTTP status. Anything that is not a
// classified domain error is an internal fault.
func StatusCode(err error) int {
	var derr *domain.Error
	if errors.As(err, &derr) {
		return derr.Kind.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// WriteError writes the JSON error body for err. Unclassified errors get a
// generic message so internals never reach the caller.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusCode(err)

	message := "Internal server error"
	var derr *domain.Error
	if errors.As(err, &derr) {
		message = derr.Message
	}

	WriteJSON(w, status, ErrorResponse{
		Status:  strconv.Itoa(status),
		Message: message,
	})
}
