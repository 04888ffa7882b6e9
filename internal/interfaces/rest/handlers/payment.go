package handlers

import (
	"io"
	"net/http"

	"github.com/aretechltd/mospay/internal/core/domain"
	"github.com/aretechltd/mospay/internal/interfaces/rest"
	"github.com/aretechltd/mospay/internal/interfaces/rest/middleware"
	"github.com/aretechltd/mospay/internal/wire"
)

// ProcessPayment runs the dispatch pipeline for one fixed-field request.
// The response is always a wire envelope; its HTTP status reflects how
// the dispatch ended.
func (h *Handlers) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	client, ok := middleware.ClientFromContext(r.Context())
	if !ok {
		rest.WriteError(w, domain.NewUnauthorizedError("Missing bearer token"))
		return
	}

	req, err := decodePaymentRequest(r)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	env, err := h.dispatch.Dispatch(r.Context(), client, req)
	if env == nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteEnvelope(w, env, err)
}

// PaymentStatus answers the read-only status check for a unique id. The
// request carries the same eleven fields as a payment; only the binding
// lookup and the stored transaction are consulted.
func (h *Handlers) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	client, ok := middleware.ClientFromContext(r.Context())
	if !ok {
		rest.WriteError(w, domain.NewUnauthorizedError("Missing bearer token"))
		return
	}

	req, err := decodePaymentRequest(r)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	env, err := h.dispatch.Status(r.Context(), client, req)
	if env == nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteEnvelope(w, env, err)
}

func decodePaymentRequest(r *http.Request) (*domain.PaymentRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return nil, domain.NewInvalidFieldError("body", err)
	}
	return wire.DecodeRequest(body)
}
