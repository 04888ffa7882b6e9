// Package handlers implements the gateway's HTTP endpoints.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/aretechltd/mospay/internal/core/ports"
	"github.com/aretechltd/mospay/internal/core/service"
	"github.com/aretechltd/mospay/internal/interfaces/rest/middleware"
	"github.com/aretechltd/mospay/internal/metrics"
)

// maxRequestBody caps payment request bodies. The eleven wire fields fit
// in well under a kilobyte; anything near this limit is garbage.
const maxRequestBody = 1 << 20

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers carries the services the endpoints delegate to.
type Handlers struct {
	identity *service.IdentityService
	dispatch *service.DispatchService
	queries  *service.ClientQueryService
	pinger   Pinger
	logger   *slog.Logger
}

func NewHandlers(
	identity *service.IdentityService,
	dispatch *service.DispatchService,
	queries *service.ClientQueryService,
	pinger Pinger,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		identity: identity,
		dispatch: dispatch,
		queries:  queries,
		pinger:   pinger,
		logger:   logger,
	}
}

// Router assembles the route table. Health and metrics stay unversioned
// and unauthenticated; everything under /api/v1 is rate limited and
// audited, and everything past /auth/token requires a client token.
func (h *Handlers) Router(audit ports.AuditRepository, limiter *middleware.RateLimiter) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	if limiter != nil {
		api.Use(limiter.Middleware)
	}

	auditRequests := middleware.Audit(audit, h.logger)
	api.Handle("/auth/token", auditRequests(http.HandlerFunc(h.IssueToken))).Methods(http.MethodPost)

	protected := api.PathPrefix("/").Subrouter()
	protected.Use(middleware.Auth(h.identity))
	protected.Use(auditRequests)
	protected.HandleFunc("/payment/process", h.ProcessPayment).Methods(http.MethodPost)
	protected.HandleFunc("/payment/status", h.PaymentStatus).Methods(http.MethodPost)
	protected.HandleFunc("/client/services", h.ClientServices).Methods(http.MethodGet)
	protected.HandleFunc("/client/profile", h.ClientProfile).Methods(http.MethodGet)
	protected.HandleFunc("/transactions", h.Transactions).Methods(http.MethodGet)

	return r
}
