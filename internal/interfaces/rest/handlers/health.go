package handlers

import (
	"net/http"

	"github.com/aretechltd/mospay/internal/interfaces/rest"
	"github.com/aretechltd/mospay/internal/wire"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// Health reports liveness and whether the store answers a ping.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "healthy",
		Service:  "MosPay",
		Version:  wire.Version,
		Database: "connected",
	}
	code := http.StatusOK

	if err := h.pinger.Ping(r.Context()); err != nil {
		h.logger.Warn("health check: database unreachable", "error", err)
		resp.Status = "unhealthy"
		resp.Database = "disconnected"
		code = http.StatusServiceUnavailable
	}

	rest.WriteJSON(w, code, resp)
}
