package rest

import (
	"encoding/json"
	"net/http"

	"github.com/aretechltd/mospay/internal/wire"
)

// WriteJSON writes v as the JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteEnvelope writes a dispatch result. The envelope body always goes
// out; the HTTP status reflects how the dispatch ended, so a settled
// failure carries both the error envelope and its mapped status code.
func WriteEnvelope(w http.ResponseWriter, env *wire.Envelope, err error) {
	status := http.StatusOK
	if err != nil {
		status = StatusCode(err)
	}
	WriteJSON(w, status, env)
}
