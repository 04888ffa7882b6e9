package ports

import (
	"context"
	"encoding/json"

	"github.com/aretechltd/mospay/internal/core/domain"
)

// Invocation carries the inputs of one procedure call. Forward and status
// procedures receive the unique id and request payload; response
// procedures additionally receive what the upstream returned.
type Invocation struct {
	UniqueID string
	Payload  json.RawMessage

	// Set only for response-variant invocations.
	UpstreamStatus *int
	UpstreamBody   json.RawMessage
}

// ProcedureAdapter executes a pre-registered procedure handle and returns
// its raw JSON result. Implementations treat the call as an opaque RPC:
// the handle was validated at registration time and no request string is
// ever assembled into executable text.
type ProcedureAdapter interface {
	Invoke(ctx context.Context, handle *domain.ProcedureBinding, inv Invocation) (json.RawMessage, error)
}

// AdapterRegistry selects the adapter for a procedure kind.
type AdapterRegistry map[domain.ProcedureKind]ProcedureAdapter

// For returns the adapter registered for the kind, or nil.
func (r AdapterRegistry) For(kind domain.ProcedureKind) ProcedureAdapter {
	return r[kind]
}
