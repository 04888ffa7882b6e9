package ports

import (
	"context"
	"encoding/json"

	"github.com/aretechltd/mospay/internal/wire"
)

// UpstreamResponse is what a microservice answered: the HTTP status and
// the raw body, left opaque for the response procedure to normalize.
type UpstreamResponse struct {
	StatusCode int
	Body       json.RawMessage
}

// UpstreamClient performs the outbound call to a resolved microservice.
// Implementations apply a bounded timeout and never retry; retry policy
// lives with the caller via the idempotency key.
type UpstreamClient interface {
	Call(ctx context.Context, url string, payload []wire.PayloadItem) (*UpstreamResponse, error)
}
