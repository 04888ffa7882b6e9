// Package upstream performs the outbound call to a resolved microservice.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aretechltd/mospay/internal/core/domain"
	"github.com/aretechltd/mospay/internal/core/ports"
	"github.com/aretechltd/mospay/internal/wire"
)

// HTTPClient calls microservices with a bounded timeout and no retries.
type HTTPClient struct {
	httpClient *http.Client
}

var _ ports.UpstreamClient = (*HTTPClient)(nil)

func NewHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Call posts the positional payload to the service URL. A non-2xx answer
// is returned as a domain.UpstreamError preserving status and body; any
// transport failure comes back as a plain error.
func (c *HTTPClient) Call(ctx context.Context, url string, payload []wire.PayloadItem) (*ports.UpstreamResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshalling payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       respBody,
		}
	}

	return &ports.UpstreamResponse{
		StatusCode: resp.StatusCode,
		Body:       jsonBody(resp.Header.Get("Content-Type"), respBody),
	}, nil
}

// jsonBody keeps a JSON answer as-is and wraps anything else as a JSON
// string so response procedures always receive valid JSON.
func jsonBody(contentType string, body []byte) json.RawMessage {
	if strings.HasPrefix(contentType, "application/json") && json.Valid(body) {
		return body
	}

	wrapped, err := json.Marshal(string(body))
	if err != nil {
		return wire.NullJSON
	}
	return wrapped
}
