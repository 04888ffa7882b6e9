package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretechltd/mospay/internal/core/domain"
	"github.com/aretechltd/mospay/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall_Success(t *testing.T) {
	var gotBody []wire.PayloadItem
	var gotContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		err := json.NewDecoder(r.Body).Decode(&gotBody)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"SUCCESS","reference":"MOMO-123"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(5 * time.Second)
	payload := []wire.PayloadItem{
		{I: 0, V: "TXN-001"},
		{I: 1, V: "1500.00"},
	}

	resp, err := client.Call(context.Background(), server.URL, payload)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"SUCCESS","reference":"MOMO-123"}`, string(resp.Body))
	assert.Equal(t, "application/json", gotContentType)
	require.Len(t, gotBody, 2)
	assert.Equal(t, 0, gotBody[0].I)
	assert.Equal(t, "TXN-001", gotBody[0].V)
}

func TestCall_RejectedStatusPreservesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"insufficient funds"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(5 * time.Second)

	resp, err := client.Call(context.Background(), server.URL, nil)

	require.Error(t, err)
	assert.Nil(t, resp)

	var upErr *domain.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusUnprocessableEntity, upErr.StatusCode)
	assert.Equal(t, `{"error":"insufficient funds"}`, string(upErr.Body))
}

func TestCall_NonJSONBodyWrappedAsString(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("OK"))
	}))
	defer server.Close()

	client := NewHTTPClient(5 * time.Second)

	resp, err := client.Call(context.Background(), server.URL, nil)

	require.NoError(t, err)
	assert.Equal(t, `"OK"`, string(resp.Body))
}

func TestCall_ContextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	resp, err := client.Call(ctx, server.URL, nil)

	require.Error(t, err)
	assert.Nil(t, resp)
	_, isUpstream := domain.IsUpstreamError(err)
	assert.False(t, isUpstream)
}

func TestCall_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewHTTPClient(1 * time.Second)

	resp, err := client.Call(context.Background(), server.URL, nil)

	require.Error(t, err)
	assert.Nil(t, resp)
	_, isUpstream := domain.IsUpstreamError(err)
	assert.False(t, isUpstream)
}
