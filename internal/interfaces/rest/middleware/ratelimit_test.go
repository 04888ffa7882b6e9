package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiter_LimitsPerCaller(t *testing.T) {
	// Setup: one request per second, no burst headroom.
	rl := NewRateLimiter(1, 1, discardLogger())
	handler := rl.Middleware(okHandler())

	request := func(appID string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/process", nil)
		req.Header.Set("X-App-ID", appID)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	// Action + Assert
	if code := request("mos1000"); code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", code)
	}
	if code := request("mos1000"); code != http.StatusTooManyRequests {
		t.Fatalf("second request should be limited, got %d", code)
	}

	// A different caller has its own bucket.
	if code := request("mos2000"); code != http.StatusOK {
		t.Fatalf("other caller should pass, got %d", code)
	}
}

func TestRateLimiter_FallsBackToRemoteIP(t *testing.T) {
	rl := NewRateLimiter(1, 1, discardLogger())
	handler := rl.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request from same IP should be limited, got %d", rr.Code)
	}
}

func TestRateLimiter_CleanupDropsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 1, discardLogger())
	rl.allow("app:mos1000")
	rl.allow("app:mos2000")

	// Age the buckets past any cutoff.
	rl.mu.Lock()
	for _, b := range rl.buckets {
		b.lastSeen = time.Now().Add(-time.Hour)
	}
	rl.mu.Unlock()

	rl.cleanup(time.Minute)

	rl.mu.Lock()
	remaining := len(rl.buckets)
	rl.mu.Unlock()
	if remaining != 0 {
		t.Errorf("expected all idle buckets dropped, %d remain", remaining)
	}
}
