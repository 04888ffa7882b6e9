package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretechltd/mospay/internal/core/domain"
)

type mockAuditRepository struct {
	entries  []*domain.APILog
	RecordFn func(ctx context.Context, entry *domain.APILog) error
}

func (m *mockAuditRepository) Record(ctx context.Context, entry *domain.APILog) error {
	if m.RecordFn != nil {
		return m.RecordFn(ctx, entry)
	}
	m.entries = append(m.entries, entry)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAudit_RecordsRequestAndResponse(t *testing.T) {
	// Setup
	repo := &mockAuditRepository{}
	handler := Audit(repo, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/process", strings.NewReader(`{"f010":"uniq-1"}`))
	req.Header.Set("User-Agent", "mospay-test/1.0")
	rr := httptest.NewRecorder()

	// Action
	handler.ServeHTTP(rr, req)

	// Assert
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 audit row, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.Endpoint != "/api/v1/payment/process" || entry.Method != http.MethodPost {
		t.Errorf("unexpected endpoint %s %s", entry.Method, entry.Endpoint)
	}
	if entry.StatusCode != http.StatusCreated {
		t.Errorf("unexpected status %d", entry.StatusCode)
	}
	if !bytes.Contains(entry.RequestData, []byte("uniq-1")) {
		t.Errorf("request body not captured: %s", entry.RequestData)
	}
	if !bytes.Contains(entry.ResponseData, []byte(`"ok":true`)) {
		t.Errorf("response body not captured: %s", entry.ResponseData)
	}
	if entry.UserAgent != "mospay-test/1.0" {
		t.Errorf("unexpected user agent %s", entry.UserAgent)
	}
}

func TestAudit_HandlerStillSeesFullBody(t *testing.T) {
	// The middleware reads the body first; the handler must get every byte.
	repo := &mockAuditRepository{}
	var seen []byte
	handler := Audit(repo, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))

	body := strings.Repeat("x", maxAuditBody+500)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/process", strings.NewReader(body))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if len(seen) != len(body) {
		t.Fatalf("handler saw %d bytes, want %d", len(seen), len(body))
	}
}

func TestAudit_RecordFailureDoesNotFailRequest(t *testing.T) {
	repo := &mockAuditRepository{
		RecordFn: func(ctx context.Context, entry *domain.APILog) error {
			return errors.New("database down")
		},
	}
	handler := Audit(repo, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/client/profile", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("audit failure must not fail the request, got %d", rr.Code)
	}
}

func TestAuditJSON_RedactsCredentialFields(t *testing.T) {
	raw := []byte(`{"f006":"momouser","f007":"enc-secret","f008":"plain-secret","f010":"uniq-1"}`)

	out := auditJSON(raw)

	var fields map[string]string
	if err := json.Unmarshal(out, &fields); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if fields["f007"] != "***" || fields["f008"] != "***" {
		t.Errorf("credentials not redacted: %v", fields)
	}
	if fields["f006"] != "momouser" || fields["f010"] != "uniq-1" {
		t.Errorf("non-sensitive fields must survive: %v", fields)
	}
}

func TestAuditJSON_WrapsNonJSONBody(t *testing.T) {
	out := auditJSON([]byte("plain text, not json"))

	var s string
	if err := json.Unmarshal(out, &s); err != nil {
		t.Fatalf("expected a JSON string, got %s", out)
	}
	if s != "plain text, not json" {
		t.Errorf("unexpected value %q", s)
	}
}

func TestAuditJSON_TruncatesOversizeBody(t *testing.T) {
	out := auditJSON([]byte(strings.Repeat("a", maxAuditBody*2)))

	var s string
	if err := json.Unmarshal(out, &s); err != nil {
		t.Fatalf("expected a JSON string, got truncation artifact: %v", err)
	}
	if len(s) != maxAuditBody {
		t.Errorf("expected %d bytes after truncation, got %d", maxAuditBody, len(s))
	}
}

func TestAuditJSON_EmptyBodyIsNull(t *testing.T) {
	if string(auditJSON(nil)) != "null" {
		t.Errorf("expected null, got %s", auditJSON(nil))
	}
}
