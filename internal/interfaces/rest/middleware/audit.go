package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/aretechltd/mospay/internal/core/domain"
	"github.com/aretechltd/mospay/internal/core/ports"
	"github.com/aretechltd/mospay/internal/wire"
)

// maxAuditBody caps how much of a request or response body lands in the
// audit row.
const maxAuditBody = 4096

// Audit appends one api_logs row per request. Recording is best effort: a
// failed write is logged and never fails the request it describes. Runs
// after Auth so the row carries the resolved client when there is one.
func Audit(repo ports.AuditRepository, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var reqBody []byte
			if r.Body != nil {
				reqBody, _ = io.ReadAll(io.LimitReader(r.Body, maxAuditBody+1))
				r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(reqBody), r.Body))
			}

			rec := &auditWriter{statusWriter: statusWriter{ResponseWriter: w, status: http.StatusOK}}
			next.ServeHTTP(rec, r)

			entry := &domain.APILog{
				Endpoint:     r.URL.Path,
				Method:       r.Method,
				RequestData:  auditJSON(reqBody),
				ResponseData: auditJSON(rec.body.Bytes()),
				StatusCode:   rec.status,
				IPAddress:    remoteIP(r),
				UserAgent:    r.UserAgent(),
			}
			if client, ok := ClientFromContext(r.Context()); ok {
				id := client.ID
				entry.ClientID = &id
			}

			// The row must survive a caller that disconnected mid-request.
			if err := repo.Record(context.WithoutCancel(r.Context()), entry); err != nil {
				logger.Warn("audit record failed",
					"endpoint", entry.Endpoint,
					"method", entry.Method,
					"error", err,
				)
			}
		})
	}
}

// auditWriter captures the response body alongside the status code.
type auditWriter struct {
	statusWriter
	body bytes.Buffer
}

func (w *auditWriter) Write(b []byte) (int, error) {
	if remaining := maxAuditBody - w.body.Len(); remaining > 0 {
		if len(b) <= remaining {
			w.body.Write(b)
		} else {
			w.body.Write(b[:remaining])
		}
	}
	return w.statusWriter.Write(b)
}

// auditJSON shapes captured bytes into a JSON value fit for a jsonb
// column. Credential fields are cleared, non-JSON bodies are stored as a
// truncated string, empty bodies as null.
func auditJSON(raw []byte) []byte {
	if len(raw) == 0 {
		return wire.NullJSON
	}

	if len(raw) <= maxAuditBody && json.Valid(raw) {
		return redactCredentials(raw)
	}

	if len(raw) > maxAuditBody {
		raw = raw[:maxAuditBody]
	}
	wrapped, err := json.Marshal(string(raw))
	if err != nil {
		return wire.NullJSON
	}
	return wrapped
}

// redactCredentials blanks the password-bearing wire fields before the
// body is written to storage.
func redactCredentials(raw []byte) []byte {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return raw
	}

	redacted := false
	for _, key := range []string{wire.FieldEncryptedPassword, wire.FieldPassword} {
		if _, ok := fields[key]; ok {
			fields[key] = json.RawMessage(`"***"`)
			redacted = true
		}
	}
	if !redacted {
		return raw
	}

	out, err := json.Marshal(fields)
	if err != nil {
		return raw
	}
	return out
}
