package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aretechltd/mospay/internal/core/domain"
	"github.com/aretechltd/mospay/internal/core/ports"
	"github.com/aretechltd/mospay/internal/infrastructure/persistence"
	"github.com/aretechltd/mospay/internal/procedure"
)

// Adapter invokes registered PostgreSQL functions. Forward procedures take
// (unique_id, request json); response procedures additionally receive the
// upstream status code and body. Both return the envelope as json.
//
// The handle is quoted through pgx's identifier sanitizer and re-screened
// before use; request strings never reach this layer.
type Adapter struct {
	db *pgxpool.Pool
}

func NewAdapter(db *pgxpool.Pool) *Adapter {
	return &Adapter{db: db}
}

func (a *Adapter) Invoke(ctx context.Context, proc *domain.ProcedureBinding, inv ports.Invocation) (json.RawMessage, error) {
	if !procedure.ValidHandle(proc.Handle) {
		return nil, fmt.Errorf("procedure handle %q fails validation", proc.Handle)
	}
	ident := pgx.Identifier{proc.Handle}.Sanitize()

	payload := inv.Payload
	if len(payload) == 0 {
		payload = []byte("null")
	}

	var raw []byte
	var err error
	if inv.UpstreamStatus != nil {
		body := inv.UpstreamBody
		if len(body) == 0 {
			body = []byte("null")
		}
		query := fmt.Sprintf(`SELECT %s($1::text, $2::json, $3::int, $4::json)`, ident)
		err = a.db.QueryRow(ctx, query, inv.UniqueID, string(payload), *inv.UpstreamStatus, string(body)).Scan(&raw)
	} else {
		query := fmt.Sprintf(`SELECT %s($1::text, $2::json)`, ident)
		err = a.db.QueryRow(ctx, query, inv.UniqueID, string(payload)).Scan(&raw)
	}
	if err != nil {
		if persistence.IsUndefinedFunction(err) {
			return nil, fmt.Errorf("procedure %s is not installed", proc.Handle)
		}
		return nil, fmt.Errorf("invoke %s: %w", proc.Handle, err)
	}
	return raw, nil
}

var _ ports.ProcedureAdapter = (*Adapter)(nil)
