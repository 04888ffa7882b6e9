package ports

import (
	"context"
	"errors"
	"time"

	"github.com/aretechltd/mospay/internal/core/domain"
	"github.com/google/uuid"
)

// Sentinel errors shared by every repository implementation. Services
// translate them into the API error taxonomy.
var (
	ErrClientNotFound      = errors.New("client not found")
	ErrServiceNotFound     = errors.New("service not found")
	ErrBindingNotFound     = errors.New("binding not found")
	ErrProcedureNotFound   = errors.New("procedure not found")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// ClientRepository reads onboarded API clients. The admin portal owns the
// rows; the gateway never mutates them.
type ClientRepository interface {
	FindByAppID(ctx context.Context, appID string) (*domain.Client, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Client, error)
}

// BindingRepository resolves services, access grants, route bindings and
// their registered procedure handles.
type BindingRepository interface {
	FindActiveService(ctx context.Context, name string) (*domain.Service, error)
	HasActiveGrant(ctx context.Context, clientID, serviceID uuid.UUID) (bool, error)
	GrantedServices(ctx context.Context, clientID uuid.UUID) ([]*domain.Service, error)
	FindActiveBinding(ctx context.Context, clientID, serviceID uuid.UUID, route string) (*domain.ServiceBinding, error)
	FindProcedure(ctx context.Context, bindingID uuid.UUID, variant domain.ProcedureVariant) (*domain.ProcedureBinding, error)
}

// TransactionLedger is the single shared mutable resource of the pipeline.
// Every write is a compare-and-set on the current status so concurrent
// dispatches for the same unique id serialize safely.
type TransactionLedger interface {
	// CreateIfAbsent inserts the transaction keyed by its unique id, or
	// returns the existing record. The boolean reports whether a new row
	// was created.
	CreateIfAbsent(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, bool, error)

	// Advance moves the transaction from one status to another, applying
	// the update atomically. A current-status mismatch returns a conflict
	// error and leaves the record untouched.
	Advance(ctx context.Context, uniqueID string, from, to domain.TransactionStatus, update domain.TransactionUpdate) (*domain.Transaction, error)

	Get(ctx context.Context, uniqueID string) (*domain.Transaction, error)
	ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*domain.Transaction, int, error)

	// FindStale returns non-terminal transactions untouched since the
	// cutoff, oldest first.
	FindStale(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Transaction, error)
}

// AuditRepository appends API call records.
type AuditRepository interface {
	Record(ctx context.Context, entry *domain.APILog) error
}
