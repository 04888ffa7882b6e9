package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aretechltd/mospay/internal/core/domain"
	"github.com/aretechltd/mospay/internal/core/ports"
)

const transactionColumns = `id, unique_id, client_id, binding_id, status, amount::text,
       mobile_number, device_id, request_payload, response_payload, failure_kind,
       created_at, updated_at`

// TransactionLedger persists the transaction state machine. Every status
// change is a conditional update on the current status, so two workers can
// never both win the same transition.
type TransactionLedger struct {
	db *pgxpool.Pool
}

func NewTransactionLedger(db *pgxpool.Pool) *TransactionLedger {
	return &TransactionLedger{db: db}
}

// CreateIfAbsent inserts the transaction unless its uniqueId is already
// taken. It returns the row that holds the uniqueId after the call and
// whether this call created it. Concurrent first dispatches resolve through
// the unique index: exactly one caller sees created=true.
func (r *TransactionLedger) CreateIfAbsent(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, bool, error) {
	query := `
		INSERT INTO transactions (
			id, unique_id, client_id, binding_id, status, amount,
			mobile_number, device_id, request_payload
		) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9)
		ON CONFLICT (unique_id) DO NOTHING
	`
	id := txn.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	tag, err := r.db.Exec(ctx, query,
		id,
		txn.UniqueID,
		txn.ClientID,
		txn.BindingID,
		string(txn.Status),
		txn.Amount.String(),
		txn.MobileNumber,
		txn.DeviceID,
		txn.RequestPayload,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert transaction: %w", err)
	}
	created := tag.RowsAffected() == 1

	stored, err := r.Get(ctx, txn.UniqueID)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

// Advance moves the transaction from one status to another in a single
// conditional update. When the row is no longer in the expected status the
// swap fails and the caller learns the actual status through the error.
func (r *TransactionLedger) Advance(ctx context.Context, uniqueID string, from, to domain.TransactionStatus, update domain.TransactionUpdate) (*domain.Transaction, error) {
	query := `
		UPDATE transactions
		SET status = $3,
		    response_payload = COALESCE($4, response_payload),
		    failure_kind = COALESCE($5, failure_kind),
		    updated_at = now()
		WHERE unique_id = $1 AND status = $2
		RETURNING ` + transactionColumns

	var failureKind *string
	if update.FailureKind != nil {
		s := string(*update.FailureKind)
		failureKind = &s
	}
	var payload []byte
	if update.ResponsePayload != nil {
		payload = update.ResponsePayload
	}

	txn, err := scanTransaction(r.db.QueryRow(ctx, query, uniqueID, string(from), string(to), payload, failureKind))
	if err == nil {
		return txn, nil
	}
	if !errors.Is(err, ports.ErrTransactionNotFound) {
		return nil, err
	}

	// The swap matched nothing: either the row is gone or someone else
	// moved it first. Re-read to report which.
	current, getErr := r.Get(ctx, uniqueID)
	if getErr != nil {
		return nil, getErr
	}
	return nil, domain.NewInvalidTransitionError(current.Status, to)
}

func (r *TransactionLedger) Get(ctx context.Context, uniqueID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE unique_id = $1`
	return scanTransaction(r.db.QueryRow(ctx, query, uniqueID))
}

func (r *TransactionLedger) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*domain.Transaction, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE client_id = $1`, clientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, clientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query transactions by client: %w", err)
	}
	results, err := pgx.CollectRows(rows, collectTransaction)
	if err != nil {
		return nil, 0, fmt.Errorf("scan transactions: %w", err)
	}
	return results, total, nil
}

// FindStale returns non-terminal transactions that have not moved since the
// cutoff, oldest first. The reaper uses this to sweep up work whose process
// died mid-pipeline.
func (r *TransactionLedger) FindStale(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE status NOT IN ($1, $2)
		  AND updated_at < $3
		ORDER BY updated_at ASC
		LIMIT $4
	`
	rows, err := r.db.Query(ctx, query,
		string(domain.StatusCompleted),
		string(domain.StatusFailed),
		cutoff,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query stale transactions: %w", err)
	}
	results, err := pgx.CollectRows(rows, collectTransaction)
	if err != nil {
		return nil, fmt.Errorf("scan stale transactions: %w", err)
	}
	return results, nil
}

func collectTransaction(row pgx.CollectableRow) (*domain.Transaction, error) {
	return scanTransaction(row)
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var m transactionModel
	err := row.Scan(
		&m.ID, &m.UniqueID, &m.ClientID, &m.BindingID, &m.Status, &m.Amount,
		&m.MobileNumber, &m.DeviceID, &m.RequestPayload, &m.ResponsePayload, &m.FailureKind,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return transactionToDomain(m)
}
