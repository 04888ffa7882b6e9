// Package domain defines the core types of the payment aggregation pipeline.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus represents the current state of a transaction in the
// dispatch pipeline.
type TransactionStatus string

const (
	StatusReceived           TransactionStatus = "RECEIVED"
	StatusProcedureResolved  TransactionStatus = "PROCEDURE_RESOLVED"
	StatusMicroserviceCalled TransactionStatus = "MICROSERVICE_CALLED"
	StatusResponseNormalized TransactionStatus = "RESPONSE_NORMALIZED"
	StatusCompleted          TransactionStatus = "COMPLETED"
	StatusFailed             TransactionStatus = "FAILED"
)

// Transaction records one payment attempt, keyed by the caller-supplied
// unique id. It is created at first sight of a unique id and only the
// dispatch pipeline mutates it until it reaches a terminal state.
type Transaction struct {
	ID        uuid.UUID
	UniqueID  string
	ClientID  uuid.UUID
	BindingID uuid.UUID

	Status       TransactionStatus
	Amount       decimal.Decimal
	MobileNumber string
	DeviceID     string

	RequestPayload  json.RawMessage
	ResponsePayload json.RawMessage
	FailureKind     *ErrorKind

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TransactionUpdate carries the fields a status transition may set.
type TransactionUpdate struct {
	ResponsePayload json.RawMessage
	FailureKind     *ErrorKind
}

// CanTransitionTo validates whether a transaction can move from its current
// status to the target status. It returns nil if the transition is allowed,
// otherwise an error describing why it is invalid.
//
// Terminal states (Completed, Failed) do not allow any further transitions.
//
// Valid transitions are:
//   - Received → ProcedureResolved, Failed
//   - ProcedureResolved → MicroserviceCalled, Completed, Failed
//   - MicroserviceCalled → ResponseNormalized, Failed
//   - ResponseNormalized → Completed, Failed
//
// ProcedureResolved → Completed covers procedures that answer directly
// without requesting an upstream call.
func (t *Transaction) CanTransitionTo(target TransactionStatus) error {
	switch t.Status {
	case StatusCompleted, StatusFailed:
		return NewInvalidTransitionError(t.Status, target)

	case StatusReceived:
		if target == StatusProcedureResolved || target == StatusFailed {
			return nil
		}

	case StatusProcedureResolved:
		if target == StatusMicroserviceCalled || target == StatusCompleted || target == StatusFailed {
			return nil
		}

	case StatusMicroserviceCalled:
		if target == StatusResponseNormalized || target == StatusFailed {
			return nil
		}

	case StatusResponseNormalized:
		if target == StatusCompleted || target == StatusFailed {
			return nil
		}
	}
	return NewInvalidTransitionError(t.Status, target)
}

func (t *Transaction) IsTerminal() bool {
	switch t.Status {
	case StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}
