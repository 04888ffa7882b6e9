package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Envelope actions. Procedures emit SERVICE to request an upstream call;
// responses to callers carry OUTPUT or ERROR.
const (
	ActionOutput  = "OUTPUT"
	ActionError   = "ERROR"
	ActionService = "SERVICE"
)

// Version is the protocol version stamped on every envelope.
const Version = "1.0.0"

const (
	TypeObject = "object"
	TypeString = "string"
)

// NullJSON is an explicit JSON null, used where a field must be present
// but empty (e.g. transaction_data on an unknown unique id).
var NullJSON = json.RawMessage("null")

// PayloadItem is one positional argument for a downstream microservice.
// The index is informational; consumers read the array positionally.
type PayloadItem struct {
	I int `json:"i"`
	V any `json:"v"`
}

// Envelope is the canonical response shape. ServicePayload keeps the exact
// order the backend procedure emitted; it is never re-sorted by index.
type Envelope struct {
	Status          string          `json:"status"`
	Type            string          `json:"type"`
	Message         string          `json:"message"`
	Version         string          `json:"version"`
	Action          string          `json:"action"`
	Command         string          `json:"command"`
	AppName         string          `json:"appName"`
	ServiceURL      string          `json:"serviceurl"`
	ServicePayload  []PayloadItem   `json:"servicepayload,omitempty"`
	TransactionData json.RawMessage `json:"transaction_data,omitempty"`
}

// TransactionData is the stored state a status check projects into the
// envelope.
type TransactionData struct {
	UniqueID        string          `json:"unique_id"`
	Status          string          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	MobileNumber    string          `json:"mobile_number"`
	DeviceID        string          `json:"device_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	RequestPayload  json.RawMessage `json:"request_payload"`
	ResponsePayload json.RawMessage `json:"response_payload"`
}

// ParseEnvelope decodes a procedure result. Unknown keys are ignored; an
// envelope without an action is rejected since the engine cannot route it.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty procedure result")
	}

	var e Envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode procedure result: %w", err)
	}

	if e.Action == "" {
		return nil, fmt.Errorf("procedure result has no action")
	}

	return &e, nil
}

// IsService reports whether the envelope requests an upstream call.
func (e *Envelope) IsService() bool {
	return e.Action == ActionService
}

// Encode marshals the envelope for storage or transport.
func (e *Envelope) Encode() (json.RawMessage, error) {
	return json.Marshal(e)
}

// NewErrorEnvelope builds the envelope surfaced for a failed dispatch.
func NewErrorEnvelope(status, message, command, appName string) *Envelope {
	return &Envelope{
		Status:  status,
		Type:    TypeString,
		Message: message,
		Version: Version,
		Action:  ActionError,
		Command: command,
		AppName: appName,
	}
}
