package postgres

import (
	"time"

	"github.com/google/uuid"
)

// Row models mirror the table layouts. Amounts travel as text so the
// NUMERIC column round-trips through decimal without precision loss.

type clientModel struct {
	ID              uuid.UUID
	AppID           string
	CompanyName     string
	ContactPerson   string
	Email           string
	Phone           string
	Address         string
	APIUsername     string
	APIPasswordHash string
	CallbackURL     *string
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type serviceModel struct {
	ID          uuid.UUID
	Name        string
	DisplayName string
	Description string
	ServiceURL  string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type bindingModel struct {
	ID          uuid.UUID
	ClientID    uuid.UUID
	ServiceID   uuid.UUID
	AppID       string
	ServiceName string
	Route       string
	EntityName  string
	Country     string
	ServiceURL  string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type procedureModel struct {
	ID        uuid.UUID
	BindingID uuid.UUID
	Variant   string
	Kind      string
	Handle    string
	Source    string
	CreatedAt time.Time
}

type transactionModel struct {
	ID              uuid.UUID
	UniqueID        string
	ClientID        uuid.UUID
	BindingID       uuid.UUID
	Status          string
	Amount          string
	MobileNumber    string
	DeviceID        *string
	RequestPayload  []byte
	ResponsePayload []byte
	FailureKind     *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
