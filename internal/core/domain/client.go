package domain

import (
	"time"

	"github.com/google/uuid"
)

// Client is an onboarded API consumer. The admin portal owns the record;
// the gateway only reads it to authenticate requests and scope lookups.
type Client struct {
	ID            uuid.UUID
	AppID         string
	CompanyName   string
	ContactPerson string
	Email         string
	Phone         string
	Address       string

	APIUsername     string
	APIPasswordHash string
	CallbackURL     *string
	IsActive        bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// APILog is one audit row per API call. Writing it must never fail the
// request it describes.
type APILog struct {
	ID           uuid.UUID
	ClientID     *uuid.UUID
	Endpoint     string
	Method       string
	RequestData  []byte
	ResponseData []byte
	StatusCode   int
	IPAddress    string
	UserAgent    string
	CreatedAt    time.Time
}
