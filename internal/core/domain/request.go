package domain

import "github.com/shopspring/decimal"

// PaymentRequest is the decoded fixed-field payload. All eleven fields are
// required on the wire; UniqueID doubles as the idempotency key.
type PaymentRequest struct {
	MicroserviceName  string
	ServiceName       string
	Route             string
	AppID             string
	Amount            decimal.Decimal
	MobileNumber      string
	Username          string
	EncryptedPassword string
	Password          string
	DeviceID          string
	UniqueID          string
}
