// Package wire implements the fixed-field request protocol and the
// canonical response envelope shared by backend procedures and the
// gateway surface.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aretechltd/mospay/internal/core/domain"
	"github.com/shopspring/decimal"
)

// Field keys of the fixed-field payment protocol.
const (
	FieldMicroserviceName  = "f000"
	FieldServiceName       = "f001"
	FieldRoute             = "f002"
	FieldAppID             = "f003"
	FieldAmount            = "f004"
	FieldMobileNumber      = "f005"
	FieldUsername          = "f006"
	FieldEncryptedPassword = "f007"
	FieldPassword          = "f008"
	FieldDeviceID          = "f009"
	FieldUniqueID          = "f010"
)

// RequiredFields lists every wire field in canonical key order. Validation
// walks this order so the first missing key is the one reported.
var RequiredFields = []string{
	FieldMicroserviceName,
	FieldServiceName,
	FieldRoute,
	FieldAppID,
	FieldAmount,
	FieldMobileNumber,
	FieldUsername,
	FieldEncryptedPassword,
	FieldPassword,
	FieldDeviceID,
	FieldUniqueID,
}

// DecodeRequest validates and decodes a raw request body into a typed
// PaymentRequest. All eleven fields must be present; the first missing or
// malformed field in key order is named in the returned error.
func DecodeRequest(raw []byte) (*domain.PaymentRequest, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, domain.NewInvalidFieldError("body", err)
	}

	values := make(map[string]string, len(RequiredFields))
	for _, key := range RequiredFields {
		v, ok := fields[key]
		if !ok {
			return nil, domain.NewMissingFieldError(key)
		}
		s, err := stringValue(v)
		if err != nil {
			return nil, domain.NewInvalidFieldError(key, err)
		}
		values[key] = s
	}

	amount, err := decimal.NewFromString(values[FieldAmount])
	if err != nil {
		return nil, domain.NewInvalidFieldError(FieldAmount, err)
	}
	if amount.IsNegative() {
		return nil, domain.NewInvalidFieldError(FieldAmount, fmt.Errorf("amount must not be negative"))
	}

	if values[FieldUniqueID] == "" {
		return nil, domain.NewInvalidFieldError(FieldUniqueID, fmt.Errorf("unique id must not be empty"))
	}

	return &domain.PaymentRequest{
		MicroserviceName:  values[FieldMicroserviceName],
		ServiceName:       values[FieldServiceName],
		Route:             values[FieldRoute],
		AppID:             values[FieldAppID],
		Amount:            amount,
		MobileNumber:      values[FieldMobileNumber],
		Username:          values[FieldUsername],
		EncryptedPassword: values[FieldEncryptedPassword],
		Password:          values[FieldPassword],
		DeviceID:          values[FieldDeviceID],
		UniqueID:          values[FieldUniqueID],
	}, nil
}

// stringValue coerces a decoded JSON value into its string form. Strings
// pass through, numbers keep their literal representation, anything else
// is rejected.
func stringValue(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	default:
		return "", fmt.Errorf("expected string or number, got %T", v)
	}
}

// EncodeRequest re-encodes a decoded request into its canonical wire form.
// This is what gets stored on the transaction and handed to backend
// procedures, so only the eleven validated fields ever travel onward.
func EncodeRequest(req *domain.PaymentRequest) (json.RawMessage, error) {
	fields := map[string]string{
		FieldMicroserviceName:  req.MicroserviceName,
		FieldServiceName:       req.ServiceName,
		FieldRoute:             req.Route,
		FieldAppID:             req.AppID,
		FieldAmount:            req.Amount.String(),
		FieldMobileNumber:      req.MobileNumber,
		FieldUsername:          req.Username,
		FieldEncryptedPassword: req.EncryptedPassword,
		FieldPassword:          req.Password,
		FieldDeviceID:          req.DeviceID,
		FieldUniqueID:          req.UniqueID,
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode request fields: %w", err)
	}
	return raw, nil
}
