package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretechltd/mospay/internal/core/domain"
	"github.com/aretechltd/mospay/internal/core/ports"
	"github.com/aretechltd/mospay/internal/procedure"
	"github.com/aretechltd/mospay/internal/wire"
)

// Status answers a status-check request by projecting the stored transaction
// into an envelope. It is a pure read: no procedure or microservice is ever
// invoked, so it is safe to poll. The command is the route with the Status
// suffix so callers can correlate it with the dispatch that created the
// transaction.
func (s *DispatchService) Status(ctx context.Context, client *domain.Client, req *domain.PaymentRequest) (*wire.Envelope, error) {
	_, svc, binding, err := s.resolveBinding(ctx, client, req)
	if err != nil {
		return nil, err
	}
	command := req.Route + procedure.StatusSuffix

	txn, err := s.ledger.Get(ctx, req.UniqueID)
	if err != nil {
		if errors.Is(err, ports.ErrTransactionNotFound) {
			return statusNotFound(client, svc, binding, command), nil
		}
		return nil, fmt.Errorf("load transaction: %w", err)
	}
	// Another client's transaction is indistinguishable from a missing one.
	if txn.ClientID != client.ID {
		return statusNotFound(client, svc, binding, command), nil
	}

	data, err := json.Marshal(wire.TransactionData{
		UniqueID:        txn.UniqueID,
		Status:          string(txn.Status),
		Amount:          txn.Amount,
		MobileNumber:    txn.MobileNumber,
		DeviceID:        txn.DeviceID,
		CreatedAt:       txn.CreatedAt,
		UpdatedAt:       txn.UpdatedAt,
		RequestPayload:  txn.RequestPayload,
		ResponsePayload: txn.ResponsePayload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode transaction data: %w", err)
	}

	return &wire.Envelope{
		Status:          "200",
		Type:            wire.TypeObject,
		Message:         "Transaction status retrieved",
		Version:         wire.Version,
		Action:          wire.ActionOutput,
		Command:         command,
		AppName:         client.CompanyName,
		ServiceURL:      "N/A",
		ServicePayload:  identityPayload(client, svc, binding),
		TransactionData: data,
	}, nil
}

// statusNotFound is returned inside a successful response: the envelope
// carries the 404, the transport does not.
func statusNotFound(client *domain.Client, svc *domain.Service, binding *domain.ServiceBinding, command string) *wire.Envelope {
	env := wire.NewErrorEnvelope("404", "Transaction not found", command, client.CompanyName)
	env.ServiceURL = "N/A"
	env.ServicePayload = identityPayload(client, svc, binding)
	env.TransactionData = wire.NullJSON
	return env
}

// identityPayload is the fixed five-slot payload announcing who asked and
// through which binding.
func identityPayload(client *domain.Client, svc *domain.Service, binding *domain.ServiceBinding) []wire.PayloadItem {
	return []wire.PayloadItem{
		{I: 0, V: client.AppID},
		{I: 1, V: client.CompanyName},
		{I: 2, V: binding.EntityName},
		{I: 3, V: svc.Name},
		{I: 4, V: binding.Country},
	}
}
