package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/aretechltd/mospay/internal/core/domain"
	"github.com/aretechltd/mospay/internal/core/ports"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ClientQueryService answers read-only questions about a client's catalog
// and transaction history.
type ClientQueryService struct {
	bindings ports.BindingRepository
	ledger   ports.TransactionLedger
}

func NewClientQueryService(bindings ports.BindingRepository, ledger ports.TransactionLedger) *ClientQueryService {
	return &ClientQueryService{bindings: bindings, ledger: ledger}
}

// GrantedServices lists the active services the client may dispatch to.
func (s *ClientQueryService) GrantedServices(ctx context.Context, clientID uuid.UUID) ([]*domain.Service, error) {
	services, err := s.bindings.GrantedServices(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("load granted services: %w", err)
	}
	return services, nil
}

// NormalizePage clamps paging inputs to what Transactions actually uses:
// pages start at 1, zero or negative sizes fall back to the default and
// oversized ones are capped.
func NormalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPageSize
	}
	if perPage > maxPageSize {
		perPage = maxPageSize
	}
	return page, perPage
}

// Transactions pages through the client's transaction history, newest
// first. The second return value is the total row count for the client.
func (s *ClientQueryService) Transactions(ctx context.Context, clientID uuid.UUID, page, perPage int) ([]*domain.Transaction, int, error) {
	page, perPage = NormalizePage(page, perPage)
	offset := (page - 1) * perPage

	transactions, total, err := s.ledger.ListByClient(ctx, clientID, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return transactions, total, nil
}
