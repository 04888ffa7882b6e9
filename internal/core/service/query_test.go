package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aretechltd/mospay/internal/core/domain"
)

func TestClientQueryService_Transactions_Pagination(t *testing.T) {
	// Setup
	ledger := NewMockTransactionLedger()
	bindings := NewMockBindingRepository()
	svc := NewClientQueryService(bindings, ledger)

	clientID := uuid.New()
	base := time.Now()
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("uniq-page-%d", i)
		ledger.txns[id] = &domain.Transaction{
			ID:        uuid.New(),
			UniqueID:  id,
			ClientID:  clientID,
			Status:    domain.StatusCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
			UpdatedAt: base.Add(time.Duration(i) * time.Second),
		}
	}
	// A foreign transaction that must never show up.
	ledger.txns["uniq-other"] = &domain.Transaction{
		ID:        uuid.New(),
		UniqueID:  "uniq-other",
		ClientID:  uuid.New(),
		Status:    domain.StatusCompleted,
		CreatedAt: base,
		UpdatedAt: base,
	}

	// Action
	page1, total, err := svc.Transactions(context.Background(), clientID, 1, 2)
	if err != nil {
		t.Fatalf("page 1 failed: %v", err)
	}
	page3, _, err := svc.Transactions(context.Background(), clientID, 3, 2)
	if err != nil {
		t.Fatalf("page 3 failed: %v", err)
	}

	// Assert
	if total != 5 {
		t.Errorf("expected total 5, got %d", total)
	}
	if len(page1) != 2 {
		t.Fatalf("expected 2 rows on page 1, got %d", len(page1))
	}
	// Newest first.
	if page1[0].UniqueID != "uniq-page-4" || page1[1].UniqueID != "uniq-page-3" {
		t.Errorf("page 1 not newest-first: %s, %s", page1[0].UniqueID, page1[1].UniqueID)
	}
	if len(page3) != 1 || page3[0].UniqueID != "uniq-page-0" {
		t.Errorf("page 3 should hold the oldest row, got %+v", page3)
	}
}

func TestClientQueryService_Transactions_ClampsPageSize(t *testing.T) {
	// Setup: more rows than the cap
	ledger := NewMockTransactionLedger()
	svc := NewClientQueryService(NewMockBindingRepository(), ledger)

	clientID := uuid.New()
	base := time.Now()
	for i := 0; i < 105; i++ {
		id := fmt.Sprintf("uniq-clamp-%03d", i)
		ledger.txns[id] = &domain.Transaction{
			ID:        uuid.New(),
			UniqueID:  id,
			ClientID:  clientID,
			Status:    domain.StatusCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
			UpdatedAt: base,
		}
	}

	// Action
	rows, total, err := svc.Transactions(context.Background(), clientID, 1, 500)

	// Assert
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 105 {
		t.Errorf("expected total 105, got %d", total)
	}
	if len(rows) != maxPageSize {
		t.Errorf("expected page capped at %d, got %d", maxPageSize, len(rows))
	}
}

func TestClientQueryService_Transactions_Defaults(t *testing.T) {
	ledger := NewMockTransactionLedger()
	svc := NewClientQueryService(NewMockBindingRepository(), ledger)
	clientID := uuid.New()
	ledger.txns["uniq-one"] = &domain.Transaction{
		ID:        uuid.New(),
		UniqueID:  "uniq-one",
		ClientID:  clientID,
		Status:    domain.StatusReceived,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	// Zero and negative paging inputs fall back to the defaults.
	rows, total, err := svc.Transactions(context.Background(), clientID, 0, -1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Errorf("expected the single row back, got %d/%d", len(rows), total)
	}
}

func TestClientQueryService_GrantedServices(t *testing.T) {
	// Setup
	bindings := NewMockBindingRepository()
	svc := NewClientQueryService(bindings, NewMockTransactionLedger())

	clientID := uuid.New()
	momo := &domain.Service{ID: uuid.New(), Name: "mtnmomorwa", IsActive: true}
	airtel := &domain.Service{ID: uuid.New(), Name: "airtelmoney", IsActive: true}
	mpesa := &domain.Service{ID: uuid.New(), Name: "mpesa", IsActive: true}
	bindings.AddService(momo)
	bindings.AddService(airtel)
	bindings.AddService(mpesa)
	bindings.Grant(clientID, momo.ID)
	bindings.Grant(clientID, airtel.ID)

	// Action
	services, err := svc.GrantedServices(context.Background(), clientID)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(services) != 2 {
		t.Fatalf("expected 2 granted services, got %d", len(services))
	}
	if services[0].Name != "airtelmoney" || services[1].Name != "mtnmomorwa" {
		t.Errorf("expected sorted [airtelmoney mtnmomorwa], got [%s %s]", services[0].Name, services[1].Name)
	}
}
