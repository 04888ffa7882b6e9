package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aretechltd/mospay/internal/core/domain"
	"github.com/aretechltd/mospay/internal/core/ports"
)

func TestStore_CreateIfAbsent_ConcurrentSingleWinner(t *testing.T) {
	store := NewStore()
	clientID := uuid.New()

	const attempts = 10
	var wg sync.WaitGroup
	created := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, won, err := store.CreateIfAbsent(context.Background(), &domain.Transaction{
				UniqueID: "uniq-mem-race",
				ClientID: clientID,
				Status:   domain.StatusReceived,
			})
			if err != nil {
				t.Errorf("create failed: %v", err)
			}
			created <- won
		}()
	}
	wg.Wait()
	close(created)

	winners := 0
	for won := range created {
		if won {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("expected exactly one winner, got %d", winners)
	}
}

func TestStore_Advance_GuardsStatus(t *testing.T) {
	store := NewStore()
	_, _, err := store.CreateIfAbsent(context.Background(), &domain.Transaction{
		UniqueID: "uniq-mem-1",
		Status:   domain.StatusReceived,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := store.Advance(context.Background(), "uniq-mem-1", domain.StatusReceived, domain.StatusProcedureResolved, domain.TransactionUpdate{}); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := store.Advance(context.Background(), "uniq-mem-1", domain.StatusReceived, domain.StatusProcedureResolved, domain.TransactionUpdate{}); !domain.IsKind(err, domain.KindConflictInProgress) {
		t.Errorf("stale swap should conflict, got %v", err)
	}
	if _, err := store.Advance(context.Background(), "uniq-mem-missing", domain.StatusReceived, domain.StatusFailed, domain.TransactionUpdate{}); err != ports.ErrTransactionNotFound {
		t.Errorf("expected ErrTransactionNotFound, got %v", err)
	}

	// Terminal rows refuse further movement.
	kind := domain.KindProcedureError
	if _, err := store.Advance(context.Background(), "uniq-mem-1", domain.StatusProcedureResolved, domain.StatusFailed, domain.TransactionUpdate{FailureKind: &kind}); err != nil {
		t.Fatalf("fail transition: %v", err)
	}
	if _, err := store.Advance(context.Background(), "uniq-mem-1", domain.StatusFailed, domain.StatusCompleted, domain.TransactionUpdate{}); err == nil {
		t.Error("terminal row must not advance")
	}
}

func TestStore_CatalogLookups(t *testing.T) {
	store := NewStore()
	client := &domain.Client{AppID: "mos1000", CompanyName: "Default Client", IsActive: true}
	store.AddClient(client)
	svc := &domain.Service{Name: "mtnmomorwa", IsActive: true}
	store.AddService(svc)
	store.GrantService(client.ID, svc.ID)
	binding := &domain.ServiceBinding{
		ClientID:  client.ID,
		ServiceID: svc.ID,
		Route:     "pay",
		IsActive:  true,
	}
	store.AddBinding(binding)
	store.AddProcedure(&domain.ProcedureBinding{
		BindingID: binding.ID,
		Variant:   domain.VariantForward,
		Kind:      domain.ProcedureKindScript,
		Handle:    "mos1000_mtnmomorwa_pay",
	})

	if _, err := store.FindByAppID(context.Background(), "mos1000"); err != nil {
		t.Errorf("client lookup failed: %v", err)
	}
	if _, err := store.FindByID(context.Background(), client.ID); err != nil {
		t.Errorf("client by id lookup failed: %v", err)
	}
	if _, err := store.FindActiveService(context.Background(), "mtnmomorwa"); err != nil {
		t.Errorf("service lookup failed: %v", err)
	}
	granted, err := store.HasActiveGrant(context.Background(), client.ID, svc.ID)
	if err != nil || !granted {
		t.Errorf("grant lookup: granted=%v err=%v", granted, err)
	}
	if _, err := store.FindActiveBinding(context.Background(), client.ID, svc.ID, "pay"); err != nil {
		t.Errorf("binding lookup failed: %v", err)
	}
	proc, err := store.FindProcedure(context.Background(), binding.ID, domain.VariantForward)
	if err != nil {
		t.Fatalf("procedure lookup failed: %v", err)
	}
	if proc.Handle != "mos1000_mtnmomorwa_pay" {
		t.Errorf("wrong procedure handle %s", proc.Handle)
	}
	if _, err := store.FindProcedure(context.Background(), binding.ID, domain.VariantResponse); err != ports.ErrProcedureNotFound {
		t.Errorf("expected ErrProcedureNotFound, got %v", err)
	}
}

func TestStore_FindStale(t *testing.T) {
	store := NewStore()
	if _, _, err := store.CreateIfAbsent(context.Background(), &domain.Transaction{
		UniqueID: "uniq-mem-stale",
		Status:   domain.StatusMicroserviceCalled,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Nothing is stale yet.
	stale, err := store.FindStale(context.Background(), time.Now().Add(-time.Minute), 10)
	if err != nil {
		t.Fatalf("find stale: %v", err)
	}
	if len(stale) != 0 {
		t.Errorf("expected no stale rows, got %d", len(stale))
	}

	// Age the row past the cutoff.
	store.txns["uniq-mem-stale"].UpdatedAt = time.Now().Add(-time.Hour)
	stale, err = store.FindStale(context.Background(), time.Now().Add(-time.Minute), 10)
	if err != nil {
		t.Fatalf("find stale: %v", err)
	}
	if len(stale) != 1 || stale[0].UniqueID != "uniq-mem-stale" {
		t.Errorf("expected the aged row, got %+v", stale)
	}
}

func TestStore_RecordAndListLogs(t *testing.T) {
	store := NewStore()
	clientID := uuid.New()
	if err := store.Record(context.Background(), &domain.APILog{
		ClientID:   &clientID,
		Endpoint:   "/api/v1/payment/process",
		Method:     "POST",
		StatusCode: 200,
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	logs := store.Logs()
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}
	if logs[0].ID == uuid.Nil || logs[0].CreatedAt.IsZero() {
		t.Error("log id and timestamp should be filled in")
	}
}
