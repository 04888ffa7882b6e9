package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretechltd/mospay/internal/core/domain"
	"github.com/aretechltd/mospay/internal/core/ports"
	"github.com/aretechltd/mospay/internal/wire"
)

// MockClientRepository
type MockClientRepository struct {
	mu      sync.RWMutex
	clients map[string]*domain.Client

	FindByAppIDFn func(ctx context.Context, appID string) (*domain.Client, error)
	FindByIDFn    func(ctx context.Context, id uuid.UUID) (*domain.Client, error)
}

func NewMockClientRepository() *MockClientRepository {
	return &MockClientRepository{clients: make(map[string]*domain.Client)}
}

func (m *MockClientRepository) Add(client *domain.Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[client.AppID] = client
}

func (m *MockClientRepository) FindByAppID(ctx context.Context, appID string) (*domain.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FindByAppIDFn != nil {
		return m.FindByAppIDFn(ctx, appID)
	}
	if c, ok := m.clients[appID]; ok {
		return c, nil
	}
	return nil, ports.ErrClientNotFound
}

func (m *MockClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	for _, c := range m.clients {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, ports.ErrClientNotFound
}

// MockBindingRepository
type MockBindingRepository struct {
	mu         sync.RWMutex
	services   map[string]*domain.Service
	grants     map[string]bool
	bindings   map[string]*domain.ServiceBinding
	procedures map[string]*domain.ProcedureBinding

	FindActiveServiceFn func(ctx context.Context, name string) (*domain.Service, error)
	HasActiveGrantFn    func(ctx context.Context, clientID, serviceID uuid.UUID) (bool, error)
	GrantedServicesFn   func(ctx context.Context, clientID uuid.UUID) ([]*domain.Service, error)
	FindActiveBindingFn func(ctx context.Context, clientID, serviceID uuid.UUID, route string) (*domain.ServiceBinding, error)
	FindProcedureFn     func(ctx context.Context, bindingID uuid.UUID, variant domain.ProcedureVariant) (*domain.ProcedureBinding, error)
}

func NewMockBindingRepository() *MockBindingRepository {
	return &MockBindingRepository{
		services:   make(map[string]*domain.Service),
		grants:     make(map[string]bool),
		bindings:   make(map[string]*domain.ServiceBinding),
		procedures: make(map[string]*domain.ProcedureBinding),
	}
}

func (m *MockBindingRepository) AddService(svc *domain.Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[svc.Name] = svc
}

func (m *MockBindingRepository) Grant(clientID, serviceID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants[grantKey(clientID, serviceID)] = true
}

func (m *MockBindingRepository) AddBinding(b *domain.ServiceBinding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindings[bindingKey(b.ClientID, b.ServiceID, b.Route)] = b
}

func (m *MockBindingRepository) AddProcedure(p *domain.ProcedureBinding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.procedures[procedureKey(p.BindingID, p.Variant)] = p
}

func (m *MockBindingRepository) FindActiveService(ctx context.Context, name string) (*domain.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FindActiveServiceFn != nil {
		return m.FindActiveServiceFn(ctx, name)
	}
	if svc, ok := m.services[name]; ok && svc.IsActive {
		return svc, nil
	}
	return nil, ports.ErrServiceNotFound
}

func (m *MockBindingRepository) HasActiveGrant(ctx context.Context, clientID, serviceID uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.HasActiveGrantFn != nil {
		return m.HasActiveGrantFn(ctx, clientID, serviceID)
	}
	return m.grants[grantKey(clientID, serviceID)], nil
}

func (m *MockBindingRepository) GrantedServices(ctx context.Context, clientID uuid.UUID) ([]*domain.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GrantedServicesFn != nil {
		return m.GrantedServicesFn(ctx, clientID)
	}
	var granted []*domain.Service
	for _, svc := range m.services {
		if svc.IsActive && m.grants[grantKey(clientID, svc.ID)] {
			granted = append(granted, svc)
		}
	}
	sort.Slice(granted, func(i, j int) bool { return granted[i].Name < granted[j].Name })
	return granted, nil
}

func (m *MockBindingRepository) FindActiveBinding(ctx context.Context, clientID, serviceID uuid.UUID, route string) (*domain.ServiceBinding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FindActiveBindingFn != nil {
		return m.FindActiveBindingFn(ctx, clientID, serviceID, route)
	}
	if b, ok := m.bindings[bindingKey(clientID, serviceID, route)]; ok && b.IsActive {
		return b, nil
	}
	return nil, ports.ErrBindingNotFound
}

func (m *MockBindingRepository) FindProcedure(ctx context.Context, bindingID uuid.UUID, variant domain.ProcedureVariant) (*domain.ProcedureBinding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FindProcedureFn != nil {
		return m.FindProcedureFn(ctx, bindingID, variant)
	}
	if p, ok := m.procedures[procedureKey(bindingID, variant)]; ok {
		return p, nil
	}
	return nil, ports.ErrProcedureNotFound
}

func grantKey(clientID, serviceID uuid.UUID) string {
	return clientID.String() + "|" + serviceID.String()
}

func bindingKey(clientID, serviceID uuid.UUID, route string) string {
	return clientID.String() + "|" + serviceID.String() + "|" + route
}

func procedureKey(bindingID uuid.UUID, variant domain.ProcedureVariant) string {
	return bindingID.String() + "|" + string(variant)
}

// MockTransactionLedger implements the compare-and-swap contract in memory,
// so pipeline tests exercise the same transition guarantees the database
// enforces.
type MockTransactionLedger struct {
	mu   sync.Mutex
	txns map[string]*domain.Transaction

	CreateIfAbsentFn func(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, bool, error)
	AdvanceFn        func(ctx context.Context, uniqueID string, from, to domain.TransactionStatus, update domain.TransactionUpdate) (*domain.Transaction, error)
	GetFn            func(ctx context.Context, uniqueID string) (*domain.Transaction, error)
}

func NewMockTransactionLedger() *MockTransactionLedger {
	return &MockTransactionLedger{txns: make(map[string]*domain.Transaction)}
}

func (m *MockTransactionLedger) CreateIfAbsent(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, bool, error) {
	if m.CreateIfAbsentFn != nil {
		return m.CreateIfAbsentFn(ctx, txn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.txns[txn.UniqueID]; ok {
		cp := *existing
		return &cp, false, nil
	}
	stored := *txn
	stored.ID = uuid.New()
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	m.txns[txn.UniqueID] = &stored
	cp := stored
	return &cp, true, nil
}

func (m *MockTransactionLedger) Advance(ctx context.Context, uniqueID string, from, to domain.TransactionStatus, update domain.TransactionUpdate) (*domain.Transaction, error) {
	if m.AdvanceFn != nil {
		return m.AdvanceFn(ctx, uniqueID, from, to, update)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.txns[uniqueID]
	if !ok {
		return nil, ports.ErrTransactionNotFound
	}
	if txn.Status != from {
		return nil, domain.NewInvalidTransitionError(txn.Status, to)
	}
	if err := txn.CanTransitionTo(to); err != nil {
		return nil, err
	}
	txn.Status = to
	if update.ResponsePayload != nil {
		txn.ResponsePayload = update.ResponsePayload
	}
	if update.FailureKind != nil {
		txn.FailureKind = update.FailureKind
	}
	txn.UpdatedAt = time.Now()
	cp := *txn
	return &cp, nil
}

func (m *MockTransactionLedger) Get(ctx context.Context, uniqueID string) (*domain.Transaction, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, uniqueID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.txns[uniqueID]
	if !ok {
		return nil, ports.ErrTransactionNotFound
	}
	cp := *txn
	return &cp, nil
}

func (m *MockTransactionLedger) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*domain.Transaction, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var owned []*domain.Transaction
	for _, txn := range m.txns {
		if txn.ClientID == clientID {
			cp := *txn
			owned = append(owned, &cp)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].CreatedAt.After(owned[j].CreatedAt) })
	total := len(owned)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return owned[offset:end], total, nil
}

func (m *MockTransactionLedger) FindStale(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stale []*domain.Transaction
	for _, txn := range m.txns {
		if txn.IsTerminal() || !txn.UpdatedAt.Before(cutoff) {
			continue
		}
		cp := *txn
		stale = append(stale, &cp)
		if len(stale) == limit {
			break
		}
	}
	return stale, nil
}

// MockProcedureAdapter
type MockProcedureAdapter struct {
	mu    sync.Mutex
	calls map[string]int
	Delay time.Duration

	InvokeFn func(ctx context.Context, proc *domain.ProcedureBinding, inv ports.Invocation) (json.RawMessage, error)
}

func (m *MockProcedureAdapter) inc(variant string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[variant]++
}

func (m *MockProcedureAdapter) GetCalls(variant string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[variant]
}

func (m *MockProcedureAdapter) Invoke(ctx context.Context, proc *domain.ProcedureBinding, inv ports.Invocation) (json.RawMessage, error) {
	m.inc(string(proc.Variant))
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	if m.InvokeFn != nil {
		return m.InvokeFn(ctx, proc, inv)
	}
	env := &wire.Envelope{
		Status:  "200",
		Type:    wire.TypeObject,
		Message: "OK",
		Version: wire.Version,
		Action:  wire.ActionOutput,
		Command: "pay",
	}
	return env.Encode()
}

// MockUpstreamClient
type MockUpstreamClient struct {
	mu    sync.Mutex
	calls int
	Delay time.Duration

	CallFn func(ctx context.Context, url string, payload []wire.PayloadItem) (*ports.UpstreamResponse, error)
}

func (m *MockUpstreamClient) GetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockUpstreamClient) Call(ctx context.Context, url string, payload []wire.PayloadItem) (*ports.UpstreamResponse, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	if m.CallFn != nil {
		return m.CallFn(ctx, url, payload)
	}
	return &ports.UpstreamResponse{
		StatusCode: 200,
		Body:       json.RawMessage(`{"result":"success"}`),
	}, nil
}

var (
	_ ports.ClientRepository  = (*MockClientRepository)(nil)
	_ ports.BindingRepository = (*MockBindingRepository)(nil)
	_ ports.TransactionLedger = (*MockTransactionLedger)(nil)
	_ ports.ProcedureAdapter  = (*MockProcedureAdapter)(nil)
	_ ports.UpstreamClient    = (*MockUpstreamClient)(nil)
)
