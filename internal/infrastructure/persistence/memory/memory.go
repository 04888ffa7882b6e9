// Package memory is an in-process implementation of the repository ports.
// It backs local development when no database is configured and keeps the
// HTTP tests free of containers. Data does not survive a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretechltd/mospay/internal/core/domain"
	"github.com/aretechltd/mospay/internal/core/ports"
)

type Store struct {
	mu          sync.RWMutex
	clients     map[string]*domain.Client
	clientsByID map[uuid.UUID]*domain.Client
	services    map[string]*domain.Service
	grants      map[string]bool
	bindings    map[string]*domain.ServiceBinding
	procedures  map[string]*domain.ProcedureBinding
	txns        map[string]*domain.Transaction
	logs        []*domain.APILog
}

func NewStore() *Store {
	return &Store{
		clients:     make(map[string]*domain.Client),
		clientsByID: make(map[uuid.UUID]*domain.Client),
		services:    make(map[string]*domain.Service),
		grants:      make(map[string]bool),
		bindings:    make(map[string]*domain.ServiceBinding),
		procedures:  make(map[string]*domain.ProcedureBinding),
		txns:        make(map[string]*domain.Transaction),
	}
}

// AddClient registers a client. Used by seeding and tests.
func (s *Store) AddClient(client *domain.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	s.clients[client.AppID] = client
	s.clientsByID[client.ID] = client
}

// AddService registers a catalog service.
func (s *Store) AddService(svc *domain.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if svc.ID == uuid.Nil {
		svc.ID = uuid.New()
	}
	s.services[svc.Name] = svc
}

// GrantService allows a client to dispatch to a service.
func (s *Store) GrantService(clientID, serviceID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[grantKey(clientID, serviceID)] = true
}

// AddBinding registers a (client, service, route) binding.
func (s *Store) AddBinding(b *domain.ServiceBinding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	s.bindings[bindingKey(b.ClientID, b.ServiceID, b.Route)] = b
}

// AddProcedure registers a procedure handle on a binding.
func (s *Store) AddProcedure(p *domain.ProcedureBinding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.procedures[procedureKey(p.BindingID, p.Variant)] = p
}

func (s *Store) FindByAppID(ctx context.Context, appID string) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.clients[appID]; ok {
		return c, nil
	}
	return nil, ports.ErrClientNotFound
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.clientsByID[id]; ok {
		return c, nil
	}
	return nil, ports.ErrClientNotFound
}

func (s *Store) FindActiveService(ctx context.Context, name string) (*domain.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if svc, ok := s.services[name]; ok && svc.IsActive {
		return svc, nil
	}
	return nil, ports.ErrServiceNotFound
}

func (s *Store) HasActiveGrant(ctx context.Context, clientID, serviceID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grants[grantKey(clientID, serviceID)], nil
}

func (s *Store) GrantedServices(ctx context.Context, clientID uuid.UUID) ([]*domain.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var granted []*domain.Service
	for _, svc := range s.services {
		if svc.IsActive && s.grants[grantKey(clientID, svc.ID)] {
			granted = append(granted, svc)
		}
	}
	sort.Slice(granted, func(i, j int) bool { return granted[i].Name < granted[j].Name })
	return granted, nil
}

func (s *Store) FindActiveBinding(ctx context.Context, clientID, serviceID uuid.UUID, route string) (*domain.ServiceBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.bindings[bindingKey(clientID, serviceID, route)]; ok && b.IsActive {
		return b, nil
	}
	return nil, ports.ErrBindingNotFound
}

func (s *Store) FindProcedure(ctx context.Context, bindingID uuid.UUID, variant domain.ProcedureVariant) (*domain.ProcedureBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.procedures[procedureKey(bindingID, variant)]; ok {
		return p, nil
	}
	return nil, ports.ErrProcedureNotFound
}

func (s *Store) CreateIfAbsent(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.txns[txn.UniqueID]; ok {
		cp := *existing
		return &cp, false, nil
	}
	stored := *txn
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.txns[stored.UniqueID] = &stored
	cp := stored
	return &cp, true, nil
}

// Advance is the in-memory version of the ledger's conditional update: the
// swap only succeeds when the row still holds the expected from-status.
func (s *Store) Advance(ctx context.Context, uniqueID string, from, to domain.TransactionStatus, update domain.TransactionUpdate) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.txns[uniqueID]
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

func (s *Store) Get(ctx context.Context, uniqueID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txn, ok := s.txns[uniqueID]
	if !ok {
		return nil, ports.ErrTransactionNotFound
	}
	cp := *txn
	return &cp, nil
}

func (s *Store) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*domain.Transaction, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var owned []*domain.Transaction
	for _, txn := range s.txns {
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

func (s *Store) FindStale(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stale []*domain.Transaction
	for _, txn := range s.txns {
		if txn.IsTerminal() || !txn.UpdatedAt.Before(cutoff) {
			continue
		}
		cp := *txn
		stale = append(stale, &cp)
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].UpdatedAt.Before(stale[j].UpdatedAt) })
	if len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

func (s *Store) Record(ctx context.Context, log *domain.APILog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	s.logs = append(s.logs, log)
	return nil
}

// Logs returns a snapshot of recorded API logs, oldest first.
func (s *Store) Logs() []*domain.APILog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.APILog, len(s.logs))
	copy(out, s.logs)
	return out
}

// Ping always succeeds; the store lives in the same process.
func (s *Store) Ping(ctx context.Context) error {
	return nil
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

var (
	_ ports.ClientRepository  = (*Store)(nil)
	_ ports.BindingRepository = (*Store)(nil)
	_ ports.TransactionLedger = (*Store)(nil)
	_ ports.AuditRepository   = (*Store)(nil)
)
