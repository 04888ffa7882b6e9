package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aretechltd/mospay/internal/core/domain"
	"github.com/aretechltd/mospay/internal/infrastructure/persistence"
)

// AdminStore writes the catalog records the gateway itself only reads:
// clients, services, grants, bindings and procedure registrations. It
// backs the mospayctl commands; every write is an upsert so the commands
// can be re-run safely.
type AdminStore struct {
	db *pgxpool.Pool
}

func NewAdminStore(db *pgxpool.Pool) *AdminStore {
	return &AdminStore{db: db}
}

// UpsertClient creates or refreshes the client registered under AppID and
// fills in the stored row's id.
func (s *AdminStore) UpsertClient(ctx context.Context, client *domain.Client) error {
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	query := `
		INSERT INTO clients (id, app_id, company_name, contact_person, email, phone, address,
		                     api_username, api_password_hash, callback_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (app_id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			contact_person = EXCLUDED.contact_person,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			address = EXCLUDED.address,
			api_username = EXCLUDED.api_username,
			api_password_hash = EXCLUDED.api_password_hash,
			callback_url = EXCLUDED.callback_url,
			is_active = EXCLUDED.is_active,
			updated_at = now()
		RETURNING id`
	err := s.db.QueryRow(ctx, query,
		client.ID, client.AppID, client.CompanyName, client.ContactPerson,
		client.Email, client.Phone, client.Address,
		client.APIUsername, client.APIPasswordHash, client.CallbackURL, client.IsActive,
	).Scan(&client.ID)
	if err != nil {
		// The upsert only resolves app_id conflicts; api_username carries
		// its own unique constraint.
		if persistence.IsUniqueViolation(err) {
			return fmt.Errorf("api username %q is already registered to another client", client.APIUsername)
		}
		return fmt.Errorf("upsert client %s: %w", client.AppID, err)
	}
	return nil
}

// UpsertService creates or refreshes a catalog entry keyed by name.
func (s *AdminStore) UpsertService(ctx context.Context, svc *domain.Service) error {
	if svc.ID == uuid.Nil {
		svc.ID = uuid.New()
	}
	query := `
		INSERT INTO services (id, name, display_name, description, service_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			description = EXCLUDED.description,
			service_url = EXCLUDED.service_url,
			is_active = EXCLUDED.is_active,
			updated_at = now()
		RETURNING id`
	err := s.db.QueryRow(ctx, query,
		svc.ID, svc.Name, svc.DisplayName, svc.Description, svc.ServiceURL, svc.IsActive,
	).Scan(&svc.ID)
	if err != nil {
		return fmt.Errorf("upsert service %s: %w", svc.Name, err)
	}
	return nil
}

// GrantService enables a service for a client. Re-granting is a no-op.
func (s *AdminStore) GrantService(ctx context.Context, clientID, serviceID uuid.UUID) error {
	query := `
		INSERT INTO client_services (client_id, service_id, is_active)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (client_id, service_id) DO UPDATE SET is_active = TRUE`
	if _, err := s.db.Exec(ctx, query, clientID, serviceID); err != nil {
		return fmt.Errorf("grant service: %w", err)
	}
	return nil
}

// UpsertBinding creates or refreshes the (client, service, route) binding
// and fills in the stored row's id.
func (s *AdminStore) UpsertBinding(ctx context.Context, b *domain.ServiceBinding) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	query := `
		INSERT INTO service_bindings (id, client_id, service_id, app_id, service_name, route,
		                              entity_name, country, service_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (client_id, service_id, route) DO UPDATE SET
			entity_name = EXCLUDED.entity_name,
			country = EXCLUDED.country,
			service_url = EXCLUDED.service_url,
			is_active = EXCLUDED.is_active,
			updated_at = now()
		RETURNING id`
	err := s.db.QueryRow(ctx, query,
		b.ID, b.ClientID, b.ServiceID, b.AppID, b.ServiceName, b.Route,
		b.EntityName, b.Country, b.ServiceURL, b.IsActive,
	).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("upsert binding %s/%s/%s: %w", b.AppID, b.ServiceName, b.Route, err)
	}
	return nil
}

// UpsertProcedure registers or replaces the procedure behind one variant
// of a binding.
func (s *AdminStore) UpsertProcedure(ctx context.Context, p *domain.ProcedureBinding) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	query := `
		INSERT INTO procedure_bindings (id, binding_id, variant, kind, handle, source)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (binding_id, variant) DO UPDATE SET
			kind = EXCLUDED.kind,
			handle = EXCLUDED.handle,
			source = EXCLUDED.source
		RETURNING id`
	err := s.db.QueryRow(ctx, query,
		p.ID, p.BindingID, p.Variant, p.Kind, p.Handle, p.Source,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("upsert procedure %s: %w", p.Handle, err)
	}
	return nil
}

// FindServiceByName looks up a catalog entry for the CLI commands.
func (s *AdminStore) FindServiceByName(ctx context.Context, name string) (*domain.Service, error) {
	query := `
		SELECT id, name, display_name, description, service_url, is_active, created_at, updated_at
		FROM services WHERE name = $1`
	var svc domain.Service
	err := s.db.QueryRow(ctx, query, name).Scan(
		&svc.ID, &svc.Name, &svc.DisplayName, &svc.Description,
		&svc.ServiceURL, &svc.IsActive, &svc.CreatedAt, &svc.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find service %s: %w", name, err)
	}
	return &svc, nil
}

// FindClientByAppID looks up a client for the CLI commands.
func (s *AdminStore) FindClientByAppID(ctx context.Context, appID string) (*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE app_id = $1`
	return scanClient(s.db.QueryRow(ctx, query, appID))
}
