package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aretechltd/mospay/internal/core/domain"
	"github.com/aretechltd/mospay/internal/core/ports"
)

const serviceColumns = `id, name, display_name, description, service_url, is_active, created_at, updated_at`

const bindingColumns = `id, client_id, service_id, app_id, service_name, route,
       entity_name, country, service_url, is_active, created_at, updated_at`

// BindingRepository resolves the catalog side of a dispatch: services,
// client grants, bindings, and the procedures registered on them.
type BindingRepository struct {
	db *pgxpool.Pool
}

func NewBindingRepository(db *pgxpool.Pool) *BindingRepository {
	return &BindingRepository{db: db}
}

func (r *BindingRepository) FindActiveService(ctx context.Context, name string) (*domain.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE name = $1 AND is_active = TRUE`
	return scanService(r.db.QueryRow(ctx, query, name))
}

func (r *BindingRepository) HasActiveGrant(ctx context.Context, clientID, serviceID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM client_services
			WHERE client_id = $1 AND service_id = $2 AND is_active = TRUE
		)
	`
	var granted bool
	if err := r.db.QueryRow(ctx, query, clientID, serviceID).Scan(&granted); err != nil {
		return false, fmt.Errorf("check service grant: %w", err)
	}
	return granted, nil
}

func (r *BindingRepository) GrantedServices(ctx context.Context, clientID uuid.UUID) ([]*domain.Service, error) {
	query := `
		SELECT s.id, s.name, s.display_name, s.description, s.service_url, s.is_active, s.created_at, s.updated_at
		FROM services s
		JOIN client_services cs ON cs.service_id = s.id
		WHERE cs.client_id = $1 AND cs.is_active = TRUE AND s.is_active = TRUE
		ORDER BY s.name
	`
	rows, err := r.db.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("query granted services: %w", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Service, error) {
		var m serviceModel
		err := row.Scan(&m.ID, &m.Name, &m.DisplayName, &m.Description, &m.ServiceURL, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
		return serviceToDomain(m), err
	})
	if err != nil {
		return nil, fmt.Errorf("scan granted services: %w", err)
	}
	return results, nil
}

func (r *BindingRepository) FindActiveBinding(ctx context.Context, clientID, serviceID uuid.UUID, route string) (*domain.ServiceBinding, error) {
	query := `
		SELECT ` + bindingColumns + `
		FROM service_bindings
		WHERE client_id = $1 AND service_id = $2 AND route = $3 AND is_active = TRUE
	`
	var m bindingModel
	err := r.db.QueryRow(ctx, query, clientID, serviceID, route).Scan(
		&m.ID, &m.ClientID, &m.ServiceID, &m.AppID, &m.ServiceName, &m.Route,
		&m.EntityName, &m.Country, &m.ServiceURL, &m.IsActive, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrBindingNotFound
		}
		return nil, fmt.Errorf("scan binding: %w", err)
	}
	return bindingToDomain(m), nil
}

func (r *BindingRepository) FindProcedure(ctx context.Context, bindingID uuid.UUID, variant domain.ProcedureVariant) (*domain.ProcedureBinding, error) {
	query := `
		SELECT id, binding_id, variant, kind, handle, source, created_at
		FROM procedure_bindings
		WHERE binding_id = $1 AND variant = $2
	`
	var m procedureModel
	err := r.db.QueryRow(ctx, query, bindingID, string(variant)).Scan(
		&m.ID, &m.BindingID, &m.Variant, &m.Kind, &m.Handle, &m.Source, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrProcedureNotFound
		}
		return nil, fmt.Errorf("scan procedure binding: %w", err)
	}
	return procedureToDomain(m), nil
}

func scanService(row pgx.Row) (*domain.Service, error) {
	var m serviceModel
	err := row.Scan(&m.ID, &m.Name, &m.DisplayName, &m.Description, &m.ServiceURL, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrServiceNotFound
		}
		return nil, fmt.Errorf("scan service: %w", err)
	}
	return serviceToDomain(m), nil
}
