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

const clientColumns = `id, app_id, company_name, contact_person, email, phone, address,
       api_username, api_password_hash, callback_url, is_active, created_at, updated_at`

type ClientRepository struct {
	db *pgxpool.Pool
}

func NewClientRepository(db *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) FindByAppID(ctx context.Context, appID string) (*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE app_id = $1`
	return scanClient(r.db.QueryRow(ctx, query, appID))
}

func (r *ClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	return scanClient(r.db.QueryRow(ctx, query, id))
}

func scanClient(row pgx.Row) (*domain.Client, error) {
	var m clientModel
	err := row.Scan(
		&m.ID, &m.AppID, &m.CompanyName, &m.ContactPerson, &m.Email, &m.Phone, &m.Address,
		&m.APIUsername, &m.APIPasswordHash, &m.CallbackURL, &m.IsActive, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrClientNotFound
		}
		return nil, fmt.Errorf("scan client: %w", err)
	}
	return clientToDomain(m), nil
}
