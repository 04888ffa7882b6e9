package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aretechltd/mospay/internal/core/domain"
)

// AuditRepository appends request/response records to the api_logs table.
type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Record(ctx context.Context, log *domain.APILog) error {
	query := `
		INSERT INTO api_logs (
			id, client_id, endpoint, method, request_data, response_data,
			status_code, ip_address, user_agent
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	id := log.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := r.db.Exec(ctx, query,
		id,
		log.ClientID,
		log.Endpoint,
		log.Method,
		log.RequestData,
		log.ResponseData,
		log.StatusCode,
		log.IPAddress,
		log.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("insert api log: %w", err)
	}
	return nil
}
