package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aretechltd/mospay/internal/core/domain"
	"github.com/aretechltd/mospay/internal/core/service"
	"github.com/aretechltd/mospay/internal/interfaces/rest"
	"github.com/aretechltd/mospay/internal/interfaces/rest/middleware"
)

type ServiceSummary struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

type ClientProfile struct {
	AppID         string    `json:"app_id"`
	CompanyName   string    `json:"company_name"`
	ContactPerson string    `json:"contact_person"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Address       string    `json:"address"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// TransactionSummary is the history projection: state and identifiers
// only, never the stored payloads.
type TransactionSummary struct {
	UniqueID     string          `json:"unique_id"`
	Status       string          `json:"status"`
	Amount       decimal.Decimal `json:"amount"`
	MobileNumber string          `json:"mobile_number"`
	DeviceID     string          `json:"device_id"`
	FailureKind  string          `json:"failure_kind,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}

// ClientServices lists the services granted to the authenticated client.
func (h *Handlers) ClientServices(w http.ResponseWriter, r *http.Request) {
	client, ok := middleware.ClientFromContext(r.Context())
	if !ok {
		rest.WriteError(w, domain.NewUnauthorizedError("Missing bearer token"))
		return
	}

	services, err := h.queries.GrantedServices(r.Context(), client.ID)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	summaries := make([]ServiceSummary, 0, len(services))
	for _, svc := range services {
		summaries = append(summaries, ServiceSummary{
			Name:        svc.Name,
			DisplayName: svc.DisplayName,
			Description: svc.Description,
			IsActive:    svc.IsActive,
		})
	}

	rest.WriteJSON(w, http.StatusOK, map[string]any{"services": summaries})
}

// ClientProfile returns the authenticated client's own record.
func (h *Handlers) ClientProfile(w http.ResponseWriter, r *http.Request) {
	client, ok := middleware.ClientFromContext(r.Context())
	if !ok {
		rest.WriteError(w, domain.NewUnauthorizedError("Missing bearer token"))
		return
	}

	rest.WriteJSON(w, http.StatusOK, ClientProfile{
		AppID:         client.AppID,
		CompanyName:   client.CompanyName,
		ContactPerson: client.ContactPerson,
		Email:         client.Email,
		Phone:         client.Phone,
		Address:       client.Address,
		IsActive:      client.IsActive,
		CreatedAt:     client.CreatedAt,
	})
}

// Transactions returns the client's transaction history, newest first.
func (h *Handlers) Transactions(w http.ResponseWriter, r *http.Request) {
	client, ok := middleware.ClientFromContext(r.Context())
	if !ok {
		rest.WriteError(w, domain.NewUnauthorizedError("Missing bearer token"))
		return
	}

	page, perPage := service.NormalizePage(queryInt(r, "page", 1), queryInt(r, "per_page", 0))

	txns, total, err := h.queries.Transactions(r.Context(), client.ID, page, perPage)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	summaries := make([]TransactionSummary, 0, len(txns))
	for _, txn := range txns {
		s := TransactionSummary{
			UniqueID:     txn.UniqueID,
			Status:       string(txn.Status),
			Amount:       txn.Amount,
			MobileNumber: txn.MobileNumber,
			DeviceID:     txn.DeviceID,
			CreatedAt:    txn.CreatedAt,
			UpdatedAt:    txn.UpdatedAt,
		}
		if txn.FailureKind != nil {
			s.FailureKind = string(*txn.FailureKind)
		}
		summaries = append(summaries, s)
	}

	rest.WriteJSON(w, http.StatusOK, map[string]any{
		"transactions": summaries,
		"pagination": Pagination{
			Page:    page,
			PerPage: perPage,
			Total:   total,
		},
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
