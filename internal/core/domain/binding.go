package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service is a catalog entry for an integrated payment provider,
// e.g. mtnmomorwa or mpesa.
type Service struct {
	ID          uuid.UUID
	Name        string
	DisplayName string
	Description string
	ServiceURL  string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ServiceBinding is one configured (appId, serviceName, route) integration.
// It must exist and be active before a dispatch for that tuple proceeds.
// EntityName and Country feed the positional payload of status projections.
type ServiceBinding struct {
	ID        uuid.UUID
	ClientID  uuid.UUID
	ServiceID uuid.UUID

	AppID       string
	ServiceName string
	Route       string

	EntityName string
	Country    string
	// ServiceURL overrides the catalog URL for this binding when set.
	ServiceURL string
	IsActive   bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProcedureVariant names one invocation role of a binding. The set is
// open-ended: forward and response ship today, status naming exists for
// registration compatibility, and new variants only need a new constant.
type ProcedureVariant string

const (
	VariantForward  ProcedureVariant = "forward"
	VariantResponse ProcedureVariant = "response"
	VariantStatus   ProcedureVariant = "status"
)

// ProcedureKind selects which adapter executes a registered procedure.
type ProcedureKind string

const (
	ProcedureKindPostgres ProcedureKind = "postgres"
	ProcedureKindScript   ProcedureKind = "script"
)

// ProcedureBinding is a pre-registered, validated handle to backend logic.
// Handles are minted at binding-registration time; dispatch never builds
// an executable name from request strings.
type ProcedureBinding struct {
	ID        uuid.UUID
	BindingID uuid.UUID
	Variant   ProcedureVariant
	Kind      ProcedureKind

	// Handle is the procedure name for postgres procedures and a
	// symbolic label for scripts.
	Handle string
	// Source holds the program text for script procedures; empty otherwise.
	Source string

	CreatedAt time.Time
}

// ResolveUpstreamURL picks the target URL for a dispatch: the procedure
// result wins, then the binding override, then the catalog entry, then the
// conventional scheme used by the provider containers.
func (b *ServiceBinding) ResolveUpstreamURL(procedureURL, catalogURL string) string {
	if procedureURL != "" && procedureURL != "N/A" {
		return procedureURL
	}
	if b.ServiceURL != "" {
		return b.ServiceURL
	}
	if catalogURL != "" {
		return catalogURL
	}
	return DefaultUpstreamURL(b.ServiceName, b.Route)
}

// DefaultUpstreamURL is the conventional address of a provider container.
func DefaultUpstreamURL(serviceName, route string) string {
	return fmt.Sprintf("http://%s:8080/provider/api/%s", serviceName, route)
}
