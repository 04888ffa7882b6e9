package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/aretechltd/mospay/internal/auth"
	"github.com/aretechltd/mospay/internal/core/domain"
	"github.com/aretechltd/mospay/internal/core/ports"
)

// IdentityService authenticates clients, either by API credentials plus the
// app id header or by a previously issued bearer token.
type IdentityService struct {
	clients  ports.ClientRepository
	bindings ports.BindingRepository
	tokens   *auth.Manager
	logger   *slog.Logger
}

func NewIdentityService(clients ports.ClientRepository, bindings ports.BindingRepository, tokens *auth.Manager, logger *slog.Logger) *IdentityService {
	return &IdentityService{
		clients:  clients,
		bindings: bindings,
		tokens:   tokens,
		logger:   logger,
	}
}

// Authenticate verifies API credentials against the client registered under
// appID. Credential failures and unknown apps both come back as
// authentication errors; only a known client with valid credentials gets the
// more specific inactive error.
func (s *IdentityService) Authenticate(ctx context.Context, username, password, appID string) (*domain.Client, error) {
	if username == "" || password == "" || appID == "" {
		return nil, domain.NewUnauthorizedError("Missing credentials or App ID")
	}

	client, err := s.clients.FindByAppID(ctx, appID)
	if err != nil {
		if errors.Is(err, ports.ErrClientNotFound) {
			return nil, domain.NewUnknownAppError(appID)
		}
		return nil, fmt.Errorf("look up client: %w", err)
	}

	if client.APIUsername != username {
		return nil, domain.NewUnauthorizedError("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(client.APIPasswordHash), []byte(password)); err != nil {
		return nil, domain.NewUnauthorizedError("Invalid credentials")
	}
	if !client.IsActive {
		return nil, domain.NewInactiveClientError(appID)
	}
	return client, nil
}

// ResolveToken validates a bearer token and loads the client it was issued
// to. A client deactivated after issuance is rejected even while the token
// is still within its lifetime.
func (s *IdentityService) ResolveToken(ctx context.Context, tokenString string) (*domain.Client, *auth.Claims, error) {
	claims, err := s.tokens.Validate(tokenString)
	if err != nil {
		return nil, nil, domain.NewUnauthorizedError("Invalid or expired token")
	}
	if claims.Type != auth.TokenTypeClient {
		return nil, nil, domain.NewUnauthorizedError("Invalid token type")
	}

	client, err := s.clients.FindByAppID(ctx, claims.AppID)
	if err != nil {
		if errors.Is(err, ports.ErrClientNotFound) {
			return nil, nil, domain.NewUnknownAppError(claims.AppID)
		}
		return nil, nil, fmt.Errorf("look up client: %w", err)
	}
	if !client.IsActive {
		return nil, nil, domain.NewInactiveClientError(claims.AppID)
	}
	return client, claims, nil
}
