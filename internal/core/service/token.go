package service

import (
	"context"
	"fmt"

	"github.com/aretechltd/mospay/internal/core/domain"
)

// TokenGrant is the result of a successful credential exchange.
type TokenGrant struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int64
	Client      *domain.Client
	Services    []string
}

// IssueToken exchanges API credentials for a bearer token. The granted
// service names are baked into the token claims, so a grant revoked after
// issuance still needs the dispatch-time check to take effect.
func (s *IdentityService) IssueToken(ctx context.Context, username, password, appID string) (*TokenGrant, error) {
	client, err := s.Authenticate(ctx, username, password, appID)
	if err != nil {
		return nil, err
	}

	granted, err := s.bindings.GrantedServices(ctx, client.ID)
	if err != nil {
		return nil, fmt.Errorf("load granted services: %w", err)
	}
	names := make([]string, 0, len(granted))
	for _, svc := range granted {
		names = append(names, svc.Name)
	}

	token, err := s.tokens.Generate(client.AppID, names)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	s.logger.Info("token issued", "app_id", client.AppID, "services", len(names))
	return &TokenGrant{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
		Client:      client,
		Services:    names,
	}, nil
}
