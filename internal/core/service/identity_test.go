package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/aretechltd/mospay/internal/auth"
	"github.com/aretechltd/mospay/internal/core/domain"
)

func newIdentityFixture(t *testing.T) (*IdentityService, *MockClientRepository, *MockBindingRepository, *domain.Client) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	client := &domain.Client{
		ID:              uuid.New(),
		AppID:           "mos1000",
		CompanyName:     "Default Client",
		APIUsername:     "apiuser",
		APIPasswordHash: string(hash),
		IsActive:        true,
	}

	clients := NewMockClientRepository()
	clients.Add(client)
	bindings := NewMockBindingRepository()

	tokens := auth.NewManager("test-secret", time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewIdentityService(clients, bindings, tokens, logger), clients, bindings, client
}

func TestIdentityService_Authenticate_Success(t *testing.T) {
	svc, _, _, client := newIdentityFixture(t)

	got, err := svc.Authenticate(context.Background(), "apiuser", "s3cret", "mos1000")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.ID != client.ID {
		t.Errorf("wrong client returned: %s", got.AppID)
	}
}

func TestIdentityService_Authenticate_WrongPassword(t *testing.T) {
	svc, _, _, _ := newIdentityFixture(t)

	_, err := svc.Authenticate(context.Background(), "apiuser", "wrong", "mos1000")
	if !domain.IsKind(err, domain.KindUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestIdentityService_Authenticate_WrongUsername(t *testing.T) {
	svc, _, _, _ := newIdentityFixture(t)

	_, err := svc.Authenticate(context.Background(), "someoneelse", "s3cret", "mos1000")
	if !domain.IsKind(err, domain.KindUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestIdentityService_Authenticate_UnknownApp(t *testing.T) {
	svc, _, _, _ := newIdentityFixture(t)

	_, err := svc.Authenticate(context.Background(), "apiuser", "s3cret", "mos9999")
	if !domain.IsKind(err, domain.KindUnknownApp) {
		t.Fatalf("expected UNKNOWN_APP, got %v", err)
	}
}

func TestIdentityService_Authenticate_InactiveClient(t *testing.T) {
	svc, _, _, client := newIdentityFixture(t)
	client.IsActive = false

	_, err := svc.Authenticate(context.Background(), "apiuser", "s3cret", "mos1000")
	if !domain.IsKind(err, domain.KindInactive) {
		t.Fatalf("expected INACTIVE, got %v", err)
	}
}

func TestIdentityService_Authenticate_MissingCredentials(t *testing.T) {
	svc, _, _, _ := newIdentityFixture(t)

	_, err := svc.Authenticate(context.Background(), "", "", "mos1000")
	if !domain.IsKind(err, domain.KindUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestIdentityService_IssueToken(t *testing.T) {
	svc, _, bindings, client := newIdentityFixture(t)
	momo := &domain.Service{ID: uuid.New(), Name: "mtnmomorwa", IsActive: true}
	bindings.AddService(momo)
	bindings.Grant(client.ID, momo.ID)

	grant, err := svc.IssueToken(context.Background(), "apiuser", "s3cret", "mos1000")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if grant.TokenType != "Bearer" {
		t.Errorf("expected Bearer, got %s", grant.TokenType)
	}
	if grant.ExpiresIn != 3600 {
		t.Errorf("expected 3600s lifetime, got %d", grant.ExpiresIn)
	}
	if len(grant.Services) != 1 || grant.Services[0] != "mtnmomorwa" {
		t.Errorf("expected granted services [mtnmomorwa], got %v", grant.Services)
	}

	// The token round-trips through validation.
	got, claims, err := svc.ResolveToken(context.Background(), grant.AccessToken)
	if err != nil {
		t.Fatalf("issued token did not validate: %v", err)
	}
	if got.AppID != client.AppID {
		t.Errorf("token resolved to wrong client %s", got.AppID)
	}
	if claims.Type != auth.TokenTypeClient {
		t.Errorf("expected client token type, got %s", claims.Type)
	}
}

func TestIdentityService_IssueToken_BadCredentials(t *testing.T) {
	svc, _, _, _ := newIdentityFixture(t)

	_, err := svc.IssueToken(context.Background(), "apiuser", "wrong", "mos1000")
	if !domain.IsKind(err, domain.KindUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestIdentityService_ResolveToken_Garbage(t *testing.T) {
	svc, _, _, _ := newIdentityFixture(t)

	_, _, err := svc.ResolveToken(context.Background(), "not.a.token")
	if !domain.IsKind(err, domain.KindUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestIdentityService_ResolveToken_DeactivatedAfterIssuance(t *testing.T) {
	svc, _, _, client := newIdentityFixture(t)

	grant, err := svc.IssueToken(context.Background(), "apiuser", "s3cret", "mos1000")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	// Deactivation takes effect even while the token is still fresh.
	client.IsActive = false
	_, _, err = svc.ResolveToken(context.Background(), grant.AccessToken)
	if !domain.IsKind(err, domain.KindInactive) {
		t.Fatalf("expected INACTIVE, got %v", err)
	}
}
