package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretechltd/mospay/internal/auth"
	"github.com/aretechltd/mospay/internal/core/domain"
)

type mockTokenResolver struct {
	ResolveFn func(ctx context.Context, tokenString string) (*domain.Client, *auth.Claims, error)
}

func (m *mockTokenResolver) ResolveToken(ctx context.Context, tokenString string) (*domain.Client, *auth.Claims, error) {
	return m.ResolveFn(ctx, tokenString)
}

func TestAuth_InjectsClientIntoContext(t *testing.T) {
	// Setup
	client := &domain.Client{AppID: "mos1000", CompanyName: "Default Client", IsActive: true}
	claims := &auth.Claims{AppID: "mos1000", Type: auth.TokenTypeClient}
	resolver := &mockTokenResolver{
		ResolveFn: func(ctx context.Context, tokenString string) (*domain.Client, *auth.Claims, error) {
			if tokenString != "good-token" {
				t.Errorf("unexpected token %q", tokenString)
			}
			return client, claims, nil
		},
	}

	var gotClient *domain.Client
	var gotClaims *auth.Claims
	handler := Auth(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClient, _ = ClientFromContext(r.Context())
		gotClaims, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/client/profile", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rr := httptest.NewRecorder()

	// Action
	handler.ServeHTTP(rr, req)

	// Assert
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotClient == nil || gotClient.AppID != "mos1000" {
		t.Errorf("client not in context: %+v", gotClient)
	}
	if gotClaims == nil || gotClaims.Type != auth.TokenTypeClient {
		t.Errorf("claims not in context: %+v", gotClaims)
	}
}

func TestAuth_MissingHeader(t *testing.T) {
	resolver := &mockTokenResolver{
		ResolveFn: func(ctx context.Context, tokenString string) (*domain.Client, *auth.Claims, error) {
			t.Fatal("resolver must not be called without a token")
			return nil, nil, nil
		},
	}
	handler := Auth(resolver)(okHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/client/profile", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestAuth_NonBearerScheme(t *testing.T) {
	resolver := &mockTokenResolver{
		ResolveFn: func(ctx context.Context, tokenString string) (*domain.Client, *auth.Claims, error) {
			t.Fatal("resolver must not be called for non-bearer auth")
			return nil, nil, nil
		},
	}
	handler := Auth(resolver)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/client/profile", nil)
	req.SetBasicAuth("default", "s3cret")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestAuth_ResolverErrorMapsToStatus(t *testing.T) {
	resolver := &mockTokenResolver{
		ResolveFn: func(ctx context.Context, tokenString string) (*domain.Client, *auth.Claims, error) {
			return nil, nil, domain.NewInactiveClientError("mos1000")
		},
	}
	handler := Auth(resolver)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/client/profile", nil)
	req.Header.Set("Authorization", "Bearer stale-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for inactive client, got %d", rr.Code)
	}
}
