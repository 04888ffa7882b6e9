// Package middleware implements the HTTP middleware chain of the gateway:
// recovery, request logging, rate limiting, bearer authentication, audit
// logging and per-request timeouts.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/aretechltd/mospay/internal/auth"
	"github.com/aretechltd/mospay/internal/core/domain"
	"github.com/aretechltd/mospay/internal/interfaces/rest"
)

type contextKey string

const (
	clientContextKey contextKey = "client"
	claimsContextKey contextKey = "claims"
)

// TokenResolver verifies a bearer token and loads the client it belongs to.
type TokenResolver interface {
	ResolveToken(ctx context.Context, tokenString string) (*domain.Client, *auth.Claims, error)
}

// Auth rejects requests without a valid client bearer token and stores the
// resolved client and claims in the request context.
func Auth(identity TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				rest.WriteError(w, domain.NewUnauthorizedError("Missing bearer token"))
				return
			}

			client, claims, err := identity.ResolveToken(r.Context(), token)
			if err != nil {
				rest.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), clientContextKey, client)
			ctx = context.WithValue(ctx, claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

// ClientFromContext returns the client stored by Auth.
func ClientFromContext(ctx context.Context) (*domain.Client, bool) {
	client, ok := ctx.Value(clientContextKey).(*domain.Client)
	return client, ok
}

// ClaimsFromContext returns the token claims stored by Auth.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims, ok
}
