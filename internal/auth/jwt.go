// Package auth issues and validates the bearer tokens clients exchange
// their API credentials for.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTypeClient marks tokens issued to API clients. Admin tokens are a
// different surface and are never accepted by the gateway.
const TokenTypeClient = "client"

// Claims carries the client identity and granted services inside a token.
type Claims struct {
	AppID    string   `json:"app_id"`
	Services []string `json:"services"`
	Type     string   `json:"type"`
	jwt.RegisteredClaims
}

// Manager signs and verifies HS256 tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// TTL returns the configured token lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Generate creates a client token embedding the app id and the names of
// the services the client may call.
func (m *Manager) Generate(appID string, services []string) (string, error) {
	now := time.Now()
	claims := Claims{
		AppID:    appID,
		Services: services,
		Type:     TokenTypeClient,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("client_%s", appID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token string and returns its claims.
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}
