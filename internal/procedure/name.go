// Package procedure derives and validates the canonical names that address
// backend procedures. Every component of a name is restricted to a safe
// identifier set because these names resolve to executable logic.
package procedure

import (
	"fmt"
	"regexp"

	"github.com/aretechltd/mospay/internal/core/domain"
)

const (
	// ResponsePrefix marks the paired normalization procedure of a route.
	ResponsePrefix = "RESPONSE_"
	// StatusSuffix marks the status-check variant of a route.
	StatusSuffix = "Status"

	maxComponentLength = 64
	maxNameLength      = 160
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Names holds the canonical procedure identifiers derived from one
// (appId, serviceName, route) tuple.
type Names struct {
	Forward  string
	Response string
	Status   string
}

// ValidComponent reports whether s is usable as one segment of a
// procedure name: non-empty, bounded, alphanumeric plus underscore.
func ValidComponent(s string) bool {
	return len(s) <= maxComponentLength && identifierPattern.MatchString(s)
}

// ValidHandle reports whether s is acceptable as a complete registered
// handle. The same character set applies; the length bound covers the
// RESPONSE_ prefix and Status suffix.
func ValidHandle(s string) bool {
	return len(s) <= maxNameLength+len(ResponsePrefix) && identifierPattern.MatchString(s)
}

// Resolve validates the tuple components and derives the procedure names.
// It fails before any lookup when a component falls outside the safe set,
// so untrusted request strings can never reach an execution context.
func Resolve(appID, serviceName, route string) (*Names, error) {
	if !ValidComponent(appID) {
		return nil, domain.NewInvalidIdentifierError("appId", appID)
	}
	if !ValidComponent(serviceName) {
		return nil, domain.NewInvalidIdentifierError("serviceName", serviceName)
	}
	if !ValidComponent(route) {
		return nil, domain.NewInvalidIdentifierError("route", route)
	}

	forward := fmt.Sprintf("%s_%s_%s", appID, serviceName, route)
	if len(forward) > maxNameLength {
		return nil, domain.NewInvalidIdentifierError("procedure name", forward)
	}

	return &Names{
		Forward:  forward,
		Response: ResponsePrefix + forward,
		Status:   forward + StatusSuffix,
	}, nil
}

// ForVariant returns the canonical name for a registered variant. Unknown
// variants fall back to a suffixed forward name so new variants keep the
// same naming and validation rule.
func (n *Names) ForVariant(variant domain.ProcedureVariant) string {
	switch variant {
	case domain.VariantForward:
		return n.Forward
	case domain.VariantResponse:
		return n.Response
	case domain.VariantStatus:
		return n.Status
	default:
		return fmt.Sprintf("%s_%s", n.Forward, variant)
	}
}
