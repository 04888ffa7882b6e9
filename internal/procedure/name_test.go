package procedure

import (
	"strings"
	"testing"

	"github.com/aretechltd/mospay/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	names, err := Resolve("acme01", "mtnmomorwa", "payment")
	require.NoError(t, err)

	assert.Equal(t, "acme01_mtnmomorwa_payment", names.Forward)
	assert.Equal(t, "RESPONSE_acme01_mtnmomorwa_payment", names.Response)
	assert.Equal(t, "acme01_mtnmomorwa_paymentStatus", names.Status)
}

func TestResolve_RejectsUnsafeCharacters(t *testing.T) {
	cases := []struct {
		name        string
		appID       string
		serviceName string
		route       string
	}{
		{"semicolon in service", "acme01", "a;drop", "payment"},
		{"quote in app id", `acme"01`, "mtnmomorwa", "payment"},
		{"space in route", "acme01", "mtnmomorwa", "pay ment"},
		{"hyphen in service", "acme01", "mtn-momo", "payment"},
		{"empty app id", "", "mtnmomorwa", "payment"},
		{"sql fragment", "acme01", "mtnmomorwa", "payment');--"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Resolve(tc.appID, tc.serviceName, tc.route)
			require.Error(t, err)
			assert.Equal(t, domain.KindInvalidIdentifier, domain.KindOf(err))
		})
	}
}

func TestResolve_BoundsComponentLength(t *testing.T) {
	long := strings.Repeat("a", 65)
	_, err := Resolve(long, "svc", "route")
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidIdentifier, domain.KindOf(err))
}

func TestResolve_BoundsTotalLength(t *testing.T) {
	// Each component is individually valid but the combined name exceeds
	// the total bound.
	a := strings.Repeat("a", 60)
	b := strings.Repeat("b", 60)
	c := strings.Repeat("c", 60)

	_, err := Resolve(a, b, c)
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidIdentifier, domain.KindOf(err))
}

func TestForVariant(t *testing.T) {
	names, err := Resolve("acme01", "mpesa", "checkout")
	require.NoError(t, err)

	assert.Equal(t, names.Forward, names.ForVariant(domain.VariantForward))
	assert.Equal(t, names.Response, names.ForVariant(domain.VariantResponse))
	assert.Equal(t, names.Status, names.ForVariant(domain.VariantStatus))
	assert.Equal(t, "acme01_mpesa_checkout_reversal", names.ForVariant(domain.ProcedureVariant("reversal")))
}

func TestValidHandle(t *testing.T) {
	assert.True(t, ValidHandle("RESPONSE_acme01_mpesa_checkout"))
	assert.True(t, ValidHandle("acme01_mpesa_checkoutStatus"))
	assert.False(t, ValidHandle(`acme"; DROP TABLE transactions; --`))
	assert.False(t, ValidHandle(""))
	assert.False(t, ValidHandle(strings.Repeat("x", 200)))
}
