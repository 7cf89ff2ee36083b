package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "0123456789abcdef0123456789abcdef"

func newIssuerAt(at time.Time) *Issuer {
	issuer := NewIssuer(secret, 0, zap.NewNop())
	issuer.now = func() time.Time { return at }

	return issuer
}

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer(secret, 0, zap.NewNop())
	assert.Equal(t, DefaultLifetime, issuer.lifetime)

	tokenString, err := issuer.Issue(42)
	require.NoError(t, err)

	userID, ok := issuer.Verify(tokenString)
	assert.True(t, ok)
	assert.Equal(t, int64(42), userID)
}

func TestVerifyExpired(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tokenString, err := newIssuerAt(start).Issue(7)
	require.NoError(t, err)

	_, ok := newIssuerAt(start.Add(29 * time.Minute)).Verify(tokenString)
	assert.True(t, ok)

	_, ok = newIssuerAt(start.Add(31 * time.Minute)).Verify(tokenString)
	assert.False(t, ok)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	issuer := NewIssuer(secret, 0, zap.NewNop())
	valid, err := issuer.Issue(7)
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	require.Len(t, parts, 3)

	// Swap in a payload for another user while keeping the old signature.
	otherToken, err := issuer.Issue(8)
	require.NoError(t, err)
	tampered := parts[0] + "." + strings.Split(otherToken, ".")[1] + "." + parts[2]

	otherIssuer := NewIssuer("another-secret-another-secret", 0, zap.NewNop())
	foreign, err := otherIssuer.Issue(7)
	require.NoError(t, err)

	wrongAudience, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &resetClaims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{"session"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &resetClaims{
		UserID:           7,
		RegisteredClaims: jwt.RegisteredClaims{Audience: jwt.ClaimStrings{resetAudience}},
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	testTable := map[string]string{
		"empty":          "",
		"garbage":        "not.a.token",
		"tampered":       tampered,
		"wrong secret":   foreign,
		"wrong audience": wrongAudience,
		"no expiry":      noExpiry,
	}

	for name, tokenString := range testTable {
		t.Run(name, func(t *testing.T) {
			userID, ok := issuer.Verify(tokenString)
			assert.False(t, ok)
			assert.Zero(t, userID)
		})
	}
}
