// Package token issues and verifies signed password reset tokens.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// DefaultLifetime is how long a reset token stays valid.
const DefaultLifetime = 1800 * time.Second

const resetAudience = "password-reset"

type resetClaims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// Issuer signs reset tokens with a secret key.
type Issuer struct {
	secret   []byte
	lifetime time.Duration
	log      *zap.Logger
	now      func() time.Time
}

// NewIssuer creates an Issuer. A lifetime of zero uses DefaultLifetime.
func NewIssuer(secret string, lifetime time.Duration, logger *zap.Logger) *Issuer {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}

	return &Issuer{
		secret:   []byte(secret),
		lifetime: lifetime,
		log:      logger,
		now:      time.Now,
	}
}

// Issue creates a token for a user which expires after the issuer lifetime.
func (issuer *Issuer) Issue(userID int64) (string, error) {
	now := issuer.now()
	claims := &resetClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{resetAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(issuer.lifetime)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(issuer.secret)
}

// Verify returns the user ID in a token.
//
// Malformed, tampered and expired tokens all return false.
func (issuer *Issuer) Verify(tokenString string) (int64, bool) {
	userID, err := issuer.parse(tokenString)

	if err != nil {
		issuer.log.Debug("Rejected reset token", zap.Error(err))

		return 0, false
	}

	return userID, true
}

var errNoUser = errors.New("token has no user")

func (issuer *Issuer) parse(tokenString string) (int64, error) {
	claims := &resetClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(*jwt.Token) (any, error) {
			return issuer.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(resetAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(issuer.now),
	)

	if err != nil {
		return 0, err
	}

	if claims.UserID <= 0 {
		return 0, errNoUser
	}

	return claims.UserID, nil
}
