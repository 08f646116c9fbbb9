package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer   = "ticketbot"
	tokenAudience = "ops-api"
)

// ErrNotOperatorToken is returned for a well-signed token that was not issued to an operator.
var ErrNotOperatorToken = errors.New("token does not name an operator")

// OperatorClaims is the payload of an ops API token. Subject names the operator.
type OperatorClaims struct {
	jwt.RegisteredClaims
}

// Operator returns the operator the token was issued to.
func (c *OperatorClaims) Operator() string {
	return c.Subject
}

// TokenManager signs and checks ops API tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager. A non-positive ttl falls back to one hour.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute, now: time.Now}
}

// IssueOperatorToken signs a token for operator and returns it with its expiry.
func (tm *TokenManager) IssueOperatorToken(operator string) (string, time.Time, error) {
	if operator == "" {
		return "", time.Time{}, ErrNotOperatorToken
	}
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(tm.ttl)
	claims := &OperatorClaims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    tokenIssuer,
		Subject:   operator,
		Audience:  jwt.ClaimStrings{tokenAudience},
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseOperatorToken verifies signature, issuer, audience and expiry.
func (tm *TokenManager) ParseOperatorToken(raw string) (*OperatorClaims, error) {
	claims := &OperatorClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Operator() == "" {
		return nil, ErrNotOperatorToken
	}
	return claims, nil
}
