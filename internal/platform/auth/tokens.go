package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for tokens with a bad signature, a bad shape,
// or an expiry in the past.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims carries the subject (username), issued-at, expiry and a unique id.
// Roles are not embedded; they are resolved from the user store per request.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256-signed bearer tokens.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// GenerateAccessToken returns a short-lived token for username.
func (m *TokenManager) GenerateAccessToken(username string) (string, error) {
	return m.sign(username, m.accessTTL)
}

// GenerateRefreshToken returns a long-lived token for username.
func (m *TokenManager) GenerateRefreshToken(username string) (string, error) {
	return m.sign(username, m.refreshTTL)
}

func (m *TokenManager) sign(subject string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseSubject verifies signature and expiry and returns the subject.
func (m *TokenManager) ParseSubject(tokenStr string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// ValidateFor reports whether tokenStr is valid and was issued for username.
func (m *TokenManager) ValidateFor(tokenStr, username string) bool {
	subject, err := m.ParseSubject(tokenStr)
	return err == nil && subject == username
}
