// Package auth issues and validates the bearer tokens accepted at the
// gateway's wire boundary.
// It knows nothing about buckets or objects; it only proves who is making
// a request.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fula-project/gateway/pkg/config"
)

var (
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrExpiredToken       = errors.New("auth: token has expired")
	ErrTokenSigningFailed = errors.New("auth: failed to sign token")
)

// Claims identifies the caller a validated access token was issued to.
type Claims struct {
	jwt.RegisteredClaims
	IsAdmin bool `json:"is_admin,omitempty"`
}

// JWTService signs and validates access tokens under a single HMAC secret.
type JWTService struct {
	cfg config.JWTAuthConfig
}

// NewJWTService builds a JWTService from the gateway's JWT auth
// configuration. cfg.Secret is assumed already validated (>= 32 bytes) by
// config.Validate.
func NewJWTService(cfg config.JWTAuthConfig) *JWTService {
	return &JWTService{cfg: cfg}
}

// IssueAccessToken signs a token for subject (the bucket owner id), valid
// for the configured AccessTokenDuration.
func (s *JWTService) IssueAccessToken(subject string, isAdmin bool) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTokenDuration)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		IsAdmin: isAdmin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", time.Time{}, ErrTokenSigningFailed
	}
	return signed, expiresAt, nil
}

// Validate parses and verifies tokenString, returning its claims.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
