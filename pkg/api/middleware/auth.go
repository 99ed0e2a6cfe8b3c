// Package middleware implements the gateway's wire-boundary
// authentication: bearer JWT, and AWS SigV4 where the
// access key carries a JWT (access key `JWT:<token>`). Neither scheme is
// part of the core's own contract: a request that passes this layer is
// handed to pkg/api/handlers as an authenticated bucket owner id.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/fula-project/gateway/pkg/api/auth"
	"github.com/fula-project/gateway/pkg/config"
	"github.com/fula-project/gateway/pkg/metrics"
)

type contextKey string

const claimsContextKey contextKey = "fula-claims"

// ClaimsFromContext retrieves the authenticated caller's claims, or nil if
// the request was never authenticated (e.g. a health check route).
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims
}

// credentialPattern extracts the access-key-id field of a SigV4
// Authorization header: "AWS4-HMAC-SHA256 Credential=<key>/<date>/...".
var credentialPattern = regexp.MustCompile(`Credential=([^/,\s]+)`)

// Authenticate validates the Authorization header per cfg.Mode and stores
// the resulting claims in the request context. jwtSvc is required whenever
// cfg.Mode is "jwt" or "both"; SigV4's own request carries its JWT inline
// via the access key, so the same jwtSvc validates both schemes.
func Authenticate(cfg config.AuthConfig, jwtSvc *auth.JWTService, m metrics.APIMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, reason := extractToken(r, cfg)
			if token == "" {
				recordAuthFailure(m, reason)
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}

			claims, err := jwtSvc.Validate(token)
			if err != nil {
				recordAuthFailure(m, "invalid_token")
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken pulls a bearer token from either an "Authorization: Bearer
// <token>" header or a SigV4 "Authorization: AWS4-HMAC-SHA256
// Credential=JWT:<token>/..." header, depending on cfg.Mode. It also
// enforces SigV4's 15-minute x-amz-date clock-skew window.
func extractToken(r *http.Request, cfg config.AuthConfig) (token, failureReason string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", "missing_authorization"
	}

	if cfg.Mode == config.AuthModeJWT || cfg.Mode == config.AuthModeBoth {
		if t, ok := bearerToken(authHeader); ok {
			return t, ""
		}
	}

	if cfg.Mode == config.AuthModeSigV4 || cfg.Mode == config.AuthModeBoth {
		if strings.HasPrefix(authHeader, "AWS4-HMAC-SHA256") {
			if skew := cfg.SigV4.MaxClockSkew; skew > 0 {
				if !withinClockSkew(r.Header.Get("X-Amz-Date"), skew) {
					return "", "expired_signature"
				}
			}

			match := credentialPattern.FindStringSubmatch(authHeader)
			if len(match) != 2 {
				return "", "malformed_signature"
			}
			accessKey := match[1]
			if !strings.HasPrefix(accessKey, "JWT:") {
				return "", "unsupported_access_key"
			}
			return strings.TrimPrefix(accessKey, "JWT:"), ""
		}
	}

	return "", "unrecognized_scheme"
}

func bearerToken(authHeader string) (string, bool) {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// withinClockSkew parses an x-amz-date value (basic ISO 8601,
// "20060102T150405Z") and reports whether it falls within skew of now.
func withinClockSkew(amzDate string, skew time.Duration) bool {
	if amzDate == "" {
		return false
	}
	t, err := time.Parse("20060102T150405Z", amzDate)
	if err != nil {
		return false
	}
	delta := time.Since(t)
	if delta < 0 {
		delta = -delta
	}
	return delta <= skew
}

func recordAuthFailure(m metrics.APIMetrics, reason string) {
	if m != nil {
		m.RecordAuthFailure(reason)
	}
}
