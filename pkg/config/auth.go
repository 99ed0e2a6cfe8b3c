package config

import "time"

// AuthMode selects which S3 request authentication scheme the API layer
// accepts.
type AuthMode string

const (
	// AuthModeJWT accepts only bearer-JWT Authorization headers.
	AuthModeJWT AuthMode = "jwt"

	// AuthModeSigV4 accepts only AWS Signature Version 4 requests,
	// letting existing S3 SDKs and CLIs talk to the gateway unmodified.
	AuthModeSigV4 AuthMode = "sigv4"

	// AuthModeBoth accepts either scheme, selected per-request by the
	// presence of an "Authorization: Bearer" vs. "Authorization: AWS4-HMAC-SHA256" header.
	AuthModeBoth AuthMode = "both"
)

// AuthConfig configures the bearer-JWT and AWS SigV4 request
// authentication the API layer applies ahead of every S3 operation.
type AuthConfig struct {
	// Mode selects which authentication scheme(s) are accepted.
	Mode AuthMode `mapstructure:"mode" validate:"required,oneof=jwt sigv4 both" yaml:"mode"`

	// JWT configures bearer-JWT verification.
	JWT JWTAuthConfig `mapstructure:"jwt" yaml:"jwt"`

	// SigV4 configures acceptance of AWS Signature Version 4 requests.
	SigV4 SigV4AuthConfig `mapstructure:"sigv4" yaml:"sigv4"`
}

// JWTAuthConfig configures bearer-JWT verification, grounded on the
// access/refresh token pair model used for the control-plane API.
type JWTAuthConfig struct {
	// Secret is the HMAC signing key used to verify access tokens. Must
	// be at least 32 characters. Required when auth.mode is "jwt" or
	// "both"; enforced in Validate since the requirement spans the
	// parent AuthConfig.Mode field.
	Secret string `mapstructure:"secret" validate:"omitempty,min=32" yaml:"secret"`

	// Issuer is the expected token issuer claim.
	Issuer string `mapstructure:"issuer" yaml:"issuer"`

	// AccessTokenDuration is the lifetime of newly issued access tokens.
	AccessTokenDuration time.Duration `mapstructure:"access_token_duration" yaml:"access_token_duration"`

	// RefreshTokenDuration is the lifetime of newly issued refresh tokens.
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration" yaml:"refresh_token_duration"`
}

// SigV4AuthConfig configures acceptance of AWS Signature Version 4
// requests. The gateway takes the JWT from the access key (`JWT:<token>`)
// and checks X-Amz-Date; it does not recompute or verify the signature.
type SigV4AuthConfig struct {
	// Region is the region label of the SigV4 credential scope, e.g.
	// "us-east-1". The gateway does not federate across regions;
	// this is an opaque label S3 clients expect to supply. Incoming
	// credential scopes are not compared against it.
	Region string `mapstructure:"region" yaml:"region"`

	// Service is the service label of the SigV4 credential scope, "s3"
	// for this gateway. Incoming credential scopes are not compared
	// against it.
	Service string `mapstructure:"service" yaml:"service"`

	// MaxClockSkew bounds how far a request's X-Amz-Date may drift from
	// the gateway's clock before the request is rejected.
	MaxClockSkew time.Duration `mapstructure:"max_clock_skew" validate:"omitempty,gt=0" yaml:"max_clock_skew"`
}
