package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_InvalidMetricsPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.Port = 70000 // out of range

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for port out of range")
	}
	if !strings.Contains(err.Error(), "max") {
		t.Errorf("Expected 'max' validation error, got: %v", err)
	}
}

func TestValidate_MissingGatewayURL(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.GatewayURL = ""

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for missing gateway url")
	}
}

func TestValidate_InvalidGatewayURL(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.GatewayURL = "not a url"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for malformed gateway url")
	}
}

func TestValidate_BadgerBackendRequiresDir(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Storage.Backend = StorageBackendBadger
	cfg.Storage.Badger.Dir = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for badger backend without a directory")
	}
	if !strings.Contains(err.Error(), "storage.badger.dir") {
		t.Errorf("Expected error about storage.badger.dir, got: %v", err)
	}
}

func TestValidate_PostgresRegistryRequiresDSN(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Registry.Backend = RegistryBackendPostgres
	cfg.Registry.Postgres.DSN = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for postgres registry without a DSN")
	}
	if !strings.Contains(err.Error(), "registry.postgres.dsn") {
		t.Errorf("Expected error about registry.postgres.dsn, got: %v", err)
	}
}

func TestValidate_JWTModeRequiresSecret(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Auth.Mode = AuthModeJWT
	cfg.Auth.JWT.Secret = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for jwt auth mode without a secret")
	}
	if !strings.Contains(err.Error(), "auth.jwt.secret") {
		t.Errorf("Expected error about auth.jwt.secret, got: %v", err)
	}
}

func TestValidate_JWTSecretTooShort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Auth.Mode = AuthModeBoth
	cfg.Auth.JWT.Secret = "too-short"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for short jwt secret")
	}
}

func TestValidate_SigV4ModeDoesNotRequireSecret(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Auth.Mode = AuthModeSigV4
	cfg.Auth.JWT.Secret = ""

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected sigv4-only config to validate without a jwt secret, got: %v", err)
	}
}

func TestValidate_TelemetryEnabledWithoutEndpoint(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for telemetry enabled without endpoint")
	}
	if !strings.Contains(err.Error(), "telemetry") {
		t.Errorf("Expected error about telemetry endpoint, got: %v", err)
	}
}

func TestValidate_TelemetrySampleRateOutOfRange(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = "localhost:4317"
	cfg.Telemetry.SampleRate = 1.5

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for sample rate out of range")
	}
}

func TestValidate_InvalidStorageBackend(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Storage.Backend = "floppy"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for unknown storage backend")
	}
}

func TestValidate_InvalidKEMMode(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Crypto.KEMMode = "quantum-vibes"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for unknown KEM mode")
	}
}
