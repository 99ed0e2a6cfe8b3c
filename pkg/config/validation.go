package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks cfg against its struct validation tags and a handful of
// cross-field rules validator tags alone can't express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Auth.Mode == AuthModeJWT || cfg.Auth.Mode == AuthModeBoth {
		if len(cfg.Auth.JWT.Secret) < 32 {
			return fmt.Errorf("auth.jwt.secret must be at least 32 characters when auth.mode is %q", cfg.Auth.Mode)
		}
	}

	if cfg.Storage.Backend == StorageBackendBadger && cfg.Storage.Badger.Dir == "" {
		return fmt.Errorf("storage.badger.dir is required when storage.backend is %q", StorageBackendBadger)
	}

	if cfg.Registry.Backend == RegistryBackendPostgres && cfg.Registry.Postgres.DSN == "" {
		return fmt.Errorf("registry.postgres.dsn is required when registry.backend is %q", RegistryBackendPostgres)
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry.enabled is true")
	}

	if cfg.Telemetry.Profiling.Enabled && cfg.Telemetry.Profiling.Endpoint == "" {
		return fmt.Errorf("telemetry.profiling.endpoint is required when telemetry.profiling.enabled is true")
	}

	return nil
}
