package config

import "time"

// GetDefaultConfig returns a Config populated entirely with defaults; Load
// returns it when no config file exists.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields of cfg with their defaults. It is
// safe to call on a partially populated Config (e.g. after unmarshaling a
// config file that only overrides a few fields).
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8443"
	}
	if cfg.Server.GatewayURL == "" {
		cfg.Server.GatewayURL = "http://localhost:8443"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Server.MaxRequestBodyBytes == 0 {
		cfg.Server.MaxRequestBodyBytes = 5 << 30 // 5 GiB, the S3 single-PUT limit
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = 0.1
	}

	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = StorageBackendMemory
	}
	if cfg.Storage.Badger.Dir == "" {
		cfg.Storage.Badger.Dir = getConfigDir() + "/blocks"
	}
	if cfg.Storage.Badger.ValueLogFileSize == 0 {
		cfg.Storage.Badger.ValueLogFileSize = 1 << 30 // 1 GiB
	}

	if cfg.Pinning.ConcurrentPins == 0 {
		cfg.Pinning.ConcurrentPins = 8
	}
	if cfg.Pinning.PinPollInterval == 0 {
		cfg.Pinning.PinPollInterval = 5 * time.Second
	}
	if cfg.Pinning.PinWaitTimeout == 0 {
		cfg.Pinning.PinWaitTimeout = 5 * time.Minute
	}

	if cfg.Registry.Backend == "" {
		cfg.Registry.Backend = RegistryBackendMemory
	}

	if cfg.Crypto.KEMMode == "" {
		cfg.Crypto.KEMMode = KEMModeClassic
	}

	if cfg.Auth.Mode == "" {
		// SigV4 needs no generated secret, so it is the mode a freshly
		// initialized config can satisfy without operator input. Set
		// auth.mode to "jwt" or "both" and auth.jwt.secret explicitly
		// to enable bearer-token auth.
		cfg.Auth.Mode = AuthModeSigV4
	}
	if cfg.Auth.JWT.Issuer == "" {
		cfg.Auth.JWT.Issuer = "fula-gateway"
	}
	if cfg.Auth.JWT.AccessTokenDuration == 0 {
		cfg.Auth.JWT.AccessTokenDuration = 15 * time.Minute
	}
	if cfg.Auth.JWT.RefreshTokenDuration == 0 {
		cfg.Auth.JWT.RefreshTokenDuration = 7 * 24 * time.Hour
	}
	if cfg.Auth.SigV4.Region == "" {
		cfg.Auth.SigV4.Region = "us-east-1"
	}
	if cfg.Auth.SigV4.Service == "" {
		cfg.Auth.SigV4.Service = "s3"
	}
	if cfg.Auth.SigV4.MaxClockSkew == 0 {
		cfg.Auth.SigV4.MaxClockSkew = 15 * time.Minute
	}

	if cfg.Admin.Username == "" {
		cfg.Admin.Username = "admin"
	}
}
