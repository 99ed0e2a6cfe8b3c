package config

import (
	"testing"
	"time"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_Server(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.ListenAddr != ":8443" {
		t.Errorf("Expected default listen addr ':8443', got %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.MaxRequestBodyBytes == 0 {
		t.Error("Expected default max request body size to be set")
	}
}

func TestApplyDefaults_Storage(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Storage.Backend != StorageBackendMemory {
		t.Errorf("Expected default storage backend 'memory', got %q", cfg.Storage.Backend)
	}
	if cfg.Storage.Badger.Dir == "" {
		t.Error("Expected default badger dir to be set")
	}
}

func TestApplyDefaults_Registry(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Registry.Backend != RegistryBackendMemory {
		t.Errorf("Expected default registry backend 'memory', got %q", cfg.Registry.Backend)
	}
}

func TestApplyDefaults_Auth(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Auth.Mode != AuthModeSigV4 {
		t.Errorf("Expected default auth mode 'sigv4', got %q", cfg.Auth.Mode)
	}
	if cfg.Auth.SigV4.Region != "us-east-1" {
		t.Errorf("Expected default sigv4 region 'us-east-1', got %q", cfg.Auth.SigV4.Region)
	}
}

func TestApplyDefaults_Admin(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Admin.Username != "admin" {
		t.Errorf("Expected default admin username 'admin', got %q", cfg.Admin.Username)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  "DEBUG",
			Format: "json",
			Output: "/var/log/fula-gateway.log",
		},
		Server: ServerConfig{
			ShutdownTimeout: 60 * time.Second,
		},
		Admin: AdminConfig{
			Username: "customadmin",
			Email:    "admin@example.com",
		},
	}

	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected explicit level 'DEBUG' to be preserved, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected explicit format 'json' to be preserved, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "/var/log/fula-gateway.log" {
		t.Errorf("Expected explicit output to be preserved, got %q", cfg.Logging.Output)
	}
	if cfg.Server.ShutdownTimeout != 60*time.Second {
		t.Errorf("Expected explicit timeout 60s to be preserved, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Admin.Username != "customadmin" {
		t.Errorf("Expected explicit admin username to be preserved, got %q", cfg.Admin.Username)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Default config should be valid, got error: %v", err)
	}
}

func TestGetDefaultConfig_HasRequiredFields(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level == "" {
		t.Error("Default config missing logging level")
	}
	if cfg.Server.ListenAddr == "" {
		t.Error("Default config missing server listen address")
	}
	if cfg.Admin.Username == "" {
		t.Error("Default config missing admin username")
	}
	if cfg.Storage.Backend == "" {
		t.Error("Default config missing storage backend")
	}
}
