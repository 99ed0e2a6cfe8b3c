package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# fula-gateway Configuration File

server:
  listen_addr: "%s"
  gateway_url: "%s"
  shutdown_timeout: 30s

logging:
  level: "INFO"
  format: "text"
  output: "stdout"

telemetry:
  enabled: false

metrics:
  enabled: true
  port: 9090

storage:
  backend: "memory"
  badger:
    dir: "%s"

pinning:
  enabled: true
  concurrent_pins: 8

registry:
  backend: "memory"

crypto:
  kem_mode: "classic"

auth:
  mode: "sigv4"
  jwt:
    secret: "%s"
  sigv4:
    region: "us-east-1"

admin:
  username: "admin"
`

// InitConfig writes a fresh configuration file to the default location
// (GetDefaultConfigPath), refusing to overwrite an existing file unless
// force is true. It returns the path written.
func InitConfig(force bool) (string, error) {
	return initConfigAt(GetDefaultConfigPath(), force)
}

// InitConfigToPath writes a fresh configuration file to path, refusing to
// overwrite an existing file unless force is true.
func InitConfigToPath(path string, force bool) error {
	_, err := initConfigAt(path, force)
	return err
}

func initConfigAt(path string, force bool) (string, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	secret, err := generateSecret(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate JWT secret: %w", err)
	}

	content := fmt.Sprintf(configTemplate, ":8443", "http://localhost:8443", filepath.Join(dir, "blocks"), secret)

	// 0600: contains a generated JWT signing secret.
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return path, nil
}

// generateSecret returns a random hex-encoded secret of n random bytes.
func generateSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
