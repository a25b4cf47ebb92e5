// Package config handles configuration loading for qbconnect.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/inercia/qbconnect/internal/secrets"
)

// EnvConfigPath is the environment variable that overrides the config file
// location.
const EnvConfigPath = "QBCONNECTRC"

// GatewayConfig holds the endpoint and TLS material.
type GatewayConfig struct {
	// URL is the AppGateway endpoint. Empty selects the production
	// gateway.
	URL string `yaml:"url"`
	// CertFile and KeyFile are the client certificate PEM files.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	// CAFile is the CA bundle for verifying the gateway. Empty means the
	// system root pool.
	CAFile string `yaml:"ca_file"`
}

// ApplicationConfig identifies the calling application.
type ApplicationConfig struct {
	Login    string `yaml:"login"`
	ID       string `yaml:"id"`
	Version  string `yaml:"version"`
	Language string `yaml:"language"`
}

// TicketConfig says where the connection ticket lives. Exactly one source
// is consulted, in order: inline value, ticket file, system keychain.
type TicketConfig struct {
	// Value is the ticket inline. Convenient, but the file and keychain
	// sources keep the credential out of the config file.
	Value string `yaml:"value"`
	// File is a path to a file holding just the ticket. Pairs with
	// TicketWatcher for rotation without restarts.
	File string `yaml:"file"`
	// Keychain reads the ticket from the system keychain (macOS only;
	// see the ticket subcommands for storing it).
	Keychain bool `yaml:"keychain"`
}

// LoggingConfig mirrors logging.Config in YAML form.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
	JSON  bool   `yaml:"json"`
}

// Config is the complete qbconnect configuration.
type Config struct {
	Gateway          GatewayConfig     `yaml:"gateway"`
	Application      ApplicationConfig `yaml:"application"`
	ConnectionTicket TicketConfig      `yaml:"connection_ticket"`
	Logging          LoggingConfig     `yaml:"logging"`
}

// DefaultConfigPath returns the default configuration file path:
// $QBCONNECTRC if set, otherwise ~/.qbconnectrc.
func DefaultConfigPath() string {
	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		return envPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".qbconnectrc"
	}
	return filepath.Join(home, ".qbconnectrc")
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse parses YAML configuration data. Field-level validation is left to
// the client constructor, which knows which fields are required.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// ResolveConnectionTicket returns the connection ticket from the first
// configured source. An unconfigured ticket resolves to the empty string;
// sign-on will then fail with a clear error rather than here.
func (c *Config) ResolveConnectionTicket() (string, error) {
	if c.ConnectionTicket.Value != "" {
		return strings.TrimSpace(c.ConnectionTicket.Value), nil
	}
	if c.ConnectionTicket.File != "" {
		data, err := os.ReadFile(c.ConnectionTicket.File)
		if err != nil {
			return "", fmt.Errorf("read connection ticket file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	if c.ConnectionTicket.Keychain {
		ticket, err := secrets.ConnectionTicket()
		if err != nil {
			return "", fmt.Errorf("read connection ticket from keychain: %w", err)
		}
		return strings.TrimSpace(ticket), nil
	}
	return "", nil
}
