package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/inercia/qbconnect/internal/config"
)

const sampleConfig = `
gateway:
  url: https://webapps.quickbooks.com/j/AppGateway
  cert_file: /etc/qbconnect/client.pem
  key_file: /etc/qbconnect/client.key
  ca_file: /etc/qbconnect/ca.pem
application:
  login: app.example.com
  id: "134"
  version: "2"
  language: English
connection_ticket:
  value: TGT-9-abc123
logging:
  level: debug
  json: true
`

func TestParse(t *testing.T) {
	cfg, err := config.Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Gateway.URL != "https://webapps.quickbooks.com/j/AppGateway" {
		t.Errorf("Gateway.URL = %q", cfg.Gateway.URL)
	}
	if cfg.Gateway.CertFile != "/etc/qbconnect/client.pem" {
		t.Errorf("Gateway.CertFile = %q", cfg.Gateway.CertFile)
	}
	if cfg.Application.Login != "app.example.com" {
		t.Errorf("Application.Login = %q", cfg.Application.Login)
	}
	if cfg.Application.ID != "134" {
		t.Errorf("Application.ID = %q", cfg.Application.ID)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.JSON {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := config.Parse([]byte("gateway: [not a mapping")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestResolveConnectionTicket_Value(t *testing.T) {
	cfg := &config.Config{}
	cfg.ConnectionTicket.Value = "  TGT-1  "

	ticket, err := cfg.ResolveConnectionTicket()
	if err != nil {
		t.Fatalf("ResolveConnectionTicket failed: %v", err)
	}
	if ticket != "TGT-1" {
		t.Errorf("ticket = %q, want trimmed TGT-1", ticket)
	}
}

func TestResolveConnectionTicket_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ticket")
	if err := os.WriteFile(path, []byte("TGT-2\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	cfg.ConnectionTicket.File = path

	ticket, err := cfg.ResolveConnectionTicket()
	if err != nil {
		t.Fatalf("ResolveConnectionTicket failed: %v", err)
	}
	if ticket != "TGT-2" {
		t.Errorf("ticket = %q, want TGT-2", ticket)
	}
}

func TestResolveConnectionTicket_FileError(t *testing.T) {
	cfg := &config.Config{}
	cfg.ConnectionTicket.File = filepath.Join(t.TempDir(), "missing")

	if _, err := cfg.ResolveConnectionTicket(); err == nil {
		t.Error("expected error for unreadable ticket file")
	}
}

func TestResolveConnectionTicket_Unconfigured(t *testing.T) {
	cfg := &config.Config{}
	ticket, err := cfg.ResolveConnectionTicket()
	if err != nil {
		t.Fatalf("ResolveConnectionTicket failed: %v", err)
	}
	if ticket != "" {
		t.Errorf("ticket = %q, want empty for unconfigured source", ticket)
	}
}

func TestDefaultConfigPath_EnvOverride(t *testing.T) {
	t.Setenv(config.EnvConfigPath, "/tmp/custom.yaml")
	if got := config.DefaultConfigPath(); got != "/tmp/custom.yaml" {
		t.Errorf("DefaultConfigPath = %q", got)
	}
}
