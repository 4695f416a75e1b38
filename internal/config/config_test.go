package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadRefusesMissingToken(t *testing.T) {
	path := writeConfig(t, "store:\n  path: test.db\n")

	t.Setenv("ENDPOINT_BEARER_TOKEN", "")
	if _, err := LoadFile(path); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func TestLoadTokenFromEnv(t *testing.T) {
	path := writeConfig(t, "store:\n  path: test.db\n")

	t.Setenv("ENDPOINT_BEARER_TOKEN", "secret")
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.Token != "secret" {
		t.Fatalf("token override not applied: %q", cfg.Auth.Token)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: warn
auth:
  token: from-file
transport:
  maxAttempts: 5
  insecureSkipVerify: true
endpoints:
  comments: https://endpoint.example/comments
`)

	t.Setenv("ENDPOINT_BEARER_TOKEN", "")
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Logging.Level != "warn" {
		t.Fatalf("level not merged: %s", cfg.Logging.Level)
	}
	if cfg.Transport.MaxAttempts != 5 {
		t.Fatalf("maxAttempts not merged: %d", cfg.Transport.MaxAttempts)
	}
	if !cfg.Transport.InsecureSkipVerify {
		t.Fatal("insecureSkipVerify not merged")
	}
	if cfg.Store.Path != "comments.db" {
		t.Fatalf("default store path lost: %s", cfg.Store.Path)
	}
	if cfg.Transport.BackoffMillis != 300 {
		t.Fatalf("default backoff lost: %d", cfg.Transport.BackoffMillis)
	}
}
