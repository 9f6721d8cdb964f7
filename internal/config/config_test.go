package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected server addr: %s", cfg.Server.Addr)
	}
	if cfg.Server.Mode != "release" {
		t.Fatalf("unexpected server mode: %s", cfg.Server.Mode)
	}
	if cfg.Server.ShutdownTimeout != 15*time.Second {
		t.Fatalf("unexpected shutdown timeout: %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Model.Endpoint != "http://sam-service:9090" {
		t.Fatalf("unexpected model endpoint: %s", cfg.Model.Endpoint)
	}
	if cfg.Upload.MaxSize != 10*1024*1024 {
		t.Fatalf("unexpected upload max size: %d", cfg.Upload.MaxSize)
	}
	if len(cfg.Upload.AllowedTypes) == 0 {
		t.Fatal("expected allowed upload types")
	}
	if cfg.Auth.Enabled {
		t.Fatal("auth should be disabled by default")
	}
	if cfg.Dashboard.Seed != 42 || cfg.Dashboard.FlightCount != 25 {
		t.Fatalf("unexpected dashboard defaults: %+v", cfg.Dashboard)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  addr: ":9999"
  mode: debug
database:
  dsn: "host=localhost user=test dbname=test"
  max_open_conns: 3
model:
  endpoint: http://localhost:9090
  timeout: 10s
auth:
  enabled: true
  jwt_secret: test-secret
  audience: test-audience
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Addr != ":9999" || cfg.Server.Mode != "debug" {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Database.DSN != "host=localhost user=test dbname=test" {
		t.Fatalf("unexpected dsn: %s", cfg.Database.DSN)
	}
	if cfg.Database.MaxOpenConns != 3 {
		t.Fatalf("unexpected max open conns: %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Model.Endpoint != "http://localhost:9090" || cfg.Model.Timeout != 10*time.Second {
		t.Fatalf("unexpected model config: %+v", cfg.Model)
	}
	if !cfg.Auth.Enabled || cfg.Auth.JWTSecret != "test-secret" {
		t.Fatalf("unexpected auth config: %+v", cfg.Auth)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Redis.Addr != "redis:6379" {
		t.Fatalf("unexpected redis addr: %s", cfg.Redis.Addr)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Fatalf("unexpected read timeout: %v", cfg.Server.ReadTimeout)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("MODEL_ENDPOINT", "http://override:9191")
	t.Setenv("REDIS_ADDR", "localhost:6380")

	cfg := Default()

	if cfg.Model.Endpoint != "http://override:9191" {
		t.Fatalf("env override not applied: %s", cfg.Model.Endpoint)
	}
	if cfg.Redis.Addr != "localhost:6380" {
		t.Fatalf("env override not applied: %s", cfg.Redis.Addr)
	}
}
