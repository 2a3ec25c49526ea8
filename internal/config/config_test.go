package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestLoad_LocalSQLite(t *testing.T) {
	setEnv(t, map[string]string{
		"DB_DRIVER":           "sqlite",
		"DB_SOURCE":           "",
		"AUTH_PROVIDER":       "local",
		"ADMIN_EMAIL":         "admin@campus.edu",
		"ADMIN_PASSWORD_HASH": "$2a$10$abcdefghijklmnopqrstuv",
		"AUTH_JWT_SECRET":     "secret",
		"REMOTE_TIMEOUT":      "3s",
		"DASHBOARD_CONFIG":    "",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.DBSource != "dashboard.db" {
		t.Errorf("expected default sqlite path, got %q", cfg.DBSource)
	}
	if cfg.RemoteTimeout != 3*time.Second {
		t.Errorf("expected 3s timeout, got %v", cfg.RemoteTimeout)
	}
	if len(cfg.Campus.Resources) == 0 {
		t.Errorf("expected default campus resources")
	}
}

func TestLoad_RemoteRequiresAuthSettings(t *testing.T) {
	setEnv(t, map[string]string{
		"DB_DRIVER":       "sqlite",
		"AUTH_PROVIDER":   "remote",
		"AUTH_URL":        "",
		"AUTH_ANON_KEY":   "",
		"AUTH_JWT_SECRET": "",
	})

	if _, err := Load(); err == nil {
		t.Fatal("expected error when auth settings are missing")
	}
}

func TestLoad_PostgresRequiresHost(t *testing.T) {
	setEnv(t, map[string]string{
		"DB_DRIVER":       "postgres",
		"DB_SOURCE":       "",
		"DB_HOST":         "",
		"AUTH_PROVIDER":   "remote",
		"AUTH_URL":        "https://project.example.co",
		"AUTH_ANON_KEY":   "anon",
		"AUTH_JWT_SECRET": "secret",
	})

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DB_HOST is missing")
	}
}

func TestLoad_BadDuration(t *testing.T) {
	setEnv(t, map[string]string{
		"DB_DRIVER":           "sqlite",
		"AUTH_PROVIDER":       "local",
		"ADMIN_EMAIL":         "admin@campus.edu",
		"ADMIN_PASSWORD_HASH": "hash",
		"AUTH_JWT_SECRET":     "secret",
		"REMOTE_TIMEOUT":      "soon",
	})

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed REMOTE_TIMEOUT")
	}
}

func TestLoadCampus_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "campus.yaml")
	body := `
name: North Campus
center: {lat: 10.5, lng: 20.25}
resources:
  - {type: security, name: Gate Booth, lat: 10.51, lng: 20.26, icon: fas fa-shield-alt}
buildings:
  - id: library
    name: Main Library
    coords: [{lat: 10.1, lng: 20.1}, {lat: 10.2, lng: 20.2}]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write campus file: %v", err)
	}

	campus, err := LoadCampus(path)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if campus.Name != "North Campus" || campus.Center.Lat != 10.5 {
		t.Errorf("campus not loaded: %+v", campus)
	}
	if len(campus.Resources) != 1 || campus.Resources[0].Name != "Gate Booth" {
		t.Errorf("resources not replaced: %+v", campus.Resources)
	}
	if len(campus.Buildings) != 1 || len(campus.Buildings[0].Coords) != 2 {
		t.Errorf("buildings not loaded: %+v", campus.Buildings)
	}
	if campus.Tiles.URL == "" {
		t.Errorf("expected default tiles to be kept")
	}
}
