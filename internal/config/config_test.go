package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("database.driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Provider.Name != "nationalgeographic" {
		t.Errorf("provider.name = %q", cfg.Provider.Name)
	}
	if !cfg.Provider.DefaultRandomMode {
		t.Error("provider.default_random_mode should default to true")
	}
	if cfg.NatGeo.TimeZone != "America/New_York" || cfg.NatGeo.FirstYear != 2011 {
		t.Errorf("natgeo defaults = %q/%d", cfg.NatGeo.TimeZone, cfg.NatGeo.FirstYear)
	}
	if cfg.Schedule.BackoffInitial != 30*time.Second {
		t.Errorf("schedule.backoff_initial = %v", cfg.Schedule.BackoffInitial)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "unknown driver", body: "database:\n  driver: mysql\n"},
		{name: "mirror without endpoint", body: "mirror:\n  enabled: true\n"},
		{name: "negative attempts", body: "schedule:\n  max_attempts: -1\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.body)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	sqlite := DatabaseConfig{Driver: "sqlite", Path: "./data/x.db"}
	if sqlite.DSN() != "./data/x.db" {
		t.Errorf("sqlite DSN = %q", sqlite.DSN())
	}

	pg := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", DBName: "natgeo", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=natgeo sslmode=disable"
	if pg.DSN() != want {
		t.Errorf("postgres DSN = %q, want %q", pg.DSN(), want)
	}

	pg.DSNOverride = "postgres://x"
	if pg.DSN() != "postgres://x" {
		t.Errorf("override DSN = %q", pg.DSN())
	}
}
