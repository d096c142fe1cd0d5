package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.App.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.HTTP.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v, want 10s", cfg.HTTP.ShutdownTimeout)
	}
	if cfg.Billing.BulkConcurrency != 4 {
		t.Errorf("bulk concurrency = %d, want 4", cfg.Billing.BulkConcurrency)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", "file:dev.db")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("BILLING_BULKCONCURRENCY", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.App.Port)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "file:dev.db" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Log.Format != "console" {
		t.Errorf("log format = %q, want console", cfg.Log.Format)
	}
	if cfg.Billing.BulkConcurrency != 8 {
		t.Errorf("bulk concurrency = %d, want 8", cfg.Billing.BulkConcurrency)
	}
}
