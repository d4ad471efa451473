package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" || cfg.StoreDriver != DriverMongo {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.VersionCacheTTL != 10*time.Minute {
		t.Fatalf("expected 10m cache ttl, got %s", cfg.VersionCacheTTL)
	}
	if cfg.BootstrapWorkers != 8 {
		t.Fatalf("expected 8 workers, got %d", cfg.BootstrapWorkers)
	}
	if cfg.Redis.Addr != "" {
		t.Fatalf("redis should be disabled by default, got %q", cfg.Redis.Addr)
	}
}

func TestLoad_Postgres(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"STORE_DRIVER":      "Postgres",
		"DATABASE_URL":      "postgres://localhost/fusepoint",
		"VERSION_CACHE_TTL": "30s",
		"BOOTSTRAP_WORKERS": "2",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StoreDriver != DriverPostgres {
		t.Fatalf("expected postgres driver, got %q", cfg.StoreDriver)
	}
	if cfg.VersionCacheTTL != 30*time.Second || cfg.BootstrapWorkers != 2 {
		t.Fatalf("unexpected values: %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown driver":       {"STORE_DRIVER": "sqlite"},
		"postgres without url": {"STORE_DRIVER": "postgres"},
		"zero workers":         {"BOOTSTRAP_WORKERS": "0"},
		"malformed cache ttl":  {"VERSION_CACHE_TTL": "soon"},
		"non-numeric redis db": {"REDIS_DB": "one"},
		"unknown log level":    {"LOG_LEVEL": "verbose"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := load(context.Background(), envconfig.MapLookuper(env)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestIsProduction(t *testing.T) {
	if !(&Config{Env: "Production"}).IsProduction() {
		t.Fatal("expected production")
	}
	if (&Config{Env: "development"}).IsProduction() {
		t.Fatal("development is not production")
	}
}
