package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Catalog.Driver != DriverHCL {
		t.Errorf("expected default driver %q, got %q", DriverHCL, cfg.Catalog.Driver)
	}
	if cfg.Catalog.FetchTimeout.Std() != 10*time.Second {
		t.Errorf("expected 10s fetch timeout, got %s", cfg.Catalog.FetchTimeout.Std())
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
  "catalog": {"driver": "sqlite", "dsn": "file:fees.db", "fetch_timeout": "3s"},
  "matching": {"subtype_containment": true}
}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvAddr, ":9999")
	t.Setenv(EnvFetchTimeout, "750ms")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Catalog.Driver != DriverSQLite || cfg.Catalog.DSN != "file:fees.db" {
		t.Errorf("catalog section not loaded: %+v", cfg.Catalog)
	}
	if !cfg.Matching.SubtypeContainment {
		t.Error("expected subtype_containment to be true")
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("expected env addr override, got %q", cfg.Server.Addr)
	}
	if cfg.Catalog.FetchTimeout.Std() != 750*time.Millisecond {
		t.Errorf("expected env fetch timeout override, got %s", cfg.Catalog.FetchTimeout.Std())
	}
	// Defaults survive for keys absent from the file.
	if cfg.Server.Burst != 30 {
		t.Errorf("expected default burst 30, got %d", cfg.Server.Burst)
	}
}

func TestLoadRejectsBadEnvDuration(t *testing.T) {
	t.Setenv(EnvFetchTimeout, "soon")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unparseable fetch timeout")
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Catalog.Driver = "oracle"
	cfg.Server.RateLimit = -1
	cfg.Catalog.CacheTTL = Duration(-time.Second)

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"unknown catalog.driver", "rate_limit", "cache_ttl"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestValidateDefaultIsClean(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Default()
	cfg.Catalog.Driver = DriverPostgres
	cfg.Catalog.DSN = "postgres://localhost/fees"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Catalog.DSN != cfg.Catalog.DSN {
		t.Errorf("expected DSN %q, got %q", cfg.Catalog.DSN, loaded.Catalog.DSN)
	}
}
