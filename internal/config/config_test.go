package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RUNBOOK_ANALYZER_CONFIG", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":8080" || cfg.Server.MetricsAddress != ":2112" {
		t.Fatalf("server defaults wrong: %+v", cfg.Server)
	}
	if cfg.Runbooks.Dir != "runbooks" || cfg.Runbooks.StaleAfterDays != 90 {
		t.Fatalf("runbooks defaults wrong: %+v", cfg.Runbooks)
	}
	if cfg.Analysis.MinFrequency != 2 || cfg.Analysis.MaxFindResults != 5 || cfg.Analysis.TopFixes != 10 {
		t.Fatalf("analysis defaults wrong: %+v", cfg.Analysis)
	}
	if cfg.Cache.Enabled {
		t.Fatal("cache should be disabled by default")
	}
	if cfg.Cache.SuggestionsTTL != 2*time.Minute {
		t.Fatalf("SuggestionsTTL = %v", cfg.Cache.SuggestionsTTL)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `server:
  address: ":9090"
runbooks:
  dir: /var/runbooks
  rollupInterval: 1m
  staleAfterDays: 30
analysis:
  minFrequency: 3
logging:
  level: debug
  json: true
cache:
  enabled: true
  addr: localhost:6379
  suggestionsTTL: 45s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Fatalf("Address = %q", cfg.Server.Address)
	}
	if cfg.Runbooks.Dir != "/var/runbooks" || cfg.Runbooks.RollupInterval != time.Minute || cfg.Runbooks.StaleAfterDays != 30 {
		t.Fatalf("runbooks config wrong: %+v", cfg.Runbooks)
	}
	if cfg.Analysis.MinFrequency != 3 {
		t.Fatalf("MinFrequency = %d", cfg.Analysis.MinFrequency)
	}
	// Fields the file omits keep defaults.
	if cfg.Analysis.MaxFindResults != 5 {
		t.Fatalf("MaxFindResults = %d, want default 5", cfg.Analysis.MaxFindResults)
	}
	if !cfg.Logging.JSON || cfg.Logging.Level != "debug" {
		t.Fatalf("logging config wrong: %+v", cfg.Logging)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Addr != "localhost:6379" || cfg.Cache.SuggestionsTTL != 45*time.Second {
		t.Fatalf("cache config wrong: %+v", cfg.Cache)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("explicit missing config file should fail")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RUNBOOK_ANALYZER_CONFIG", "")
	t.Setenv("RUNBOOK_ANALYZER_SERVER_ADDRESS", ":7070")
	t.Setenv("RUNBOOK_ANALYZER_RUNBOOKS_DIR", "/srv/runbooks")
	t.Setenv("RUNBOOK_ANALYZER_MIN_FREQUENCY", "4")
	t.Setenv("RUNBOOK_ANALYZER_STALE_AFTER_DAYS", "45")
	t.Setenv("RUNBOOK_ANALYZER_LOG_FORMAT", "json")
	t.Setenv("RUNBOOK_ANALYZER_CACHE_ENABLED", "true")
	t.Setenv("RUNBOOK_ANALYZER_CACHE_SUGGESTIONS_TTL", "90s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":7070" {
		t.Fatalf("Address = %q", cfg.Server.Address)
	}
	if cfg.Runbooks.Dir != "/srv/runbooks" || cfg.Runbooks.StaleAfterDays != 45 {
		t.Fatalf("runbooks overrides wrong: %+v", cfg.Runbooks)
	}
	if cfg.Analysis.MinFrequency != 4 {
		t.Fatalf("MinFrequency = %d", cfg.Analysis.MinFrequency)
	}
	if !cfg.Logging.JSON {
		t.Fatal("LOG_FORMAT=json should enable JSON logging")
	}
	if !cfg.Cache.Enabled || cfg.Cache.SuggestionsTTL != 90*time.Second {
		t.Fatalf("cache overrides wrong: %+v", cfg.Cache)
	}
}
