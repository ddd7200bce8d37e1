package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	t.Setenv(EnvProfile, "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Repository.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %s", cfg.Repository.Driver)
	}
	if len(cfg.Scoring.FraudTiers) != 3 {
		t.Errorf("expected 3 fraud tiers, got %d", len(cfg.Scoring.FraudTiers))
	}
	if cfg.Scoring.UnderwritingTiers[3].Lower != 70 {
		t.Errorf("expected decline at 70, got %d", cfg.Scoring.UnderwritingTiers[3].Lower)
	}
}

func TestLoadYAMLWithEnvExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "/tmp/from-env.db")
	t.Setenv(EnvProfile, "")

	path := filepath.Join(t.TempDir(), "harrier.yaml")
	doc := `
server:
  port: 9090
repository:
  driver: sqlite
  sqlitePath: ${TEST_DB_PATH}
scoring:
  batchWorkers: 3
  fraudTiers:
    - tier: low
      lower: 0
    - tier: medium
      lower: 20
    - tier: high
      lower: 50
extraction:
  timeout: 15s
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Repository.SQLitePath != "/tmp/from-env.db" {
		t.Errorf("expected expanded path, got %s", cfg.Repository.SQLitePath)
	}
	if cfg.Scoring.BatchWorkers != 3 {
		t.Errorf("expected 3 workers, got %d", cfg.Scoring.BatchWorkers)
	}
	if len(cfg.Scoring.FraudTiers) != 3 || cfg.Scoring.FraudTiers[2].Lower != 50 {
		t.Errorf("unexpected fraud tiers: %+v", cfg.Scoring.FraudTiers)
	}
	if cfg.Extraction.Timeout != 15*time.Second {
		t.Errorf("expected 15s timeout, got %s", cfg.Extraction.Timeout)
	}
	// Untouched sections keep defaults.
	if len(cfg.Scoring.UnderwritingTiers) != 4 {
		t.Errorf("expected default underwriting tiers, got %+v", cfg.Scoring.UnderwritingTiers)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	t.Setenv(EnvProfile, "")
	t.Setenv("HARRIER_PORT", "7070")
	t.Setenv("HARRIER_DEBUG", "true")
	t.Setenv("HARRIER_RETENTION", "48h")
	t.Setenv("HARRIER_SUBMIT_RATE_LIMIT", "0")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level, got %s", cfg.Logging.Level)
	}
	if cfg.Scheduler.Retention != 48*time.Hour {
		t.Errorf("expected 48h retention, got %s", cfg.Scheduler.Retention)
	}
	if cfg.Server.SubmitRateLimit != 0 {
		t.Errorf("expected rate limit disabled, got %d", cfg.Server.SubmitRateLimit)
	}
}

func TestEnvOverrideInvalid(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	t.Setenv(EnvProfile, "")
	t.Setenv("HARRIER_PORT", "eighty")

	if _, err := Load(""); err == nil {
		t.Error("expected error for non-numeric port")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.Config)
		wantErr bool
	}{
		{"defaults", func(*domain.Config) {}, false},
		{"cluster profile", func(c *domain.Config) { *c = *domain.ClusterConfig() }, false},
		{"unknown driver", func(c *domain.Config) { c.Repository.Driver = "mysql" }, true},
		{"bands not from zero", func(c *domain.Config) {
			c.Scoring.FraudTiers = []domain.TierBand{{Tier: "low", Lower: 10}}
		}, true},
		{"bands descending", func(c *domain.Config) {
			c.Scoring.FraudTiers = []domain.TierBand{{Tier: "low", Lower: 0}, {Tier: "high", Lower: 60}, {Tier: "medium", Lower: 30}}
		}, true},
		{"renamed fraud bands", func(c *domain.Config) {
			c.Scoring.FraudTiers = []domain.TierBand{{Tier: "green", Lower: 0}, {Tier: "amber", Lower: 30}, {Tier: "red", Lower: 60}}
		}, true},
		{"missing underwriting band", func(c *domain.Config) {
			c.Scoring.UnderwritingTiers = c.Scoring.UnderwritingTiers[:3]
		}, true},
		{"moved boundaries", func(c *domain.Config) {
			c.Scoring.FraudTiers[1].Lower = 40
			c.Scoring.UnderwritingTiers[3].Lower = 80
		}, false},
		{"zero workers", func(c *domain.Config) { c.Scoring.BatchWorkers = 0 }, true},
		{"bad log level", func(c *domain.Config) { c.Logging.Level = "loud" }, true},
		{"redis without addr", func(c *domain.Config) {
			c.Cache.Type = "redis"
			c.Cache.RedisAddr = ""
		}, true},
		{"extraction url", func(c *domain.Config) { c.Extraction.Endpoint = "not a url" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := domain.DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
