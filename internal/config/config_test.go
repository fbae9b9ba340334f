package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zaloga.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Addr != ":8080" || c.DB != "zaloga.sqlite3" || c.AdminUser != "Admin" {
		t.Errorf("unexpected defaults: %+v", c)
	}
	p := c.Policy()
	if p.AdjustmentBP != -100 || p.MinMargin != 200 {
		t.Errorf("unexpected default policy: %+v", p)
	}
	if c.Repricing.SampleSize != 20 || c.Redis.TTL != 24*time.Hour || !c.Metrics.Enabled {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadOverridesOnlyGivenKeys(t *testing.T) {
	path := writeConfig(t, `
addr: ":9090"
pricing:
  adjustment_bp: -250
redis:
  addr: "localhost:6379"
  ttl: 1h
metrics:
  enabled: false
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Addr != ":9090" {
		t.Errorf("expected :9090, got %q", c.Addr)
	}
	if c.Pricing.AdjustmentBP != -250 || c.Pricing.MinMarginCents != 200 {
		t.Errorf("expected -250bp with default margin, got %+v", c.Pricing)
	}
	if c.Redis.Addr != "localhost:6379" || c.Redis.TTL != time.Hour {
		t.Errorf("unexpected redis config: %+v", c.Redis)
	}
	if c.Metrics.Enabled {
		t.Error("expected metrics disabled")
	}
	if c.DB != "zaloga.sqlite3" {
		t.Errorf("expected default db, got %q", c.DB)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"negative margin", "pricing:\n  min_margin_cents: -1\n"},
		{"adjustment too low", "pricing:\n  adjustment_bp: -10000\n"},
		{"zero sample", "repricing:\n  sample_size: 0\n"},
		{"bad metrics path", "metrics:\n  path: metrics\n"},
		{"unknown log level", "logging:\n  level: verbose\n"},
		{"unknown log format", "logging:\n  format: xml\n"},
		{"not yaml", "addr: [\n"},
	}
	for _, tt := range tests {
		if _, err := Load(writeConfig(t, tt.body)); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
