package config

import (
	"strings"
	"testing"
	"time"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL": "postgres://localhost:5432/cedarpos",
		"REDIS_URL":    "redis://localhost:6379/0",
		"JWT_SECRET":   "test-secret",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("port default: got %q", cfg.Port)
	}
	if cfg.DefaultExchangeRate != 89000 {
		t.Fatalf("default rate: got %v", cfg.DefaultExchangeRate)
	}
	if cfg.CatalogCacheTTL != 5*time.Minute {
		t.Fatalf("catalog TTL: got %v", cfg.CatalogCacheTTL)
	}
	if cfg.CheckoutRateLimit != 30 {
		t.Fatalf("checkout limit: got %d", cfg.CheckoutRateLimit)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	env := baseEnv()
	env["DATABASE_URL"] = ""
	_, err := LoadForTests(env)
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}

func TestLoadRejectsNonPositiveRate(t *testing.T) {
	env := baseEnv()
	env["DEFAULT_EXCHANGE_RATE"] = "-1"
	_, err := LoadForTests(env)
	if err == nil || !strings.Contains(err.Error(), "DEFAULT_EXCHANGE_RATE") {
		t.Fatalf("expected rate error, got %v", err)
	}
}

func TestHTTPAddr(t *testing.T) {
	c := &Config{Port: "9000"}
	if got := c.HTTPAddr(); got != ":9000" {
		t.Fatalf("addr: got %q", got)
	}
	c.Port = ":7000"
	if got := c.HTTPAddr(); got != ":7000" {
		t.Fatalf("addr: got %q", got)
	}
}
