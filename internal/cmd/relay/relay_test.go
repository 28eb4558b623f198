package relay

import (
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.DBPath != "./driftwood.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "./driftwood.db")
	}
	if cfg.IdleTimeout != 10*time.Minute {
		t.Errorf("IdleTimeout = %v, want 10m", cfg.IdleTimeout)
	}
	if cfg.ReapInterval != 5*time.Minute {
		t.Errorf("ReapInterval = %v, want 5m", cfg.ReapInterval)
	}
	if cfg.PresenceInterval != time.Minute {
		t.Errorf("PresenceInterval = %v, want 1m", cfg.PresenceInterval)
	}
	if cfg.HistoryLimit != 50 {
		t.Errorf("HistoryLimit = %d, want 50", cfg.HistoryLimit)
	}
}

func TestParseConfigEnvOverrides(t *testing.T) {
	t.Setenv("DRIFTWOOD_HTTP_ADDR", ":9000")
	t.Setenv("DRIFTWOOD_DB_PATH", "/tmp/relay.db")
	t.Setenv("DRIFTWOOD_IDLE_TIMEOUT", "30s")

	cfg, err := ParseConfig(nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.HTTPAddr != ":9000" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9000")
	}
	if cfg.DBPath != "/tmp/relay.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/tmp/relay.db")
	}
	if cfg.IdleTimeout != 30*time.Second {
		t.Errorf("IdleTimeout = %v, want 30s", cfg.IdleTimeout)
	}
}

func TestParseConfigFlagsBeatEnv(t *testing.T) {
	t.Setenv("DRIFTWOOD_HTTP_ADDR", ":9000")

	cfg, err := ParseConfig([]string{"-http-addr", ":7777", "-dm-history-limit", "25"})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.HTTPAddr != ":7777" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":7777")
	}
	if cfg.HistoryLimit != 25 {
		t.Errorf("HistoryLimit = %d, want 25", cfg.HistoryLimit)
	}
}

func TestParseConfigRejectsUnknownFlag(t *testing.T) {
	if _, err := ParseConfig([]string{"-no-such-flag"}); err == nil {
		t.Fatal("ParseConfig() accepted an unknown flag")
	}
}
