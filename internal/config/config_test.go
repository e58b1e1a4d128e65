package config

import (
	"os"
	"path/filepath"
	"testing"

	"domabot/pkg/logx"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
telegram:
  token: "123:abc"
logging:
  level: debug
  console: true
doma:
  base_url: "https://api-testnet.doma.xyz"
  event_types: ["NAME_TOKEN_LISTED", "NAME_TOKEN_EXPIRED"]
  finalized_only: true
poller:
  interval_seconds: 15
storage:
  path: "./test.db"
`)
	cfg, err := NewManager(path, logx.Nop()).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if len(cfg.Doma.EventTypes) != 2 {
		t.Fatalf("event_types = %v", cfg.Doma.EventTypes)
	}
	if cfg.Doma.APIHeader != "Api-Key" {
		t.Fatalf("api_header default = %q", cfg.Doma.APIHeader)
	}
	if cfg.Doma.PageLimit != 20 {
		t.Fatalf("page_limit default = %d", cfg.Doma.PageLimit)
	}
	if cfg.Poller.IntervalSeconds != 15 {
		t.Fatalf("interval = %d", cfg.Poller.IntervalSeconds)
	}
}

func TestIntervalFloor(t *testing.T) {
	path := writeFile(t, "config.json", `{
  "telegram": {"token": "t"},
  "logging": {"level": "info", "console": true, "file": {"enabled": false, "path": ""}},
  "doma": {"base_url": "", "simulate": true, "event_types": [], "finalized_only": false},
  "poller": {"interval_seconds": 1, "dry_run": true},
  "storage": {"path": ""}
}`)
	cfg, err := NewManager(path, logx.Nop()).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Poller.IntervalSeconds != 3 {
		t.Fatalf("interval floor = %d, want 3", cfg.Poller.IntervalSeconds)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	path := writeFile(t, "config.json", `{"telegram": {"token": "t", "typo_field": 1}}`)
	if _, err := NewManager(path, logx.Nop()).Load(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLiveModeRequiresBaseURL(t *testing.T) {
	path := writeFile(t, "config.json", `{
  "telegram": {"token": "t"},
  "doma": {"simulate": false}
}`)
	if _, err := NewManager(path, logx.Nop()).Load(); err == nil {
		t.Fatal("expected error: live mode without base_url")
	}
}

func TestEnvOverridesToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "999:env")
	path := writeFile(t, "config.json", `{
  "telegram": {"token": "file-token"},
  "doma": {"simulate": true}
}`)
	cfg, err := NewManager(path, logx.Nop()).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "999:env" {
		t.Fatalf("token = %q, want env override", cfg.Telegram.Token)
	}
}
