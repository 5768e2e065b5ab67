package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestNewManagerCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "config.json")
	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	cfg := mgr.Get()
	if cfg.Bot.Name != "taskpilot" {
		t.Fatalf("bot name: %q", cfg.Bot.Name)
	}
	if cfg.ClickUp.BaseURL != "https://api.clickup.com/api/v2" {
		t.Fatalf("base url: %q", cfg.ClickUp.BaseURL)
	}
	if cfg.Session.IdleTimeoutSec != 600 {
		t.Fatalf("idle timeout: %d", cfg.Session.IdleTimeoutSec)
	}
	if cfg.Health.Port != 5001 {
		t.Fatalf("health port: %d", cfg.Health.Port)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
}

func TestNewManagerLoadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	seed := []byte(`{"bot":{"name":"helper"},"health":{"port":6001}}`)
	if err := os.WriteFile(path, seed, 0644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	cfg := mgr.Get()
	if cfg.Bot.Name != "helper" {
		t.Fatalf("bot name: %q", cfg.Bot.Name)
	}
	if cfg.Health.Port != 6001 {
		t.Fatalf("health port: %d", cfg.Health.Port)
	}
	// Unset fields still get defaults.
	if cfg.Mattermost.PollIntervalSec != 2 {
		t.Fatalf("poll interval: %d", cfg.Mattermost.PollIntervalSec)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MATTERMOST_URL", "https://chat.example.com")
	t.Setenv("MATTERMOST_PORT", "443")
	t.Setenv("BOT_TOKEN", "mm-token")
	t.Setenv("CLICKUP_API_TOKEN", "pk_test")
	t.Setenv("CLICKUP_LIST_ID", "l99")
	t.Setenv("WEBHOOK_HOST_ENABLED", "true")
	t.Setenv("HEALTH_PORT", "7001")

	mgr, err := NewManager(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	cfg := mgr.Get()
	if cfg.Mattermost.ServerURL != "https://chat.example.com" || cfg.Mattermost.Port != 443 {
		t.Fatalf("mattermost: %+v", cfg.Mattermost)
	}
	if cfg.Mattermost.BotToken != "mm-token" {
		t.Fatalf("bot token: %q", cfg.Mattermost.BotToken)
	}
	if cfg.ClickUp.APIToken != "pk_test" || cfg.ClickUp.DefaultListID != "l99" {
		t.Fatalf("clickup: %+v", cfg.ClickUp)
	}
	if !cfg.Mattermost.WebhookEnabled || cfg.Mattermost.WebhookPort != 5000 {
		t.Fatalf("webhook: %+v", cfg.Mattermost)
	}
	if cfg.Health.Port != 7001 {
		t.Fatalf("health port: %d", cfg.Health.Port)
	}
}

func TestTokensNeverWrittenToDisk(t *testing.T) {
	t.Setenv("BOT_TOKEN", "mm-secret")
	t.Setenv("CLICKUP_API_TOKEN", "pk_secret")

	path := filepath.Join(t.TempDir(), "config.json")
	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	// In memory the tokens are present.
	if mgr.Get().ClickUp.APIToken != "pk_secret" {
		t.Fatal("token missing from loaded config")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	var onDisk Config
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if onDisk.Mattermost.BotToken != "" || onDisk.ClickUp.APIToken != "" {
		t.Fatalf("tokens leaked to disk: %+v", onDisk)
	}
}

func TestUpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	if _, err := mgr.Update(func(cfg *Config) {
		cfg.Reports.DailyEnabled = true
		cfg.Reports.TeamID = "t1"
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	reloaded, err := NewManager(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	cfg := reloaded.Get()
	if !cfg.Reports.DailyEnabled || cfg.Reports.TeamID != "t1" {
		t.Fatalf("update lost: %+v", cfg.Reports)
	}
}
