package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

type Config struct {
	Bot        BotConfig        `json:"bot"`
	Mattermost MattermostConfig `json:"mattermost"`
	ClickUp    ClickUpConfig    `json:"clickup"`
	Session    SessionConfig    `json:"session"`
	Health     HealthConfig     `json:"health"`
	Reports    ReportsConfig    `json:"reports"`
}

type BotConfig struct {
	Name string `json:"name"`
}

type MattermostConfig struct {
	ServerURL       string   `json:"server_url"`
	Port            int      `json:"port"`
	BotToken        string   `json:"bot_token"`
	BotTeam         string   `json:"bot_team"`
	PollIntervalSec int      `json:"poll_interval_sec"`
	PollChatIDs     []string `json:"poll_chat_ids"`
	WebhookEnabled  bool     `json:"webhook_enabled"`
	WebhookHost     string   `json:"webhook_host"`
	WebhookPort     int      `json:"webhook_port"`
	DefaultChatID   string   `json:"default_chat_id"`
}

type ClickUpConfig struct {
	APIToken      string `json:"api_token"`
	BaseURL       string `json:"base_url"`
	DefaultListID string `json:"default_list_id"`
}

type SessionConfig struct {
	IdleTimeoutSec int `json:"idle_timeout_sec"`
}

type HealthConfig struct {
	Port int `json:"port"`
}

type ReportsConfig struct {
	DailyEnabled        bool   `json:"daily_enabled"`
	WeeklyEnabled       bool   `json:"weekly_enabled"`
	TeamID              string `json:"team_id"`
	ChannelID           string `json:"channel_id"`
	ChatID              string `json:"chat_id"`
	DailyIntervalHours  int    `json:"daily_interval_hours"`
	WeeklyIntervalHours int    `json:"weekly_interval_hours"`
}

type Manager struct {
	path string
	mu   sync.RWMutex
	cfg  Config
}

func DefaultPath() string {
	return filepath.Join("config", "config.json")
}

func NewManager(path string) (*Manager, error) {
	cfg := defaultConfig()
	mgr := &Manager{
		path: path,
		cfg:  cfg,
	}
	if err := mgr.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	applyEnvOverrides(&mgr.cfg)
	applyDefaults(&mgr.cfg)
	if err := mgr.save(); err != nil {
		return nil, err
	}
	return mgr, nil
}

func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) Update(apply func(*Config)) (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	apply(&m.cfg)
	applyDefaults(&m.cfg)
	if err := m.saveLocked(); err != nil {
		return Config{}, err
	}
	return m.cfg, nil
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}
	var fileCfg Config
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return err
	}
	m.cfg = fileCfg
	return nil
}

func (m *Manager) save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked()
}

func (m *Manager) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return err
	}
	saved := m.cfg
	// Tokens come from the environment; never write them back to disk.
	saved.Mattermost.BotToken = ""
	saved.ClickUp.APIToken = ""
	data, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0644)
}

func defaultConfig() Config {
	return Config{
		Bot: BotConfig{
			Name: "taskpilot",
		},
		Mattermost: MattermostConfig{
			ServerURL:       "http://127.0.0.1",
			Port:            8065,
			PollIntervalSec: 2,
		},
		ClickUp: ClickUpConfig{
			BaseURL: "https://api.clickup.com/api/v2",
		},
		Session: SessionConfig{
			IdleTimeoutSec: 600,
		},
		Health: HealthConfig{
			Port: 5001,
		},
		Reports: ReportsConfig{
			DailyIntervalHours:  24,
			WeeklyIntervalHours: 168,
		},
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Bot.Name) == "" {
		cfg.Bot.Name = "taskpilot"
	}
	if strings.TrimSpace(cfg.Mattermost.ServerURL) == "" {
		cfg.Mattermost.ServerURL = "http://127.0.0.1"
	}
	if cfg.Mattermost.Port <= 0 {
		cfg.Mattermost.Port = 8065
	}
	if cfg.Mattermost.PollIntervalSec <= 0 {
		cfg.Mattermost.PollIntervalSec = 2
	}
	if cfg.Mattermost.WebhookEnabled && cfg.Mattermost.WebhookPort <= 0 {
		cfg.Mattermost.WebhookPort = 5000
	}
	if strings.TrimSpace(cfg.ClickUp.BaseURL) == "" {
		cfg.ClickUp.BaseURL = "https://api.clickup.com/api/v2"
	}
	if cfg.Session.IdleTimeoutSec <= 0 {
		cfg.Session.IdleTimeoutSec = 600
	}
	if cfg.Health.Port <= 0 {
		cfg.Health.Port = 5001
	}
	if cfg.Reports.DailyIntervalHours <= 0 {
		cfg.Reports.DailyIntervalHours = 24
	}
	if cfg.Reports.WeeklyIntervalHours <= 0 {
		cfg.Reports.WeeklyIntervalHours = 168
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("MATTERMOST_URL")); v != "" {
		cfg.Mattermost.ServerURL = v
	}
	if v, ok := envInt("MATTERMOST_PORT"); ok {
		cfg.Mattermost.Port = v
	}
	if v := strings.TrimSpace(os.Getenv("BOT_TOKEN")); v != "" {
		cfg.Mattermost.BotToken = v
	}
	if v := strings.TrimSpace(os.Getenv("BOT_TEAM")); v != "" {
		cfg.Mattermost.BotTeam = v
	}
	if v, ok := envBool("WEBHOOK_HOST_ENABLED"); ok {
		cfg.Mattermost.WebhookEnabled = v
	}
	if v := strings.TrimSpace(os.Getenv("WEBHOOK_HOST_URL")); v != "" {
		cfg.Mattermost.WebhookHost = v
	}
	if v, ok := envInt("WEBHOOK_HOST_PORT"); ok {
		cfg.Mattermost.WebhookPort = v
	}
	if v := strings.TrimSpace(os.Getenv("CLICKUP_API_TOKEN")); v != "" {
		cfg.ClickUp.APIToken = v
	}
	if v := strings.TrimSpace(os.Getenv("CLICKUP_BASE_URL")); v != "" {
		cfg.ClickUp.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("CLICKUP_LIST_ID")); v != "" {
		cfg.ClickUp.DefaultListID = v
	}
	if v, ok := envInt("HEALTH_PORT"); ok {
		cfg.Health.Port = v
	}
}

func envInt(key string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return value, true
}

func envBool(key string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return false, false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return value, true
}
