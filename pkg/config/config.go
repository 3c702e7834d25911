package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full relay configuration. Values come from three layers,
// later layers winning: built-in defaults, an optional YAML file, and
// environment variables (PORT, HOST, WEBHOOK_SECRET_TOKEN, CHAT_WEBHOOK_URL,
// LOG_LEVEL).
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Webhook WebhookConfig `yaml:"webhook"`
	Gitlab  GitlabConfig  `yaml:"gitlab"`
	SSE     SSEConfig     `yaml:"sse"`
	Chat    ChatConfig    `yaml:"chat"`
	History HistoryConfig `yaml:"history"`
}

// ServerConfig holds the HTTP listen address
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the host:port listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig holds logging options
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// WebhookConfig holds inbound webhook options
type WebhookConfig struct {
	// SecretToken, when non-empty, must match the X-Gitlab-Token header of
	// every inbound webhook request.
	SecretToken string `yaml:"secret_token"`
}

// GitlabConfig holds GitLab instance URL resolution options
type GitlabConfig struct {
	// InternalHostPatterns lists substrings that mark an instance URL as
	// internal (unreachable from a browser), e.g. a cluster-local hostname.
	// An empty URL is always treated as internal.
	InternalHostPatterns []string `yaml:"internal_host_patterns"`
}

// SSEConfig holds streaming connection options
type SSEConfig struct {
	HeartbeatInterval Duration `yaml:"heartbeat_interval"`
	// SendBuffer is the per-connection outbound frame buffer; a connection
	// whose buffer stays full past SendTimeout is treated as failed.
	SendBuffer  int      `yaml:"send_buffer"`
	SendTimeout Duration `yaml:"send_timeout"`
}

// ChatConfig holds the optional outbound chat-webhook channel
type ChatConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	RatePerSec int    `yaml:"rate_per_sec"`
}

// HistoryConfig holds the event audit log options
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DataDir string `yaml:"data_dir"`
	// Retention bounds how long stored events are kept; PruneSchedule is a
	// cron expression controlling when expired events are removed.
	Retention     Duration `yaml:"retention"`
	PruneSchedule string   `yaml:"prune_schedule"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 33333,
		},
		Log: LogConfig{
			Level: "info",
		},
		Gitlab: GitlabConfig{
			InternalHostPatterns: []string{"gitlab-0"},
		},
		SSE: SSEConfig{
			HeartbeatInterval: Duration(30 * time.Second),
			SendBuffer:        32,
			SendTimeout:       Duration(5 * time.Second),
		},
		Chat: ChatConfig{
			RatePerSec: 5,
		},
		History: HistoryConfig{
			Enabled:       true,
			DataDir:       "./data",
			Retention:     Duration(7 * 24 * time.Hour),
			PruneSchedule: "0 3 * * *",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment overrides. An empty path skips the file layer.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("WEBHOOK_SECRET_TOKEN"); v != "" {
		c.Webhook.SecretToken = v
	}
	if v := os.Getenv("CHAT_WEBHOOK_URL"); v != "" {
		c.Chat.WebhookURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}
