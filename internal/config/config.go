package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Platform  PlatformConfig
	Reconnect ReconnectConfig
	Server    ServerConfig
	Slack     SlackConfig
}

// PlatformConfig holds the troubleshooting platform endpoints.
type PlatformConfig struct {
	BaseURL string // REST collaborators (events, chat, status, queries)
	WSURL   string // per-session stream endpoint
	Timeout time.Duration
}

// ReconnectConfig bounds the automatic reconnection policy.
type ReconnectConfig struct {
	Base        time.Duration
	Cap         time.Duration
	MaxAttempts int
}

// ServerConfig holds HTTP server settings for the console API.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// SlackConfig holds the optional exhaustion-alert integration. Both fields
// must be set for Slack alerts to be enabled.
type SlackConfig struct {
	BotToken string
	Channel  string
}

// Enabled reports whether Slack alerts are configured.
func (c *SlackConfig) Enabled() bool {
	return c.BotToken != "" && c.Channel != ""
}

// Load reads configuration from environment variables. Defaults are safe
// for local development against a platform on localhost.
func Load() (*Config, error) {
	platformTimeout, err := getEnvDuration("CONSOLE_PLATFORM_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	reconnectBase, err := getEnvDuration("CONSOLE_RECONNECT_BASE", time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	reconnectCap, err := getEnvDuration("CONSOLE_RECONNECT_CAP", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	reconnectAttempts, err := getEnvInt("CONSOLE_RECONNECT_MAX_ATTEMPTS", 10)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("CONSOLE_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("CONSOLE_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("CONSOLE_CORS_ORIGINS", []string{"http://localhost:5173"})

	cfg := &Config{
		Platform: PlatformConfig{
			BaseURL: getEnv("CONSOLE_PLATFORM_BASE_URL", "http://localhost:8000"),
			WSURL:   getEnv("CONSOLE_PLATFORM_WS_URL", "ws://localhost:8000/ws/sessions"),
			Timeout: platformTimeout,
		},
		Reconnect: ReconnectConfig{
			Base:        reconnectBase,
			Cap:         reconnectCap,
			MaxAttempts: reconnectAttempts,
		},
		Server: ServerConfig{
			Addr:         getEnv("CONSOLE_SERVER_ADDR", ":8090"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  corsOrigins,
		},
		Slack: SlackConfig{
			BotToken: getEnv("CONSOLE_SLACK_BOT_TOKEN", ""),
			Channel:  getEnv("CONSOLE_SLACK_CHANNEL", ""),
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	base, err := url.Parse(c.Platform.BaseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") {
		return fmt.Errorf("CONSOLE_PLATFORM_BASE_URL must be an http(s) URL, got %q", c.Platform.BaseURL)
	}

	ws, err := url.Parse(c.Platform.WSURL)
	if err != nil || (ws.Scheme != "ws" && ws.Scheme != "wss") {
		return fmt.Errorf("CONSOLE_PLATFORM_WS_URL must be a ws(s) URL, got %q", c.Platform.WSURL)
	}

	if c.Platform.Timeout <= 0 {
		return fmt.Errorf("CONSOLE_PLATFORM_TIMEOUT must be positive, got %s", c.Platform.Timeout)
	}
	if c.Reconnect.Base <= 0 {
		return fmt.Errorf("CONSOLE_RECONNECT_BASE must be positive, got %s", c.Reconnect.Base)
	}
	if c.Reconnect.Cap < c.Reconnect.Base {
		return fmt.Errorf("CONSOLE_RECONNECT_CAP must be >= base %s, got %s", c.Reconnect.Base, c.Reconnect.Cap)
	}
	if c.Reconnect.MaxAttempts < 1 {
		return fmt.Errorf("CONSOLE_RECONNECT_MAX_ATTEMPTS must be >= 1, got %d", c.Reconnect.MaxAttempts)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("CONSOLE_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("CONSOLE_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
