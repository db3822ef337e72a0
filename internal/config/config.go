// Package config provides configuration for the formdesk servers.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileEnv names the environment variable pointing at an optional YAML file.
const FileEnv = "FORMDESK_CONFIG"

// Config holds the formdesk configuration.
type Config struct {
	// Server settings
	ConsolePort int `yaml:"console_port"`
	FormPort    int `yaml:"form_port"`

	// Survey API settings
	SurveyAPIURL string        `yaml:"survey_api_url"`
	PublicHost   string        `yaml:"public_host"` // sent as Referer on public calls
	APITimeout   time.Duration `yaml:"-"`

	// Session pointers
	SessionStoreDSN string `yaml:"session_store_dsn"`

	// WebSocket settings
	PingInterval   time.Duration `yaml:"-"`
	WriteTimeout   time.Duration `yaml:"-"`
	ReadTimeout    time.Duration `yaml:"-"`
	MaxMessageSize int64         `yaml:"ws_max_message_size"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// fileConfig mirrors Config with durations in milliseconds.
type fileConfig struct {
	Config           `yaml:",inline"`
	APITimeoutMS     int `yaml:"api_timeout_ms"`
	WSPingIntervalMS int `yaml:"ws_ping_interval_ms"`
	WSWriteTimeoutMS int `yaml:"ws_write_timeout_ms"`
	WSReadTimeoutMS  int `yaml:"ws_read_timeout_ms"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ConsolePort:     8080,
		FormPort:        8090,
		SurveyAPIURL:    "http://localhost:9900",
		PublicHost:      "localhost",
		APITimeout:      30 * time.Second,
		SessionStoreDSN: "file:formdesk.db?cache=shared&mode=rwc",
		PingInterval:    30 * time.Second,
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		MaxMessageSize:  10 << 20,
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// Load builds the configuration from defaults, the YAML file named by
// FORMDESK_CONFIG, then environment variables. A .env file in the working
// directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	fc := fileConfig{
		Config:           *c,
		APITimeoutMS:     int(c.APITimeout / time.Millisecond),
		WSPingIntervalMS: int(c.PingInterval / time.Millisecond),
		WSWriteTimeoutMS: int(c.WriteTimeout / time.Millisecond),
		WSReadTimeoutMS:  int(c.ReadTimeout / time.Millisecond),
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	*c = fc.Config
	c.APITimeout = time.Duration(fc.APITimeoutMS) * time.Millisecond
	c.PingInterval = time.Duration(fc.WSPingIntervalMS) * time.Millisecond
	c.WriteTimeout = time.Duration(fc.WSWriteTimeoutMS) * time.Millisecond
	c.ReadTimeout = time.Duration(fc.WSReadTimeoutMS) * time.Millisecond
	return nil
}

func (c *Config) applyEnvOverrides() {
	c.ConsolePort = getEnvInt("CONSOLE_PORT", c.ConsolePort)
	c.FormPort = getEnvInt("FORM_PORT", c.FormPort)
	c.SurveyAPIURL = getEnv("SURVEY_API_URL", c.SurveyAPIURL)
	c.PublicHost = getEnv("PUBLIC_HOST", c.PublicHost)
	c.APITimeout = getEnvMillis("API_TIMEOUT_MS", c.APITimeout)
	c.SessionStoreDSN = getEnv("SESSION_STORE_DSN", c.SessionStoreDSN)
	c.PingInterval = getEnvMillis("WS_PING_INTERVAL_MS", c.PingInterval)
	c.WriteTimeout = getEnvMillis("WS_WRITE_TIMEOUT_MS", c.WriteTimeout)
	c.ReadTimeout = getEnvMillis("WS_READ_TIMEOUT_MS", c.ReadTimeout)
	c.MaxMessageSize = int64(getEnvInt("WS_MAX_MESSAGE_SIZE", int(c.MaxMessageSize)))
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
}

// Validate reports settings the servers cannot run with.
func (c *Config) Validate() error {
	if c.SurveyAPIURL == "" {
		return fmt.Errorf("survey api url is required")
	}
	if c.ConsolePort <= 0 || c.FormPort <= 0 {
		return fmt.Errorf("ports must be positive")
	}
	if c.ConsolePort == c.FormPort {
		return fmt.Errorf("console and form ports must differ, both are %d", c.ConsolePort)
	}
	durations := []struct {
		name string
		val  time.Duration
	}{
		{"api timeout", c.APITimeout},
		{"ws ping interval", c.PingInterval},
		{"ws read timeout", c.ReadTimeout},
		{"ws write timeout", c.WriteTimeout},
	}
	for _, d := range durations {
		if d.val <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.val)
		}
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("ws max message size must be positive")
	}
	if c.PingInterval >= c.ReadTimeout {
		return fmt.Errorf("ws ping interval must be shorter than the read timeout")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvMillis(key string, defaultVal time.Duration) time.Duration {
	ms := getEnvInt(key, -1)
	if ms < 0 {
		return defaultVal
	}
	return time.Duration(ms) * time.Millisecond
}
