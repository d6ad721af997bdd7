package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the client's connection settings, loadable from YAML with
// environment variable overrides.
type Config struct {
	Server struct {
		BaseURL string `yaml:"base_url"`
		WSURL   string `yaml:"ws_url"`
	} `yaml:"server"`
	SessionDB string `yaml:"session_db"`
	Intervals struct {
		PollMillis    int `yaml:"poll_millis"`
		LatencyMillis int `yaml:"latency_millis"`
	} `yaml:"intervals"`
}

func defaultConfig() *Config {
	var cfg Config
	cfg.Server.BaseURL = "http://localhost:8080"
	cfg.Server.WSURL = "ws://localhost:8081"
	cfg.SessionDB = "gameclient.db"
	return &cfg
}

func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.Server.BaseURL = getEnv("OCGP_BASE_URL", cfg.Server.BaseURL)
	cfg.Server.WSURL = getEnv("OCGP_WS_URL", cfg.Server.WSURL)
	cfg.SessionDB = getEnv("OCGP_SESSION_DB", cfg.SessionDB)
	return cfg, nil
}

func (c *Config) pollInterval() time.Duration {
	if c.Intervals.PollMillis > 0 {
		return time.Duration(c.Intervals.PollMillis) * time.Millisecond
	}
	return 2500 * time.Millisecond
}

func (c *Config) latencyInterval() time.Duration {
	if c.Intervals.LatencyMillis > 0 {
		return time.Duration(c.Intervals.LatencyMillis) * time.Millisecond
	}
	return 4 * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
