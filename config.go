// config.go
package main

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds client settings. Environment values are the defaults;
// command-line flags override them.
type Config struct {
	ServerURL       string
	ListenAddr      string
	PollInterval    time.Duration
	HTTPTimeout     time.Duration
	MaxPollFailures int
	LogLevel        string
	LogFile         string
	OutDir          string
}

const (
	DefaultPollInterval    = 700 * time.Millisecond
	DefaultMaxPollFailures = 3
	ExportFileName         = "dataflow_results.json"
	WorkbookFileName       = "dataflow_results.xlsx"
)

func LoadConfig() *Config {
	return &Config{
		ServerURL:       getEnv("DATAFLOW_SERVER", "http://localhost:5050"),
		ListenAddr:      getEnv("DATAFLOW_LISTEN", ":8080"),
		PollInterval:    getEnvAsDuration("DATAFLOW_POLL_INTERVAL", DefaultPollInterval),
		HTTPTimeout:     getEnvAsDuration("DATAFLOW_HTTP_TIMEOUT", 60*time.Second),
		MaxPollFailures: getEnvAsInt("DATAFLOW_MAX_POLL_FAILURES", DefaultMaxPollFailures),
		LogLevel:        getEnv("DATAFLOW_LOG_LEVEL", "info"),
		LogFile:         getEnv("DATAFLOW_LOG_FILE", ""),
		OutDir:          getEnv("DATAFLOW_OUT_DIR", "."),
	}
}

// Validate checks values that flags or the environment may have broken.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid server URL %q", c.ServerURL)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.MaxPollFailures < 1 {
		return fmt.Errorf("max poll failures must be at least 1, got %d", c.MaxPollFailures)
	}
	c.ServerURL = strings.TrimRight(c.ServerURL, "/")
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
