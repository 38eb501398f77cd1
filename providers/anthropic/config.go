package anthropic

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/haowjy/tyrell-go"
)

// Environment variables read by LoadConfig.
const (
	EnvAPIKey  = "ANTHROPIC_API_KEY"
	EnvBaseURL = "ANTHROPIC_BASE_URL"
	EnvVersion = "ANTHROPIC_VERSION"
	EnvTimeout = "ANTHROPIC_TIMEOUT"
)

const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultVersion = "2023-06-01"
	DefaultTimeout = 2 * time.Minute
)

// Config holds the settings for a Transport.
type Config struct {
	APIKey  string        // Sent as x-api-key (required)
	BaseURL string        // API root, without the /v1/messages path
	Version string        // anthropic-version header
	Timeout time.Duration // Per-attempt timeout; the caller's context still applies
}

// LoadConfig reads the configuration from the environment after loading the
// nearest .env file. A missing API key is reported as tyrell.ErrInvalidAPIKey.
func LoadConfig() (Config, error) {
	LoadEnv()

	cfg := Config{
		APIKey:  os.Getenv(EnvAPIKey),
		BaseURL: DefaultBaseURL,
		Version: DefaultVersion,
		Timeout: DefaultTimeout,
	}
	if cfg.APIKey == "" {
		return Config{}, fmt.Errorf("%w: %s is not set", tyrell.ErrInvalidAPIKey, EnvAPIKey)
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(EnvVersion); v != "" {
		cfg.Version = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		timeout, err := parseTimeout(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		cfg.Timeout = timeout
	}
	return cfg, nil
}

// parseTimeout accepts a Go duration ("90s") or a whole number of seconds ("90").
func parseTimeout(v string) (time.Duration, error) {
	if d, err := time.ParseDuration(v); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("timeout must be positive, got %s", v)
		}
		return d, nil
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0, fmt.Errorf("invalid timeout %q (want a duration like 90s or a number of seconds)", v)
	}
	return time.Duration(secs) * time.Second, nil
}

// LoadEnv searches for a .env file starting from the current directory
// and walking up the directory tree. It loads the first .env file found.
// Variables already set in the process environment win.
func LoadEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}

	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
