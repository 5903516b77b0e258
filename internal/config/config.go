package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the settings quire reads from its TOML file and environment.
type Config struct {
	APIURL      string
	SessionPath string
	// Token, when set through QUIRE_TOKEN, takes precedence over the session
	// file.
	Token     string
	RateLimit float64
	RateBurst int
	PageSize  int
	Timeout   time.Duration
}

const (
	defaultConfigPath  = "~/.config/quire/config.toml"
	defaultSessionPath = "~/.config/quire/session.toml"
	defaultAPIURL      = "http://127.0.0.1:8000/api/v1"
	defaultRateBurst   = 5
	defaultPageSize    = 50
	defaultTimeout     = 30 * time.Second
)

type fileConfig struct {
	APIURL         string  `toml:"api_url"`
	SessionPath    string  `toml:"session_path"`
	RateLimit      float64 `toml:"rate_limit"`
	RateBurst      int     `toml:"rate_burst"`
	PageSize       int     `toml:"page_size"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// envOverlay lists the variables that override the file.
type envOverlay struct {
	APIURL    string  `env:"QUIRE_API_URL" env-description:"API root URL"`
	Token     string  `env:"QUIRE_TOKEN" env-description:"Bearer token, overrides the session file"`
	RateLimit float64 `env:"QUIRE_RATE_LIMIT" env-description:"Requests per second, 0 disables throttling"`
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Load parses the config at path, falling back to defaults when it is
// missing, then applies the environment overlay.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	raw, err := readFile(resolved)
	if err != nil {
		return Config{}, err
	}

	var env envOverlay
	if err := cleanenv.ReadEnv(&env); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	if v := strings.TrimSpace(env.APIURL); v != "" {
		raw.APIURL = v
	}
	// Zero is a valid override, so presence decides.
	if v, ok := os.LookupEnv("QUIRE_RATE_LIMIT"); ok && strings.TrimSpace(v) != "" {
		raw.RateLimit = env.RateLimit
	}

	cfg := Config{
		APIURL:      strings.TrimSpace(raw.APIURL),
		SessionPath: strings.TrimSpace(raw.SessionPath),
		Token:       strings.TrimSpace(env.Token),
		RateLimit:   raw.RateLimit,
		RateBurst:   raw.RateBurst,
		PageSize:    raw.PageSize,
		Timeout:     time.Duration(raw.TimeoutSeconds) * time.Second,
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	if cfg.SessionPath == "" {
		cfg.SessionPath = defaultSessionPath
	}
	cfg.SessionPath = mustExpand(cfg.SessionPath)
	if cfg.RateLimit < 0 {
		return Config{}, fmt.Errorf("rate_limit must not be negative, got %v", cfg.RateLimit)
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return cfg, nil
}

func readFile(resolved string) (fileConfig, error) {
	var raw fileConfig
	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return raw, nil
		}
		return raw, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return raw, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return raw, fmt.Errorf("parse config: %w", err)
	}
	return raw, nil
}

// EnvUsage describes the environment variables for --help output.
func EnvUsage() string {
	usage, err := cleanenv.GetDescription(&envOverlay{}, nil)
	if err != nil {
		return ""
	}
	return usage
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading ~ and returns an absolute path.
func ExpandPath(path string) (string, error) { return expandPath(path) }

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
