// Package config loads configuration from an optional YAML file, a .env
// file, and environment variables, in increasing order of precedence.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration values.
type Config struct {
	// State persistence
	StateBackend string // "file" or "sqlite"
	StateFile    string
	StateDB      string

	// Chat backend
	APIBaseURL string
	Location   string

	// Identity provider
	JWKSURL string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// fileConfig is the YAML shape of ~/.config/shopchat/config.yaml.
type fileConfig struct {
	StateBackend string `yaml:"state_backend"`
	StateFile    string `yaml:"state_file"`
	StateDB      string `yaml:"state_db"`
	APIBaseURL   string `yaml:"api_url"`
	Location     string `yaml:"location"`
	JWKSURL      string `yaml:"jwks_url"`
	LogFile      string `yaml:"log_file"`
	LogLevel     string `yaml:"log_level"`
}

// googleCerts is the default JWKS endpoint; sign-in uses Google ID tokens.
const googleCerts = "https://www.googleapis.com/oauth2/v3/certs"

// Load reads configuration. Order: built-in defaults, then the YAML config
// file, then .env, then process environment variables.
func Load() Config {
	// .env is optional; a missing file is fine.
	_ = godotenv.Load()

	stateDir := defaultStateDir()
	cfg := Config{
		StateBackend: "file",
		StateFile:    filepath.Join(stateDir, "state.json"),
		StateDB:      filepath.Join(stateDir, "state.db"),
		APIBaseURL:   "http://localhost:8080",
		Location:     "bangalore",
		JWKSURL:      googleCerts,
		LogFile:      filepath.Join(stateDir, "shopchat.log"),
		LogLevel:     slog.LevelInfo,
	}

	applyFile(&cfg)

	cfg.StateBackend = getEnv("SHOPCHAT_STATE_BACKEND", cfg.StateBackend)
	cfg.StateFile = getEnv("SHOPCHAT_STATE_FILE", cfg.StateFile)
	cfg.StateDB = getEnv("SHOPCHAT_STATE_DB", cfg.StateDB)
	cfg.APIBaseURL = getEnv("SHOPCHAT_API_URL", cfg.APIBaseURL)
	cfg.Location = getEnv("SHOPCHAT_LOCATION", cfg.Location)
	cfg.JWKSURL = getEnv("SHOPCHAT_JWKS_URL", cfg.JWKSURL)
	cfg.LogFile = getEnv("SHOPCHAT_LOG_FILE", cfg.LogFile)
	if v := os.Getenv("SHOPCHAT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = ParseLogLevel(v)
	}

	return cfg
}

// applyFile overlays values from the YAML config file, if it exists.
func applyFile(cfg *Config) {
	path := configFilePath()
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		slog.Warn("ignoring unparsable config file", "path", path, "error", err)
		return
	}

	if fc.StateBackend != "" {
		cfg.StateBackend = fc.StateBackend
	}
	if fc.StateFile != "" {
		cfg.StateFile = fc.StateFile
	}
	if fc.StateDB != "" {
		cfg.StateDB = fc.StateDB
	}
	if fc.APIBaseURL != "" {
		cfg.APIBaseURL = fc.APIBaseURL
	}
	if fc.Location != "" {
		cfg.Location = fc.Location
	}
	if fc.JWKSURL != "" {
		cfg.JWKSURL = fc.JWKSURL
	}
	if fc.LogFile != "" {
		cfg.LogFile = fc.LogFile
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = ParseLogLevel(fc.LogLevel)
	}
}

func configFilePath() string {
	if v := os.Getenv("SHOPCHAT_CONFIG"); v != "" {
		return v
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "shopchat", "config.yaml")
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return filepath.Join(home, ".local", "state", "shopchat")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// ParseLogLevel maps a level name to slog's level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
