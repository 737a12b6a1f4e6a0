// Package config loads server settings from an optional YAML file, then
// applies environment overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zsenarchitect/ManVsGod/internal/chess"
)

// Config holds everything the serve command needs.
type Config struct {
	DBPath   string `yaml:"db"`
	Port     int    `yaml:"port"`
	AdminKey string `yaml:"adminKey"`
	LogLevel string `yaml:"logLevel"`

	CORSOrigins []string `yaml:"corsOrigins"`

	// Remote decision store. Both must be set to enable it.
	SheetID        string `yaml:"sheetId"`
	GoogleAPIKey   string `yaml:"googleApiKey"`
	SheetsEndpoint string `yaml:"sheetsEndpoint"`

	ErrorFormURL string `yaml:"errorFormUrl"`
	PuzzleURL    string `yaml:"puzzleUrl"`

	Autosave          time.Duration `yaml:"autosave"`
	EvolutionCooldown time.Duration `yaml:"evolutionCooldown"`
	RateLimit         int           `yaml:"rateLimit"` // write requests per minute per IP
	Seed              int64         `yaml:"seed"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		DBPath:    "data/manvsgod.db",
		Port:      8080,
		LogLevel:  "info",
		PuzzleURL: chess.DefaultPuzzleURL,
		Autosave:  5 * time.Minute,
		RateLimit: 60,
	}
}

// Load reads path when it is non-empty, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.DBPath = envOrDefault("MANVSGOD_DB", c.DBPath)
	c.Port = envIntOrDefault("MANVSGOD_PORT", c.Port)
	c.AdminKey = envOrDefault("MANVSGOD_ADMIN_KEY", c.AdminKey)
	c.LogLevel = envOrDefault("MANVSGOD_LOG_LEVEL", c.LogLevel)
	c.SheetID = envOrDefault("GOOGLE_SHEET_ID", c.SheetID)
	c.GoogleAPIKey = envOrDefault("GOOGLE_API_KEY", c.GoogleAPIKey)
	c.ErrorFormURL = envOrDefault("MANVSGOD_ERROR_FORM_URL", c.ErrorFormURL)
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		c.CORSOrigins = nil
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.CORSOrigins = append(c.CORSOrigins, origin)
			}
		}
	}
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Autosave < 0 || c.EvolutionCooldown < 0 {
		return fmt.Errorf("config: durations must not be negative")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("config: rateLimit must not be negative")
	}
	return nil
}

// RemoteStore reports whether the Google Sheets store is configured.
func (c Config) RemoteStore() bool {
	return c.SheetID != "" && c.GoogleAPIKey != ""
}

// SlogLevel returns the configured log level.
func (c Config) SlogLevel() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("config: unknown log level %q", s)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
