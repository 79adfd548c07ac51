// Package config loads service configuration: built-in defaults, then an
// optional YAML file, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/introducer-commission/commission"
	"github.com/warp/introducer-commission/factory"
)

type Config struct {
	ServiceID      string
	HTTPPort       int
	DBPath         string
	LogLevel       slog.Level
	AllowedOrigins []string
	ComputeTimeout time.Duration
	Policy         commission.Policy
}

type configFile struct {
	Service struct {
		ID             string   `yaml:"id"`
		HTTPPort       int      `yaml:"http_port"`
		LogLevel       string   `yaml:"log_level"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"service"`
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	Commission struct {
		ComputeTimeoutSeconds int                       `yaml:"compute_timeout_seconds"`
		ExclusionMarkers      []string                  `yaml:"exclusion_markers"`
		KeywordRules          []factory.KeywordRuleJSON `yaml:"keyword_rules"`
	} `yaml:"commission"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ServiceID:      "introducer-commission",
		HTTPPort:       8080,
		DBPath:         "commission.db",
		LogLevel:       slog.LevelInfo,
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		ComputeTimeout: commission.DefaultTimeout,
		Policy:         commission.DefaultPolicy(),
	}
}

// Load reads path if it exists and applies environment overrides.
// A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := cfg.applyFile(raw); err != nil {
				return Config{}, err
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.DBPath = envString("DB_PATH", cfg.DBPath)
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		level, err := ParseLevel(raw)
		if err != nil {
			return Config{}, err
		}
		cfg.LogLevel = level
	}
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		cfg.AllowedOrigins = splitList(raw)
	}
	cfg.ComputeTimeout = time.Duration(envInt("COMPUTE_TIMEOUT_SECONDS", int(cfg.ComputeTimeout.Seconds()))) * time.Second
	return cfg, nil
}

func (cfg *Config) applyFile(raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if f.Service.ID != "" {
		cfg.ServiceID = f.Service.ID
	}
	if f.Service.HTTPPort > 0 {
		cfg.HTTPPort = f.Service.HTTPPort
	}
	if f.Service.LogLevel != "" {
		level, err := ParseLevel(f.Service.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	if len(f.Service.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = f.Service.AllowedOrigins
	}
	if f.Store.Path != "" {
		cfg.DBPath = f.Store.Path
	}
	if f.Commission.ComputeTimeoutSeconds > 0 {
		cfg.ComputeTimeout = time.Duration(f.Commission.ComputeTimeoutSeconds) * time.Second
	}
	if len(f.Commission.ExclusionMarkers) > 0 {
		cfg.Policy.ExclusionMarkers = f.Commission.ExclusionMarkers
	}
	if len(f.Commission.KeywordRules) > 0 {
		rules, err := factory.ParseKeywordRules(f.Commission.KeywordRules)
		if err != nil {
			return fmt.Errorf("parse config file: %w", err)
		}
		cfg.Policy.KeywordRules = rules
	}
	return nil
}

// NewLogger builds the JSON logger used by the service.
func (cfg Config) NewLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})).With("service", cfg.ServiceID)
}

// ParseLevel accepts debug, info, warn and error.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

func envInt(name string, fallback int) int {
	if raw := os.Getenv(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func envString(name, fallback string) string {
	if raw := os.Getenv(name); raw != "" {
		return raw
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
