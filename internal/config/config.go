package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/spacing-calculator/internal/spacer"
	"github.com/eugenenazirov/spacing-calculator/internal/storage"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultLogLevel       = "info"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string
	StateBackend         storage.Backend
	StatePath            string
	AutosaveInterval     time.Duration
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	LogLevel             string
	RateLimitRPS         float64
	RateLimitBurst       int
	// Spacers seeds the inventory on first run and on reset.
	Spacers []spacer.Definition
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	StateBackend         string        `yaml:"state_backend"`
	StatePath            string        `yaml:"state_path"`
	AutosaveInterval     string        `yaml:"autosave_interval"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	LogLevel             string        `yaml:"log_level"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
	Spacers              []yamlSpacer  `yaml:"spacers"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// yamlSpacer is one seed spacer. Thickness is kept as text so it goes through
// the same parser as user input.
type yamlSpacer struct {
	Name      string `yaml:"name"`
	Thickness string `yaml:"thickness"`
	Enabled   *bool  `yaml:"enabled"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	StateBackend   *string
	StatePath      *string
	LogLevel       *string
	SpacersStr     *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	if overrides != nil {
		if err := applyCLIOverrides(&cfg, overrides); err != nil {
			return Config{}, err
		}
	}

	if err := resolveStatePath(&cfg); err != nil {
		return Config{}, err
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		StateBackend:         storage.BackendFile,
		AutosaveInterval:     30 * time.Second,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		LogLevel:             defaultLogLevel,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		Spacers:              spacer.DefaultDefinitions(),
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
// Malformed durations are ignored; malformed spacers are an error.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}
	if yamlCfg.StateBackend != "" {
		cfg.StateBackend = storage.Backend(yamlCfg.StateBackend)
	}
	if yamlCfg.StatePath != "" {
		cfg.StatePath = yamlCfg.StatePath
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	applyDuration(&cfg.AutosaveInterval, yamlCfg.AutosaveInterval)
	applyDuration(&cfg.ShutdownGracePeriod, yamlCfg.ShutdownGracePeriod)
	applyDuration(&cfg.ReadHeaderTimeout, yamlCfg.ReadHeaderTimeout)
	applyDuration(&cfg.WriteTimeout, yamlCfg.WriteTimeout)
	applyDuration(&cfg.IdleTimeout, yamlCfg.IdleTimeout)

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.RateLimit.RPS != nil && *yamlCfg.RateLimit.RPS >= 0 {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst != nil && *yamlCfg.RateLimit.Burst >= 0 {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	if len(yamlCfg.Spacers) > 0 {
		defs := make([]spacer.Definition, 0, len(yamlCfg.Spacers))
		for _, s := range yamlCfg.Spacers {
			thickness, err := spacer.ParseThickness(s.Thickness)
			if err != nil {
				return fmt.Errorf("spacer %q: %w", s.Name, err)
			}
			enabled := true
			if s.Enabled != nil {
				enabled = *s.Enabled
			}
			defs = append(defs, spacer.Definition{Name: s.Name, Thickness: thickness, Enabled: enabled})
		}
		cfg.Spacers = defs
	}

	return nil
}

func applyDuration(dst *time.Duration, raw string) {
	if raw == "" {
		return
	}
	if d, err := time.ParseDuration(raw); err == nil {
		*dst = d
	}
}

// applyEnvConfig applies environment variable configuration. Malformed
// numbers and durations are ignored; a malformed SPACERS list is an error.
func applyEnvConfig(cfg *Config) error {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if backend := strings.TrimSpace(os.Getenv("STATE_BACKEND")); backend != "" {
		cfg.StateBackend = storage.Backend(backend)
	}

	if path := strings.TrimSpace(os.Getenv("STATE_PATH")); path != "" {
		cfg.StatePath = path
	}

	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	if raw := strings.TrimSpace(os.Getenv("SPACERS")); raw != "" {
		defs, err := parseSpacers(raw)
		if err != nil {
			return fmt.Errorf("parse SPACERS: %w", err)
		}
		cfg.Spacers = defs
	}

	if raw := strings.TrimSpace(os.Getenv("AUTOSAVE_INTERVAL")); raw != "" {
		applyDuration(&cfg.AutosaveInterval, raw)
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) error {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.StateBackend != nil && *overrides.StateBackend != "" {
		cfg.StateBackend = storage.Backend(*overrides.StateBackend)
	}

	if overrides.StatePath != nil && *overrides.StatePath != "" {
		cfg.StatePath = *overrides.StatePath
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}

	if overrides.SpacersStr != nil && *overrides.SpacersStr != "" {
		defs, err := parseSpacers(*overrides.SpacersStr)
		if err != nil {
			return fmt.Errorf("parse spacers: %w", err)
		}
		cfg.Spacers = defs
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	return nil
}

func resolveStatePath(cfg *Config) error {
	if cfg.StatePath != "" || cfg.StateBackend == storage.BackendMemory {
		return nil
	}
	path, err := storage.DefaultPath(cfg.StateBackend)
	if err != nil {
		return fmt.Errorf("resolve state path: %w", err)
	}
	cfg.StatePath = path
	return nil
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	switch cfg.StateBackend {
	case storage.BackendFile, storage.BackendSQLite, storage.BackendMemory:
	default:
		return fmt.Errorf("STATE_BACKEND must be one of file, sqlite, memory; got %q", cfg.StateBackend)
	}
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return fmt.Errorf("shutdown_grace_period must be > 0")
	}
	if cfg.AutosaveInterval < 0 {
		return fmt.Errorf("AUTOSAVE_INTERVAL must be >= 0")
	}
	return nil
}

// parseSpacers parses a comma-separated list of name=thickness pairs, e.g.
// "1/2 Nylon=0.5, Shim=0.0625". Every thickness must be a positive number.
func parseSpacers(raw string) ([]spacer.Definition, error) {
	parts := strings.Split(raw, ",")
	defs := make([]spacer.Definition, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, rawThickness, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid spacer %q, want name=thickness", part)
		}
		thickness, err := spacer.ParseThickness(rawThickness)
		if err != nil {
			return nil, fmt.Errorf("spacer %q: %w", name, err)
		}
		defs = append(defs, spacer.Definition{Name: name, Thickness: thickness, Enabled: true})
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("no spacers provided")
	}
	return defs, nil
}
