// Package config handles fleettrack configuration loading. Settings come
// from a YAML file layered under environment overrides, so secrets like
// the token signing key never need to live on disk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	fterrors "github.com/tradelane/fleettrack/pkg/errors"
)

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Company CompanyConfig `yaml:"company"`
	Assets  AssetsConfig  `yaml:"assets"`
	Token   TokenConfig   `yaml:"token"`
	Report  ReportConfig  `yaml:"report"`
	Log     LogConfig     `yaml:"log"`

	// FixturesPath points at the YAML vehicle fixtures the in-memory
	// store is seeded from.
	FixturesPath string `yaml:"fixtures_path" env:"FLEETTRACK_FIXTURES"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host" env:"FLEETTRACK_HOST"`
	Port int    `yaml:"port" env:"FLEETTRACK_PORT" validate:"gte=0,lte=65535"`

	// BaseURL is the public root embedded in viewer links. It must be
	// reachable by whoever scans a report QR code, which is usually not
	// the listen address.
	BaseURL string `yaml:"base_url" env:"FLEETTRACK_BASE_URL" validate:"required,url"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CompanyConfig holds the branding block printed in report headers.
type CompanyConfig struct {
	Name    string `yaml:"name" validate:"required"`
	Address string `yaml:"address"`
	Email   string `yaml:"email" validate:"omitempty,email"`
}

// AssetsConfig holds branding asset settings.
type AssetsConfig struct {
	LogoURL      string        `yaml:"logo_url" env:"FLEETTRACK_LOGO_URL"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// TokenConfig holds view-token signing settings. The secret is
// environment-only in production; the yaml field exists for local setups.
type TokenConfig struct {
	Secret string        `yaml:"secret" env:"FLEETTRACK_TOKEN_SECRET"`
	TTL    time.Duration `yaml:"ttl"`
}

// ReportConfig holds renderer settings.
type ReportConfig struct {
	Compress         bool    `yaml:"compress"`
	WatermarkOpacity float64 `yaml:"watermark_opacity" validate:"gte=0,lte=1"`
}

// LogConfig holds logging settings, including file rotation.
type LogConfig struct {
	Level      string `yaml:"level" env:"FLEETTRACK_LOG_LEVEL"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8090,
			BaseURL: "http://localhost:8090",
		},
		Company: CompanyConfig{
			Name: "Fleet Operations",
		},
		Assets: AssetsConfig{
			FetchTimeout: 5 * time.Second,
		},
		Token: TokenConfig{
			TTL: 30 * 24 * time.Hour,
		},
		Report: ReportConfig{
			Compress:         true,
			WatermarkOpacity: 0.10,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  20,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// Load loads configuration from a file, then applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fterrors.WrapConfig(err, "CONFIG_NOT_FOUND",
			fmt.Sprintf("failed to read config file %s", path))
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fterrors.WrapConfig(err, "CONFIG_PARSE_ERROR",
			fmt.Sprintf("failed to parse config file %s", path))
	}
	return finish(cfg)
}

// LoadOrDefault loads config from path, or uses the defaults if the file
// is absent. Environment overrides apply either way.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return finish(Default())
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return finish(Default())
	}
	return Load(path)
}

func finish(cfg *Config) (*Config, error) {
	if err := env.Parse(cfg); err != nil {
		return nil, fterrors.WrapConfig(err, "CONFIG_ENV_ERROR", "failed to apply environment overrides")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for internally inconsistent values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fterrors.WrapConfig(err, "CONFIG_INVALID", "configuration failed validation")
	}
	return nil
}

// Save saves configuration to a file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	if _, err := os.Stat("config/config.yaml"); err == nil {
		return "config/config.yaml"
	}
	return "config.yaml"
}

// InitConfig creates a default config file if it doesn't exist.
func InitConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return Default().Save(path)
}
