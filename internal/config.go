package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes for the preview server.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	API     APIConfig         `yaml:"api"`
	Bundle  BundleConfig      `yaml:"bundle"`
	History HistoryConfig     `yaml:"history"`
	Preview PreviewConfig     `yaml:"preview"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return err
	}
	if err := c.Bundle.Validate(); err != nil {
		return err
	}
	return c.Preview.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// APIConfig holds the Roam Local API connection settings.
type APIConfig struct {
	Port  int    `yaml:"port"`
	Graph string `yaml:"graph"`
	Token string `yaml:"token"`
}

// Validate validates the Local API configuration.
func (c *APIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Graph, validation.Required),
	)
}

// BundleConfig holds output and cache directories.
type BundleConfig struct {
	OutputDir string `yaml:"output_dir"`
	CacheDir  string `yaml:"cache_dir"` // empty disables the asset cache
}

// Validate validates the bundle configuration.
func (c *BundleConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.OutputDir, validation.Required),
	)
}

// HistoryConfig holds the run-journal database path. An empty path disables
// journaling.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// PreviewConfig holds preview server configuration.
//
// Auth.Mode controls how the preview server authenticates:
//   - "disabled" (default): no authentication, suitable for local use.
//   - "token": Bearer token authentication; Auth.Token must be non-empty.
type PreviewConfig struct {
	Port int        `yaml:"port"`
	Auth AuthConfig `yaml:"auth"`
}

// Address returns the preview server listen address.
func (c *PreviewConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the preview configuration.
func (c *PreviewConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// AuthConfig holds preview authentication configuration.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled".
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when preview authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		API: APIConfig{
			Port: 3333,
		},
		Bundle: BundleConfig{
			OutputDir: "./bundles",
		},
		Preview: PreviewConfig{
			Port: 8080,
			Auth: AuthConfig{Mode: AuthModeDisabled},
		},
	}
}
