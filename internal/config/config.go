// Package config provides YAML-based configuration for the impact client and its local console.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for its configuration.
const DefaultPath = "impact.yaml"

// AppConfig is the root of impact.yaml.
type AppConfig struct {
	Service ServiceConfig `yaml:"service"`
	Upload  UploadConfig  `yaml:"upload"`
	Console ConsoleConfig `yaml:"console"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServiceConfig locates the remote impact service.
type ServiceConfig struct {
	BaseURL               string `yaml:"base_url"`
	Encoding              string `yaml:"encoding"` // json or msgpack
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	UploadTimeoutSeconds  int    `yaml:"upload_timeout_seconds"` // 0: no limit beyond the transport's
}

// UploadConfig holds the bulk upload policy.
type UploadConfig struct {
	MaxFileSize    int64 `yaml:"max_file_size"`
	PollIntervalMs int   `yaml:"poll_interval_ms"`
	StatusRetries  int   `yaml:"status_retries"`
}

// ConsoleConfig contains settings for the local web console.
type ConsoleConfig struct {
	Port                   int    `yaml:"port"`
	BindAddress            string `yaml:"bind_address"`
	EnableCORS             bool   `yaml:"enable_cors"`
	AllowOrigins           string `yaml:"allow_origins"`
	BodyLimit              string `yaml:"body_limit"`
	StagingDirectory       string `yaml:"staging_directory"`
	SessionTimeoutMinutes  int    `yaml:"session_timeout_minutes"`
	CleanupIntervalMinutes int    `yaml:"cleanup_interval_minutes"`
	MaxSessions            int    `yaml:"max_sessions"`
}

// LoggingConfig controls the zerolog output and console request logging.
type LoggingConfig struct {
	Level                string `yaml:"level"`
	Format               string `yaml:"format"` // console or json
	EnableRequestLogging bool   `yaml:"enable_request_logging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Service: ServiceConfig{
			BaseURL:               "http://localhost:3000",
			Encoding:              "json",
			RequestTimeoutSeconds: 30,
			UploadTimeoutSeconds:  0,
		},
		Upload: UploadConfig{
			MaxFileSize:    10 * 1024 * 1024,
			PollIntervalMs: 2000,
			StatusRetries:  0,
		},
		Console: ConsoleConfig{
			Port:                   8089,
			BindAddress:            "127.0.0.1",
			EnableCORS:             false,
			AllowOrigins:           "*",
			BodyLimit:              "12M",
			StagingDirectory:       "./data/staging",
			SessionTimeoutMinutes:  30,
			CleanupIntervalMinutes: 5,
			MaxSessions:            64,
		},
		Logging: LoggingConfig{
			Level:                "info",
			Format:               "console",
			EnableRequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file, writing the defaults there first
// if it does not exist. Fields missing from the file keep their defaults.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes the configuration as YAML.
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# NGO impact client configuration\n# This file is auto-generated on first run\n\n")
	if err := os.WriteFile(configPath, append(header, output...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate rejects values no component can run with.
func (c *AppConfig) Validate() error {
	if c.Service.BaseURL == "" {
		return fmt.Errorf("service.base_url is required")
	}
	switch c.Service.Encoding {
	case "json", "msgpack":
	default:
		return fmt.Errorf("service.encoding must be json or msgpack, got %q", c.Service.Encoding)
	}
	if c.Upload.PollIntervalMs <= 0 {
		return fmt.Errorf("upload.poll_interval_ms must be positive")
	}
	if c.Upload.StatusRetries < 0 || c.Service.UploadTimeoutSeconds < 0 || c.Service.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("retries and timeouts must not be negative")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if base := os.Getenv("IMPACT_API_BASE"); base != "" {
		c.Service.BaseURL = base
	}
	if level := os.Getenv("IMPACT_LOG_LEVEL"); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Console.Port = p
		}
	}
	if dataDir := os.Getenv("IMPACT_DATA_DIR"); dataDir != "" {
		c.Console.StagingDirectory = filepath.Join(dataDir, "staging")
	}
}

// resolvePaths makes the staging directory absolute relative to the config file
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Console.StagingDirectory) {
		c.Console.StagingDirectory = filepath.Join(configDir, c.Console.StagingDirectory)
	}
}

// PollInterval is the delay between job status checks.
func (c *AppConfig) PollInterval() time.Duration {
	return time.Duration(c.Upload.PollIntervalMs) * time.Millisecond
}

func (c *AppConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Service.RequestTimeoutSeconds) * time.Second
}

func (c *AppConfig) UploadTimeout() time.Duration {
	return time.Duration(c.Service.UploadTimeoutSeconds) * time.Second
}

func (c *AppConfig) SessionTimeout() time.Duration {
	return time.Duration(c.Console.SessionTimeoutMinutes) * time.Minute
}

func (c *AppConfig) CleanupInterval() time.Duration {
	return time.Duration(c.Console.CleanupIntervalMinutes) * time.Minute
}

// GetServerAddr returns the console bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Console.BindAddress, c.Console.Port)
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	if err := os.MkdirAll(c.Console.StagingDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.Console.StagingDirectory, err)
	}
	return nil
}
