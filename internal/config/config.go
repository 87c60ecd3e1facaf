// Package config loads the tool configuration from a YAML file, falling
// back to defaults and honoring the usual AWS environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AWS holds the settings for reaching SSM Change Calendars.
type AWS struct {
	Region  string `yaml:"region"`
	Profile string `yaml:"profile"`
}

// Output controls how reports are rendered.
type Output struct {
	Directory string `yaml:"directory"`
	Format    string `yaml:"format"` // summary, full or json
	Color     bool   `yaml:"color"`
}

// Server holds the HTTP server settings.
type Server struct {
	Addr            string        `yaml:"addr"`
	RefreshSchedule string        `yaml:"refresh_schedule"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Config is the full runtime configuration.
type Config struct {
	AWS       AWS    `yaml:"aws"`
	CacheDir  string `yaml:"cache_dir"`
	StorePath string `yaml:"store_path"`
	Output    Output `yaml:"output"`
	Server    Server `yaml:"server"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".koyomi")
	return &Config{
		AWS: AWS{
			Region: "ap-northeast-1",
		},
		CacheDir:  filepath.Join(base, "cache"),
		StorePath: filepath.Join(base, "koyomi.db"),
		Output: Output{
			Directory: ".",
			Format:    "summary",
			Color:     true,
		},
		Server: Server{
			Addr:            ":8990",
			RefreshSchedule: "@daily",
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".koyomi", "config.yaml")
}

// Load reads the YAML file at path on top of the defaults. A missing file
// at the default path is fine; a missing explicit path is an error.
// AWS_DEFAULT_REGION and AWS_PROFILE override the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// defaults only
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if v := os.Getenv("AWS_DEFAULT_REGION"); v != "" {
		cfg.AWS.Region = v
	}
	if v := os.Getenv("AWS_PROFILE"); v != "" {
		cfg.AWS.Profile = v
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Output.Format) {
	case "summary", "full", "json":
	default:
		return fmt.Errorf("output.format must be summary, full or json, got %q", c.Output.Format)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	return nil
}
