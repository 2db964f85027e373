// Package config provides configuration management for the Focusmate client core.
// It handles loading and parsing YAML configuration files, and provides structured
// access to application settings including the API base URL, certificate pinning
// policy, proxy configuration, and logging behavior.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultRequestTimeoutSeconds bounds a single API call when the config does not
// override it.
const DefaultRequestTimeoutSeconds = 30

// DefaultRefreshLeadSeconds is the window before access-token expiry inside which
// the client refreshes proactively instead of waiting for a 401.
const DefaultRefreshLeadSeconds = 30

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// BaseURL is the absolute root of the Focusmate API, e.g. "https://api.focusmate.app".
	BaseURL string `yaml:"base-url" json:"base-url"`

	// ProxyURL is the URL of an optional proxy server to use for outbound requests.
	ProxyURL string `yaml:"proxy-url,omitempty" json:"proxy-url,omitempty"`

	// AuthDir is the directory where token records are persisted.
	AuthDir string `yaml:"auth-dir,omitempty" json:"auth-dir,omitempty"`

	// Debug enables verbose logging when set.
	Debug bool `yaml:"debug" json:"debug"`

	// RequestLog enables detailed request/response logging.
	RequestLog bool `yaml:"request-log" json:"request-log"`

	// RequestTimeoutSeconds bounds a single request including body read.
	// <= 0 selects DefaultRequestTimeoutSeconds.
	RequestTimeoutSeconds int `yaml:"request-timeout-seconds,omitempty" json:"request-timeout-seconds,omitempty"`

	// RefreshLeadSeconds is the proactive-refresh window before token expiry.
	// <= 0 selects DefaultRefreshLeadSeconds.
	RefreshLeadSeconds int `yaml:"refresh-lead-seconds,omitempty" json:"refresh-lead-seconds,omitempty"`

	// Pinning configures TLS certificate pinning for API hosts.
	Pinning PinningConfig `yaml:"pinning" json:"pinning"`

	// Logging configures file logging and rotation.
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// PinningConfig declares the certificate pinning policy applied to TLS handshakes.
type PinningConfig struct {
	// Enforce rejects connections to pinned hosts whose chain carries no accepted
	// public key. When false, violations are logged but connections proceed.
	Enforce bool `yaml:"enforce" json:"enforce"`

	// Hosts lists the host names subject to pinning. Hosts not listed here are
	// never checked.
	Hosts []string `yaml:"hosts,omitempty" json:"hosts,omitempty"`

	// PublicKeyHashes lists accepted SPKI SHA-256 hashes as lowercase hex strings.
	PublicKeyHashes []string `yaml:"public-key-hashes,omitempty" json:"public-key-hashes,omitempty"`
}

// LoggingConfig holds file logging behavior configuration.
type LoggingConfig struct {
	// ToFile mirrors log output into a rotating file under Dir when set.
	ToFile bool `yaml:"to-file" json:"to-file"`

	// Dir is the directory for rotated log files. Defaults to "logs".
	Dir string `yaml:"dir,omitempty" json:"dir,omitempty"`

	// MaxSizeMB is the size threshold for rotation. Defaults to 10.
	MaxSizeMB int `yaml:"max-size-mb,omitempty" json:"max-size-mb,omitempty"`

	// MaxBackups is how many rotated files to keep. Defaults to 5.
	MaxBackups int `yaml:"max-backups,omitempty" json:"max-backups,omitempty"`

	// MaxAgeDays drops rotated files older than this. Defaults to 28.
	MaxAgeDays int `yaml:"max-age-days,omitempty" json:"max-age-days,omitempty"`
}

// LoadConfig reads and parses the YAML configuration file at the given path.
func LoadConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	cfg.applyDefaults()
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = DefaultRequestTimeoutSeconds
	}
	if c.RefreshLeadSeconds <= 0 {
		c.RefreshLeadSeconds = DefaultRefreshLeadSeconds
	}
	if c.AuthDir == "" {
		c.AuthDir = "~/.focusmate"
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = 10
	}
	if c.Logging.MaxBackups <= 0 {
		c.Logging.MaxBackups = 5
	}
	if c.Logging.MaxAgeDays <= 0 {
		c.Logging.MaxAgeDays = 28
	}
	for i, h := range c.Pinning.Hosts {
		c.Pinning.Hosts[i] = strings.ToLower(strings.TrimSpace(h))
	}
	for i, h := range c.Pinning.PublicKeyHashes {
		c.Pinning.PublicKeyHashes[i] = strings.ToLower(strings.TrimSpace(h))
	}
}

// Validate checks the configuration for values that cannot work at runtime.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("config: base-url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("config: base-url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: base-url must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("config: base-url is missing a host")
	}
	for _, hash := range c.Pinning.PublicKeyHashes {
		if len(hash) != 64 {
			return fmt.Errorf("config: pinning hash %q is not a SHA-256 hex digest", hash)
		}
		for _, r := range hash {
			if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
				return fmt.Errorf("config: pinning hash %q contains non-hex characters", hash)
			}
		}
	}
	return nil
}
