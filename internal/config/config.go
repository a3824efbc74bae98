// Package config provides configuration parsing and validation for a RIST
// pre-shared-key endpoint.
package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete endpoint configuration.
type Config struct {
	Endpoint  EndpointConfig   `yaml:"endpoint"`
	PSK       PSKConfig        `yaml:"psk"`
	Profile   ProfileConfig    `yaml:"profile"`
	Listeners []ListenerConfig `yaml:"listeners"`
	Peers     []PeerConfig     `yaml:"peers"`
	Stats     StatsConfig      `yaml:"stats"`
}

// EndpointConfig contains this endpoint's identity and logging settings.
type EndpointConfig struct {
	ID        string `yaml:"id"`         // "auto" or hex string
	DataDir   string `yaml:"data_dir"`   // Directory for persistent state
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text, json
}

// PSKConfig configures the pre-shared-key cipher shared by every peer
// association this endpoint opens. As with TLSConfig in transport-oriented
// agents, secrets can be supplied inline or via a file; inline takes
// precedence so an operator can override a deployed file at the command
// line without editing it.
type PSKConfig struct {
	// Password is the shared passphrase, inline. Prefer PasswordFile
	// outside of development so the value doesn't end up in the config
	// file or process listing.
	Password string `yaml:"password"`

	// PasswordFile points at a file containing the passphrase. Trailing
	// newlines are trimmed.
	PasswordFile string `yaml:"password_file"`

	// KeySize is the AES key size in bits: 128, 192, or 256.
	KeySize int `yaml:"key_size"`

	// Rotation is the number of packets a derived key protects before this
	// endpoint proactively rotates to a new one. 0 disables proactive
	// rotation by packet count; the hard reuse limit in package psk still
	// applies regardless.
	Rotation uint32 `yaml:"rotation"`
}

// GetPassword returns the configured passphrase, reading PasswordFile if
// Password is empty. It returns (nil, nil) if neither is configured, so
// callers can fall back to an interactive prompt.
func (p *PSKConfig) GetPassword() ([]byte, error) {
	if p.Password != "" {
		return []byte(p.Password), nil
	}
	if p.PasswordFile != "" {
		data, err := os.ReadFile(p.PasswordFile)
		if err != nil {
			return nil, fmt.Errorf("read psk.password_file: %w", err)
		}
		return []byte(strings.TrimRight(string(data), "\r\n")), nil
	}
	return nil, nil
}

// HasPassword reports whether a passphrase is configured (either form).
func (p *PSKConfig) HasPassword() bool {
	return p.Password != "" || p.PasswordFile != ""
}

// ProfileConfig selects the GRE profile this endpoint speaks, which in turn
// decides how package psk lays out its AES-CTR IV.
type ProfileConfig struct {
	// GREVersion is 0 for the simple profile or 1 for the main profile.
	GREVersion uint8 `yaml:"gre_version"`
}

// ListenerConfig defines where this endpoint accepts peer connections.
type ListenerConfig struct {
	Address string `yaml:"address"` // listen address, host:port
}

// PeerConfig defines an outbound peer connection.
type PeerConfig struct {
	ID      string `yaml:"id"`      // expected peer PeerID, hex
	Address string `yaml:"address"` // peer address, host:port
}

// StatsConfig controls periodic statistics reporting.
type StatsConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Endpoint: EndpointConfig{
			ID:        "auto",
			DataDir:   "./data",
			LogLevel:  "info",
			LogFormat: "text",
		},
		PSK: PSKConfig{
			KeySize:  256,
			Rotation: 0,
		},
		Profile: ProfileConfig{
			GREVersion: 1,
		},
		Listeners: []ListenerConfig{},
		Peers:     []PeerConfig{},
		Stats: StatsConfig{
			Interval: 10 * time.Second,
		},
	}
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// envVarRegex matches ${VAR} or $VAR patterns.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars replaces environment variable references with their values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		var name string
		if strings.HasPrefix(match, "${") {
			name = match[2 : len(match)-1]
		} else {
			name = match[1:]
		}

		if idx := strings.Index(name, ":-"); idx != -1 {
			varName := name[:idx]
			defaultVal := name[idx+2:]
			if val, ok := os.LookupEnv(varName); ok {
				return val
			}
			return defaultVal
		}

		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

// Validate checks the configuration for errors. It does not require a
// passphrase to be configured, since a CLI front end may prompt for one
// interactively; callers that need a passphrase up front should call
// PSK.GetPassword and check for an empty result themselves.
func (c *Config) Validate() error {
	var errs []string

	if c.Endpoint.DataDir == "" {
		errs = append(errs, "endpoint.data_dir is required")
	}
	if !isValidLogLevel(c.Endpoint.LogLevel) {
		errs = append(errs, fmt.Sprintf("invalid log_level: %s (must be debug, info, warn, or error)", c.Endpoint.LogLevel))
	}
	if !isValidLogFormat(c.Endpoint.LogFormat) {
		errs = append(errs, fmt.Sprintf("invalid log_format: %s (must be text or json)", c.Endpoint.LogFormat))
	}

	if !isValidKeySize(c.PSK.KeySize) {
		errs = append(errs, fmt.Sprintf("psk.key_size must be 128, 192, or 256, got %d", c.PSK.KeySize))
	}
	if c.PSK.Password != "" && c.PSK.PasswordFile != "" {
		errs = append(errs, "psk.password and psk.password_file are mutually exclusive")
	}

	if c.Profile.GREVersion > 1 {
		errs = append(errs, fmt.Sprintf("profile.gre_version must be 0 or 1, got %d", c.Profile.GREVersion))
	}

	for i, l := range c.Listeners {
		if err := validateAddress(l.Address); err != nil {
			errs = append(errs, fmt.Sprintf("listeners[%d]: %v", i, err))
		}
	}

	for i, p := range c.Peers {
		if p.ID == "" {
			errs = append(errs, fmt.Sprintf("peers[%d]: id is required", i))
		}
		if err := validateAddress(p.Address); err != nil {
			errs = append(errs, fmt.Sprintf("peers[%d]: %v", i, err))
		}
	}

	if c.Stats.Interval < 0 {
		errs = append(errs, "stats.interval must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address is required")
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func isValidLogFormat(format string) bool {
	switch format {
	case "text", "json":
		return true
	default:
		return false
	}
}

func isValidKeySize(bits int) bool {
	switch bits {
	case 128, 192, 256:
		return true
	default:
		return false
	}
}

// String returns a string representation of the config (for debugging).
// WARNING: This method redacts sensitive values. Use StringUnsafe() for
// full output.
func (c *Config) String() string {
	data, _ := yaml.Marshal(c.Redacted())
	return string(data)
}

// StringUnsafe returns a string representation including sensitive values.
// Use with caution - do not log the output.
func (c *Config) StringUnsafe() string {
	data, _ := yaml.Marshal(c)
	return string(data)
}

// redactedValue is the placeholder for sensitive values.
const redactedValue = "[REDACTED]"

// Redacted returns a copy of the config with the PSK passphrase redacted.
// This is safe to log or display to users.
func (c *Config) Redacted() *Config {
	data, err := yaml.Marshal(c)
	if err != nil {
		return c
	}

	redacted := &Config{}
	if err := yaml.Unmarshal(data, redacted); err != nil {
		return c
	}

	if redacted.PSK.Password != "" {
		redacted.PSK.Password = redactedValue
	}

	return redacted
}

// HasSensitiveData returns true if the config contains a passphrase.
func (c *Config) HasSensitiveData() bool {
	return c.PSK.Password != ""
}
