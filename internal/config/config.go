// Package config handles configuration loading and management for aegisdash.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/aegisai/aegisdash/internal/policy"
	"github.com/aegisai/aegisdash/pkg/types"
	"gopkg.in/yaml.v3"
)

// Config represents the global configuration for aegisdash
type Config struct {
	Server  ServerConfig  `yaml:"server" toml:"server"`
	Backend BackendConfig `yaml:"backend" toml:"backend"`
	Poll    PollConfig    `yaml:"poll" toml:"poll"`
	Policy  PolicyConfig  `yaml:"policy" toml:"policy"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// ServerConfig defines the dashboard web server
type ServerConfig struct {
	Listen       string        `yaml:"listen" toml:"listen"`
	SessionTTL   time.Duration `yaml:"session_ttl" toml:"session_ttl"`
	ActionRate   int           `yaml:"action_rate" toml:"action_rate"`     // actions per window per client IP
	ActionWindow time.Duration `yaml:"action_window" toml:"action_window"` // window for action_rate
	EnableCORS   bool          `yaml:"enable_cors" toml:"enable_cors"`
}

// BackendConfig defines how the Aegis backend is reached
type BackendConfig struct {
	BaseURL       string            `yaml:"base_url" toml:"base_url"`
	Timeout       time.Duration     `yaml:"timeout" toml:"timeout"`
	RPS           int               `yaml:"rps" toml:"rps"`
	UserAgent     string            `yaml:"user_agent" toml:"user_agent"`
	Headers       map[string]string `yaml:"headers" toml:"headers"`
	SkipTLSVerify bool              `yaml:"skip_tls_verify" toml:"skip_tls_verify"`
}

// PollConfig defines per-feed polling intervals
type PollConfig struct {
	Emails           time.Duration `yaml:"emails" toml:"emails"`
	Blocked          time.Duration `yaml:"blocked" toml:"blocked"`
	LoginLogs        time.Duration `yaml:"login_logs" toml:"login_logs"`
	BankTransactions time.Duration `yaml:"bank_transactions" toml:"bank_transactions"`
	Workers          int           `yaml:"workers" toml:"workers"`
}

// PolicyConfig overrides risk thresholds and the block policy table
type PolicyConfig struct {
	policy.Thresholds `yaml:",inline"`
	BlockRules        []policy.Rule `yaml:"block_rules" toml:"block_rules"`
}

// LoggingConfig defines the log output
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // text, json
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:       ":8090",
			SessionTTL:   30 * time.Minute,
			ActionRate:   20,
			ActionWindow: time.Minute,
		},
		Backend: BackendConfig{
			BaseURL:   "http://127.0.0.1:5000",
			Timeout:   10 * time.Second,
			RPS:       20,
			UserAgent: "aegisdash/1.0",
			Headers:   map[string]string{},
		},
		Poll: PollConfig{
			Emails:           5 * time.Second,
			Blocked:          10 * time.Second,
			LoginLogs:        6 * time.Second,
			BankTransactions: 8 * time.Second,
			Workers:          8,
		},
		Policy: PolicyConfig{
			Thresholds: policy.DefaultThresholds(),
			BlockRules: policy.DefaultRules(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Errors
var (
	ErrUnsupportedFormat = errors.New("config: unsupported file format")
	ErrInvalid           = errors.New("config: invalid value")
)

// LoadFile reads a YAML or TOML file on top of DefaultConfig
func LoadFile(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(absPath)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".toml":
		return ParseTOML(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(absPath))
	}
}

// ParseYAML parses YAML bytes, rejecting unknown fields
func ParseYAML(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return finish(cfg)
}

// ParseTOML parses TOML bytes, rejecting unknown keys
func ParseTOML(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown key %s", ErrInvalid, undecoded[0])
	}

	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

// applyDefaults fills zero values left by a partial file
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.Server.Listen == "" {
		c.Server.Listen = def.Server.Listen
	}
	if c.Server.SessionTTL == 0 {
		c.Server.SessionTTL = def.Server.SessionTTL
	}
	if c.Server.ActionWindow == 0 {
		c.Server.ActionWindow = def.Server.ActionWindow
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = def.Backend.Timeout
	}
	if c.Backend.UserAgent == "" {
		c.Backend.UserAgent = def.Backend.UserAgent
	}
	if c.Backend.Headers == nil {
		c.Backend.Headers = map[string]string{}
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if c.Poll.Workers == 0 {
		c.Poll.Workers = def.Poll.Workers
	}
	if len(c.Policy.BlockRules) == 0 {
		c.Policy.BlockRules = def.Policy.BlockRules
	}
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Format = strings.ToLower(c.Logging.Format)
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: backend.base_url %q", ErrInvalid, c.Backend.BaseURL)
	}
	if c.Backend.RPS < 0 {
		return fmt.Errorf("%w: backend.rps must not be negative", ErrInvalid)
	}
	if c.Server.ActionRate < 0 {
		return fmt.Errorf("%w: server.action_rate must not be negative", ErrInvalid)
	}

	for _, ep := range []types.Endpoint{
		types.EndpointEmails,
		types.EndpointBlocked,
		types.EndpointLoginLogs,
		types.EndpointBankTransactions,
	} {
		if c.Poll.Interval(ep) <= 0 {
			return fmt.Errorf("%w: poll interval for %s must be positive", ErrInvalid, ep)
		}
	}
	if c.Poll.Workers < 1 {
		return fmt.Errorf("%w: poll.workers must be at least 1", ErrInvalid)
	}

	if err := c.Policy.Thresholds.Validate(); err != nil {
		return err
	}
	if _, err := policy.NewTable(c.Policy.BlockRules); err != nil {
		return err
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level %q", ErrInvalid, c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: logging.format %q", ErrInvalid, c.Logging.Format)
	}

	return nil
}

// Interval returns the poll interval of an endpoint. The profile is
// fetched once, so its interval is zero.
func (p PollConfig) Interval(ep types.Endpoint) time.Duration {
	switch ep {
	case types.EndpointEmails:
		return p.Emails
	case types.EndpointBlocked:
		return p.Blocked
	case types.EndpointLoginLogs:
		return p.LoginLogs
	case types.EndpointBankTransactions:
		return p.BankTransactions
	default:
		return 0
	}
}

// Table builds the block policy table
func (p PolicyConfig) Table() (*policy.Table, error) {
	return policy.NewTable(p.BlockRules)
}
