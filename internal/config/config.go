// Package config loads herd settings from an optional YAML file, .env files
// and HERD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jbweber/herd/internal/confirm"
	"github.com/jbweber/herd/internal/logger"
	"github.com/jbweber/herd/internal/naming"
)

const (
	// DefaultRoster is the roster file used when none is configured.
	DefaultRoster = "cluster.list"
	// DefaultVBoxManage is looked up on PATH.
	DefaultVBoxManage = "VBoxManage"
	// DefaultSSHPort is used when ssh.port is unset.
	DefaultSSHPort = 22
	// DefaultSSHTimeout bounds the SSH dial and handshake.
	DefaultSSHTimeout = 10 * time.Second
)

// Config is the complete herd configuration.
type Config struct {
	Roster         string    `yaml:"roster"`
	VBoxManage     string    `yaml:"vboxmanage"`
	Assume         string    `yaml:"assume"` // prompt, yes or no
	NonInteractive bool      `yaml:"non_interactive"`
	Parallelism    int       `yaml:"parallelism"`
	Placeholder    string    `yaml:"placeholder"`
	Log            LogConfig `yaml:"log"`
	SSH            SSHConfig `yaml:"ssh"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// SSHConfig configures remote command execution for exec.
type SSHConfig struct {
	User    string `yaml:"user"`
	KeyFile string `yaml:"key_file,omitempty"`
	Port    int    `yaml:"port"`
	// HostTemplate turns a member name into a host; the placeholder is
	// replaced by the name. "{}" dials the member name itself.
	HostTemplate string        `yaml:"host_template"`
	UseAgent     bool          `yaml:"use_agent"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Roster:      DefaultRoster,
		VBoxManage:  DefaultVBoxManage,
		Assume:      string(confirm.ModePrompt),
		Parallelism: 1,
		Placeholder: naming.DefaultPlaceholder,
		Log: LogConfig{
			Level:  string(logger.LogInfo),
			Format: "console",
		},
		SSH: SSHConfig{
			Port:         DefaultSSHPort,
			HostTemplate: naming.DefaultPlaceholder,
			UseAgent:     true,
			Timeout:      DefaultSSHTimeout,
		},
	}
}

// DefaultPath returns $HERD_CONFIG, or ~/.config/herd/config.yaml.
func DefaultPath() string {
	if p := os.Getenv("HERD_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "herd", "config.yaml")
}

// Load builds the configuration: defaults, then the YAML file at path, then
// .env files, then HERD_* variables. A missing file is only an error when
// required is set (the path was given explicitly).
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	if path != "" {
		err := cfg.mergeFile(path)
		if err != nil && (required || !errors.Is(err, os.ErrNotExist)) {
			return nil, err
		}
	}

	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// LoadDotEnv loads the given .env files (".env" when none are named) into
// the process environment. Variables already set win, and missing files are
// skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from HERD_* variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("HERD_ROSTER"); ok && v != "" {
		c.Roster = v
	}
	if v, ok := lookup("HERD_VBOXMANAGE"); ok && v != "" {
		c.VBoxManage = v
	}
	if v, ok := lookup("HERD_ASSUME"); ok && v != "" {
		c.Assume = v
	}
	if v, ok := lookup("HERD_NONINTERACTIVE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("HERD_NONINTERACTIVE: %w", err)
		}
		c.NonInteractive = b
	}
	if v, ok := lookup("HERD_VERBOSE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("HERD_VERBOSE: %w", err)
		}
		if b {
			c.Log.Level = string(logger.LogDebug)
		}
	}
	if v, ok := lookup("HERD_PARALLEL"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HERD_PARALLEL: %w", err)
		}
		c.Parallelism = n
	}
	if v, ok := lookup("HERD_SSH_USER"); ok && v != "" {
		c.SSH.User = v
	}
	if v, ok := lookup("HERD_SSH_KEY"); ok && v != "" {
		c.SSH.KeyFile = v
	}
	return nil
}

// Normalize trims input and fills zero values with defaults.
func (c *Config) Normalize() {
	c.Roster = strings.TrimSpace(c.Roster)
	if c.Roster == "" {
		c.Roster = DefaultRoster
	}
	if c.VBoxManage == "" {
		c.VBoxManage = DefaultVBoxManage
	}
	c.Assume = strings.ToLower(strings.TrimSpace(c.Assume))
	if c.Assume == "" {
		c.Assume = string(confirm.ModePrompt)
	}
	if c.Parallelism == 0 {
		c.Parallelism = 1
	}
	if c.Placeholder == "" {
		c.Placeholder = naming.DefaultPlaceholder
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Log.Level == "" {
		c.Log.Level = string(logger.LogInfo)
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.SSH.Port == 0 {
		c.SSH.Port = DefaultSSHPort
	}
	if c.SSH.HostTemplate == "" {
		c.SSH.HostTemplate = c.Placeholder
	}
	if c.SSH.Timeout == 0 {
		c.SSH.Timeout = DefaultSSHTimeout
	}
	if strings.HasPrefix(c.SSH.KeyFile, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			c.SSH.KeyFile = filepath.Join(home, c.SSH.KeyFile[2:])
		}
	}
}

// ConfirmMode returns the confirmation mode, forcing "no" prompts to be
// declined when running non-interactively.
func (c *Config) ConfirmMode() confirm.Mode {
	mode, err := confirm.ParseMode(c.Assume)
	if err != nil {
		return confirm.ModeNo
	}
	if c.NonInteractive && mode == confirm.ModePrompt {
		return confirm.ModeNo
	}
	return mode
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := naming.ValidateIdentifier(c.Roster); err != nil {
		return fmt.Errorf("roster: %w", err)
	}
	if _, err := confirm.ParseMode(c.Assume); err != nil {
		return fmt.Errorf("assume: %w", err)
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("parallelism must be >= 1, got %d", c.Parallelism)
	}
	if strings.TrimSpace(c.Placeholder) == "" {
		return fmt.Errorf("placeholder must not be blank")
	}

	switch logger.LogLevel(c.Log.Level) {
	case logger.LogDebug, logger.LogInfo, logger.LogWarn, logger.LogError:
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}

	if err := c.SSH.Validate(); err != nil {
		return fmt.Errorf("ssh: %w", err)
	}
	return nil
}

// Validate checks the SSH settings. User and key are only needed by exec and
// are checked there.
func (s *SSHConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", s.Timeout)
	}
	return nil
}
