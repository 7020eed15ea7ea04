// Package config handles the sbchat configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/danitzn/sb-frontend/internal/models"
)

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	Style            string `json:"style"`              // "dark", "light", or path to JSON theme
	EnableEmoji      bool   `json:"enable_emoji"`       // Convert :emoji: to unicode
	PreserveNewLines bool   `json:"preserve_newlines"`  // Preserve original line breaks
	TableWrap        bool   `json:"table_wrap"`         // Enable word wrap in table cells
	InlineTableLinks bool   `json:"inline_table_links"` // Render links inline in tables
}

// Config represents the user configuration
type Config struct {
	BaseURL       string `json:"base_url"`
	ChatPath      string `json:"chat_path"`
	DiagnosticURL string `json:"diagnostic_url"`
	// Timeouts are in milliseconds. Zero or negative values fall back to the
	// built-in budgets.
	ChatTimeoutMs       int `json:"chat_timeout_ms"`
	ConnectionTimeoutMs int `json:"connection_timeout_ms"`
	ProbeTimeoutMs      int `json:"probe_timeout_ms"`
	// Verbose enables debug logging on stderr.
	Verbose         bool           `json:"verbose"`
	CopyToClipboard bool           `json:"copy_to_clipboard"`
	TUITheme        string         `json:"tui_theme,omitempty"` // TUI color theme
	Markdown        MarkdownConfig `json:"markdown,omitempty"`
}

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:            "dark",
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
		InlineTableLinks: false,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:             models.DefaultBaseURL,
		ChatPath:            models.ChatPath,
		DiagnosticURL:       models.DefaultDiagnosticURL,
		ChatTimeoutMs:       int(models.ChatTimeout / time.Millisecond),
		ConnectionTimeoutMs: int(models.ConnectionTimeout / time.Millisecond),
		ProbeTimeoutMs:      int(models.ProbeTimeout / time.Millisecond),
		Verbose:             false,
		CopyToClipboard:     false,
		TUITheme:            "tokyonight",
		Markdown:            DefaultMarkdownConfig(),
	}
}

// ChatTimeout returns the Submit budget
func (c Config) ChatTimeout() time.Duration {
	return millis(c.ChatTimeoutMs, models.ChatTimeout)
}

// ConnectionTimeout returns the TestConnection budget
func (c Config) ConnectionTimeout() time.Duration {
	return millis(c.ConnectionTimeoutMs, models.ConnectionTimeout)
}

// ProbeTimeout returns the per-probe diagnostics budget
func (c Config) ProbeTimeout() time.Duration {
	return millis(c.ProbeTimeoutMs, models.ProbeTimeout)
}

func millis(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(home, ".sbchat")
	return configDir, nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// LoadConfig loads the configuration from disk
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if config doesn't exist
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.json")

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setters maps the keys accepted by `config set` to their field
var setters = map[string]func(*Config, string) error{
	"base_url":              setString(func(c *Config) *string { return &c.BaseURL }),
	"chat_path":             setString(func(c *Config) *string { return &c.ChatPath }),
	"diagnostic_url":        setString(func(c *Config) *string { return &c.DiagnosticURL }),
	"tui_theme":             setString(func(c *Config) *string { return &c.TUITheme }),
	"markdown.style":        setString(func(c *Config) *string { return &c.Markdown.Style }),
	"chat_timeout_ms":       setInt(func(c *Config) *int { return &c.ChatTimeoutMs }),
	"connection_timeout_ms": setInt(func(c *Config) *int { return &c.ConnectionTimeoutMs }),
	"probe_timeout_ms":      setInt(func(c *Config) *int { return &c.ProbeTimeoutMs }),
	"verbose":               setBool(func(c *Config) *bool { return &c.Verbose }),
	"copy_to_clipboard":     setBool(func(c *Config) *bool { return &c.CopyToClipboard }),
	"markdown.enable_emoji": setBool(func(c *Config) *bool { return &c.Markdown.EnableEmoji }),
	"markdown.table_wrap":   setBool(func(c *Config) *bool { return &c.Markdown.TableWrap }),
}

// Keys returns the settable keys in alphabetical order
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetValue parses value and assigns it to the field named by key
func (c *Config) SetValue(key, value string) error {
	set, ok := setters[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return fmt.Errorf("unknown config key %q (valid keys: %s)", key, strings.Join(Keys(), ", "))
	}
	if err := set(c, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

func setString(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		if v == "" {
			return fmt.Errorf("value cannot be empty")
		}
		*field(c) = v
		return nil
	}
}

func setInt(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		if n <= 0 {
			return fmt.Errorf("must be positive, got %d", n)
		}
		*field(c) = n
		return nil
	}
}

func setBool(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}
