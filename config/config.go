// Package config provides configuration parsing for swapwatch.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the swapwatch daemon configuration.
type Config struct {
	// Monitor holds daemon-level settings.
	Monitor MonitorConfig `yaml:"monitor"`

	// Thresholds holds the swap hysteresis thresholds.
	Thresholds ThresholdsConfig `yaml:"thresholds"`

	// Adaptive holds the sampling interval policy.
	Adaptive AdaptiveConfig `yaml:"adaptive"`

	// Services lists the managed services eligible for restart.
	Services []ServiceEntry `yaml:"services"`

	// History holds metrics persistence settings.
	History HistoryConfig `yaml:"history"`

	// Alerts holds external notification settings.
	Alerts AlertsConfig `yaml:"alerts"`
}

// MonitorConfig holds daemon-level settings.
type MonitorConfig struct {
	// UIUpdateInterval is a duration string (e.g. "1s") between TUI redraws.
	UIUpdateInterval string `yaml:"ui_update_interval"`
	// RestartCooldown is a duration string for the per-unit restart cooldown.
	RestartCooldown string `yaml:"restart_cooldown"`
	// LogFile is the path for daemon log output.
	LogFile string `yaml:"log_file"`
	// StateDir is the directory for persisted metrics history.
	StateDir string `yaml:"state_dir"`
}

// ThresholdsConfig holds the swap hysteresis thresholds, in percent.
type ThresholdsConfig struct {
	// SwapHigh is the swap usage percentage at which remediation starts.
	SwapHigh float64 `yaml:"swap_high"`
	// SwapLow is the swap usage percentage at which the situation counts as resolved.
	SwapLow float64 `yaml:"swap_low"`
	// ReclaimMargin is the minimum swap percentage drop a cache reclaim must
	// achieve to count as effective.
	ReclaimMargin float64 `yaml:"reclaim_margin"`
}

// AdaptiveConfig holds the sampling interval policy.
type AdaptiveConfig struct {
	// FloorInterval is a duration string for the shortest sampling interval.
	FloorInterval string `yaml:"floor_interval"`
	// CeilingInterval is a duration string for the longest sampling interval.
	CeilingInterval string `yaml:"ceiling_interval"`
	// Window is how many recent stress readings inform the interval.
	Window int `yaml:"window"`
}

// ServiceEntry represents a single managed service.
type ServiceEntry struct {
	// Match is the exact command name identifying the service's processes.
	Match string `yaml:"match"`
	// Unit is the systemd unit restarted when this service is targeted.
	Unit string `yaml:"unit"`
	// IncludeChildren folds descendant processes into the service's swap total.
	IncludeChildren bool `yaml:"include_children"`
}

// HistoryConfig holds metrics persistence settings.
type HistoryConfig struct {
	// Enabled controls whether swap history and action records are persisted.
	Enabled bool `yaml:"enabled"`
	// MaxEntries caps how many persisted history points are kept.
	MaxEntries int `yaml:"max_entries"`
}

// AlertsConfig holds external notification settings.
type AlertsConfig struct {
	// Cooldown is a duration string between repeated alerts for the same condition.
	Cooldown string `yaml:"cooldown"`
	// Webhook holds webhook delivery settings.
	Webhook WebhookConfig `yaml:"webhook"`
	// Email holds SMTP delivery settings.
	Email EmailConfig `yaml:"email"`
}

// WebhookConfig holds webhook delivery settings.
type WebhookConfig struct {
	// Enabled controls whether webhook alerts are sent.
	Enabled bool `yaml:"enabled"`
	// URL is the endpoint receiving JSON alert payloads.
	URL string `yaml:"url"`
}

// EmailConfig holds SMTP delivery settings.
type EmailConfig struct {
	// Enabled controls whether email alerts are sent.
	Enabled bool `yaml:"enabled"`
	// SMTPHost is the mail server hostname.
	SMTPHost string `yaml:"smtp_host"`
	// SMTPPort is the mail server port.
	SMTPPort int `yaml:"smtp_port"`
	// From is the sender address.
	From string `yaml:"from"`
	// To is the list of recipient addresses.
	To []string `yaml:"to"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		Monitor: MonitorConfig{
			UIUpdateInterval: "1s",
			RestartCooldown:  "5m",
			LogFile:          filepath.Join(home, ".local", "log", "swapwatch.log"),
			StateDir:         filepath.Join(home, ".local", "state", "swapwatch"),
		},
		Thresholds: ThresholdsConfig{
			SwapHigh:      80,
			SwapLow:       65,
			ReclaimMargin: 2,
		},
		Adaptive: AdaptiveConfig{
			FloorInterval:   "5s",
			CeilingInterval: "30s",
			Window:          5,
		},
		// The default roster mirrors a typical mail/web host; override the
		// services section to match the machine being watched.
		Services: []ServiceEntry{
			{Match: "nginx", Unit: "nginx.service", IncludeChildren: true},
			{Match: "mariadbd", Unit: "mariadb.service"},
			{Match: "php-fpm8.3", Unit: "php8.3-fpm.service"},
			{Match: "clamd", Unit: "clamav-daemon.service"},
			{Match: "dovecot", Unit: "dovecot.service"},
			{Match: "amavisd", Unit: "amavis.service", IncludeChildren: true},
			{Match: "postfix", Unit: "postfix.service"},
			{Match: "fail2ban", Unit: "fail2ban.service"},
		},
		History: HistoryConfig{
			Enabled:    true,
			MaxEntries: 1440,
		},
		Alerts: AlertsConfig{
			Cooldown: "15m",
			Webhook: WebhookConfig{
				Enabled: false,
			},
			Email: EmailConfig{
				Enabled:  false,
				SMTPPort: 25,
			},
		},
	}
}

// LoadConfig loads configuration from a YAML file, merging with defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration for required fields and logical consistency.
func (c *Config) Validate() error {
	// Monitor validation
	if c.Monitor.LogFile == "" {
		return fmt.Errorf("monitor.log_file is required")
	}
	if c.Monitor.StateDir == "" {
		return fmt.Errorf("monitor.state_dir is required")
	}
	if _, err := parseDuration(c.Monitor.UIUpdateInterval); err != nil {
		return fmt.Errorf("monitor.ui_update_interval: %w", err)
	}
	if _, err := parseDuration(c.Monitor.RestartCooldown); err != nil {
		return fmt.Errorf("monitor.restart_cooldown: %w", err)
	}

	// Threshold validation
	t := c.Thresholds
	if t.SwapLow <= 0 || t.SwapHigh > 100 || t.SwapHigh <= t.SwapLow {
		return fmt.Errorf("thresholds must satisfy 0 < swap_low < swap_high <= 100, got low=%.1f high=%.1f", t.SwapLow, t.SwapHigh)
	}
	if t.ReclaimMargin < 0 {
		return fmt.Errorf("thresholds.reclaim_margin must be non-negative, got %.1f", t.ReclaimMargin)
	}

	// Adaptive interval validation
	floor, err := parseDuration(c.Adaptive.FloorInterval)
	if err != nil {
		return fmt.Errorf("adaptive.floor_interval: %w", err)
	}
	ceiling, err := parseDuration(c.Adaptive.CeilingInterval)
	if err != nil {
		return fmt.Errorf("adaptive.ceiling_interval: %w", err)
	}
	if floor <= 0 || ceiling < floor {
		return fmt.Errorf("adaptive intervals must satisfy 0 < floor_interval <= ceiling_interval, got floor=%s ceiling=%s", floor, ceiling)
	}
	if c.Adaptive.Window <= 0 {
		return fmt.Errorf("adaptive.window must be positive, got %d", c.Adaptive.Window)
	}

	// Service validation
	seen := map[string]bool{}
	for i, svc := range c.Services {
		if svc.Match == "" {
			return fmt.Errorf("services[%d].match is required", i)
		}
		if svc.Unit == "" {
			return fmt.Errorf("services[%d].unit is required", i)
		}
		if seen[svc.Match] {
			return fmt.Errorf("services[%d].match %q is duplicated", i, svc.Match)
		}
		seen[svc.Match] = true
	}

	// History validation
	if c.History.Enabled && c.History.MaxEntries <= 0 {
		return fmt.Errorf("history.max_entries must be positive when history is enabled, got %d", c.History.MaxEntries)
	}

	// Alert validation
	if _, err := parseDuration(c.Alerts.Cooldown); err != nil {
		return fmt.Errorf("alerts.cooldown: %w", err)
	}
	if c.Alerts.Webhook.Enabled && c.Alerts.Webhook.URL == "" {
		return fmt.Errorf("alerts.webhook.url is required when webhook alerts are enabled")
	}
	if c.Alerts.Email.Enabled {
		if c.Alerts.Email.SMTPHost == "" {
			return fmt.Errorf("alerts.email.smtp_host is required when email alerts are enabled")
		}
		if c.Alerts.Email.From == "" || len(c.Alerts.Email.To) == 0 {
			return fmt.Errorf("alerts.email.from and alerts.email.to are required when email alerts are enabled")
		}
	}

	return nil
}

// SaveConfig saves configuration to a YAML file.
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// UIUpdateInterval returns the parsed TUI redraw interval.
func (c *Config) UIUpdateInterval() time.Duration {
	return mustDuration(c.Monitor.UIUpdateInterval, time.Second)
}

// RestartCooldown returns the parsed per-unit restart cooldown.
func (c *Config) RestartCooldown() time.Duration {
	return mustDuration(c.Monitor.RestartCooldown, 5*time.Minute)
}

// FloorInterval returns the parsed shortest sampling interval.
func (c *Config) FloorInterval() time.Duration {
	return mustDuration(c.Adaptive.FloorInterval, 5*time.Second)
}

// CeilingInterval returns the parsed longest sampling interval.
func (c *Config) CeilingInterval() time.Duration {
	return mustDuration(c.Adaptive.CeilingInterval, 30*time.Second)
}

// AlertCooldown returns the parsed per-condition alert cooldown.
func (c *Config) AlertCooldown() time.Duration {
	return mustDuration(c.Alerts.Cooldown, 15*time.Minute)
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("duration is required")
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// mustDuration is for accessors used after Validate; the fallback only
// applies to zero-value configs that skipped validation.
func mustDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
