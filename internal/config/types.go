package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete .v2dash.yaml configuration file.
type Config struct {
	Version int           `yaml:"version" mapstructure:"version"`
	API     APIConfig     `yaml:"api" mapstructure:"api"`
	Refresh RefreshConfig `yaml:"refresh" mapstructure:"refresh"`
	Display DisplayConfig `yaml:"display" mapstructure:"display"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
}

// APIConfig describes how to reach the user-management backend.
type APIConfig struct {
	// URL is the backend base URL, without the /api suffix.
	URL string `yaml:"url" mapstructure:"url"`

	// Timeout bounds every request. There is no separate retry policy.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// SSH is an optional host or ~/.ssh/config alias to tunnel through.
	// When set, connections to URL's host:port are made from the far side
	// of the SSH connection, so a backend bound to 127.0.0.1 is reachable.
	SSH string `yaml:"ssh" mapstructure:"ssh"`

	// StrictHostKeyChecking verifies the SSH host against ~/.ssh/known_hosts.
	StrictHostKeyChecking bool `yaml:"strict_host_key_checking" mapstructure:"strict_host_key_checking"`
}

// RefreshConfig holds the polling intervals.
type RefreshConfig struct {
	Metrics  time.Duration `yaml:"metrics" mapstructure:"metrics"`
	Accounts time.Duration `yaml:"accounts" mapstructure:"accounts"`
}

// DisplayConfig controls how accounts are rendered and created.
type DisplayConfig struct {
	// HighlightRatio is the used/limit ratio above which usage is highlighted.
	HighlightRatio float64 `yaml:"highlight_ratio" mapstructure:"highlight_ratio"`

	// DefaultAlterID pre-fills the create form.
	DefaultAlterID int `yaml:"default_alter_id" mapstructure:"default_alter_id"`
}

// LogConfig controls the log file.
type LogConfig struct {
	// File is the log destination. Empty uses DefaultLogPath().
	File string `yaml:"file" mapstructure:"file"`

	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" mapstructure:"level"`
}

// MetricsConfig controls the optional prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address for /metrics, e.g. "127.0.0.1:9464". Empty disables it.
	Listen string `yaml:"listen" mapstructure:"listen"`
}

// OutputConfig controls terminal output formatting.
type OutputConfig struct {
	// Color mode: "auto", "always", or "never".
	// "auto" disables color when output is piped.
	Color string `yaml:"color" mapstructure:"color"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		API: APIConfig{
			URL:                   "http://127.0.0.1:8000",
			Timeout:               10 * time.Second,
			StrictHostKeyChecking: true,
		},
		Refresh: RefreshConfig{
			Metrics:  5 * time.Second,
			Accounts: 5 * time.Second,
		},
		Display: DisplayConfig{
			HighlightRatio: 0.8,
			DefaultAlterID: 64,
		},
		Log: LogConfig{
			Level: "info",
		},
		Output: OutputConfig{
			Color: "auto",
		},
	}
}
