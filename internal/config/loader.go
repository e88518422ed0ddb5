package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/v2dash/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = ".v2dash.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/v2dash"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. V2DASH_API_URL.
	EnvPrefix = "V2DASH"
)

// Load reads config from the specified path.
// Environment variables with the V2DASH_ prefix override file values.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Create "+ConfigFileName+" or point at one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .v2dash.yaml in current directory
// 3. .v2dash.yaml in parent directories (stops at home)
// 4. ~/.config/v2dash/config.yaml (global defaults)
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	home, _ := os.UserHomeDir()
	dir := cwd
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir || (home != "" && dir == home) {
			break
		}
		dir = parent
	}

	if home != "" {
		globalConfig := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}

	return "", nil
}

// LoadOrDefault loads config from the found path, or returns defaults
// (with environment overrides applied) if no file exists.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}

	if path == "" {
		cfg, err := parseConfig(newViper(), "environment")
		return cfg, "", err
	}

	cfg, err := Load(path)
	return cfg, path, err
}

// DefaultLogPath returns $XDG_STATE_HOME/v2dash/v2dash.log, falling back to
// ~/.local/state/v2dash/v2dash.log.
func DefaultLogPath() string {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "v2dash.log")
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "v2dash", "v2dash.log")
}

// newViper returns a viper instance with defaults and env overrides wired.
// Every key needs a default for AutomaticEnv to pick it up during Unmarshal.
func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, source string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+source)
	}

	cfg.API.URL = strings.TrimRight(strings.TrimSpace(cfg.API.URL), "/")
	cfg.Log.File = expandHome(cfg.Log.File)

	return cfg, nil
}

// setDefaults mirrors DefaultConfig so viper knows every key.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("api.url", d.API.URL)
	v.SetDefault("api.timeout", d.API.Timeout.String())
	v.SetDefault("api.ssh", d.API.SSH)
	v.SetDefault("api.strict_host_key_checking", d.API.StrictHostKeyChecking)
	v.SetDefault("refresh.metrics", d.Refresh.Metrics.String())
	v.SetDefault("refresh.accounts", d.Refresh.Accounts.String())
	v.SetDefault("display.highlight_ratio", d.Display.HighlightRatio)
	v.SetDefault("display.default_alter_id", d.Display.DefaultAlterID)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("metrics.listen", d.Metrics.Listen)
	v.SetDefault("output.color", d.Output.Color)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
