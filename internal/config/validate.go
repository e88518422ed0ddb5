package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/rileyhilliard/v2dash/internal/errors"
)

// MinRefreshInterval keeps the pollers from hammering the backend.
const MinRefreshInterval = 500 * time.Millisecond

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validColorModes = map[string]bool{
	"auto":   true,
	"always": true,
	"never":  true,
}

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but v2dash only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade v2dash or lower the version field.")
	}

	if err := validateAPI(cfg.API); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'api' section in your "+ConfigFileName+".")
	}

	if err := validateRefresh(cfg.Refresh); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'refresh' section in your "+ConfigFileName+".")
	}

	if err := validateDisplay(cfg.Display); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'display' section in your "+ConfigFileName+".")
	}

	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown log level '%s'", cfg.Log.Level),
			"Use one of: debug, info, warn, error.")
	}

	if !validColorModes[cfg.Output.Color] {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown color mode '%s'", cfg.Output.Color),
			"Use one of: auto, always, never.")
	}

	if cfg.Metrics.Listen != "" {
		if _, _, err := net.SplitHostPort(cfg.Metrics.Listen); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("metrics.listen '%s' isn't a host:port address", cfg.Metrics.Listen),
				"Try something like 127.0.0.1:9464.")
		}
	}

	return nil
}

func validateAPI(api APIConfig) error {
	if api.URL == "" {
		return fmt.Errorf("api.url is empty")
	}

	u, err := url.Parse(api.URL)
	if err != nil {
		return fmt.Errorf("api.url '%s' doesn't parse: %v", api.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.url '%s' needs an http:// or https:// scheme", api.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("api.url '%s' has no host", api.URL)
	}

	if api.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", api.Timeout)
	}

	if strings.ContainsAny(api.SSH, " \t") {
		return fmt.Errorf("api.ssh '%s' contains whitespace", api.SSH)
	}

	return nil
}

func validateRefresh(r RefreshConfig) error {
	if r.Metrics < MinRefreshInterval {
		return fmt.Errorf("refresh.metrics %s is below the %s minimum", r.Metrics, MinRefreshInterval)
	}
	if r.Accounts < MinRefreshInterval {
		return fmt.Errorf("refresh.accounts %s is below the %s minimum", r.Accounts, MinRefreshInterval)
	}
	return nil
}

func validateDisplay(d DisplayConfig) error {
	if d.HighlightRatio <= 0 || d.HighlightRatio > 1 {
		return fmt.Errorf("display.highlight_ratio must be in (0, 1], got %g", d.HighlightRatio)
	}
	if d.DefaultAlterID < 0 {
		return fmt.Errorf("display.default_alter_id can't be negative, got %d", d.DefaultAlterID)
	}
	return nil
}
