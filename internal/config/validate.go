package config

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrMissingCredentials is returned when the portal login is not configured.
var ErrMissingCredentials = errors.New("portal email and password are required (set USER_ID and PASSWORD or PORTALWATCH_PORTAL_EMAIL and PORTALWATCH_PORTAL_PASSWORD)")

// Validate checks the configuration for invalid values. Credentials are
// checked separately by RequireCredentials since read-only commands do not
// need them.
func Validate(cfg *Config) error {
	if err := ValidateURL(cfg.Portal.URL); err != nil {
		return fmt.Errorf("portal.url: %w", err)
	}
	if cfg.Portal.SuccessSelector == "" {
		return fmt.Errorf("portal.success_selector must not be empty")
	}
	if cfg.Portal.PageTimeout <= 0 || cfg.Portal.FieldTimeout <= 0 || cfg.Portal.LoginTimeout <= 0 {
		return fmt.Errorf("portal timeouts must be > 0")
	}
	if cfg.Portal.PostSubmitDelay < 0 {
		return fmt.Errorf("portal.post_submit_delay must be >= 0")
	}

	if cfg.Browser.RemoteURL != "" {
		u, err := url.Parse(cfg.Browser.RemoteURL)
		if err != nil {
			return fmt.Errorf("invalid browser.remote_url %q: %w", cfg.Browser.RemoteURL, err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" && u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("browser.remote_url scheme must be ws, wss, http or https, got %q", u.Scheme)
		}
	}
	if cfg.Browser.StartupTimeout <= 0 {
		return fmt.Errorf("browser.startup_timeout must be > 0")
	}
	if cfg.Browser.FallbackTimeout <= 0 {
		return fmt.Errorf("browser.fallback_timeout must be > 0")
	}
	if cfg.Browser.WindowWidth < 1 || cfg.Browser.WindowHeight < 1 {
		return fmt.Errorf("browser window size must be positive, got %dx%d",
			cfg.Browser.WindowWidth, cfg.Browser.WindowHeight)
	}

	if cfg.Loader.SettleInterval < 0 || cfg.Loader.ClickSettle < 0 {
		return fmt.Errorf("loader settle intervals must be >= 0")
	}
	if cfg.Loader.MaxStallCount < 1 {
		return fmt.Errorf("loader.max_stall_count must be >= 1, got %d", cfg.Loader.MaxStallCount)
	}

	if len(cfg.Extractor.Selectors) == 0 {
		return fmt.Errorf("extractor.selectors must not be empty")
	}
	if cfg.Extractor.MinTextLength < 0 {
		return fmt.Errorf("extractor.min_text_length must be >= 0, got %d", cfg.Extractor.MinTextLength)
	}
	if cfg.Extractor.FallbackMinLength >= cfg.Extractor.FallbackMaxLength {
		return fmt.Errorf("extractor.fallback_min_length (%d) must be < fallback_max_length (%d)",
			cfg.Extractor.FallbackMinLength, cfg.Extractor.FallbackMaxLength)
	}
	if cfg.Extractor.FallbackScanLimit < 1 || cfg.Extractor.FallbackMaxBlocks < 1 {
		return fmt.Errorf("extractor fallback limits must be >= 1")
	}

	switch cfg.Storage.Type {
	case "mongodb":
		if cfg.Storage.URI == "" || cfg.Storage.Database == "" || cfg.Storage.Collection == "" {
			return fmt.Errorf("storage.uri, storage.database and storage.collection are required for mongodb")
		}
	case "sqlite", "jsonl":
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for %s", cfg.Storage.Type)
		}
	case "memory":
	default:
		return fmt.Errorf("storage.type %q is not supported (valid: mongodb, sqlite, jsonl, memory)", cfg.Storage.Type)
	}

	if cfg.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be > 0")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// RequireCredentials reports ErrMissingCredentials unless both the portal
// email and password are set.
func RequireCredentials(cfg *Config) error {
	if cfg.Portal.Email == "" || cfg.Portal.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}

// ValidateURL checks that a URL is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
