package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and a .env file in the
// working directory. Priority (highest to lowest): env vars > .env > config
// file > defaults. CLI flags are applied by the caller.
func Load(configPath string) (*Config, error) {
	if err := LoadEnvFile(".env"); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	// Set defaults from struct
	setDefaults(v, cfg)

	// Environment variable support
	v.SetEnvPrefix("PORTALWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credentials also accept the bare names used by existing deployments.
	if err := v.BindEnv("portal.email", "PORTALWATCH_PORTAL_EMAIL", "USER_ID"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("portal.password", "PORTALWATCH_PORTAL_PASSWORD", "PASSWORD"); err != nil {
		return nil, err
	}

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Search default locations
		v.SetConfigName("portalwatch")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".portalwatch"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// LoadEnvFile loads variables from a dotenv file into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("portal.url", cfg.Portal.URL)
	v.SetDefault("portal.email", cfg.Portal.Email)
	v.SetDefault("portal.password", cfg.Portal.Password)
	v.SetDefault("portal.success_selector", cfg.Portal.SuccessSelector)
	v.SetDefault("portal.page_timeout", cfg.Portal.PageTimeout)
	v.SetDefault("portal.field_timeout", cfg.Portal.FieldTimeout)
	v.SetDefault("portal.login_timeout", cfg.Portal.LoginTimeout)
	v.SetDefault("portal.post_submit_delay", cfg.Portal.PostSubmitDelay)

	v.SetDefault("browser.remote_url", cfg.Browser.RemoteURL)
	v.SetDefault("browser.bin", cfg.Browser.Bin)
	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.user_agent", cfg.Browser.UserAgent)
	v.SetDefault("browser.window_width", cfg.Browser.WindowWidth)
	v.SetDefault("browser.window_height", cfg.Browser.WindowHeight)
	v.SetDefault("browser.startup_timeout", cfg.Browser.StartupTimeout)
	v.SetDefault("browser.fallback_timeout", cfg.Browser.FallbackTimeout)

	v.SetDefault("loader.settle_interval", cfg.Loader.SettleInterval)
	v.SetDefault("loader.click_settle", cfg.Loader.ClickSettle)
	v.SetDefault("loader.max_stall_count", cfg.Loader.MaxStallCount)

	v.SetDefault("extractor.selectors", cfg.Extractor.Selectors)
	v.SetDefault("extractor.min_text_length", cfg.Extractor.MinTextLength)
	v.SetDefault("extractor.fallback_scan_limit", cfg.Extractor.FallbackScanLimit)
	v.SetDefault("extractor.fallback_min_length", cfg.Extractor.FallbackMinLength)
	v.SetDefault("extractor.fallback_max_length", cfg.Extractor.FallbackMaxLength)
	v.SetDefault("extractor.fallback_max_blocks", cfg.Extractor.FallbackMaxBlocks)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.uri", cfg.Storage.URI)
	v.SetDefault("storage.database", cfg.Storage.Database)
	v.SetDefault("storage.collection", cfg.Storage.Collection)
	v.SetDefault("storage.path", cfg.Storage.Path)

	v.SetDefault("diagnostics.dir", cfg.Diagnostics.Dir)
	v.SetDefault("watch.interval", cfg.Watch.Interval)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
