package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for portalwatch.
type Config struct {
	Portal      PortalConfig      `mapstructure:"portal"      yaml:"portal"`
	Browser     BrowserConfig     `mapstructure:"browser"     yaml:"browser"`
	Loader      LoaderConfig      `mapstructure:"loader"      yaml:"loader"`
	Extractor   ExtractorConfig   `mapstructure:"extractor"   yaml:"extractor"`
	Storage     StorageConfig     `mapstructure:"storage"     yaml:"storage"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics" yaml:"diagnostics"`
	Watch       WatchConfig       `mapstructure:"watch"       yaml:"watch"`
	Logging     LoggingConfig     `mapstructure:"logging"     yaml:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"     yaml:"metrics"`
}

// PortalConfig describes the portal and the account used to log in.
type PortalConfig struct {
	URL             string        `mapstructure:"url"               yaml:"url"`
	Email           string        `mapstructure:"email"             yaml:"email"`
	Password        string        `mapstructure:"password"          yaml:"-"`
	SuccessSelector string        `mapstructure:"success_selector"  yaml:"success_selector"`
	PageTimeout     time.Duration `mapstructure:"page_timeout"      yaml:"page_timeout"`
	FieldTimeout    time.Duration `mapstructure:"field_timeout"     yaml:"field_timeout"`
	LoginTimeout    time.Duration `mapstructure:"login_timeout"     yaml:"login_timeout"`
	PostSubmitDelay time.Duration `mapstructure:"post_submit_delay" yaml:"post_submit_delay"`
}

// BrowserConfig controls browser startup and the fallback chain.
type BrowserConfig struct {
	// RemoteURL is the DevTools WebSocket URL of an already running browser.
	RemoteURL string `mapstructure:"remote_url"       yaml:"remote_url"`
	// Bin overrides the local browser binary lookup.
	Bin             string        `mapstructure:"bin"              yaml:"bin"`
	Headless        bool          `mapstructure:"headless"         yaml:"headless"`
	Stealth         bool          `mapstructure:"stealth"          yaml:"stealth"`
	UserAgent       string        `mapstructure:"user_agent"       yaml:"user_agent"`
	WindowWidth     int           `mapstructure:"window_width"     yaml:"window_width"`
	WindowHeight    int           `mapstructure:"window_height"    yaml:"window_height"`
	StartupTimeout  time.Duration `mapstructure:"startup_timeout"  yaml:"startup_timeout"`
	FallbackTimeout time.Duration `mapstructure:"fallback_timeout" yaml:"fallback_timeout"`
}

// LoaderConfig controls the scroll/expand loop.
type LoaderConfig struct {
	SettleInterval time.Duration `mapstructure:"settle_interval" yaml:"settle_interval"`
	ClickSettle    time.Duration `mapstructure:"click_settle"    yaml:"click_settle"`
	MaxStallCount  int           `mapstructure:"max_stall_count" yaml:"max_stall_count"`
}

// ExtractorConfig controls post block discovery.
type ExtractorConfig struct {
	// Selectors are tried in order; the first non-empty result wins.
	Selectors         []string `mapstructure:"selectors"           yaml:"selectors"`
	MinTextLength     int      `mapstructure:"min_text_length"     yaml:"min_text_length"`
	FallbackScanLimit int      `mapstructure:"fallback_scan_limit" yaml:"fallback_scan_limit"`
	FallbackMinLength int      `mapstructure:"fallback_min_length" yaml:"fallback_min_length"`
	FallbackMaxLength int      `mapstructure:"fallback_max_length" yaml:"fallback_max_length"`
	FallbackMaxBlocks int      `mapstructure:"fallback_max_blocks" yaml:"fallback_max_blocks"`
}

// StorageConfig selects and configures the post store.
type StorageConfig struct {
	Type       string `mapstructure:"type"       yaml:"type"`
	URI        string `mapstructure:"uri"        yaml:"uri"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
	Path       string `mapstructure:"path"       yaml:"path"`
}

// DiagnosticsConfig controls failure captures.
type DiagnosticsConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// WatchConfig controls recurring runs.
type WatchConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Portal: PortalConfig{
			URL:             "https://app.joinsuperset.com/students/login",
			SuccessSelector: "div.px-5.pt-5.pb-0",
			PageTimeout:     15 * time.Second,
			FieldTimeout:    10 * time.Second,
			LoginTimeout:    15 * time.Second,
			PostSubmitDelay: 3 * time.Second,
		},
		Browser: BrowserConfig{
			Headless:        true,
			Stealth:         true,
			UserAgent:       "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			WindowWidth:     660,
			WindowHeight:    1080,
			StartupTimeout:  30 * time.Second,
			FallbackTimeout: 15 * time.Second,
		},
		Loader: LoaderConfig{
			SettleInterval: 2 * time.Second,
			ClickSettle:    3 * time.Second,
			MaxStallCount:  5,
		},
		Extractor: ExtractorConfig{
			Selectors: []string{
				"div.px-5.pt-6.pb-0",
				"div.px-5.pt-5.pb-0",
				"div[class*='px-5'][class*='pt-'][class*='pb-0']",
				"div.px-5",
				"div[class*='px-5']",
			},
			MinTextLength:     50,
			FallbackScanLimit: 50,
			FallbackMinLength: 100,
			FallbackMaxLength: 5000,
			FallbackMaxBlocks: 10,
		},
		Storage: StorageConfig{
			Type:       "sqlite",
			URI:        "mongodb://localhost:27017",
			Database:   "portalwatch",
			Collection: "posts",
			Path:       "./data/posts.db",
		},
		Diagnostics: DiagnosticsConfig{
			Dir: "./diagnostics",
		},
		Watch: WatchConfig{
			Interval: 30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
