package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for reviewstalk.
type Config struct {
	Crawler   CrawlerConfig   `mapstructure:"crawler"   yaml:"crawler"`
	Browser   BrowserConfig   `mapstructure:"browser"   yaml:"browser"`
	Probe     ProbeConfig     `mapstructure:"probe"     yaml:"probe"`
	Watermark WatermarkConfig `mapstructure:"watermark" yaml:"watermark"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   yaml:"metrics"`
}

// CrawlerConfig controls the traversal controller and run coordinator.
type CrawlerConfig struct {
	// MaxReviews caps raw collection per product (0 = unlimited).
	MaxReviews int `mapstructure:"max_reviews" yaml:"max_reviews"`

	// Mode is the default crawl mode: full or incremental.
	Mode string `mapstructure:"mode" yaml:"mode"`

	// PageDelayMin/Max bound the random pause between listing pages.
	PageDelayMin time.Duration `mapstructure:"page_delay_min" yaml:"page_delay_min"`
	PageDelayMax time.Duration `mapstructure:"page_delay_max" yaml:"page_delay_max"`

	// ProductDelay is the pause between products, distinct from the
	// page delay.
	ProductDelay time.Duration `mapstructure:"product_delay" yaml:"product_delay"`

	// ProductTimeout bounds one product's whole traversal (0 = none).
	ProductTimeout time.Duration `mapstructure:"product_timeout" yaml:"product_timeout"`
}

// BrowserConfig controls the page automation session.
type BrowserConfig struct {
	Headless       bool          `mapstructure:"headless"        yaml:"headless"`
	UserAgent      string        `mapstructure:"user_agent"      yaml:"user_agent"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	WindowSize     string        `mapstructure:"window_size"     yaml:"window_size"`
	UserDataDir    string        `mapstructure:"user_data_dir"   yaml:"user_data_dir"`
	Stealth        bool          `mapstructure:"stealth"         yaml:"stealth"`
	MaxOpenRetries int           `mapstructure:"max_open_retries" yaml:"max_open_retries"`

	// Debug saves a screenshot when a listing page cannot be parsed.
	Debug     bool   `mapstructure:"debug"      yaml:"debug"`
	DebugDir  string `mapstructure:"debug_dir"  yaml:"debug_dir"`
}

// ProbeConfig controls the plain-HTTP reachability pre-check.
type ProbeConfig struct {
	Enabled     bool          `mapstructure:"enabled"       yaml:"enabled"`
	Timeout     time.Duration `mapstructure:"timeout"       yaml:"timeout"`
	MaxBodySize int64         `mapstructure:"max_body_size" yaml:"max_body_size"`
}

// WatermarkConfig selects the watermark store backend.
type WatermarkConfig struct {
	Backend         string `mapstructure:"backend"          yaml:"backend"` // file, mongodb
	Path            string `mapstructure:"path"             yaml:"path"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
}

// StorageConfig selects the review persistence backend.
type StorageConfig struct {
	Backend         string `mapstructure:"backend"          yaml:"backend"` // file, mongodb
	Path            string `mapstructure:"path"             yaml:"path"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
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
		Crawler: CrawlerConfig{
			MaxReviews:     5000,
			Mode:           "incremental",
			PageDelayMin:   1 * time.Second,
			PageDelayMax:   2 * time.Second,
			ProductDelay:   5 * time.Second,
			ProductTimeout: 10 * time.Minute,
		},
		Browser: BrowserConfig{
			Headless:       true,
			UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RequestTimeout: 30 * time.Second,
			WindowSize:     "1920,1080",
			Stealth:        true,
			MaxOpenRetries: 3,
			DebugDir:       "./debug",
		},
		Probe: ProbeConfig{
			Enabled:     false,
			Timeout:     15 * time.Second,
			MaxBodySize: 2 * 1024 * 1024,
		},
		Watermark: WatermarkConfig{
			Backend:         "file",
			Path:            "./data/reviews",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   "reviewstalk",
			MongoCollection: "watermarks",
		},
		Storage: StorageConfig{
			Backend:         "file",
			Path:            "./data/reviews",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   "reviewstalk",
			MongoCollection: "reviews",
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
