package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment.
// Priority (highest to lowest): env vars > config file > defaults.
// CLI flag overrides are applied by the caller on top of the result.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("REVIEWSTALK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("reviewstalk")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".reviewstalk"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// A missing config file is fine unless one was asked for.
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("crawler.max_reviews", cfg.Crawler.MaxReviews)
	v.SetDefault("crawler.mode", cfg.Crawler.Mode)
	v.SetDefault("crawler.page_delay_min", cfg.Crawler.PageDelayMin)
	v.SetDefault("crawler.page_delay_max", cfg.Crawler.PageDelayMax)
	v.SetDefault("crawler.product_delay", cfg.Crawler.ProductDelay)
	v.SetDefault("crawler.product_timeout", cfg.Crawler.ProductTimeout)

	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.user_agent", cfg.Browser.UserAgent)
	v.SetDefault("browser.request_timeout", cfg.Browser.RequestTimeout)
	v.SetDefault("browser.window_size", cfg.Browser.WindowSize)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.max_open_retries", cfg.Browser.MaxOpenRetries)
	v.SetDefault("browser.debug", cfg.Browser.Debug)
	v.SetDefault("browser.debug_dir", cfg.Browser.DebugDir)

	v.SetDefault("probe.enabled", cfg.Probe.Enabled)
	v.SetDefault("probe.timeout", cfg.Probe.Timeout)
	v.SetDefault("probe.max_body_size", cfg.Probe.MaxBodySize)

	v.SetDefault("watermark.backend", cfg.Watermark.Backend)
	v.SetDefault("watermark.path", cfg.Watermark.Path)
	v.SetDefault("watermark.mongo_uri", cfg.Watermark.MongoURI)
	v.SetDefault("watermark.mongo_database", cfg.Watermark.MongoDatabase)
	v.SetDefault("watermark.mongo_collection", cfg.Watermark.MongoCollection)

	v.SetDefault("storage.backend", cfg.Storage.Backend)
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_database", cfg.Storage.MongoDatabase)
	v.SetDefault("storage.mongo_collection", cfg.Storage.MongoCollection)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
