package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Crawler.MaxReviews < 0 {
		return fmt.Errorf("crawler.max_reviews must be >= 0, got %d", cfg.Crawler.MaxReviews)
	}
	if cfg.Crawler.Mode != "full" && cfg.Crawler.Mode != "incremental" {
		return fmt.Errorf("crawler.mode must be 'full' or 'incremental', got %q", cfg.Crawler.Mode)
	}
	if cfg.Crawler.PageDelayMin < 0 || cfg.Crawler.PageDelayMax < 0 {
		return fmt.Errorf("crawler page delays must be >= 0")
	}
	if cfg.Crawler.PageDelayMax < cfg.Crawler.PageDelayMin {
		return fmt.Errorf("crawler.page_delay_max must be >= crawler.page_delay_min")
	}
	if cfg.Crawler.ProductDelay < 0 {
		return fmt.Errorf("crawler.product_delay must be >= 0")
	}
	if cfg.Crawler.ProductTimeout < 0 {
		return fmt.Errorf("crawler.product_timeout must be >= 0")
	}

	if cfg.Browser.RequestTimeout <= 0 {
		return fmt.Errorf("browser.request_timeout must be > 0")
	}
	if cfg.Browser.MaxOpenRetries < 1 {
		return fmt.Errorf("browser.max_open_retries must be >= 1, got %d", cfg.Browser.MaxOpenRetries)
	}

	if cfg.Probe.Enabled {
		if cfg.Probe.Timeout <= 0 {
			return fmt.Errorf("probe.timeout must be > 0")
		}
		if cfg.Probe.MaxBodySize <= 0 {
			return fmt.Errorf("probe.max_body_size must be > 0")
		}
	}

	if err := validateBackend("watermark", cfg.Watermark.Backend); err != nil {
		return err
	}
	if err := validateBackend("storage", cfg.Storage.Backend); err != nil {
		return err
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

func validateBackend(section, backend string) error {
	if backend != "file" && backend != "mongodb" {
		return fmt.Errorf("%s.backend must be 'file' or 'mongodb', got %q", section, backend)
	}
	return nil
}

// ValidateURL checks if a URL string is usable as a product URL.
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
