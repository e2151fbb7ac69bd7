// Package browser implements the page automation boundary on top of a
// headless Chromium controlled via Rod. One Session owns the browser
// process; each product traversal gets its own ListingAdapter with an
// exclusively-owned page.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/ilyakm/reviewstalk/internal/config"
	"github.com/ilyakm/reviewstalk/internal/crawler"
)

// Session wraps a running browser instance.
type Session struct {
	browser *rod.Browser
	cfg     config.BrowserConfig
	logger  *slog.Logger
	mu      sync.Mutex
	closed  bool
}

// NewSession launches a Chromium instance and connects to it.
func NewSession(cfg config.BrowserConfig, logger *slog.Logger) (*Session, error) {
	launchURL, err := launch(cfg)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	s := &Session{
		browser: browser,
		cfg:     cfg,
		logger:  logger.With("component", "browser"),
	}

	s.logger.Info("browser session ready",
		"headless", cfg.Headless,
		"stealth", cfg.Stealth,
	)
	return s, nil
}

// launch starts Chromium with flags that survive running inside
// containers and reduce automation fingerprinting.
func launch(cfg config.BrowserConfig) (string, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-blink-features", "AutomationControlled")

	if cfg.WindowSize != "" {
		l = l.Set("window-size", cfg.WindowSize)
	}
	if cfg.UserDataDir != "" {
		l = l.UserDataDir(cfg.UserDataDir)
	}

	return l.Launch()
}

// NewListingAdapter creates an adapter bound to a fresh page. The
// returned adapter satisfies crawler.AdapterFactory when wrapped:
//
//	factory := func(ctx context.Context) (crawler.Adapter, error) {
//	    return session.NewListingAdapter(ctx)
//	}
func (s *Session) NewListingAdapter(ctx context.Context) (crawler.Adapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("browser session is closed")
	}

	var page *rod.Page
	var err error
	if s.cfg.Stealth {
		page, err = stealth.Page(s.browser)
	} else {
		page, err = s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	if s.cfg.UserAgent != "" {
		err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: s.cfg.UserAgent,
		})
		if err != nil {
			s.logger.Warn("failed to set user agent", "error", err)
		}
	}

	return newListingAdapter(page, s.cfg, s.logger), nil
}

// Factory returns an AdapterFactory backed by this session.
func (s *Session) Factory() crawler.AdapterFactory {
	return func(ctx context.Context) (crawler.Adapter, error) {
		return s.NewListingAdapter(ctx)
	}
}

// Close shuts the browser down. Adapters created from this session are
// invalid afterwards.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.browser != nil {
		return s.browser.Close()
	}
	return nil
}
