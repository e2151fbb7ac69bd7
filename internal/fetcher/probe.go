// Package fetcher provides a plain-HTTP reachability probe. The probe is
// a cheap pre-check that a product URL resolves and serves markup before
// an expensive browser session is spent on it; it never replaces the
// browser for actual collection.
package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/ilyakm/reviewstalk/internal/config"
)

// Probe issues lightweight GET requests with browser-like headers.
type Probe struct {
	client *http.Client
	cfg    config.ProbeConfig
	ua     string
	logger *slog.Logger
}

// NewProbe creates a reachability prober.
func NewProbe(cfg config.ProbeConfig, userAgent string, logger *slog.Logger) (*Probe, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		// Decompression is handled here, including brotli.
		DisableCompression: true,
	}

	return &Probe{
		client: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   cfg.Timeout,
		},
		cfg:    cfg,
		ua:     userAgent,
		logger: logger.With("component", "probe"),
	}, nil
}

// Check fetches the URL and classifies the outcome. A nil return means
// the page is worth a browser session.
func (p *Probe) Check(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}

	req.Header.Set("User-Agent", p.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en-US;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Connection", "keep-alive")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		// The source is gating us. The browser with stealth may still
		// get through, so this is a warning, not a failure.
		p.logger.Warn("probe gated by source", "url", rawURL, "status", resp.StatusCode)
		return nil
	case resp.StatusCode >= 400:
		return fmt.Errorf("probe status %d for %s", resp.StatusCode, rawURL)
	}

	reader, err := decompressReader(resp, io.LimitReader(resp.Body, p.cfg.MaxBodySize))
	if err != nil {
		return fmt.Errorf("probe decompress: %w", err)
	}

	body, err := io.ReadAll(reader)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("probe read body: %w", err)
	}
	if len(body) == 0 {
		return fmt.Errorf("probe got empty body for %s", rawURL)
	}

	p.logger.Debug("probe ok",
		"url", rawURL,
		"status", resp.StatusCode,
		"size", len(body),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// decompressReader wraps the body with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}
