package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ilyakm/reviewstalk/internal/config"
	"github.com/ilyakm/reviewstalk/internal/observability"
	"github.com/ilyakm/reviewstalk/internal/storage"
	"github.com/ilyakm/reviewstalk/internal/types"
	"github.com/ilyakm/reviewstalk/internal/watermark"
)

// Target is one product crawl request. Zero MaxReviews and empty Mode
// fall back to the global defaults; a per-target value always wins.
type Target struct {
	URL        string
	MaxReviews int
	Mode       types.Mode
}

// Summary maps each target URL to the number of accepted records.
type Summary map[string]int

// Prober optionally pre-checks a product URL over plain HTTP before a
// browser session is spent on it.
type Prober interface {
	Check(ctx context.Context, url string) error
}

// Coordinator sequences product crawls. Products run strictly one at a
// time: the source is rate-sensitive and the browser session is owned by
// one traversal at a time.
type Coordinator struct {
	cfg        config.CrawlerConfig
	controller *Controller
	adapters   AdapterFactory
	watermarks watermark.Store
	backend    storage.Backend
	probe      Prober
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewCoordinator wires the run coordinator. probe and metrics may be nil.
func NewCoordinator(
	cfg config.CrawlerConfig,
	controller *Controller,
	adapters AdapterFactory,
	watermarks watermark.Store,
	backend storage.Backend,
	probe Prober,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		cfg:        cfg,
		controller: controller,
		adapters:   adapters,
		watermarks: watermarks,
		backend:    backend,
		probe:      probe,
		metrics:    metrics,
		logger:     logger.With("component", "coordinator"),
	}
}

// Run crawls every target in order. A fatal error in one product's
// traversal is caught here, recorded as a zero-count result, and never
// aborts the remaining targets. The only run-level failure is a
// watermark store that cannot be read or written: without it,
// incremental results cannot be trusted, so the run aborts instead of
// silently behaving like full mode.
func (c *Coordinator) Run(ctx context.Context, targets []Target) (Summary, error) {
	summary := make(Summary, len(targets))

	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		count, err := c.runProduct(ctx, target)
		if err != nil {
			if isWatermarkFatal(err) {
				return summary, err
			}
			c.logger.Error("product crawl failed", "url", target.URL, "error", err)
			c.metrics.ProductDone("failed")
			summary[target.URL] = 0
		} else {
			c.metrics.ProductDone("ok")
			summary[target.URL] = count
		}

		// Pacing between products, distinct from the page delay.
		if i < len(targets)-1 && c.cfg.ProductDelay > 0 {
			if err := sleepCtx(ctx, c.cfg.ProductDelay); err != nil {
				return summary, err
			}
		}
	}

	return summary, nil
}

// runProduct executes one target end to end: probe, traverse, filter,
// flush, watermark.
func (c *Coordinator) runProduct(ctx context.Context, target Target) (accepted int, err error) {
	mode := target.Mode
	if mode == "" {
		mode = types.Mode(c.cfg.Mode)
	}
	maxReviews := target.MaxReviews
	if maxReviews <= 0 {
		maxReviews = c.cfg.MaxReviews
	}

	if c.cfg.ProductTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ProductTimeout)
		defer cancel()
	}

	if c.probe != nil {
		if err := c.probe.Check(ctx, target.URL); err != nil {
			return 0, fmt.Errorf("%w: probe: %v", types.ErrListingUnreachable, err)
		}
	}

	start := time.Now()

	adapter, err := c.adapters(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire adapter: %w", err)
	}
	// The session must be released on every exit path.
	defer func() {
		if cerr := adapter.Close(); cerr != nil {
			c.logger.Warn("adapter close failed", "url", target.URL, "error", cerr)
		}
	}()

	run, err := c.controller.Run(ctx, adapter, target.URL, maxReviews, mode)
	if err != nil {
		return 0, err
	}

	wm, err := c.watermarks.Get(ctx, run.ProductID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", types.ErrWatermarkUnavailable, err)
	}

	records := FilterNew(run.Raw, wm, mode)
	c.metrics.ReviewsAccepted(len(records))

	saved, err := c.backend.SaveRecords(ctx, records)
	if err != nil {
		return 0, &types.StorageError{Backend: c.backend.Name(), Err: err}
	}

	// The watermark advances only after a successful flush.
	update := watermark.Update{
		LastReviewDate: newestReliableDate(records),
		NewIDs:         stableIDs(records),
		TotalReviews:   wm.TotalReviews + saved,
	}
	if err := c.watermarks.Upsert(ctx, run.ProductID, update); err != nil {
		return 0, fmt.Errorf("%w: upsert: %v", types.ErrWatermarkUnavailable, err)
	}

	c.metrics.ObserveTraversal(time.Since(start))
	c.logger.Info("product crawl complete",
		"url", target.URL,
		"product_id", run.ProductID,
		"mode", mode,
		"pages", run.PageIndex,
		"raw", len(run.Raw),
		"accepted", len(records),
		"saved", saved,
		"stop_reason", run.StopReason,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return len(records), nil
}

// newestReliableDate returns the max publication date among records whose
// date parsing succeeded; zero when there is none.
func newestReliableDate(records []types.ReviewRecord) time.Time {
	var newest time.Time
	for _, rec := range records {
		if rec.DateUnreliable {
			continue
		}
		if rec.PublishedAt.After(newest) {
			newest = rec.PublishedAt
		}
	}
	return newest
}

// stableIDs returns the non-synthetic IDs ordered oldest first, so that
// the newest IDs survive the recent-window eviction. Synthetic IDs are
// excluded: they cannot match anything across runs.
func stableIDs(records []types.ReviewRecord) []string {
	stable := make([]types.ReviewRecord, 0, len(records))
	for _, rec := range records {
		if !rec.SyntheticID {
			stable = append(stable, rec)
		}
	}
	sort.SliceStable(stable, func(i, j int) bool {
		return stable[i].PublishedAt.Before(stable[j].PublishedAt)
	})

	ids := make([]string, len(stable))
	for i, rec := range stable {
		ids[i] = rec.ReviewID
	}
	return ids
}

func isWatermarkFatal(err error) bool {
	return errors.Is(err, types.ErrWatermarkUnavailable)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
