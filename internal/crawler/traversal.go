// Package crawler implements the incremental crawl core: the traversal
// state machine, the dedup/incremental filter, and the run coordinator.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/ilyakm/reviewstalk/internal/config"
	"github.com/ilyakm/reviewstalk/internal/normalize"
	"github.com/ilyakm/reviewstalk/internal/observability"
	"github.com/ilyakm/reviewstalk/internal/types"
)

// Controller drives one product's traversal:
// START → OPEN_LISTING → COLLECT_PAGE → (CONTINUE | STOP).
// It owns all stop decisions; the incremental filter never stops a
// traversal, because a page can mix old and new records.
type Controller struct {
	cfg     config.CrawlerConfig
	norm    *normalize.Normalizer
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewController creates a traversal controller. metrics may be nil.
func NewController(cfg config.CrawlerConfig, norm *normalize.Normalizer, metrics *observability.Metrics, logger *slog.Logger) *Controller {
	return &Controller{
		cfg:     cfg,
		norm:    norm,
		metrics: metrics,
		logger:  logger.With("component", "traversal"),
	}
}

// Run executes a full traversal over one product's review listing. The
// adapter is exclusively owned by this traversal for its duration; the
// caller is responsible for closing it on every exit path.
//
// maxReviews caps raw collection (0 = unlimited). The cap is applied
// before incremental filtering so it bounds raw work, not filtered
// output.
func (c *Controller) Run(ctx context.Context, adapter Adapter, productURL string, maxReviews int, mode types.Mode) (*types.TraversalRun, error) {
	// START: resolve the product identity. Failure here is fatal for
	// this product only.
	productID, err := ExtractProductID(productURL)
	if err != nil {
		return nil, &types.TraversalError{ProductURL: productURL, Err: err}
	}

	run := &types.TraversalRun{
		ProductID:  productID,
		ProductURL: productURL,
		Mode:       mode,
		PageIndex:  1,
	}

	c.logger.Info("traversal starting",
		"product_id", productID,
		"mode", mode,
		"max_reviews", maxReviews,
	)

	if err := c.openListing(ctx, adapter, productURL); err != nil {
		run.Stopped = true
		run.StopReason = types.StopNavigationFailed
		return nil, &types.TraversalError{ProductURL: productURL, Err: err}
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, &types.TraversalError{ProductURL: productURL, Page: run.PageIndex, Err: err}
		}

		records, err := c.collectPage(ctx, adapter, productID, productURL)
		c.metrics.PageFetched()
		if err != nil {
			// Unexpected adapter failure mid-page. On page 1 the whole
			// product aborts; later pages degrade to an empty page and
			// the stop conditions below take over.
			if run.PageIndex == 1 {
				return nil, &types.TraversalError{
					ProductURL: productURL,
					Page:       run.PageIndex,
					Err:        fmt.Errorf("%w: %v", types.ErrAdapterTransient, err),
				}
			}
			c.logger.Warn("page degraded to empty after adapter error",
				"product_id", productID, "page", run.PageIndex, "error", err)
			records = nil
		}

		run.Raw = append(run.Raw, records...)
		c.logger.Debug("page collected",
			"product_id", productID,
			"page", run.PageIndex,
			"records", len(records),
			"raw_total", len(run.Raw),
		)

		// Stop conditions, checked in this exact order.
		switch {
		case adapter.HasNoReviewsIndicator(ctx):
			c.stop(run, types.StopExhausted)
		case len(records) == 0:
			c.stop(run, types.StopNoRecordsOnPage)
		case maxReviews > 0 && len(run.Raw) >= maxReviews:
			c.stop(run, types.StopLimitReached)
		case !adapter.NextPage(ctx):
			c.stop(run, types.StopExhausted)
		default:
			// Cooperative pacing against the source, not a correctness
			// mechanism.
			if err := c.pageDelay(ctx); err != nil {
				return nil, &types.TraversalError{ProductURL: productURL, Page: run.PageIndex, Err: err}
			}
			run.PageIndex++
			continue
		}

		c.logger.Info("traversal stopped",
			"product_id", productID,
			"pages", run.PageIndex,
			"raw_collected", len(run.Raw),
			"reason", run.StopReason,
		)
		return run, nil
	}
}

// openListing reaches the review-listing view: the direct listing URL
// first, then the product page plus the adapter's reviews-tab activation.
func (c *Controller) openListing(ctx context.Context, adapter Adapter, productURL string) error {
	listingURL := ReviewListingURL(productURL)
	if err := adapter.Open(ctx, listingURL); err == nil {
		return nil
	} else {
		c.logger.Warn("direct listing URL failed, falling back to product page",
			"url", listingURL, "error", err)
	}

	if err := adapter.Open(ctx, productURL); err != nil {
		return fmt.Errorf("%w: product page: %v", types.ErrListingUnreachable, err)
	}
	if err := adapter.ActivateReviewsTab(ctx); err != nil {
		return fmt.Errorf("%w: reviews tab: %v", types.ErrListingUnreachable, err)
	}
	return nil
}

// collectPage lists the current page's review elements and normalizes
// each one. Extraction or normalization failures drop the single record,
// never the page.
func (c *Controller) collectPage(ctx context.Context, adapter Adapter, productID, productURL string) ([]types.ReviewRecord, error) {
	elements, err := adapter.ListReviewElements(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]types.ReviewRecord, 0, len(elements))
	for _, el := range elements {
		fields, err := adapter.ExtractFields(el)
		if err != nil {
			c.metrics.ReviewRejected("extract")
			c.logger.Debug("element extraction failed", "product_id", productID, "error", err)
			continue
		}

		rec, err := c.norm.Normalize(fields, productID, productURL)
		if err != nil {
			if !errors.Is(err, normalize.ErrRejected) {
				return nil, err
			}
			c.metrics.ReviewRejected("normalize")
			c.logger.Debug("record rejected", "product_id", productID, "reason", err)
			continue
		}

		c.metrics.ReviewCollected()
		records = append(records, rec)
	}
	return records, nil
}

func (c *Controller) stop(run *types.TraversalRun, reason types.StopReason) {
	run.Stopped = true
	run.StopReason = reason
}

// pageDelay sleeps a bounded random interval between listing pages.
func (c *Controller) pageDelay(ctx context.Context) error {
	d := randomBetween(c.cfg.PageDelayMin, c.cfg.PageDelayMax)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// randomBetween picks a uniform duration in [min, max].
func randomBetween(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}
