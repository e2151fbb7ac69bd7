// Package watermark persists per-product sync state: how far review
// ingestion has progressed, used to bound incremental re-crawls.
package watermark

import (
	"context"
	"time"

	"github.com/ilyakm/reviewstalk/internal/types"
)

// Update carries the fields of a watermark to merge after a successful
// flush. A zero LastReviewDate and a negative TotalReviews leave the
// stored value unchanged; NewIDs are appended to the recent window,
// oldest first.
type Update struct {
	LastReviewDate time.Time
	NewIDs         []string
	TotalReviews   int
}

// Store is the durable watermark backend. Upsert is atomic with respect
// to a single product: two concurrent upserts for the same product never
// interleave partially. Independent products need no coordination.
type Store interface {
	// Get returns the product's watermark, or an empty one (no baseline)
	// when the product has never been synced.
	Get(ctx context.Context, productID string) (types.ProductWatermark, error)

	// Upsert merges an update into the product's watermark. The stored
	// last review date only moves forward.
	Upsert(ctx context.Context, productID string, u Update) error

	Close() error

	// Name identifies the backend.
	Name() string
}
