package types

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// RecentIDCapacity bounds the recent-review-ID window kept per product.
// The window is a most-recently-seen set, not full history.
const RecentIDCapacity = 20

// RecentIDWindow is a bounded ordered set of review IDs. Inserting beyond
// capacity evicts the oldest entry.
type RecentIDWindow struct {
	cache *lru.Cache[string, struct{}]
}

// NewRecentIDWindow creates a window pre-seeded with ids, oldest first.
func NewRecentIDWindow(ids ...string) *RecentIDWindow {
	cache, _ := lru.New[string, struct{}](RecentIDCapacity)
	w := &RecentIDWindow{cache: cache}
	for _, id := range ids {
		w.Add(id)
	}
	return w
}

// Add inserts an ID, evicting the oldest entry when full.
func (w *RecentIDWindow) Add(id string) {
	if id == "" {
		return
	}
	w.cache.Add(id, struct{}{})
}

// Contains reports membership without affecting recency order.
func (w *RecentIDWindow) Contains(id string) bool {
	return w.cache.Contains(id)
}

// IDs returns the window contents, oldest first.
func (w *RecentIDWindow) IDs() []string {
	return w.cache.Keys()
}

// Len returns the number of IDs currently held.
func (w *RecentIDWindow) Len() int {
	return w.cache.Len()
}

// ProductWatermark is the durable per-product sync state. It is mutated
// only by the watermark store after a successful flush of a traversal's
// accepted records, never mid-traversal.
type ProductWatermark struct {
	ProductID string `json:"product_id"`

	// LastReviewDate is the newest reliably-dated review seen so far.
	// Zero means no baseline exists and incremental mode degrades to a
	// full sync.
	LastReviewDate time.Time `json:"last_review_date"`

	Recent *RecentIDWindow `json:"-"`

	TotalReviews int       `json:"total_reviews"`
	LastSyncedAt time.Time `json:"last_synced_at"`
}

// NewProductWatermark returns an empty watermark for a product.
func NewProductWatermark(productID string) ProductWatermark {
	return ProductWatermark{
		ProductID: productID,
		Recent:    NewRecentIDWindow(),
	}
}

// HasBaseline reports whether a previous sync recorded a last review date.
func (w *ProductWatermark) HasBaseline() bool {
	return !w.LastReviewDate.IsZero()
}
