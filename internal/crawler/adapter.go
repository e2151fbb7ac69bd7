package crawler

import "context"

// Element is an opaque handle to one review block on a listing page. Only
// the adapter that produced it knows how to read it.
type Element any

// Adapter is the page automation boundary. Everything selector- or
// browser-specific lives behind it; the crawler never reasons about the
// DOM. All "not found" outcomes are explicit returns, never panics.
type Adapter interface {
	// Open navigates to the given URL and waits for it to settle.
	Open(ctx context.Context, url string) error

	// ActivateReviewsTab switches an open product page to its review
	// listing view.
	ActivateReviewsTab(ctx context.Context) error

	// ListReviewElements returns the raw review blocks on the current
	// page, in page order.
	ListReviewElements(ctx context.Context) ([]Element, error)

	// ExtractFields pulls raw field candidates out of one review block.
	// Keys follow the normalize package's field contract.
	ExtractFields(el Element) (map[string]any, error)

	// HasNoReviewsIndicator reports the source's explicit "no reviews"
	// marker on the current page.
	HasNoReviewsIndicator(ctx context.Context) bool

	// NextPage advances to the next listing page. False means there is
	// no next control and no derivable next-page URL.
	NextPage(ctx context.Context) bool

	// Close releases the underlying page/session resources. It must be
	// called on every exit path of a traversal.
	Close() error
}

// AdapterFactory creates one exclusively-owned adapter per traversal.
type AdapterFactory func(ctx context.Context) (Adapter, error)
