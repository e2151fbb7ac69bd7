package types

import "fmt"

// Mode selects how much of a product's listing a crawl collects.
type Mode string

const (
	// ModeFull re-collects the entire listing.
	ModeFull Mode = "full"

	// ModeIncremental filters against the product's watermark. With no
	// baseline it behaves exactly like ModeFull.
	ModeIncremental Mode = "incremental"
)

// ParseMode converts a user-supplied mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFull, ModeIncremental:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (valid: full, incremental)", s)
}

// StopReason records why a traversal stopped paging.
type StopReason string

const (
	// StopExhausted: the source signalled no (more) reviews, or no next
	// page could be reached.
	StopExhausted StopReason = "exhausted"

	// StopLimitReached: the raw-collected count hit the configured cap.
	// Applied before incremental filtering so the cap bounds raw work.
	StopLimitReached StopReason = "limit_reached"

	// StopNoRecordsOnPage: a page yielded zero normalized records.
	StopNoRecordsOnPage StopReason = "no_records_on_page"

	// StopNavigationFailed: the listing could not be navigated at all.
	StopNavigationFailed StopReason = "navigation_failed"
)

// TraversalRun is the ephemeral state of one pass over one product's
// paginated listing. It is created per product and discarded after the
// accepted records are flushed; it is never shared across products.
type TraversalRun struct {
	ProductID  string
	ProductURL string
	Mode       Mode
	PageIndex  int
	Raw        []ReviewRecord
	Stopped    bool
	StopReason StopReason
}
