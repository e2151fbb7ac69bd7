package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the crawl error taxonomy.
var (
	// ErrInvalidProductURL: no product ID could be resolved from the URL.
	// Fatal for that product only, never for the run.
	ErrInvalidProductURL = errors.New("invalid product URL")

	// ErrListingUnreachable: neither the direct listing URL nor the
	// product page + reviews tab could be reached. Fatal per product.
	ErrListingUnreachable = errors.New("review listing unreachable")

	// ErrAdapterTransient: a recoverable adapter failure. The current
	// page degrades to empty and the traversal continues, unless it was
	// the first page.
	ErrAdapterTransient = errors.New("transient adapter failure")

	// ErrWatermarkUnavailable: the watermark store cannot be used. Fatal
	// to the whole run; incremental mode must not silently degrade to
	// full mode.
	ErrWatermarkUnavailable = errors.New("watermark store unavailable")
)

// TraversalError wraps a failure in one product's traversal.
type TraversalError struct {
	ProductURL string
	Page       int
	Err        error
}

func (e *TraversalError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("traversal error for %s (page %d): %v", e.ProductURL, e.Page, e.Err)
	}
	return fmt.Sprintf("traversal error for %s: %v", e.ProductURL, e.Err)
}

func (e *TraversalError) Unwrap() error { return e.Err }

// StorageError wraps errors from a persistence backend.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
