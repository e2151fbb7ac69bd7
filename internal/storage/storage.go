// Package storage persists normalized review records.
package storage

import (
	"context"

	"github.com/ilyakm/reviewstalk/internal/types"
)

// Backend is the review persistence interface. All backends key records
// by review ID within a product and silently skip duplicates.
type Backend interface {
	// SaveRecords persists a batch and returns how many were actually
	// written (duplicates by review ID are skipped, not errors).
	SaveRecords(ctx context.Context, records []types.ReviewRecord) (int, error)

	// QueryByProduct returns up to limit stored records for a product
	// (0 = no limit).
	QueryByProduct(ctx context.Context, productID string, limit int) ([]types.ReviewRecord, error)

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the backend identifier.
	Name() string
}
