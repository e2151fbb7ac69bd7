package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/ilyakm/reviewstalk/internal/types"
)

// FileBackend stores each product's reviews in its own JSON file
// (reviews_<productID>.json) under a common directory.
type FileBackend struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileBackend creates the storage directory if needed.
func NewFileBackend(dir string, logger *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create review dir: %w", err)
	}
	return &FileBackend{
		dir:    dir,
		logger: logger.With("component", "file_backend"),
	}, nil
}

func (b *FileBackend) Name() string { return "file" }

func (b *FileBackend) SaveRecords(ctx context.Context, records []types.ReviewRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Group by product so each file is rewritten at most once per flush.
	byProduct := make(map[string][]types.ReviewRecord)
	for _, rec := range records {
		byProduct[rec.ProductID] = append(byProduct[rec.ProductID], rec)
	}

	saved := 0
	for productID, batch := range byProduct {
		existing, err := b.loadProduct(productID)
		if err != nil {
			return saved, err
		}

		seen := make(map[string]struct{}, len(existing))
		for _, rec := range existing {
			seen[rec.ReviewID] = struct{}{}
		}

		appended := false
		for _, rec := range batch {
			if _, dup := seen[rec.ReviewID]; dup {
				continue
			}
			seen[rec.ReviewID] = struct{}{}
			existing = append(existing, rec)
			appended = true
			saved++
		}
		if !appended {
			continue
		}

		if err := b.saveProduct(productID, existing); err != nil {
			return saved, err
		}
	}

	b.logger.Debug("records saved", "requested", len(records), "written", saved)
	return saved, nil
}

func (b *FileBackend) QueryByProduct(ctx context.Context, productID string, limit int) ([]types.ReviewRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	records, err := b.loadProduct(productID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (b *FileBackend) Close() error { return nil }

func (b *FileBackend) productPath(productID string) string {
	return filepath.Join(b.dir, "reviews_"+productID+".json")
}

func (b *FileBackend) loadProduct(productID string) ([]types.ReviewRecord, error) {
	data, err := os.ReadFile(b.productPath(productID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read reviews for %s: %w", productID, err)
	}

	var records []types.ReviewRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode reviews for %s: %w", productID, err)
	}
	return records, nil
}

// saveProduct writes the full review list atomically.
func (b *FileBackend) saveProduct(productID string, records []types.ReviewRecord) error {
	path := b.productPath(productID)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create review file: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		f.Close()
		return fmt.Errorf("encode reviews for %s: %w", productID, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close review file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename review file: %w", err)
	}
	return nil
}
