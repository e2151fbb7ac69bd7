package watermark

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ilyakm/reviewstalk/internal/types"
)

const dateLayout = "2006-01-02"

// fileEntry is the on-disk shape of one product's watermark.
type fileEntry struct {
	LastReviewDate  string    `json:"last_review_date,omitempty"`
	RecentReviewIDs []string  `json:"recent_review_ids,omitempty"`
	TotalReviews    int       `json:"total_reviews"`
	LastSyncedAt    time.Time `json:"last_synced_at"`
}

// FileStore keeps all watermarks in a single metadata.json file next to
// the review files. Writes go through a temp file and rename, so a crash
// never leaves a half-written watermark behind.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileStore creates the metadata file (and its directory) if needed.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create watermark dir: %w", err)
	}
	return &FileStore{
		path:   filepath.Join(dir, "metadata.json"),
		logger: logger.With("component", "watermark_file"),
	}, nil
}

func (s *FileStore) Name() string { return "file" }

func (s *FileStore) Get(ctx context.Context, productID string) (types.ProductWatermark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return types.ProductWatermark{}, err
	}

	entry, ok := entries[productID]
	if !ok {
		return types.NewProductWatermark(productID), nil
	}

	wm := types.ProductWatermark{
		ProductID:    productID,
		Recent:       types.NewRecentIDWindow(entry.RecentReviewIDs...),
		TotalReviews: entry.TotalReviews,
		LastSyncedAt: entry.LastSyncedAt,
	}
	if entry.LastReviewDate != "" {
		date, err := time.ParseInLocation(dateLayout, entry.LastReviewDate, time.UTC)
		if err != nil {
			return types.ProductWatermark{}, fmt.Errorf("corrupt last_review_date for %s: %w", productID, err)
		}
		wm.LastReviewDate = date
	}
	return wm, nil
}

func (s *FileStore) Upsert(ctx context.Context, productID string, u Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}

	entry := entries[productID]

	if !u.LastReviewDate.IsZero() {
		prev, _ := time.ParseInLocation(dateLayout, entry.LastReviewDate, time.UTC)
		if u.LastReviewDate.After(prev) {
			entry.LastReviewDate = u.LastReviewDate.UTC().Format(dateLayout)
		}
	}

	if len(u.NewIDs) > 0 {
		window := types.NewRecentIDWindow(entry.RecentReviewIDs...)
		for _, id := range u.NewIDs {
			window.Add(id)
		}
		entry.RecentReviewIDs = window.IDs()
	}

	if u.TotalReviews >= 0 {
		entry.TotalReviews = u.TotalReviews
	}
	entry.LastSyncedAt = time.Now().UTC()

	entries[productID] = entry
	if err := s.save(entries); err != nil {
		return err
	}

	s.logger.Debug("watermark updated",
		"product_id", productID,
		"last_review_date", entry.LastReviewDate,
		"recent_ids", len(entry.RecentReviewIDs),
		"total_reviews", entry.TotalReviews,
	)
	return nil
}

func (s *FileStore) Close() error { return nil }

// load reads the whole metadata file. A missing file is an empty store.
func (s *FileStore) load() (map[string]fileEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]fileEntry), nil
		}
		return nil, fmt.Errorf("read watermark metadata: %w", err)
	}

	entries := make(map[string]fileEntry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode watermark metadata: %w", err)
	}
	return entries, nil
}

// save writes the metadata atomically via temp file + rename.
func (s *FileStore) save(entries map[string]fileEntry) error {
	tmp := s.path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create watermark temp file: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		f.Close()
		return fmt.Errorf("encode watermark metadata: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close watermark temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename watermark metadata: %w", err)
	}
	return nil
}
