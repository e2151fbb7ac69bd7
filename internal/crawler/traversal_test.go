package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/ilyakm/reviewstalk/internal/config"
	"github.com/ilyakm/reviewstalk/internal/normalize"
	"github.com/ilyakm/reviewstalk/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const testURL = "https://www.ozon.ru/product/test-item-123456/"

// fakeAdapter plays back scripted listing pages.
type fakeAdapter struct {
	pages           [][]map[string]any
	noReviewsOn     map[int]bool
	listErrOn       int // 1-based page whose listing fails (0 = never)
	failListingOpen bool

	current      int
	listCalls    int
	tabActivated bool
	closed       bool
}

func (f *fakeAdapter) Open(ctx context.Context, url string) error {
	if f.failListingOpen && strings.HasSuffix(url, "/reviews/") {
		return fmt.Errorf("listing blocked")
	}
	return nil
}

func (f *fakeAdapter) ActivateReviewsTab(ctx context.Context) error {
	f.tabActivated = true
	return nil
}

func (f *fakeAdapter) ListReviewElements(ctx context.Context) ([]Element, error) {
	f.listCalls++
	page := f.current + 1
	if f.listErrOn == page {
		return nil, fmt.Errorf("injected listing failure on page %d", page)
	}
	if f.current >= len(f.pages) {
		return nil, nil
	}
	elements := make([]Element, len(f.pages[f.current]))
	for i, fields := range f.pages[f.current] {
		elements[i] = fields
	}
	return elements, nil
}

func (f *fakeAdapter) ExtractFields(el Element) (map[string]any, error) {
	return el.(map[string]any), nil
}

func (f *fakeAdapter) HasNoReviewsIndicator(ctx context.Context) bool {
	return f.noReviewsOn[f.current+1]
}

func (f *fakeAdapter) NextPage(ctx context.Context) bool {
	if f.current+1 >= len(f.pages) {
		return false
	}
	f.current++
	return true
}

func (f *fakeAdapter) Close() error {
	f.closed = true
	return nil
}

func fields(id, date string) map[string]any {
	return map[string]any{
		normalize.FieldReviewID: id,
		normalize.FieldAuthor:   "Тест Автор",
		normalize.FieldRating:   5,
		normalize.FieldDate:     date,
		normalize.FieldText:     "Review text long enough to pass validation " + id,
	}
}

func page(ids ...string) []map[string]any {
	out := make([]map[string]any, len(ids))
	for i, id := range ids {
		out[i] = fields(id, "01.02.2025")
	}
	return out
}

func testController(maxReviews int) *Controller {
	cfg := config.CrawlerConfig{MaxReviews: maxReviews}
	return NewController(cfg, normalize.New(testLogger), nil, testLogger)
}

func TestTraversalWalksAllPages(t *testing.T) {
	adapter := &fakeAdapter{
		pages: [][]map[string]any{page("a1", "a2"), page("b1", "b2"), page("c1")},
	}

	run, err := testController(0).Run(context.Background(), adapter, testURL, 0, types.ModeFull)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(run.Raw) != 5 {
		t.Errorf("raw = %d, want 5", len(run.Raw))
	}
	if run.StopReason != types.StopExhausted {
		t.Errorf("stop reason = %s, want exhausted", run.StopReason)
	}
	if run.PageIndex != 3 {
		t.Errorf("page index = %d, want 3", run.PageIndex)
	}
	if run.ProductID != "123456" {
		t.Errorf("product id = %q", run.ProductID)
	}
}

func TestTraversalCapOvershootsWithinPage(t *testing.T) {
	// The cap is checked after a page completes, so a page can overshoot
	// it but no further page is fetched.
	adapter := &fakeAdapter{
		pages: [][]map[string]any{page("a1", "a2", "a3"), page("b1", "b2", "b3"), page("c1")},
	}

	run, err := testController(0).Run(context.Background(), adapter, testURL, 4, types.ModeFull)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.StopReason != types.StopLimitReached {
		t.Errorf("stop reason = %s, want limit_reached", run.StopReason)
	}
	if len(run.Raw) != 6 {
		t.Errorf("raw = %d, want 6 (page overshoot kept)", len(run.Raw))
	}
}

func TestTraversalStopsOnEmptyPage(t *testing.T) {
	adapter := &fakeAdapter{
		pages: [][]map[string]any{page("a1"), {}, page("never-reached")},
	}

	run, err := testController(0).Run(context.Background(), adapter, testURL, 0, types.ModeFull)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.StopReason != types.StopNoRecordsOnPage {
		t.Errorf("stop reason = %s, want no_records_on_page", run.StopReason)
	}
	if len(run.Raw) != 1 {
		t.Errorf("raw = %d, want records before the empty page kept", len(run.Raw))
	}
}

func TestTraversalStopsOnFirstExhaustedPage(t *testing.T) {
	// P populated pages followed by a page carrying the explicit
	// no-reviews marker: the traversal fetches exactly P+1 pages, keeps
	// all collected records, and stops as exhausted.
	adapter := &fakeAdapter{
		pages:       [][]map[string]any{page("a1", "a2"), page("b1", "b2"), {}},
		noReviewsOn: map[int]bool{3: true},
	}

	run, err := testController(0).Run(context.Background(), adapter, testURL, 0, types.ModeFull)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if adapter.listCalls != 3 {
		t.Errorf("pages fetched = %d, want exactly 3", adapter.listCalls)
	}
	if run.StopReason != types.StopExhausted {
		t.Errorf("stop reason = %s, want exhausted", run.StopReason)
	}
	if len(run.Raw) != 4 {
		t.Errorf("raw = %d, want all records from the populated pages", len(run.Raw))
	}
	if run.PageIndex != 3 {
		t.Errorf("page index = %d, want 3", run.PageIndex)
	}
}

func TestTraversalNoReviewsIndicatorWins(t *testing.T) {
	// The explicit empty-state marker outranks every other stop
	// condition, including a reached cap.
	adapter := &fakeAdapter{
		pages:       [][]map[string]any{page("a1", "a2")},
		noReviewsOn: map[int]bool{1: true},
	}

	run, err := testController(0).Run(context.Background(), adapter, testURL, 1, types.ModeFull)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.StopReason != types.StopExhausted {
		t.Errorf("stop reason = %s, want exhausted", run.StopReason)
	}
}

func TestTraversalFirstPageErrorAborts(t *testing.T) {
	adapter := &fakeAdapter{
		pages:     [][]map[string]any{page("a1")},
		listErrOn: 1,
	}

	_, err := testController(0).Run(context.Background(), adapter, testURL, 0, types.ModeFull)
	if err == nil {
		t.Fatal("expected error for page-1 failure")
	}
	if !errors.Is(err, types.ErrAdapterTransient) {
		t.Errorf("err = %v, want ErrAdapterTransient", err)
	}
	var terr *types.TraversalError
	if !errors.As(err, &terr) {
		t.Fatalf("err type = %T, want *TraversalError", err)
	}
	if terr.Page != 1 {
		t.Errorf("failed page = %d, want 1", terr.Page)
	}
}

func TestTraversalLaterPageErrorDegrades(t *testing.T) {
	adapter := &fakeAdapter{
		pages:     [][]map[string]any{page("a1", "a2"), page("b1")},
		listErrOn: 2,
	}

	run, err := testController(0).Run(context.Background(), adapter, testURL, 0, types.ModeFull)
	if err != nil {
		t.Fatalf("later-page failure must not abort: %v", err)
	}
	if run.StopReason != types.StopNoRecordsOnPage {
		t.Errorf("stop reason = %s, want no_records_on_page", run.StopReason)
	}
	if len(run.Raw) != 2 {
		t.Errorf("raw = %d, want page-1 records kept", len(run.Raw))
	}
}

func TestTraversalInvalidURL(t *testing.T) {
	adapter := &fakeAdapter{}

	_, err := testController(0).Run(context.Background(), adapter, "https://example.com/nothing/", 0, types.ModeFull)
	if !errors.Is(err, types.ErrInvalidProductURL) {
		t.Errorf("err = %v, want ErrInvalidProductURL", err)
	}
}

func TestTraversalFallsBackToReviewsTab(t *testing.T) {
	adapter := &fakeAdapter{
		pages:           [][]map[string]any{page("a1")},
		failListingOpen: true,
	}

	run, err := testController(0).Run(context.Background(), adapter, testURL, 0, types.ModeFull)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !adapter.tabActivated {
		t.Error("expected fallback to product page + reviews tab")
	}
	if len(run.Raw) != 1 {
		t.Errorf("raw = %d, want 1", len(run.Raw))
	}
}
