package crawler

import (
	"testing"
	"time"

	"github.com/ilyakm/reviewstalk/internal/types"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func baseWatermark() types.ProductWatermark {
	return types.ProductWatermark{
		ProductID:      "123",
		LastReviewDate: day(2025, 3, 15),
		Recent:         types.NewRecentIDWindow("r1", "r2"),
		TotalReviews:   40,
	}
}

func TestFilterNewMixedPage(t *testing.T) {
	wm := baseWatermark()
	raw := []types.ReviewRecord{
		{ReviewID: "r1", PublishedAt: day(2025, 3, 20)}, // known by ID despite newer date
		{ReviewID: "r3", PublishedAt: day(2025, 3, 10)}, // unknown ID but older than watermark
		{ReviewID: "r4", PublishedAt: day(2025, 3, 20)}, // genuinely new
	}

	got := FilterNew(raw, wm, types.ModeIncremental)
	if len(got) != 1 || got[0].ReviewID != "r4" {
		t.Fatalf("got %d records %+v, want only r4", len(got), got)
	}
}

func TestFilterNewSameDayAsWatermark(t *testing.T) {
	// A record dated exactly on the watermark is not older, so it passes.
	// Same-day re-collection is the accepted cost of date granularity;
	// the storage backend dedupes it by ID.
	wm := baseWatermark()
	raw := []types.ReviewRecord{
		{ReviewID: "r5", PublishedAt: day(2025, 3, 15)},
	}

	got := FilterNew(raw, wm, types.ModeIncremental)
	if len(got) != 1 {
		t.Fatalf("same-day record filtered out")
	}
}

func TestFilterNewFullModePassthrough(t *testing.T) {
	wm := baseWatermark()
	raw := []types.ReviewRecord{
		{ReviewID: "r1", PublishedAt: day(2025, 3, 20)},
		{ReviewID: "r2", PublishedAt: day(2020, 1, 1)},
	}

	got := FilterNew(raw, wm, types.ModeFull)
	if len(got) != len(raw) {
		t.Fatalf("full mode filtered: got %d, want %d", len(got), len(raw))
	}
}

func TestFilterNewNoBaselinePassthrough(t *testing.T) {
	wm := types.NewProductWatermark("123")
	raw := []types.ReviewRecord{
		{ReviewID: "r1", PublishedAt: day(2020, 1, 1)},
		{ReviewID: "r2", PublishedAt: day(2019, 1, 1)},
	}

	got := FilterNew(raw, wm, types.ModeIncremental)
	if len(got) != len(raw) {
		t.Fatalf("no-baseline incremental must behave like full: got %d", len(got))
	}
}

func TestFilterNewSyntheticIDMatchesByDateOnly(t *testing.T) {
	wm := baseWatermark()
	// Even if a synthetic ID collides with a window entry, only the
	// date comparison applies.
	raw := []types.ReviewRecord{
		{ReviewID: "r1", SyntheticID: true, PublishedAt: day(2025, 3, 20)},
		{ReviewID: "x9", SyntheticID: true, PublishedAt: day(2025, 3, 1)},
	}

	got := FilterNew(raw, wm, types.ModeIncremental)
	if len(got) != 1 || got[0].ReviewID != "r1" {
		t.Fatalf("got %+v, want only the newer synthetic record", got)
	}
}

func TestFilterNewUnreliableDateAlwaysNew(t *testing.T) {
	wm := baseWatermark()
	raw := []types.ReviewRecord{
		{ReviewID: "r7", PublishedAt: day(2020, 1, 1), DateUnreliable: true},
	}

	got := FilterNew(raw, wm, types.ModeIncremental)
	if len(got) != 1 {
		t.Fatal("unreliable-date record must never be dropped")
	}
}

func TestFilterNewOrderIndependent(t *testing.T) {
	wm := baseWatermark()
	raw := []types.ReviewRecord{
		{ReviewID: "r1", PublishedAt: day(2025, 3, 20)},
		{ReviewID: "r4", PublishedAt: day(2025, 3, 20)},
		{ReviewID: "r3", PublishedAt: day(2025, 3, 10)},
	}
	reversed := []types.ReviewRecord{raw[2], raw[1], raw[0]}

	forward := FilterNew(raw, wm, types.ModeIncremental)
	backward := FilterNew(reversed, wm, types.ModeIncremental)

	if len(forward) != len(backward) {
		t.Fatalf("order changed the verdict: %d vs %d", len(forward), len(backward))
	}
	seen := map[string]bool{}
	for _, rec := range forward {
		seen[rec.ReviewID] = true
	}
	for _, rec := range backward {
		if !seen[rec.ReviewID] {
			t.Errorf("record %s accepted only in one order", rec.ReviewID)
		}
	}
}

func TestFilterNewIncrementalSubsetOfFull(t *testing.T) {
	wm := baseWatermark()
	raw := []types.ReviewRecord{
		{ReviewID: "r1", PublishedAt: day(2025, 3, 20)},
		{ReviewID: "r4", PublishedAt: day(2025, 3, 20)},
		{ReviewID: "r3", PublishedAt: day(2025, 3, 10)},
	}

	full := FilterNew(raw, wm, types.ModeFull)
	incremental := FilterNew(raw, wm, types.ModeIncremental)

	inFull := map[string]bool{}
	for _, rec := range full {
		inFull[rec.ReviewID] = true
	}
	for _, rec := range incremental {
		if !inFull[rec.ReviewID] {
			t.Errorf("incremental accepted %s that full did not", rec.ReviewID)
		}
	}
	if len(incremental) > len(full) {
		t.Errorf("incremental (%d) larger than full (%d)", len(incremental), len(full))
	}
}
