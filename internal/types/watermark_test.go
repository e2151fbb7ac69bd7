package types

import (
	"fmt"
	"testing"
)

func TestRecentIDWindowEvictsOldest(t *testing.T) {
	w := NewRecentIDWindow()
	for i := 0; i < RecentIDCapacity+3; i++ {
		w.Add(fmt.Sprintf("r%02d", i))
	}

	if w.Len() != RecentIDCapacity {
		t.Fatalf("len = %d, want %d", w.Len(), RecentIDCapacity)
	}
	for i := 0; i < 3; i++ {
		if w.Contains(fmt.Sprintf("r%02d", i)) {
			t.Errorf("r%02d should be evicted", i)
		}
	}
	if !w.Contains(fmt.Sprintf("r%02d", RecentIDCapacity+2)) {
		t.Error("newest ID missing")
	}
}

func TestRecentIDWindowOrderOldestFirst(t *testing.T) {
	w := NewRecentIDWindow("a", "b", "c")
	ids := w.IDs()
	if len(ids) != 3 || ids[0] != "a" || ids[2] != "c" {
		t.Errorf("IDs() = %v, want oldest first", ids)
	}
}

func TestRecentIDWindowIgnoresEmpty(t *testing.T) {
	w := NewRecentIDWindow("", "a", "")
	if w.Len() != 1 {
		t.Errorf("len = %d, want empty IDs skipped", w.Len())
	}
}

func TestRecentIDWindowDuplicateAdd(t *testing.T) {
	w := NewRecentIDWindow("a", "b")
	w.Add("a")
	if w.Len() != 2 {
		t.Errorf("len = %d, duplicate add must not grow the window", w.Len())
	}
}

func TestProductWatermarkBaseline(t *testing.T) {
	wm := NewProductWatermark("123")
	if wm.HasBaseline() {
		t.Error("fresh watermark must have no baseline")
	}
}
