package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ilyakm/reviewstalk/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func writeTargetsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "targets.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write targets file: %v", err)
	}
	return path
}

func setFlags(t *testing.T, file string, full bool) {
	t.Helper()
	prevFile, prevFull := targetsFile, fullMode
	targetsFile, fullMode = file, full
	t.Cleanup(func() {
		targetsFile, fullMode = prevFile, prevFull
	})
}

func TestResolveTargetsForceFullOverridesPerLineMode(t *testing.T) {
	path := writeTargetsFile(t, `https://www.ozon.ru/product/item-a-111/ 500 incremental
https://www.ozon.ru/product/item-b-222/ full
https://www.ozon.ru/product/item-c-333/
`)
	setFlags(t, path, true)

	targets, err := resolveTargets([]string{"https://www.ozon.ru/product/item-d-444/"}, testLogger)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(targets) != 4 {
		t.Fatalf("targets = %d, want 4", len(targets))
	}
	for _, target := range targets {
		if target.Mode != types.ModeFull {
			t.Errorf("target %s mode = %q, want full forced", target.URL, target.Mode)
		}
	}
	// Other per-line overrides survive the stamp.
	if targets[0].MaxReviews != 500 {
		t.Errorf("max reviews = %d, want 500 kept", targets[0].MaxReviews)
	}
}

func TestResolveTargetsKeepsPerLineModeWithoutForce(t *testing.T) {
	path := writeTargetsFile(t, `https://www.ozon.ru/product/item-a-111/ incremental
https://www.ozon.ru/product/item-b-222/
`)
	setFlags(t, path, false)

	targets, err := resolveTargets(nil, testLogger)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("targets = %d, want 2", len(targets))
	}
	if targets[0].Mode != types.ModeIncremental {
		t.Errorf("mode = %q, want per-line incremental kept", targets[0].Mode)
	}
	if targets[1].Mode != "" {
		t.Errorf("mode = %q, want empty (config default applies)", targets[1].Mode)
	}
}

func TestResolveTargetsSkipsUnusableURLs(t *testing.T) {
	setFlags(t, "", false)

	targets, err := resolveTargets([]string{
		"https://www.ozon.ru/category/phones/", // no product ID
		"ftp://example.com/product/item-1/",    // bad scheme
		"https://www.ozon.ru/product/item-9/",
	}, testLogger)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(targets) != 1 || targets[0].URL != "https://www.ozon.ru/product/item-9/" {
		t.Fatalf("targets = %+v, want only the valid URL", targets)
	}
}
