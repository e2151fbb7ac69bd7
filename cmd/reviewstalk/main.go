package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ilyakm/reviewstalk/internal/browser"
	"github.com/ilyakm/reviewstalk/internal/config"
	"github.com/ilyakm/reviewstalk/internal/crawler"
	"github.com/ilyakm/reviewstalk/internal/fetcher"
	"github.com/ilyakm/reviewstalk/internal/normalize"
	"github.com/ilyakm/reviewstalk/internal/observability"
	"github.com/ilyakm/reviewstalk/internal/sources"
	"github.com/ilyakm/reviewstalk/internal/storage"
	"github.com/ilyakm/reviewstalk/internal/types"
	"github.com/ilyakm/reviewstalk/internal/watermark"
)

var (
	cfgFile     string
	verbose     bool
	targetsFile string
	fullMode    bool
	maxReviews  int
	summaryDir  string
	showLimit   int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "reviewstalk",
		Short: "reviewstalk — incremental product review crawler",
		Long: `reviewstalk collects customer reviews from product listing pages and
keeps them up to date incrementally: each product carries a watermark
(newest seen review date plus a window of recent review IDs), so repeat
runs only persist reviews that appeared since the last crawl.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(crawlCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// crawlCmd creates the "crawl" subcommand.
func crawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url...]",
		Short: "Crawl reviews for one or more product URLs",
		Long: `Crawl reviews for the given product URLs, or for every target listed
in a file via --file. File lines have the form:

  <url> [max_reviews] [full|incremental]

Per-target values override the global defaults.`,
		RunE: runCrawl,
	}

	cmd.Flags().StringVarP(&targetsFile, "file", "f", "", "read targets from a file, one per line")
	cmd.Flags().BoolVar(&fullMode, "full", false, "force full re-collection, ignoring watermarks")
	cmd.Flags().IntVarP(&maxReviews, "max-reviews", "m", 0, "per-product raw collection cap (0 = config default)")
	cmd.Flags().StringVar(&summaryDir, "summary-dir", "./results", "directory for run summary JSON")

	return cmd
}

// runCrawl executes the crawl command.
func runCrawl(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	targets, err := resolveTargets(args, logger)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("no usable targets — pass URLs or --file")
	}

	logger.Info("starting crawl",
		"targets", len(targets),
		"mode", cfg.Crawler.Mode,
		"max_reviews", cfg.Crawler.MaxReviews,
		"storage", cfg.Storage.Backend,
		"watermark", cfg.Watermark.Backend,
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down...", "signal", sig)
		cancel()
	}()

	wmStore, err := buildWatermarkStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("create watermark store: %w", err)
	}
	defer wmStore.Close()

	backend, err := buildStorageBackend(cfg, logger)
	if err != nil {
		return fmt.Errorf("create storage backend: %w", err)
	}
	defer backend.Close()

	session, err := browser.NewSession(cfg.Browser, logger)
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer session.Close()

	var probe crawler.Prober
	if cfg.Probe.Enabled {
		p, err := fetcher.NewProbe(cfg.Probe, cfg.Browser.UserAgent, logger)
		if err != nil {
			return fmt.Errorf("create probe: %w", err)
		}
		probe = p
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(logger)
		if err := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
		defer metrics.Shutdown()
	}

	controller := crawler.NewController(cfg.Crawler, normalize.New(logger), metrics, logger)
	coordinator := crawler.NewCoordinator(
		cfg.Crawler, controller, session.Factory(),
		wmStore, backend, probe, metrics, logger,
	)

	start := time.Now()
	summary, runErr := coordinator.Run(ctx, targets)
	elapsed := time.Since(start)

	if path, err := writeSummary(summaryDir, summary); err != nil {
		logger.Warn("failed to write summary file", "error", err)
	} else {
		logger.Info("summary written", "path", path)
	}

	printSummary(summary, elapsed)

	if runErr != nil {
		return fmt.Errorf("crawl run: %w", runErr)
	}
	return nil
}

// resolveTargets merges positional URLs and the targets file, dropping
// invalid URLs with a warning. An unreadable file is fatal. --full
// stamps every target, overriding per-line modes: forcing a full
// re-collection must win over whatever the file says.
func resolveTargets(args []string, logger *slog.Logger) ([]crawler.Target, error) {
	var targets []crawler.Target

	if targetsFile != "" {
		fromFile, err := sources.ParseTargetsFile(targetsFile)
		if err != nil {
			return nil, err
		}
		targets = append(targets, fromFile...)
	}
	for _, rawURL := range args {
		targets = append(targets, crawler.Target{URL: rawURL})
	}

	valid := targets[:0]
	for _, t := range targets {
		if err := config.ValidateURL(t.URL); err != nil {
			logger.Warn("target skipped", "url", t.URL, "reason", err)
			continue
		}
		if _, err := crawler.ExtractProductID(t.URL); err != nil {
			logger.Warn("target skipped", "url", t.URL, "reason", err)
			continue
		}
		if fullMode {
			t.Mode = types.ModeFull
		}
		valid = append(valid, t)
	}
	return valid, nil
}

func buildWatermarkStore(cfg *config.Config, logger *slog.Logger) (watermark.Store, error) {
	switch cfg.Watermark.Backend {
	case "mongodb":
		return watermark.NewMongoStore(
			cfg.Watermark.MongoURI, cfg.Watermark.MongoDatabase, cfg.Watermark.MongoCollection, logger)
	default:
		return watermark.NewFileStore(cfg.Watermark.Path, logger)
	}
}

func buildStorageBackend(cfg *config.Config, logger *slog.Logger) (storage.Backend, error) {
	switch cfg.Storage.Backend {
	case "mongodb":
		return storage.NewMongoBackend(
			cfg.Storage.MongoURI, cfg.Storage.MongoDatabase, cfg.Storage.MongoCollection, logger)
	default:
		return storage.NewFileBackend(cfg.Storage.Path, logger)
	}
}

// writeSummary persists the per-target accepted counts as JSON.
func writeSummary(dir string, summary crawler.Summary) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("summary_%d.json", time.Now().Unix()))
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, data, 0o644)
}

func printSummary(summary crawler.Summary, elapsed time.Duration) {
	urls := make([]string, 0, len(summary))
	total := 0
	for u, n := range summary {
		urls = append(urls, u)
		total += n
	}
	sort.Strings(urls)

	fmt.Printf("\nCrawl finished in %s\n", elapsed.Round(time.Millisecond))
	for _, u := range urls {
		fmt.Printf("  %6d new  %s\n", summary[u], u)
	}
	fmt.Printf("  %6d new reviews across %d products\n", total, len(summary))
}

// showCmd creates the "show" subcommand for inspecting stored reviews.
func showCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [product-url-or-id]",
		Short: "Show stored reviews for a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			productID := args[0]
			if id, err := crawler.ExtractProductID(args[0]); err == nil {
				productID = id
			}

			backend, err := buildStorageBackend(cfg, logger)
			if err != nil {
				return fmt.Errorf("create storage backend: %w", err)
			}
			defer backend.Close()

			records, err := backend.QueryByProduct(cmd.Context(), productID, showLimit)
			if err != nil {
				return fmt.Errorf("query reviews: %w", err)
			}
			if len(records) == 0 {
				fmt.Printf("no stored reviews for product %s\n", productID)
				return nil
			}

			for _, rec := range records {
				printRecord(rec)
			}
			fmt.Printf("%d reviews for product %s\n", len(records), productID)
			return nil
		},
	}

	cmd.Flags().IntVarP(&showLimit, "limit", "n", 20, "maximum reviews to show (0 = all)")
	return cmd
}

func printRecord(rec types.ReviewRecord) {
	date := rec.PublishedAt.Format("2006-01-02")
	if rec.DateUnreliable {
		date += "?"
	}
	fmt.Printf("[%s] %s %s (%d/5, +%d/-%d)\n  %s\n\n",
		date, rec.Author, rec.ReviewID, rec.Rating, rec.Likes, rec.Dislikes, rec.Text)
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("reviewstalk %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Crawler:\n")
			fmt.Printf("  Mode:             %s\n", cfg.Crawler.Mode)
			fmt.Printf("  Max Reviews:      %d\n", cfg.Crawler.MaxReviews)
			fmt.Printf("  Page Delay:       %s - %s\n", cfg.Crawler.PageDelayMin, cfg.Crawler.PageDelayMax)
			fmt.Printf("  Product Delay:    %s\n", cfg.Crawler.ProductDelay)
			fmt.Printf("  Product Timeout:  %s\n", cfg.Crawler.ProductTimeout)
			fmt.Printf("\nBrowser:\n")
			fmt.Printf("  Headless:         %v\n", cfg.Browser.Headless)
			fmt.Printf("  Stealth:          %v\n", cfg.Browser.Stealth)
			fmt.Printf("  Request Timeout:  %s\n", cfg.Browser.RequestTimeout)
			fmt.Printf("  Open Retries:     %d\n", cfg.Browser.MaxOpenRetries)
			fmt.Printf("\nProbe:\n")
			fmt.Printf("  Enabled:          %v\n", cfg.Probe.Enabled)
			fmt.Printf("\nWatermark:\n")
			fmt.Printf("  Backend:          %s\n", cfg.Watermark.Backend)
			fmt.Printf("  Path:             %s\n", cfg.Watermark.Path)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Backend:          %s\n", cfg.Storage.Backend)
			fmt.Printf("  Path:             %s\n", cfg.Storage.Path)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:          %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:             %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}

// setupLogger creates a structured logger.
func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if fullMode {
		cfg.Crawler.Mode = string(types.ModeFull)
	}
	if maxReviews > 0 {
		cfg.Crawler.MaxReviews = maxReviews
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
}
