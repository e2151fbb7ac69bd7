// Package observability exposes crawl metrics in Prometheus format.
package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles Prometheus collectors for a crawl run. All methods are
// nil-safe so components can take an optional *Metrics.
type Metrics struct {
	Registry          *prometheus.Registry
	PagesFetched      prometheus.Counter
	ReviewsCollected  prometheus.Counter
	ReviewsRejectedBy *prometheus.CounterVec
	ReviewsAcceptedC  prometheus.Counter
	ProductsTotal     *prometheus.CounterVec
	TraversalDuration prometheus.Histogram

	logger *slog.Logger
	server *http.Server
}

// NewMetrics constructs and registers all collectors on a dedicated
// registry.
func NewMetrics(logger *slog.Logger) *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reviewstalk_pages_fetched_total",
		Help: "Listing pages fetched across all traversals.",
	})
	collected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reviewstalk_reviews_collected_total",
		Help: "Raw records that passed normalization.",
	})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reviewstalk_reviews_rejected_total",
		Help: "Records dropped before the dedup filter, by stage.",
	}, []string{"stage"})
	accepted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reviewstalk_reviews_accepted_total",
		Help: "Records accepted by the incremental filter.",
	})
	products := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reviewstalk_products_total",
		Help: "Products processed, by outcome.",
	}, []string{"status"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "reviewstalk_traversal_duration_seconds",
		Help:    "End-to-end duration of one product traversal.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	registry.MustRegister(pages, collected, rejected, accepted, products, duration)

	return &Metrics{
		Registry:          registry,
		PagesFetched:      pages,
		ReviewsCollected:  collected,
		ReviewsRejectedBy: rejected,
		ReviewsAcceptedC:  accepted,
		ProductsTotal:     products,
		TraversalDuration: duration,
		logger:            logger.With("component", "metrics"),
	}
}

// PageFetched counts one listing page fetch.
func (m *Metrics) PageFetched() {
	if m == nil {
		return
	}
	m.PagesFetched.Inc()
}

// ReviewCollected counts one normalized record.
func (m *Metrics) ReviewCollected() {
	if m == nil {
		return
	}
	m.ReviewsCollected.Inc()
}

// ReviewRejected counts one dropped record by stage (extract, normalize).
func (m *Metrics) ReviewRejected(stage string) {
	if m == nil {
		return
	}
	m.ReviewsRejectedBy.WithLabelValues(stage).Inc()
}

// ReviewsAccepted counts filter-accepted records.
func (m *Metrics) ReviewsAccepted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ReviewsAcceptedC.Add(float64(n))
}

// ProductDone counts one finished product by outcome (ok, failed).
func (m *Metrics) ProductDone(status string) {
	if m == nil {
		return
	}
	m.ProductsTotal.WithLabelValues(status).Inc()
}

// ObserveTraversal records one traversal's duration.
func (m *Metrics) ObserveTraversal(d time.Duration) {
	if m == nil {
		return
	}
	m.TraversalDuration.Observe(d.Seconds())
}

// StartServer serves the registry on the given port and path.
func (m *Metrics) StartServer(port int, path string) error {
	if m == nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	m.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	m.logger.Info("metrics server started", "port", port, "path", path)
	return nil
}

// Shutdown stops the metrics server if one was started.
func (m *Metrics) Shutdown() {
	if m == nil || m.server == nil {
		return
	}
	_ = m.server.Close()
}
