package scraper

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for one scrape run on a dedicated
// registry.
type Metrics struct {
	Registry           *prometheus.Registry
	ListingPagesTotal  prometheus.Counter
	DetailFetchesTotal *prometheus.CounterVec
	RecordsTotal       *prometheus.CounterVec
	ErrorsTotal        *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	listingPages := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_listing_pages_total",
			Help: "Total listing pages fetched.",
		},
	)
	detailFetches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_detail_fetches_total",
			Help: "Total detail page fetches by outcome.",
		},
		[]string{"outcome"},
	)
	records := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_records_total",
			Help: "Total records seen by result.",
		},
		[]string{"result"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(listingPages, detailFetches, records, errorsTotal)

	return &Metrics{
		Registry:           registry,
		ListingPagesTotal:  listingPages,
		DetailFetchesTotal: detailFetches,
		RecordsTotal:       records,
		ErrorsTotal:        errorsTotal,
	}
}

// IncListingPage increments the listing pages counter
func (m *Metrics) IncListingPage() {
	if m == nil {
		return
	}
	m.ListingPagesTotal.Inc()
}

// IncDetailFetch increments the detail fetch counter for an outcome
func (m *Metrics) IncDetailFetch(outcome string) {
	if m == nil {
		return
	}
	m.DetailFetchesTotal.WithLabelValues(outcome).Inc()
}

// IncRecord increments the records counter for a result label
func (m *Metrics) IncRecord(result string) {
	if m == nil {
		return
	}
	m.RecordsTotal.WithLabelValues(result).Inc()
}

// IncError increments the errors counter for a type label
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
