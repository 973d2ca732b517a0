package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the resolution engine.
// All methods are nil-safe so components can run without metrics in tests.
type Metrics struct {
	// Cache lookups by kind (whois, dns, rdns, ssl) and result (hit, miss, stale, error)
	CacheLookups *prometheus.CounterVec

	// Provider outcomes by provider and result (success, empty, failure category)
	ProviderOutcomes *prometheus.CounterVec

	// Outbound fetch latency by upstream host
	FetchLatency *prometheus.HistogramVec

	// Which WHOIS stage produced the final record
	WhoisResolvedBy *prometheus.CounterVec

	// Report generation latency
	ReportLatency prometheus.Histogram
}

// New registers the engine metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the engine metrics on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "forensics_cache_lookups_total",
			Help: "Cache lookups by kind and result",
		}, []string{"kind", "result"}),

		ProviderOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "forensics_provider_outcomes_total",
			Help: "Provider call outcomes by provider and result",
		}, []string{"provider", "result"}),

		FetchLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forensics_fetch_duration_seconds",
			Help:    "Duration of bounded outbound fetches by host",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"host"}),

		WhoisResolvedBy: f.NewCounterVec(prometheus.CounterOpts{
			Name: "forensics_whois_resolved_total",
			Help: "WHOIS resolutions by the stage that produced the record",
		}, []string{"stage"}),

		ReportLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "forensics_report_duration_seconds",
			Help:    "Duration of full report generation",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

func (m *Metrics) RecordCacheLookup(kind, result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(kind, result).Inc()
	}
}

func (m *Metrics) RecordProviderOutcome(provider, result string) {
	if m != nil {
		m.ProviderOutcomes.WithLabelValues(provider, result).Inc()
	}
}

func (m *Metrics) ObserveFetchLatency(host string, d time.Duration) {
	if m != nil {
		m.FetchLatency.WithLabelValues(host).Observe(d.Seconds())
	}
}

func (m *Metrics) RecordWhoisResolved(stage string) {
	if m != nil {
		m.WhoisResolvedBy.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) ObserveReportLatency(d time.Duration) {
	if m != nil {
		m.ReportLatency.Observe(d.Seconds())
	}
}
