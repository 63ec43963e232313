// Package metrics exposes hivecrawl's Prometheus metrics surface (spec.md
// §4.9). infrastructure/metrics in the teacher hand-rolls its own counters
// for an HTTP middleware rather than using github.com/prometheus/client_golang
// directly; hivecrawl uses client_golang's registry and collector types
// directly instead, since infrastructure's go.mod already depends on it and
// a crawler pod has no HTTP surface of its own to middleware-wrap. The
// per-worker counters and histograms carry pod_id as its own label (never
// concatenated into another label's value) plus process_type and a
// role-specific id; WorkerUtilization carries pod_id and process_type only;
// ParseQueueDepth, ActiveDomains and FrontierReady carry no labels.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every metric a fetcher or parser pod emits.
type Registry struct {
	reg *prometheus.Registry

	URLsDiscovered   *prometheus.CounterVec
	PagesFetched     *prometheus.CounterVec
	FetchErrors      *prometheus.CounterVec
	PagesParsed      *prometheus.CounterVec
	ParseErrors      *prometheus.CounterVec
	FetchDuration    *prometheus.HistogramVec
	ParseDuration    *prometheus.HistogramVec
	ParseQueueDepth  prometheus.Gauge
	ActiveDomains    prometheus.Gauge
	FrontierReady    prometheus.Gauge
	WorkerUtilization *prometheus.GaugeVec
}

// NewRegistry builds a Registry and registers every metric against a fresh
// prometheus.Registry, so callers can expose it however the deployment
// wants (pull endpoint, pushgateway, or just periodic logging of values).
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		URLsDiscovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hivecrawl",
			Name:      "urls_discovered_total",
			Help:      "URLs admitted to the frontier after dedup and filtering.",
		}, []string{"pod_id", "process_type", "parser_id"}),
		PagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hivecrawl",
			Name:      "pages_fetched_total",
			Help:      "Pages successfully fetched.",
		}, []string{"pod_id", "process_type", "fetcher_id"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hivecrawl",
			Name:      "fetch_errors_total",
			Help:      "Fetch attempts that failed, labeled by error kind.",
		}, []string{"pod_id", "process_type", "fetcher_id", "kind"}),
		PagesParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hivecrawl",
			Name:      "pages_parsed_total",
			Help:      "Pages successfully parsed for links.",
		}, []string{"pod_id", "process_type", "parser_id"}),
		ParseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hivecrawl",
			Name:      "parse_errors_total",
			Help:      "Parse attempts that failed.",
		}, []string{"pod_id", "process_type", "parser_id"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hivecrawl",
			Name:      "fetch_duration_seconds",
			Help:      "Time spent fetching a single page.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"pod_id", "process_type", "fetcher_id"}),
		ParseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hivecrawl",
			Name:      "parse_duration_seconds",
			Help:      "Time spent parsing a single page for links.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"pod_id", "process_type", "parser_id"}),
		ParseQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hivecrawl",
			Name:      "parse_queue_depth",
			Help:      "Current length of the parse queue.",
		}),
		ActiveDomains: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hivecrawl",
			Name:      "active_domains",
			Help:      "Number of domains currently claimed by a fetch worker.",
		}),
		FrontierReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hivecrawl",
			Name:      "frontier_ready_domains",
			Help:      "Number of domains currently eligible to be claimed.",
		}),
		WorkerUtilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "hivecrawl",
			Name:      "worker_utilization_ratio",
			Help:      "Fraction of a pod's worker loops currently running.",
		}, []string{"pod_id", "process_type"}),
	}

	reg.MustRegister(
		r.URLsDiscovered, r.PagesFetched, r.FetchErrors, r.PagesParsed,
		r.ParseErrors, r.FetchDuration, r.ParseDuration, r.ParseQueueDepth,
		r.ActiveDomains, r.FrontierReady, r.WorkerUtilization,
	)
	return r
}

// Registerer exposes the underlying registry for an HTTP handler to serve.
func (r *Registry) Registerer() *prometheus.Registry {
	return r.reg
}

// Handler returns the scrape endpoint for this registry, mirroring the
// teacher's telemetry.Provider.Handler.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
