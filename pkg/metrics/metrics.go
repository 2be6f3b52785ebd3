package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns the service collectors and the registry they are exposed from.
type Recorder struct {
	registry     *prometheus.Registry
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	upstreamRTT  *prometheus.HistogramVec
	advisories   *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
}

// New registers the collectors on a private registry so that several
// recorders can coexist in one process.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests served, by route and status.",
			},
			[]string{"method", "route", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		upstreamRTT: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upstream_rtt_seconds",
				Help:    "Histogram of round-trip times for weather provider calls.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"call", "outcome"},
		),
		advisories: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisories_total",
				Help: "Advisories generated, by the rule that chose the likelihood.",
			},
			[]string{"likelihood_source"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geocode_cache_lookups_total",
				Help: "Geocode cache lookups, by result.",
			},
			[]string{"result"},
		),
	}
	r.registry.MustRegister(
		r.httpRequests,
		r.httpLatency,
		r.upstreamRTT,
		r.advisories,
		r.cacheLookups,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return r
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserveHTTP records one served request.
func (r *Recorder) ObserveHTTP(method, route string, status int, latency time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpLatency.WithLabelValues(method, route).Observe(latency.Seconds())
}

// ObserveUpstream records the round trip of one provider call.
func (r *Recorder) ObserveUpstream(call string, err error, rtt time.Duration) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.upstreamRTT.WithLabelValues(call, outcome).Observe(rtt.Seconds())
}

// IncAdvisory counts a generated advisory.
func (r *Recorder) IncAdvisory(source string) {
	if r == nil {
		return
	}
	r.advisories.WithLabelValues(source).Inc()
}

// IncCacheLookup counts a geocode cache hit or miss.
func (r *Recorder) IncCacheLookup(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}
