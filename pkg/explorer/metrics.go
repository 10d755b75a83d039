package explorer

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "xexplorer"

// Metrics is the in-memory summary kept per resource.
type Metrics struct {
	TotalRequests   int64
	TotalErrors     int64
	TotalLatency    time.Duration
	AverageLatency  time.Duration
	LastRequestTime time.Time
	CacheHits       int64
	CacheMisses     int64
	SharedCalls     int64
}

// MetricsCollector collects per-resource metrics and exports them to
// prometheus. All methods are safe on a nil collector.
type MetricsCollector struct {
	mu       sync.Mutex
	metrics  map[string]*Metrics
	onChange func(resource string, metrics *Metrics)

	requests       *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	cacheLookups   *prometheus.CounterVec
	sharedCalls    *prometheus.CounterVec
	enrichFailures *prometheus.CounterVec
	staleDiscards  *prometheus.CounterVec
}

// NewMetricsCollector creates a collector. When reg is nil the prometheus
// series are kept but not registered anywhere.
func NewMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	m := &MetricsCollector{
		metrics: make(map[string]*Metrics),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Dispatched resource requests by outcome.",
		}, []string{"resource", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "request_duration_seconds",
			Help:      "Latency of dispatched resource requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_lookups_total",
			Help:      "Query cache lookups by result.",
		}, []string{"resource", "result"}),
		sharedCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "shared_calls_total",
			Help:      "Queries answered by joining an in-flight request.",
		}, []string{"resource"}),
		enrichFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "enrichment_failures_total",
			Help:      "Interceptor failures that fell back to the unmodified payload.",
		}, []string{"resource", "interceptor"}),
		staleDiscards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "stale_responses_discarded_total",
			Help:      "Pagination responses dropped because a newer transition happened.",
		}, []string{"resource"}),
	}

	if reg != nil {
		m.requests = registerOrReuse(reg, m.requests)
		m.latency = registerOrReuse(reg, m.latency)
		m.cacheLookups = registerOrReuse(reg, m.cacheLookups)
		m.sharedCalls = registerOrReuse(reg, m.sharedCalls)
		m.enrichFailures = registerOrReuse(reg, m.enrichFailures)
		m.staleDiscards = registerOrReuse(reg, m.staleDiscards)
	}

	return m
}

// registerOrReuse registers c, returning the already registered collector
// when an identical one exists.
func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing
		}
	}

	return c
}

// SetOnChange sets a callback for when metrics change.
func (m *MetricsCollector) SetOnChange(fn func(resource string, metrics *Metrics)) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.onChange = fn
}

// GetMetrics returns a snapshot of the metrics of a resource, or nil.
func (m *MetricsCollector) GetMetrics(resource string) *Metrics {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	metrics, ok := m.metrics[resource]
	if !ok {
		return nil
	}

	snapshot := *metrics

	return &snapshot
}

// update mutates the metrics of a resource and notifies the listener.
func (m *MetricsCollector) update(resource string, fn func(*Metrics)) {
	m.mu.Lock()

	metrics, ok := m.metrics[resource]
	if !ok {
		metrics = &Metrics{}
		m.metrics[resource] = metrics
	}

	fn(metrics)

	snapshot := *metrics
	onChange := m.onChange
	m.mu.Unlock()

	if onChange != nil {
		onChange(resource, &snapshot)
	}
}

// RecordRequest records one dispatch of a resource.
func (m *MetricsCollector) RecordRequest(resource string, latency time.Duration, failed bool) {
	if m == nil {
		return
	}

	outcome := "success"
	if failed {
		outcome = "error"
	}

	m.requests.WithLabelValues(resource, outcome).Inc()
	m.latency.WithLabelValues(resource).Observe(latency.Seconds())

	m.update(resource, func(metrics *Metrics) {
		metrics.TotalRequests++
		metrics.LastRequestTime = time.Now()
		metrics.TotalLatency += latency
		metrics.AverageLatency = metrics.TotalLatency / time.Duration(metrics.TotalRequests)

		if failed {
			metrics.TotalErrors++
		}
	})
}

// RecordCacheLookup records a cache hit or miss.
func (m *MetricsCollector) RecordCacheLookup(resource string, hit bool) {
	if m == nil {
		return
	}

	result := "miss"
	if hit {
		result = "hit"
	}

	m.cacheLookups.WithLabelValues(resource, result).Inc()

	m.update(resource, func(metrics *Metrics) {
		if hit {
			metrics.CacheHits++
		} else {
			metrics.CacheMisses++
		}
	})
}

// RecordSharedCall records a query that joined an in-flight request.
func (m *MetricsCollector) RecordSharedCall(resource string) {
	if m == nil {
		return
	}

	m.sharedCalls.WithLabelValues(resource).Inc()

	m.update(resource, func(metrics *Metrics) {
		metrics.SharedCalls++
	})
}

// RecordEnrichmentFailure records an interceptor failure.
func (m *MetricsCollector) RecordEnrichmentFailure(resource, interceptor string) {
	if m == nil {
		return
	}

	m.enrichFailures.WithLabelValues(resource, interceptor).Inc()
}

// RecordStaleDiscard records a superseded pagination response.
func (m *MetricsCollector) RecordStaleDiscard(resource string) {
	if m == nil {
		return
	}

	m.staleDiscards.WithLabelValues(resource).Inc()
}
