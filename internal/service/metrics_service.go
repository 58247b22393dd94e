package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// MetricsService owns the Prometheus registry for HTTP, cache, storage and scheduler instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec

	generations        *prometheus.CounterVec
	conflictsResolved  *prometheus.CounterVec
	shortfallSessions  prometheus.Counter
	oracleFallbacks    prometheus.Counter
	generationDuration prometheus.Histogram
	scheduledSessions  prometheus.Histogram

	cacheHitCount  uint64
	cacheMissCount uint64
	runCount       uint64
	fallbackCount  uint64
}

// MetricsSnapshot summarises counters for the health endpoint.
type MetricsSnapshot struct {
	CacheHitRatio   float64   `json:"cache_hit_ratio"`
	ScheduleRuns    uint64    `json:"schedule_runs"`
	OracleFallbacks uint64    `json:"oracle_fallbacks"`
	Goroutines      int       `json:"goroutines"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// NewMetricsService registers all collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &MetricsService{registry: registry}

	m.requestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
	m.requestTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	m.cacheLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})
	m.cacheWrite = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})
	m.cacheHitRatio = factory.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})
	m.cacheHits = factory.NewCounter(prometheus.CounterOpts{Name: "cache_hits_total", Help: "Total cache hits"})
	m.cacheMisses = factory.NewCounter(prometheus.CounterOpts{Name: "cache_misses_total", Help: "Total cache misses"})

	m.dbQueryDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	m.generations = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "generations_total",
		Help:      "Schedule runs by candidate source",
	}, []string{"source"})
	m.conflictsResolved = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "conflicts_resolved_total",
		Help:      "Conflict groups pruned from candidates",
	}, []string{"type"})
	m.shortfallSessions = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "shortfall_sessions_total",
		Help:      "Weekly sessions that could not be placed",
	})
	m.oracleFallbacks = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "oracle_fallbacks_total",
		Help:      "Runs answered by the heuristic after the oracle failed",
	})
	m.generationDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scheduler",
		Name:      "generation_duration_seconds",
		Help:      "End-to-end planner duration",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	})
	m.scheduledSessions = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scheduler",
		Name:      "scheduled_sessions",
		Help:      "Sessions placed per run",
		Buckets:   prometheus.LinearBuckets(0, 25, 8),
	})

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache lookup and updates the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	if ratio, ok := m.hitRatio(); ok {
		m.cacheHitRatio.Set(ratio)
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// ObserveScheduleRun records the outcome of one planner call.
func (m *MetricsService) ObserveScheduleRun(source models.ScheduleSource, sessions, shortfall int, conflicts []models.ConflictGroup, duration time.Duration) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(string(source)).Inc()
	atomic.AddUint64(&m.runCount, 1)
	if source == models.SourceHeuristicFallback {
		m.oracleFallbacks.Inc()
		atomic.AddUint64(&m.fallbackCount, 1)
	}
	for _, group := range conflicts {
		m.conflictsResolved.WithLabelValues(string(group.Type)).Inc()
	}
	if shortfall > 0 {
		m.shortfallSessions.Add(float64(shortfall))
	}
	m.scheduledSessions.Observe(float64(sessions))
	m.generationDuration.Observe(duration.Seconds())
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	ratio, _ := m.hitRatio()
	return MetricsSnapshot{
		CacheHitRatio:   ratio,
		ScheduleRuns:    atomic.LoadUint64(&m.runCount),
		OracleFallbacks: atomic.LoadUint64(&m.fallbackCount),
		Goroutines:      runtime.NumGoroutine(),
		GeneratedAt:     time.Now().UTC(),
	}
}

func (m *MetricsService) hitRatio() (float64, bool) {
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total == 0 {
		return 0, false
	}
	return float64(hits) / float64(total), true
}
