package service

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gaurav5327/Edu-Sync-sub000/internal/models"
)

// MetricsSnapshot is a point-in-time summary of engine activity.
type MetricsSnapshot struct {
	Generations       uint64    `json:"generations"`
	ManualAccepted    uint64    `json:"manualAccepted"`
	ManualRejected    uint64    `json:"manualRejected"`
	CacheHits         uint64    `json:"cacheHits"`
	CacheMisses       uint64    `json:"cacheMisses"`
	CacheHitRatio     float64   `json:"cacheHitRatio"`
	AverageGenerateMs float64   `json:"averageGenerateMs"`
	Goroutines        int       `json:"goroutines"`
	GeneratedAt       time.Time `json:"generatedAt"`
}

// MetricsService owns the Prometheus collectors for the scheduling services.
type MetricsService struct {
	registry          *prometheus.Registry
	generateDuration  prometheus.Histogram
	unscheduled       prometheus.Counter
	conflictsDetected prometheus.Counter
	resolutions       *prometheus.CounterVec
	unresolved        prometheus.Counter
	manualEdits       *prometheus.CounterVec
	scenarioRuns      *prometheus.CounterVec
	cacheLatency      prometheus.Observer
	cacheWrite        prometheus.Observer
	cacheHitRatio     prometheus.Gauge
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter

	generateCount         uint64
	generateDurationTotal uint64
	manualAcceptedCount   uint64
	manualRejectedCount   uint64
	cacheHitCount         uint64
	cacheMissCount        uint64
}

// NewMetricsService registers the engine collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	generateDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_generate_duration_seconds",
		Help:    "Duration of timetable generation runs",
		Buckets: prometheus.DefBuckets,
	})
	unscheduled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_unscheduled_courses_total",
		Help: "Courses the generator could not place",
	})
	conflictsDetected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_conflicts_detected_total",
		Help: "Conflicts reported by detection",
	})
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_resolutions_total",
		Help: "Conflicts fixed by the resolver",
	}, []string{"kind"})
	unresolved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_unresolved_conflicts_total",
		Help: "Conflicts the resolver left in place",
	})
	manualEdits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_manual_edits_total",
		Help: "Manual change batches by outcome",
	}, []string{"outcome"})
	scenarioRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scenario_generations_total",
		Help: "Scenario generation runs by outcome",
	}, []string{"outcome"})
	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})
	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache writes",
		Buckets: prometheus.DefBuckets,
	})
	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})
	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})
	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})
	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(generateDuration, unscheduled, conflictsDetected, resolutions, unresolved,
		manualEdits, scenarioRuns, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:          registry,
		generateDuration:  generateDuration,
		unscheduled:       unscheduled,
		conflictsDetected: conflictsDetected,
		resolutions:       resolutions,
		unresolved:        unresolved,
		manualEdits:       manualEdits,
		scenarioRuns:      scenarioRuns,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHitRatio:     cacheHitRatio,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
	}
}

// Gatherer exposes the registry for pushing or scraping.
func (m *MetricsService) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// ObserveGeneration records one generation run.
func (m *MetricsService) ObserveGeneration(duration time.Duration, unscheduled int) {
	if m == nil {
		return
	}
	m.generateDuration.Observe(duration.Seconds())
	m.unscheduled.Add(float64(unscheduled))
	atomic.AddUint64(&m.generateCount, 1)
	atomic.AddUint64(&m.generateDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveConflicts records conflicts found by a detection pass.
func (m *MetricsService) ObserveConflicts(count int) {
	if m == nil {
		return
	}
	m.conflictsDetected.Add(float64(count))
}

// ObserveResolutions records a resolver pass.
func (m *MetricsService) ObserveResolutions(applied []models.AppliedResolution, unresolved int) {
	if m == nil {
		return
	}
	for _, res := range applied {
		if res.Change == nil {
			continue
		}
		m.resolutions.WithLabelValues(string(res.Change.Kind())).Inc()
	}
	m.unresolved.Add(float64(unresolved))
}

// ObserveManualEdit records whether a change batch was accepted.
func (m *MetricsService) ObserveManualEdit(accepted bool) {
	if m == nil {
		return
	}
	if accepted {
		m.manualEdits.WithLabelValues("accepted").Inc()
		atomic.AddUint64(&m.manualAcceptedCount, 1)
		return
	}
	m.manualEdits.WithLabelValues("rejected").Inc()
	atomic.AddUint64(&m.manualRejectedCount, 1)
}

// ObserveScenarioRun records a scenario generation outcome.
func (m *MetricsService) ObserveScenarioRun(outcome string) {
	if m == nil {
		return
	}
	m.scenarioRuns.WithLabelValues(outcome).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
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
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// Snapshot returns aggregated counters for operator output.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	runs := atomic.LoadUint64(&m.generateCount)
	total := atomic.LoadUint64(&m.generateDurationTotal)

	var ratio float64
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}
	var avgMs float64
	if runs > 0 {
		avgMs = float64(total) / float64(runs) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		Generations:       runs,
		ManualAccepted:    atomic.LoadUint64(&m.manualAcceptedCount),
		ManualRejected:    atomic.LoadUint64(&m.manualRejectedCount),
		CacheHits:         hits,
		CacheMisses:       misses,
		CacheHitRatio:     ratio,
		AverageGenerateMs: avgMs,
		Goroutines:        runtime.NumGoroutine(),
		GeneratedAt:       time.Now().UTC(),
	}
}
