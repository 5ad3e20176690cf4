package observ

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "allocator"

// registry lazily creates one prometheus vector per metric name. The label
// names of the first call fix the vector's schema; later calls with a
// different label set are dropped and logged.
type registry struct {
	mu       sync.Mutex
	prom     *prometheus.Registry
	counters map[string]*prometheus.CounterVec
	gauges   map[string]*prometheus.GaugeVec
	hist     map[string]*prometheus.HistogramVec
	totals   map[string]float64 // counter name -> sum over all labels
}

var reg = newRegistry()

func newRegistry() *registry {
	return &registry{
		prom:     prometheus.NewRegistry(),
		counters: map[string]*prometheus.CounterVec{},
		gauges:   map[string]*prometheus.GaugeVec{},
		hist:     map[string]*prometheus.HistogramVec{},
		totals:   map[string]float64{},
	}
}

// Reset drops every metric. Tests use it to isolate counters.
func Reset() {
	fresh := newRegistry()
	reg.mu.Lock()
	reg.prom, reg.counters, reg.gauges, reg.hist, reg.totals = fresh.prom, fresh.counters, fresh.gauges, fresh.hist, fresh.totals
	reg.mu.Unlock()
}

func labelNames(lbl map[string]string) []string {
	keys := make([]string, 0, len(lbl))
	for k := range lbl {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func metricName(name string) string {
	return namespace + "_" + strings.ReplaceAll(name, ".", "_")
}

func (r *registry) register(name string, c prometheus.Collector) bool {
	if err := r.prom.Register(c); err != nil {
		l := Logger()
		l.Warn().Err(err).Str("metric", name).Msg("metric registration failed")
		return false
	}
	return true
}

func IncCounter(name string, labels map[string]string) {
	IncCounterBy(name, labels, 1.0)
}

func IncCounterBy(name string, labels map[string]string, value float64) {
	if value < 0 {
		return
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	v, ok := reg.counters[name]
	if !ok {
		v = prometheus.NewCounterVec(prometheus.CounterOpts{Name: metricName(name), Help: name}, labelNames(labels))
		if !reg.register(name, v) {
			return
		}
		reg.counters[name] = v
	}
	c, err := v.GetMetricWith(labels)
	if err != nil {
		l := Logger()
		l.Warn().Err(err).Str("metric", name).Msg("counter labels mismatch")
		return
	}
	c.Add(value)
	reg.totals[name] += value
}

func SetGauge(name string, value float64, labels map[string]string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	v, ok := reg.gauges[name]
	if !ok {
		v = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: metricName(name), Help: name}, labelNames(labels))
		if !reg.register(name, v) {
			return
		}
		reg.gauges[name] = v
	}
	g, err := v.GetMetricWith(labels)
	if err != nil {
		l := Logger()
		l.Warn().Err(err).Str("metric", name).Msg("gauge labels mismatch")
		return
	}
	g.Set(value)
}

func Observe(name string, value float64, labels map[string]string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	v, ok := reg.hist[name]
	if !ok {
		v = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricName(name),
			Help:    name,
			Buckets: prometheus.DefBuckets,
		}, labelNames(labels))
		if !reg.register(name, v) {
			return
		}
		reg.hist[name] = v
	}
	o, err := v.GetMetricWith(labels)
	if err != nil {
		l := Logger()
		l.Warn().Err(err).Str("metric", name).Msg("histogram labels mismatch")
		return
	}
	o.Observe(value)
}

// RecordDuration records a duration in seconds
func RecordDuration(name string, duration time.Duration, labels map[string]string) {
	Observe(name+"_seconds", duration.Seconds(), labels)
}

// CounterTotal returns the sum of a counter across all label values.
func CounterTotal(name string) float64 {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.totals[name]
}

// Handler serves the registry in the prometheus exposition format.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reg.mu.Lock()
		g := reg.prom
		reg.mu.Unlock()
		promhttp.HandlerFor(g, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

// HealthStatus is the body of the health endpoint
type HealthStatus struct {
	Status    string         `json:"status"` // "healthy" or "degraded"
	Timestamp string         `json:"timestamp"`
	Uptime    string         `json:"uptime"`
	Version   string         `json:"version"`
	Details   map[string]any `json:"details"`
}

var (
	startTime = time.Now()
	version   = "dev" // Set via build flags
)

// SetVersion sets the version string for health reports
func SetVersion(v string) {
	version = v
}

// Health reports degraded once any audit record failed to persist.
func Health() HealthStatus {
	failures := CounterTotal("persistence_failures_total")
	status := "healthy"
	if failures > 0 {
		status = "degraded"
	}
	return HealthStatus{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(startTime).String(),
		Version:   version,
		Details: map[string]any{
			"persistence_failures": failures,
			"orders_recorded":      CounterTotal("orders_total"),
			"bars_processed":       CounterTotal("bars_total"),
		},
	}
}
