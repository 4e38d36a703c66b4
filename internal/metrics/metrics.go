// Package metrics implements the observability hooks with Prometheus
// collectors and serves them in the text exposition format.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/eqgraph/pkg/observability"
)

const namespace = "eqgraph"

// Metrics holds the collectors and the registry they are registered with.
// It implements observability.PipelineHooks, CacheHooks and ServerHooks.
type Metrics struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	graphNodes    prometheus.Histogram
	classes       prometheus.Histogram
	cacheEvents   *prometheus.CounterVec
	cacheBytes    prometheus.Counter
	requests      *prometheus.CounterVec
	reqDuration   *prometheus.HistogramVec
}

var (
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.ServerHooks   = (*Metrics)(nil)
)

// New creates the collectors on a fresh registry, including the Go runtime
// and process collectors.
func New() *Metrics {
	sizes := prometheus.ExponentialBuckets(1, 4, 10)
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		stageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_errors_total",
			Help:      "Failed pipeline stages.",
		}, []string{"stage"}),
		graphNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Nodes per loaded graph.",
			Buckets:   sizes,
		}),
		classes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "equivalence_classes",
			Help:      "Equivalence classes per reduction.",
			Buckets:   sizes,
		}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_events_total",
			Help:      "Cache lookups and writes by result.",
		}, []string{"kind", "result"}),
		cacheBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.stageDuration, m.stageErrors, m.graphNodes, m.classes,
		m.cacheEvents, m.cacheBytes, m.requests, m.reqDuration,
	)
	return m
}

// Install registers m as the process-wide observability hooks.
func (m *Metrics) Install() {
	observability.SetPipelineHooks(m)
	observability.SetCacheHooks(m)
	observability.SetServerHooks(m)
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) OnLoadStart(context.Context, string) {}

func (m *Metrics) OnLoadComplete(_ context.Context, _ string, nodes, _ int, d time.Duration, err error) {
	m.stage("load", d, err)
	if err == nil {
		m.graphNodes.Observe(float64(nodes))
	}
}

func (m *Metrics) OnReduceStart(context.Context, int) {}

func (m *Metrics) OnReduceComplete(_ context.Context, classes int, d time.Duration, err error) {
	m.stage("reduce", d, err)
	if err == nil {
		m.classes.Observe(float64(classes))
	}
}

func (m *Metrics) stage(name string, d time.Duration, err error) {
	m.stageDuration.WithLabelValues(name).Observe(d.Seconds())
	if err != nil {
		m.stageErrors.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) OnCacheHit(_ context.Context, kind string) {
	m.cacheEvents.WithLabelValues(kind, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, kind string) {
	m.cacheEvents.WithLabelValues(kind, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, kind string, size int) {
	m.cacheEvents.WithLabelValues(kind, "set").Inc()
	m.cacheBytes.Add(float64(size))
}

func (m *Metrics) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.reqDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
