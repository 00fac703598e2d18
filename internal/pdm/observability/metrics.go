// Package observability holds the Prometheus metrics of the PDM service.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "nimo_pdm"

// Metrics PDM 服务指标
type Metrics struct {
	registry *prometheus.Registry

	// RequestsTotal labels: method, route, status
	RequestsTotal *prometheus.CounterVec
	// RequestDuration labels: method, route
	RequestDuration *prometheus.HistogramVec
	// DocumentsUploaded labels: doc_type
	DocumentsUploaded *prometheus.CounterVec
	DocumentBytes     prometheus.Counter
	TreeBuildSeconds  prometheus.Histogram
	TreeNodes         prometheus.Histogram
	SSEClients        prometheus.Gauge
}

// NewMetrics registers all metrics on a fresh registry, together with the Go
// and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		DocumentsUploaded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "documents",
			Name:      "uploaded_total",
			Help:      "Uploaded documents by type.",
		}, []string{"doc_type"}),
		DocumentBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "documents",
			Name:      "uploaded_bytes_total",
			Help:      "Bytes written to object storage.",
		}),
		TreeBuildSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "tree",
			Name:      "build_duration_seconds",
			Help:      "Time spent loading and building a project tree.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		TreeNodes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "tree",
			Name:      "nodes",
			Help:      "Number of nodes per built tree.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		SSEClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "sse",
			Name:      "clients",
			Help:      "Connected SSE clients.",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// GinMiddleware 记录请求数和耗时，route 使用路由模板避免高基数
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveTree records one tree build.
func (m *Metrics) ObserveTree(d time.Duration, nodes int) {
	if m == nil {
		return
	}
	m.TreeBuildSeconds.Observe(d.Seconds())
	m.TreeNodes.Observe(float64(nodes))
}

// ObserveUpload records one stored document.
func (m *Metrics) ObserveUpload(docType string, size int64) {
	if m == nil {
		return
	}
	m.DocumentsUploaded.WithLabelValues(docType).Inc()
	m.DocumentBytes.Add(float64(size))
}
