package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records store operations, remote read fallbacks, logins and HTTP responses
type Collector struct {
	operations   *prometheus.CounterVec
	opLatency    *prometheus.HistogramVec
	projects     prometheus.Gauge
	readFallback prometheus.Counter
	logins       *prometheus.CounterVec
	httpStatus   *prometheus.CounterVec
	remote       prometheus.Gauge
}

// NewCollector builds a Collector and registers its metrics with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_store_operations_total",
			Help: "Project store operations by operation and outcome",
		}, []string{"operation", "outcome"}),
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studio_store_operation_seconds",
			Help:    "Project store operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		projects: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "studio_projects",
			Help: "Projects currently held by the store",
		}),
		readFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studio_remote_read_fallback_total",
			Help: "Remote reads that fell back to local storage",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_logins_total",
			Help: "Admin login attempts by result",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_http_responses_total",
			Help: "HTTP responses by status code",
		}, []string{"status_code"}),
		remote: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "studio_remote_backend",
			Help: "1 when the remote database backend is selected, 0 for local storage",
		}),
	}

	reg.MustRegister(
		c.operations,
		c.opLatency,
		c.projects,
		c.readFallback,
		c.logins,
		c.httpStatus,
		c.remote,
	)

	return c
}

// ObserveOperation counts a store operation and, unless it was rejected before running, its latency
func (c *Collector) ObserveOperation(op, outcome string, elapsed time.Duration) {
	c.operations.WithLabelValues(op, outcome).Inc()
	if elapsed > 0 {
		c.opLatency.WithLabelValues(op).Observe(elapsed.Seconds())
	}
}

func (c *Collector) SetProjectCount(n int) {
	c.projects.Set(float64(n))
}

// RecordReadFallback has the signature of a persistence fallback hook
func (c *Collector) RecordReadFallback(error) {
	c.readFallback.Inc()
}

func (c *Collector) RecordLogin(ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	c.logins.WithLabelValues(result).Inc()
}

func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func (c *Collector) SetRemote(remote bool) {
	if remote {
		c.remote.Set(1)
		return
	}
	c.remote.Set(0)
}

// Handler serves the scrape endpoint for gatherer
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
