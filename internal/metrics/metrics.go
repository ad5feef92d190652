// Package metrics holds the portal's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "claims_portal"

var (
	// Registry holds the portal's collectors. The default registry is not used.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	claimsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_created_total",
			Help:      "Claims added to a session store, by origin.",
		},
		[]string{"source"},
	)

	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claim_status_transitions_total",
			Help:      "Status history entries appended, by new status.",
		},
		[]string{"status"},
	)

	sideCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_calls_total",
			Help:      "Fire-and-forget calls to external services, by outcome.",
		},
		[]string{"name", "result"},
	)

	sideCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "side_call_duration_seconds",
			Help:      "Duration of fire-and-forget calls.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"name"},
	)

	assistantRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assistant",
			Name:      "requests_total",
			Help:      "Assistant requests, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		claimsCreated,
		statusTransitions,
		sideCalls,
		sideCallDuration,
		assistantRequests,
		activeSessions,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency keyed by the matched gin route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if route == "/metrics" {
			return
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ClaimCreated counts a claim added locally ("local") or from the backend ("external").
func ClaimCreated(source string) {
	claimsCreated.WithLabelValues(source).Inc()
}

func StatusTransition(status string) {
	statusTransitions.WithLabelValues(status).Inc()
}

// SideCall records the outcome of a dispatched job.
func SideCall(name string, err error, duration time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	sideCalls.WithLabelValues(name, result).Inc()
	sideCallDuration.WithLabelValues(name).Observe(duration.Seconds())
}

// AssistantRequest counts an analysis or chat request. Outcome is one of
// "generated", "fallback", "disabled" or "error".
func AssistantRequest(kind, outcome string) {
	assistantRequests.WithLabelValues(kind, outcome).Inc()
}

func SessionOpened() { activeSessions.Inc() }

func SessionClosed() { activeSessions.Dec() }
