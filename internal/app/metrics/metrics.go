package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "quest4deals",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quest4deals",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "quest4deals",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	priceChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quest4deals",
			Subsystem: "pricing",
			Name:      "changes_total",
			Help:      "Total number of recorded price changes.",
		},
		[]string{"platform"},
	)

	notificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quest4deals",
			Subsystem: "notify",
			Name:      "alerts_sent_total",
			Help:      "Total number of price alerts dispatched.",
		},
		[]string{"platform"},
	)

	upstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quest4deals",
			Subsystem: "nexarda",
			Name:      "requests_total",
			Help:      "Total number of aggregator lookups.",
		},
		[]string{"endpoint", "success"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		priceChanges,
		notificationsSent,
		upstreamRequests,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordPriceChange counts one recorded price change.
func RecordPriceChange(platform string) {
	if platform == "" {
		platform = "unknown"
	}
	priceChanges.WithLabelValues(platform).Inc()
}

// RecordNotifications counts dispatched price alerts.
func RecordNotifications(platform string, n int) {
	if n <= 0 {
		return
	}
	if platform == "" {
		platform = "unknown"
	}
	notificationsSent.WithLabelValues(platform).Add(float64(n))
}

// RecordUpstreamRequest counts one aggregator lookup.
func RecordUpstreamRequest(endpoint string, success bool) {
	result := "false"
	if success {
		result = "true"
	}
	upstreamRequests.WithLabelValues(endpoint, result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "games":
		if len(parts) == 1 {
			return "/games"
		}
		return "/games/:id"
	case "price-history":
		if len(parts) <= 1 {
			return "/price-history"
		}
		if len(parts) >= 3 {
			return "/price-history/:id/" + parts[2]
		}
		return "/price-history/:id"
	case "watchlist":
		if len(parts) == 1 {
			return "/watchlist"
		}
		return "/watchlist/:id"
	case "nexarda":
		if len(parts) >= 2 {
			return "/nexarda/" + parts[1]
		}
		return "/nexarda"
	case "auth":
		if len(parts) >= 2 {
			return "/auth/" + parts[1]
		}
		return "/auth"
	default:
		return "/" + parts[0]
	}
}
