package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are registered on their own registry so tests can build many servers.
type Metrics struct {
	Registry *prometheus.Registry

	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttled prometheus.Counter
}

// SessionCounter reports total and live sessions.
type SessionCounter interface {
	Stats() (total, live int)
}

func NewMetrics(sessions SessionCounter) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livecast",
			Subsystem: "store",
			Name:      "requests_total",
			Help:      "Store API requests by route and status.",
		}, []string{"route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "livecast",
			Subsystem: "store",
			Name:      "request_duration_seconds",
			Help:      "Store API latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livecast",
			Subsystem: "store",
			Name:      "joins_throttled_total",
			Help:      "Join attempts rejected by the rate limiter.",
		}),
	}
	m.Registry.MustRegister(m.requests, m.latency, m.throttled)
	if sessions != nil {
		m.Registry.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: "livecast",
				Subsystem: "store",
				Name:      "sessions",
				Help:      "Sessions held by the store.",
			}, func() float64 {
				total, _ := sessions.Stats()
				return float64(total)
			}),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: "livecast",
				Subsystem: "store",
				Name:      "sessions_live",
				Help:      "Sessions that are neither finished nor expired.",
			}, func() float64 {
				_, live := sessions.Stats()
				return float64(live)
			}),
		)
	}
	return m
}

func (m *Metrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
