package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riverfeed_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// FeedRequests counts resolved feed requests by feed kind and mode.
	FeedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riverfeed_feed_requests_total",
		Help: "Total number of feed resolutions by kind and home-feed mode",
	}, []string{"kind", "mode"})

	// FeedResolveLatency records timeline resolution latency by feed kind.
	FeedResolveLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "riverfeed_feed_resolve_latency_seconds",
		Help:    "Timeline resolution latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	// AccessDenials counts access-gate denials by reason.
	AccessDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riverfeed_access_denials_total",
		Help: "Total number of access-gate denials by reason",
	}, []string{"reason"})
)

// InitMetrics creates the Fiber Prometheus middleware for the service.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}
