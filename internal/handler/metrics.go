package handler

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// ProofsTotal counts value proofs created, labelled by contribution kind.
	ProofsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "azora_mint_proofs_total",
			Help: "Total number of value proofs created",
		},
		[]string{"kind"},
	)

	// GuardActionsTotal counts anti-gaming evaluations by resulting action.
	GuardActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "azora_mint_guard_actions_total",
			Help: "Total anti-gaming evaluations by action",
		},
		[]string{"action"},
	)

	// SettlementsTotal counts settlement attempts by settler and outcome.
	SettlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "azora_mint_settlements_total",
			Help: "Total settlement attempts by settler and status",
		},
		[]string{"settler", "status"},
	)

	// RewardsSettledTotal accumulates settled reward tokens.
	RewardsSettledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "azora_mint_rewards_settled_total",
			Help: "Total reward tokens settled on the ledger",
		},
	)

	// RequestDuration observes HTTP request latency per route and status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "azora_mint_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsInFlight tracks concurrent in-flight HTTP requests.
	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "azora_mint_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// CacheHits and CacheMisses track stats-cache effectiveness.
	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "azora_mint_cache_hits_total",
			Help: "Total stats cache hits",
		},
	)
	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "azora_mint_cache_misses_total",
			Help: "Total stats cache misses",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ProofsTotal,
		GuardActionsTotal,
		SettlementsTotal,
		RewardsSettledTotal,
		RequestDuration,
		RequestsInFlight,
		CacheHits,
		CacheMisses,
	)
}

// MetricsMiddleware records request duration and in-flight gauges for every
// request.
func MetricsMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		RequestsInFlight.Inc()
		defer RequestsInFlight.Dec()

		err := c.Next()

		RequestDuration.WithLabelValues(
			c.Method(),
			c.Route().Path,
			strconv.Itoa(c.Response().StatusCode()),
		).Observe(time.Since(start).Seconds())

		return err
	}
}

// MetricsHandler exposes the Prometheus registry via the fasthttp adaptor.
func MetricsHandler() fiber.Handler {
	h := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c fiber.Ctx) error {
		h(c.RequestCtx())
		return nil
	}
}
