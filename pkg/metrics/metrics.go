package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wingyshop_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wingyshop_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	TransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wingyshop_transactions_total",
			Help: "Purchase transactions by lifecycle outcome",
		},
		[]string{"outcome"},
	)

	GatewayCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wingyshop_gateway_calls_total",
			Help: "Calls to the Wingy Coin ledger by operation and result",
		},
		[]string{"operation", "result"},
	)

	ProductsModeratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wingyshop_products_moderated_total",
			Help: "Moderation decisions by resulting status",
		},
		[]string{"status"},
	)
)

// Transaction outcomes.
const (
	OutcomeCreated          = "created"
	OutcomeConfirmed        = "confirmed"
	OutcomeCompleted        = "completed"
	OutcomeSettled          = "settled"
	OutcomeSettlementFailed = "settlement_failed"
)

func RecordTransaction(outcome string) {
	TransactionsTotal.WithLabelValues(outcome).Inc()
}

func RecordGatewayCall(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	GatewayCallsTotal.WithLabelValues(operation, result).Inc()
}

func RecordModeration(status string) {
	ProductsModeratedTotal.WithLabelValues(status).Inc()
}

// Middleware records request counts and latency per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		HttpRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		HttpRequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler exposes the default registry.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
