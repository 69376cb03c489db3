package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "endpoint"},
	)

	// OrdersTotal counts orders entering each status.
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_total",
			Help: "Total number of orders by status reached",
		},
		[]string{"status"},
	)

	StockAdjustments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_adjustments_total",
			Help: "Units moved through the inventory ledger",
		},
		[]string{"direction"},
	)

	// CircuitBreakerState is 0 closed, 1 open, 2 half-open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"service", "circuit_name"},
	)

	CircuitBreakerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of circuit breaker failures",
		},
		[]string{"service", "circuit_name"},
	)

	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_events_consumed_total",
			Help: "Order events read from kafka by type",
		},
		[]string{"event"},
	)
)

// RecordStockAdjustment records delta units in or out of inventory.
func RecordStockAdjustment(delta int) {
	switch {
	case delta < 0:
		StockAdjustments.WithLabelValues("out").Add(float64(-delta))
	case delta > 0:
		StockAdjustments.WithLabelValues("in").Add(float64(delta))
	}
}

// Middleware records request counts and latency per route.
func Middleware(service string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			endpoint := c.Path()
			if endpoint == "" {
				endpoint = "unmatched"
			}

			RequestsTotal.WithLabelValues(service, c.Request().Method, endpoint, strconv.Itoa(status)).Inc()
			RequestDuration.WithLabelValues(service, c.Request().Method, endpoint).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
