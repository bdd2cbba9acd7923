// Package metrics provides Prometheus instrumentation for the NAV engine.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mnavtrack/nav-engine/internal/model"
)

var (
	// TotalNAV is the latest treasury net asset value in USD.
	TotalNAV = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mnav_total_nav_usd",
		Help: "Latest total net asset value in USD",
	})

	NAVPerShare = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mnav_nav_per_share_usd",
		Help: "Latest NAV per share in USD",
	})

	// Multiple is the latest mNAV multiple, partitioned by variant
	// ("total" or "ex_cash").
	Multiple = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mnav_multiple",
		Help: "Latest market cap to NAV multiple",
	}, []string{"variant"})

	// AssetPrice is the last price used in a valuation, by asset.
	AssetPrice = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mnav_asset_price_usd",
		Help: "Last live price used for valuation",
	}, []string{"asset"})

	// RefreshesTotal counts refresh cycles by outcome status.
	RefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mnav_refreshes_total",
		Help: "Total refresh cycles by status",
	}, []string{"status"})

	// RefreshDuration tracks how long a full fetch + compute cycle takes.
	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mnav_refresh_duration_seconds",
		Help:    "Refresh cycle duration in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	// FeedErrorsTotal counts price fetch failures by symbol.
	FeedErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mnav_feed_errors_total",
		Help: "Price feed failures by symbol",
	}, []string{"symbol"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mnav_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mnav_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mnav_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// ObserveValuation publishes the gauges of one successful valuation.
func ObserveValuation(prices model.MarketPrices, m model.Metrics) {
	TotalNAV.Set(m.TotalNAV)
	NAVPerShare.Set(m.NAVPerShare)
	Multiple.WithLabelValues("total").Set(m.MNAVMultiple)
	Multiple.WithLabelValues("ex_cash").Set(m.MNAVMultipleExCash)
	AssetPrice.WithLabelValues("equity").Set(prices.EquityPrice)
	AssetPrice.WithLabelValues("eth").Set(prices.ETHPrice)
	AssetPrice.WithLabelValues("btc").Set(prices.BTCPrice)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: underlying ResponseWriter is not a Hijacker")
	}
	return h.Hijack()
}
