// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Replay metrics
	TicksProcessed  prometheus.Counter
	FramesRendered  prometheus.Counter
	FrameDuration   prometheus.Histogram
	CandleRebuilds  *prometheus.CounterVec
	RebuildDuration *prometheus.HistogramVec

	// Trading metrics
	OrdersFilled  *prometheus.CounterVec
	AutoExits     *prometheus.CounterVec
	RealizedPnl   prometheus.Gauge
	PositionSize  prometheus.Gauge
	RoundTripsSum prometheus.Counter

	// Transport metrics
	WSClients   prometheus.Gauge
	WSCommands  *prometheus.CounterVec
	WSDropped   prometheus.Counter
	HTTPLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "tick_replay"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Replay metrics
		TicksProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "ticks_processed_total",
			Help:      "Total number of ticks fed to the aggregator during playback and stepping",
		}),
		FramesRendered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "frames_total",
			Help:      "Total number of playback frames executed",
		}),
		FrameDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "frame_duration_seconds",
			Help:      "Playback frame processing time in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.004, 0.008, 0.016, 0.033, 0.1},
		}),
		CandleRebuilds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "candle_rebuilds_total",
			Help:      "Total number of full candle rebuilds by reason",
		}, []string{"reason"}),
		RebuildDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "candle_rebuild_duration_seconds",
			Help:      "Full candle rebuild duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"reason"}),

		// Trading metrics
		OrdersFilled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "orders_filled_total",
			Help:      "Total number of fills by side and action",
		}, []string{"side", "action"}),
		AutoExits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "auto_exits_total",
			Help:      "Total number of risk-triggered exits by reason",
		}, []string{"reason"}),
		RealizedPnl: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "realized_pnl",
			Help:      "Realized P&L of the session in account currency",
		}),
		PositionSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "position_size",
			Help:      "Signed open position size in contracts",
		}),
		RoundTripsSum: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "round_trips_total",
			Help:      "Total number of closed round trips",
		}),

		// Transport metrics
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Number of connected websocket clients",
		}),
		WSCommands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "commands_total",
			Help:      "Total number of client commands by name and status",
		}, []string{"command", "status"}),
		WSDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "dropped_clients_total",
			Help:      "Total number of clients dropped for a full send buffer",
		}),
		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordFrame records one playback frame.
func RecordFrame(ticks int, d time.Duration) {
	DefaultMetrics.FramesRendered.Inc()
	DefaultMetrics.TicksProcessed.Add(float64(ticks))
	DefaultMetrics.FrameDuration.Observe(d.Seconds())
}

// RecordStep records ticks processed outside of playback frames.
func RecordStep(ticks int) {
	DefaultMetrics.TicksProcessed.Add(float64(ticks))
}

// RecordRebuild records a full candle rebuild.
func RecordRebuild(reason string, d time.Duration) {
	DefaultMetrics.CandleRebuilds.WithLabelValues(reason).Inc()
	DefaultMetrics.RebuildDuration.WithLabelValues(reason).Observe(d.Seconds())
}

// RecordFill records an order fill.
func RecordFill(side, action string) {
	DefaultMetrics.OrdersFilled.WithLabelValues(side, action).Inc()
}

// RecordAutoExit records a stop loss or take profit exit.
func RecordAutoExit(reason string) {
	DefaultMetrics.AutoExits.WithLabelValues(reason).Inc()
}

// RecordRoundTrip increments the closed round trips counter.
func RecordRoundTrip() {
	DefaultMetrics.RoundTripsSum.Inc()
}

// UpdatePosition updates the position and P&L gauges.
func UpdatePosition(signedSize int, realizedPnl float64) {
	DefaultMetrics.PositionSize.Set(float64(signedSize))
	DefaultMetrics.RealizedPnl.Set(realizedPnl)
}

// UpdateWSClients sets the connected websocket client gauge.
func UpdateWSClients(n int) {
	DefaultMetrics.WSClients.Set(float64(n))
}

// RecordWSDropped counts a client dropped by the hub.
func RecordWSDropped() {
	DefaultMetrics.WSDropped.Inc()
}

// RecordCommand records a client command outcome.
func RecordCommand(command string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.WSCommands.WithLabelValues(command, status).Inc()
}

// RecordHTTPRequest records HTTP request latency.
func RecordHTTPRequest(route, status string, d time.Duration) {
	DefaultMetrics.HTTPLatency.WithLabelValues(route, status).Observe(d.Seconds())
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, d time.Duration, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(d.Seconds())
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
