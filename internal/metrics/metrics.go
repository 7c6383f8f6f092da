package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_orders_total",
			Help: "Orders sent to the exchange by result status",
		},
		[]string{"symbol", "side", "type", "status"},
	)

	signals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_signals_total",
			Help: "Model signals per symbol",
		},
		[]string{"symbol", "signal"},
	)

	// 1 для текущего статуса позиции, 0 для остальных
	positionStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trader_position_status",
			Help: "Current position status per symbol",
		},
		[]string{"symbol", "status"},
	)

	reconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_stream_reconnects_total",
			Help: "Kline stream reconnects",
		},
		[]string{"symbol"},
	)

	sinkFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_record_sink_failures_total",
			Help: "Dropped record batches",
		},
		[]string{"table"},
	)

	iterations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_loop_iterations_total",
			Help: "Closed candles processed by the execution loop",
		},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(orders, signals, positionStatus, reconnects, sinkFailures, iterations)
}

func ObserveOrder(symbol, side, typ, status string) {
	orders.WithLabelValues(symbol, side, typ, status).Inc()
}

func ObserveSignal(symbol, signal string) {
	signals.WithLabelValues(symbol, signal).Inc()
}

func SetPositionStatus(symbol, current string, all ...string) {
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		positionStatus.WithLabelValues(symbol, s).Set(v)
	}
}

func ObserveReconnect(symbol string) { reconnects.WithLabelValues(symbol).Inc() }

func ObserveSinkFailure(table string) { sinkFailures.WithLabelValues(table).Inc() }

func ObserveIteration(symbol string) { iterations.WithLabelValues(symbol).Inc() }
