// Package metrics exposes the Prometheus counters updated by the scan cycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "flowscan_cycles_total", Help: "Scan cycles completed"},
	)
	QuotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "flowscan_option_quotes_total", Help: "Option quotes evaluated"},
		[]string{"ticker"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "flowscan_signals_total", Help: "Unusual-activity signals persisted"},
		[]string{"strength"},
	)
	FetchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "flowscan_fetch_errors_total", Help: "Market-data fetch failures"},
		[]string{"ticker"},
	)
	NotifyFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "flowscan_notify_failures_total", Help: "Notification delivery failures"},
	)
	TradesOpenedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "flowscan_paper_trades_opened_total", Help: "Paper trades opened"},
	)
	TradesClosedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "flowscan_paper_trades_closed_total", Help: "Paper trades closed"},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		CyclesTotal, QuotesTotal, SignalsTotal, FetchErrorsTotal,
		NotifyFailuresTotal, TradesOpenedTotal, TradesClosedTotal,
	)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
