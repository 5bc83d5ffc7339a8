package exchange

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exchange_orders_created_total",
		Help: "Total number of limit orders created",
	})

	fillsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exchange_fills_total",
		Help: "Total number of fill attempts by outcome",
	}, []string{"status"})

	settlementDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "exchange_settlement_duration_seconds",
		Help:    "Duration of the settlement transaction",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})
)
