package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	proxyRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_proxy_requests_total",
			Help: "Total number of upstream proxy requests by method.",
		},
		[]string{"method"},
	)

	rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_rate_limited_total",
		Help: "Total number of requests rejected by the rate limiter.",
	})

	loginsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_logins_total",
		Help: "Total number of successful portal logins.",
	})

	numberOrdersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_number_orders_total",
		Help: "Total number of successful number orders.",
	})

	liveClientsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "portal_live_ws_clients",
		Help: "Currently connected live-calls WebSocket clients.",
	})
)
