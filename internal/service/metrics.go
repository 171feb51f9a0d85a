package service

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce          sync.Once
	sessionsCreatedTotal *prometheus.CounterVec
	webhookEventsTotal   *prometheus.CounterVec
	transitionsTotal     *prometheus.CounterVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		sessionsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront_payments",
			Subsystem: "checkout",
			Name:      "sessions_created_total",
			Help:      "Total payment sessions requested from the processor",
		}, []string{"status"})

		webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront_payments",
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Total webhook notifications by processing outcome",
		}, []string{"outcome"})

		transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront_payments",
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Order status transition attempts by result",
		}, []string{"from", "to", "result"})
	})
}
