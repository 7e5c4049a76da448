// Package metrics содержит Prometheus-коллекторы витрины.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics коллекторы API и обращений к контракту.
type Metrics struct {
	// ContractCalls вызовы методов контракта по статусу (ok, error, no_wallet).
	ContractCalls *prometheus.CounterVec
	// HTTPRequests запросы к API по маршруту и коду ответа.
	HTTPRequests *prometheus.CounterVec
	// HTTPDuration время обработки запросов.
	HTTPDuration *prometheus.HistogramVec
}

// New создает коллекторы и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ContractCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cryptourist",
			Subsystem: "contract",
			Name:      "calls",
		}, []string{"method", "status"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cryptourist",
			Subsystem: "http",
			Name:      "requests",
		}, []string{"route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cryptourist",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	reg.MustRegister(m.ContractCalls, m.HTTPRequests, m.HTTPDuration)
	return m
}
