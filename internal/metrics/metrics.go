// Package metrics exposes the bridge's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Inbound update results used as the "result" label value.
const (
	ResultAdmitted  = "admitted"
	ResultDuplicate = "duplicate"
	ResultRejected  = "rejected"
	ResultMalformed = "malformed"
)

// Metrics holds every collector the bridge publishes. A private registry
// keeps the /metrics output free of collectors from linked-in libraries.
type Metrics struct {
	registry *prometheus.Registry

	InboundUpdates    *prometheus.CounterVec
	OutboundAttempts  prometheus.Counter
	OutboundDelivered prometheus.Counter
	OutboundFailed    prometheus.Counter
	OutboundRetries   prometheus.Counter
	Sessions          prometheus.Gauge
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		InboundUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tgbridge",
			Name:      "inbound_updates_total",
			Help:      "Inbound provider updates by admission result.",
		}, []string{"result"}),
		OutboundAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tgbridge",
			Name:      "outbound_attempts_total",
			Help:      "Outbound messages handed to a channel dispatcher.",
		}),
		OutboundDelivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tgbridge",
			Name:      "outbound_delivered_total",
			Help:      "Outbound messages fully accepted by the provider.",
		}),
		OutboundFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tgbridge",
			Name:      "outbound_failed_total",
			Help:      "Outbound messages that failed permanently.",
		}),
		OutboundRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tgbridge",
			Name:      "outbound_retries_total",
			Help:      "Scheduled delivery retries.",
		}),
		Sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "tgbridge",
			Name:      "sessions",
			Help:      "Conversations with recent activity.",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
