package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"agourmet/ms_dte_bridge/internal/core/dte"
)

const (
	namespace = "dte_bridge"
	subsystem = "emission"
)

// EmissionMetrics counts document emissions and incoming webhooks.
type EmissionMetrics struct {
	Emissions *prometheus.CounterVec
	Webhooks  *prometheus.CounterVec
}

// NewEmissionMetrics registers the emission metrics on reg. A nil reg
// uses the default registerer.
func NewEmissionMetrics(reg prometheus.Registerer) *EmissionMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &EmissionMetrics{
		Emissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "documents_total",
				Help:      "Emission requests by document kind and outcome.",
			},
			[]string{"kind", "outcome"}, // outcome: emitted, already_emitted, skipped_*, failed
		),
		Webhooks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhooks_total",
				Help:      "Shopify webhooks received by topic and verification result.",
			},
			[]string{"topic", "result"}, // result: accepted, rejected
		),
	}
}

// ObserveEmission counts one emission outcome.
func (m *EmissionMetrics) ObserveEmission(kind dte.Kind, outcome string) {
	m.Emissions.WithLabelValues(kind.Code(), outcome).Inc()
}

// ObserveWebhook counts one received webhook.
func (m *EmissionMetrics) ObserveWebhook(topic string, accepted bool) {
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	m.Webhooks.WithLabelValues(topic, result).Inc()
}
