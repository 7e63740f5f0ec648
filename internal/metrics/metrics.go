package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Webhook delivery results.
const (
	ResultStored     = "stored"
	ResultIgnored    = "ignored"
	ResultDuplicate  = "duplicate"
	ResultRejected   = "rejected"
	ResultBadPayload = "bad_payload"
	ResultNoAccount  = "no_account"
	ResultError      = "error"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	webhookDeliveries *prometheus.CounterVec
	callsStored       *prometheus.CounterVec
	confidence        prometheus.Histogram
	notifications     *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, plus Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		webhookDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callrecovery_webhook_deliveries_total",
				Help: "Vapi webhook deliveries by event type and result",
			},
			[]string{"event", "result"},
		),
		callsStored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callrecovery_calls_stored_total",
				Help: "Call records written, by intent and outcome",
			},
			[]string{"intent", "outcome"},
		),
		confidence: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "callrecovery_call_confidence",
				Help:    "Extraction confidence of stored call records",
				Buckets: []float64{0, 0.3, 0.5, 0.6, 0.8, 1},
			},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callrecovery_notifications_total",
				Help: "Owner notifications by channel and result",
			},
			[]string{"channel", "result"},
		),
	}
	reg.MustRegister(
		m.webhookDeliveries,
		m.callsStored,
		m.confidence,
		m.notifications,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) WebhookDelivery(event, result string) {
	if m == nil {
		return
	}
	if event == "" {
		event = "unknown"
	}
	m.webhookDeliveries.WithLabelValues(event, result).Inc()
}

func (m *Metrics) CallStored(intent, outcome string, confidence float64) {
	if m == nil {
		return
	}
	m.callsStored.WithLabelValues(intent, outcome).Inc()
	m.confidence.Observe(confidence)
}

func (m *Metrics) Notification(channel, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
