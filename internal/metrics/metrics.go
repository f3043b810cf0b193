package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chat"

// Push outcomes.
const (
	PushDelivered = "delivered"
	PushDropped   = "dropped"
	PushOffline   = "offline"
)

type Metrics struct {
	registry *prometheus.Registry

	Sessions     *prometheus.GaugeVec
	Evictions    *prometheus.CounterVec
	Pushes       *prometheus.CounterVec
	MessagesSent prometheus.Counter
	ChatsCreated prometheus.Counter
	PendingSize  prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Sessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Live realtime sessions per channel.",
		}, []string{"channel"}),
		Evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_evictions_total",
			Help:      "Sessions removed by replacement or idle timeout.",
		}, []string{"reason"}),
		Pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pushes_total",
			Help:      "Realtime push attempts by event and outcome.",
		}, []string{"event", "outcome"}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Messages persisted by the send pipeline.",
		}),
		ChatsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chats_created_total",
			Help:      "Chats created on first resolution of a pair.",
		}),
		PendingSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_entries",
			Help:      "Message summaries held in the pending-notification buffer.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Sessions,
		m.Evictions,
		m.Pushes,
		m.MessagesSent,
		m.ChatsCreated,
		m.PendingSize,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObservePush(event, outcome string) {
	if m == nil {
		return
	}
	m.Pushes.WithLabelValues(event, outcome).Inc()
}

func (m *Metrics) SetSessions(channel string, n int) {
	if m == nil {
		return
	}
	m.Sessions.WithLabelValues(channel).Set(float64(n))
}

func (m *Metrics) ObserveEviction(reason string) {
	if m == nil {
		return
	}
	m.Evictions.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveMessageSent() {
	if m == nil {
		return
	}
	m.MessagesSent.Inc()
}

func (m *Metrics) ObserveChatCreated() {
	if m == nil {
		return
	}
	m.ChatsCreated.Inc()
}

func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.PendingSize.Set(float64(n))
}
