package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the chat collectors. A nil *Metrics is valid and records
// nothing, so components can be built without a registry in tests.
type Metrics struct {
	MessagesSent     prometheus.Counter
	RecordsDropped   *prometheus.CounterVec
	Notifications    *prometheus.CounterVec
	ActiveSessions   prometheus.Gauge
	TypingExpired    prometheus.Counter
	RateLimited      *prometheus.CounterVec
	WebsocketClients prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "messages_sent_total",
			Help:      "Messages appended by local sessions.",
		}),
		RecordsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "records_dropped_total",
			Help:      "Malformed records skipped while materializing.",
		}, []string{"kind"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "notifications_total",
			Help:      "Push notification attempts by result.",
		}, []string{"result"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chat",
			Name:      "sessions_active",
			Help:      "Chat sessions currently subscribed.",
		}),
		TypingExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "typing_expired_total",
			Help:      "Typing flags cleared by the expiry timer.",
		}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-user limiter.",
		}, []string{"action"}),
		WebsocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chat",
			Name:      "websocket_clients",
			Help:      "Connected websocket clients.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.MessagesSent,
			m.RecordsDropped,
			m.Notifications,
			m.ActiveSessions,
			m.TypingExpired,
			m.RateLimited,
			m.WebsocketClients,
		)
	}
	return m
}

func (m *Metrics) MessageSent() {
	if m != nil {
		m.MessagesSent.Inc()
	}
}

func (m *Metrics) Dropped(kind string, n int) {
	if m != nil && n > 0 {
		m.RecordsDropped.WithLabelValues(kind).Add(float64(n))
	}
}

func (m *Metrics) Notification(result string) {
	if m != nil {
		m.Notifications.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) SessionOpened() {
	if m != nil {
		m.ActiveSessions.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.ActiveSessions.Dec()
	}
}

func (m *Metrics) TypingExpiredInc() {
	if m != nil {
		m.TypingExpired.Inc()
	}
}

func (m *Metrics) Limited(action string) {
	if m != nil {
		m.RateLimited.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) ClientConnected() {
	if m != nil {
		m.WebsocketClients.Inc()
	}
}

func (m *Metrics) ClientDisconnected() {
	if m != nil {
		m.WebsocketClients.Dec()
	}
}
