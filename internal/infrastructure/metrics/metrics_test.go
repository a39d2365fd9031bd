package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.MessageSent()
	m.MessageSent()
	m.Dropped("message", 3)
	m.Dropped("message", 0)
	m.Notification("sent")
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.Limited("send_message")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MessagesSent))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RecordsDropped.WithLabelValues("message")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited.WithLabelValues("send_message")))

	count, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Positive(t, count)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.MessageSent()
		m.Dropped("message", 1)
		m.Notification("failed")
		m.SessionOpened()
		m.SessionClosed()
		m.TypingExpiredInc()
		m.Limited("typing")
		m.ClientConnected()
		m.ClientDisconnected()
	})
}
