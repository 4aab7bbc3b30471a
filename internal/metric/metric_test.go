package metric

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supby/zbridge/internal/logger"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.MessageReceived()
	m.MessageReceived()
	m.MessageDropped(DropUnknownDevice)
	m.CommandPublished("genOnOff", nil)
	m.CommandPublished("genOnOff", errors.New("timeout"))
	m.CommandPublished("genOnOff", nil)
	m.Event("join")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.received))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.dropped.WithLabelValues(DropUnknownDevice)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.published.WithLabelValues("genOnOff", StatusOK)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.published.WithLabelValues("genOnOff", StatusError)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.events.WithLabelValues("join")))

	_, err = New(reg)
	assert.Error(t, err)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.MessageReceived()
		m.MessageDropped(DropNoCommand)
		m.CommandPublished("genOnOff", nil)
		m.Event("leave")
	})
}

func TestServerHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	m.MessageReceived()

	s := NewServer(":0", "/metrics", reg, logger.NewLogger(io.Discard, "[metrics]", logger.LogLevelInfo))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "zbridge_mqtt_device_messages_total 1"))

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "OK", rec.Body.String())
}
