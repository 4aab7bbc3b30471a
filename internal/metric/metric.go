package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Drop reasons for messages that produced no command.
const (
	DropMalformedPayload = "malformed_payload"
	DropUnknownDevice    = "unknown_device"
	DropUnsupportedModel = "unsupported_model"
	DropNoCommand        = "no_command"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics counts device messages through the bridge. A nil *Metrics records nothing.
type Metrics struct {
	received  prometheus.Counter
	dropped   *prometheus.CounterVec // by reason
	published *prometheus.CounterVec // by cluster and status
	events    *prometheus.CounterVec // by zigbee event type
}

func New(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "zbridge",
			Subsystem: "mqtt",
			Name:      "device_messages_total",
			Help:      "Device set/get messages received over MQTT",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zbridge",
			Subsystem: "mqtt",
			Name:      "device_messages_dropped_total",
			Help:      "Device messages that produced no zigbee command",
		}, []string{"reason"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zbridge",
			Subsystem: "zigbee",
			Name:      "commands_published_total",
			Help:      "Commands handed to the zigbee network",
		}, []string{"cluster", "status"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zbridge",
			Subsystem: "zigbee",
			Name:      "events_total",
			Help:      "Events read from the coordinator",
		}, []string{"type"}),
	}

	for _, c := range []prometheus.Collector{m.received, m.dropped, m.published, m.events} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) MessageReceived() {
	if m == nil {
		return
	}

	m.received.Inc()
}

func (m *Metrics) MessageDropped(reason string) {
	if m == nil {
		return
	}

	m.dropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) CommandPublished(cluster string, err error) {
	if m == nil {
		return
	}

	status := StatusOK
	if err != nil {
		status = StatusError
	}

	m.published.WithLabelValues(cluster, status).Inc()
}

func (m *Metrics) Event(eventType string) {
	if m == nil {
		return
	}

	m.events.WithLabelValues(eventType).Inc()
}
