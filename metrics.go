package stomp

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// Subsystem is the metric subsystem used by NewMetrics.
	Subsystem = "stomp_client"
)

// Metrics counts read loop activity. A nil *Metrics records nothing.
type Metrics struct {
	BytesRead           prometheus.Counter
	FramesDecoded       prometheus.Counter
	DecompressFallbacks prometheus.Counter
	MessagesDelivered   prometheus.Counter
	BufferedBytes       prometheus.Gauge
}

// NewMetrics builds an unregistered set of collectors under namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: Subsystem,
			Name:      "bytes_read_total",
			Help:      "The number of bytes read from the transport.",
		}),
		FramesDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: Subsystem,
			Name:      "frames_decoded_total",
			Help:      "The number of complete frames extracted from the stream.",
		}),
		DecompressFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: Subsystem,
			Name:      "decompress_fallbacks_total",
			Help:      "The number of frame bodies delivered as raw text because they did not decompress.",
		}),
		MessagesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: Subsystem,
			Name:      "messages_delivered_total",
			Help:      "The number of messages accepted by the sink.",
		}),
		BufferedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: Subsystem,
			Name:      "buffered_bytes",
			Help:      "Bytes received but not yet attributed to a complete frame.",
		}),
	}
}

// Collectors returns every collector in m.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.BytesRead,
		m.FramesDecoded,
		m.DecompressFallbacks,
		m.MessagesDelivered,
		m.BufferedBytes,
	}
}

// Register registers every collector in m with r.
func (m *Metrics) Register(r prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) bytesRead(n int) {
	if m != nil {
		m.BytesRead.Add(float64(n))
	}
}

func (m *Metrics) frameDecoded(fallback bool) {
	if m == nil {
		return
	}
	m.FramesDecoded.Inc()
	if fallback {
		m.DecompressFallbacks.Inc()
	}
}

func (m *Metrics) messageDelivered() {
	if m != nil {
		m.MessagesDelivered.Inc()
	}
}

func (m *Metrics) buffered(n int) {
	if m != nil {
		m.BufferedBytes.Set(float64(n))
	}
}
