// Package metrics exposes Prometheus instruments for the transport.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wasocket"

// Direction labels.
const (
	Sent     = "sent"
	Received = "received"
)

var (
	registerOnce sync.Once

	frames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "socket",
			Name:      "frames_total",
			Help:      "Frames written to or read from the transport.",
		},
		[]string{"direction"},
	)
	frameBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "socket",
			Name:      "frame_bytes_total",
			Help:      "Frame payload bytes, excluding the length prefix.",
		},
		[]string{"direction"},
	)
	handshakes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "noise",
			Name:      "handshakes_total",
			Help:      "Completed handshake attempts by result.",
		},
		[]string{"result"},
	)
	decodeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "decode_failures_total",
			Help:      "Inbound frames that failed to decrypt or decode.",
		},
	)
	sendQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "send_queue_depth",
			Help:      "Outbound nodes waiting for the writer.",
		},
	)
)

// Register adds the instruments to the default registry. It is safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(frames, frameBytes, handshakes, decodeFailures, sendQueueDepth)
	})
}

// RecordFrame counts one frame of n payload bytes.
func RecordFrame(direction string, n int) {
	Register()
	frames.WithLabelValues(direction).Inc()
	frameBytes.WithLabelValues(direction).Add(float64(n))
}

// RecordHandshake counts a handshake with result "ok" or "failed".
func RecordHandshake(ok bool) {
	Register()
	result := "ok"
	if !ok {
		result = "failed"
	}
	handshakes.WithLabelValues(result).Inc()
}

// RecordDecodeFailure counts an inbound frame that could not be processed.
func RecordDecodeFailure() {
	Register()
	decodeFailures.Inc()
}

// AddSendQueueDepth adjusts the outbound queue gauge.
func AddSendQueueDepth(delta int) {
	Register()
	sendQueueDepth.Add(float64(delta))
}
