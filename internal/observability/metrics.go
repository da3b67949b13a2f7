package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cyberdrill",
			Subsystem: "session",
			Name:      "frames_received_total",
			Help:      "Decoded frames received, by role and message kind.",
		},
		[]string{"role", "kind"},
	)
	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cyberdrill",
			Subsystem: "session",
			Name:      "frames_sent_total",
			Help:      "Frames queued to peers, by role and message kind.",
		},
		[]string{"role", "kind"},
	)
	framesMalformed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cyberdrill",
			Subsystem: "session",
			Name:      "frames_malformed_total",
			Help:      "Frames dropped because they failed to decode.",
		},
		[]string{"role"},
	)
	codeRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cyberdrill",
			Subsystem: "session",
			Name:      "code_rejections_total",
			Help:      "Frames rejected with bad-code, by message kind.",
		},
		[]string{"kind"},
	)
	peerDrops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cyberdrill",
			Subsystem: "session",
			Name:      "peer_drops_total",
			Help:      "Peer connections torn down, by role and reason.",
		},
		[]string{"role", "reason"},
	)
	peersConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cyberdrill",
			Subsystem: "session",
			Name:      "peers_connected",
			Help:      "Peer connections currently owned by the local session.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesReceived, framesSent, framesMalformed, codeRejections, peerDrops, peersConnected)
	})
}

func RecordFrameReceived(role, kind string) {
	RegisterMetrics()
	framesReceived.WithLabelValues(role, kind).Inc()
}

func RecordFrameSent(role, kind string) {
	RegisterMetrics()
	framesSent.WithLabelValues(role, kind).Inc()
}

func RecordMalformedFrame(role string) {
	RegisterMetrics()
	framesMalformed.WithLabelValues(role).Inc()
}

func RecordCodeRejection(kind string) {
	RegisterMetrics()
	codeRejections.WithLabelValues(kind).Inc()
}

func RecordPeerDrop(role, reason string) {
	RegisterMetrics()
	peerDrops.WithLabelValues(role, reason).Inc()
}

func SetPeersConnected(n int) {
	RegisterMetrics()
	peersConnected.Set(float64(n))
}
