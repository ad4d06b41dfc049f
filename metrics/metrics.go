// Package metrics exposes prometheus counters for the protocol core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PayloadsDispatched counts messages dispatched to channel listeners,
	// labelled by channel name and direction.
	PayloadsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forgenet",
		Name:      "payloads_dispatched_total",
		Help:      "Messages dispatched to channel listeners.",
	}, []string{"channel", "direction"})

	// HandshakesCompleted counts login negotiations that reached completion.
	HandshakesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "forgenet",
		Name:      "handshakes_completed_total",
		Help:      "Login negotiations that completed successfully.",
	})

	// NegotiationMismatches counts handshake terminations, labelled by what
	// failed to match (channels, registries, datapack registries).
	NegotiationMismatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forgenet",
		Name:      "negotiation_mismatches_total",
		Help:      "Login negotiations terminated by a mismatch.",
	}, []string{"kind"})

	// ProtocolViolations counts decode failures severe enough to disconnect.
	ProtocolViolations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "forgenet",
		Name:      "protocol_violations_total",
		Help:      "Connections dropped for protocol violations.",
	})
)
