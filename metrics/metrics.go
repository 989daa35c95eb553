package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/opd-ai/rtppayload/av"
	"github.com/opd-ai/rtppayload/av/h265"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rtppayload"

var kinds = []h265.PayloadKind{h265.KindSingle, h265.KindAggregation, h265.KindFragmentation}

// DropReason classifies why a depacketizer discarded data.
type DropReason int

const (
	// DropMalformed counts packets whose structure could not be parsed.
	DropMalformed DropReason = iota
	// DropUnsupported counts packets of a payload type nothing handles.
	DropUnsupported
	// DropOutOfMemory counts fragmented NAL units that overflowed reassembly.
	DropOutOfMemory
	// DropOther counts drops matching no other reason.
	DropOther
	dropReasons
)

func (r DropReason) String() string {
	switch r {
	case DropMalformed:
		return "malformed"
	case DropUnsupported:
		return "unsupported"
	case DropOutOfMemory:
		return "out_of_memory"
	default:
		return "other"
	}
}

func classify(err error) DropReason {
	switch {
	case errors.Is(err, av.ErrMalformedPacket):
		return DropMalformed
	case errors.Is(err, av.ErrUnsupportedPacket):
		return DropUnsupported
	case errors.Is(err, av.ErrOutOfMemory):
		return DropOutOfMemory
	default:
		return DropOther
	}
}

// Metrics counts payloads and NAL units per payload structure. It implements
// h265.Observer and is safe for concurrent use, so one instance can observe
// several packetizers and depacketizers.
type Metrics struct {
	packets     [3]atomic.Uint64
	packetBytes atomic.Uint64
	nalus       [3]atomic.Uint64
	naluBytes   atomic.Uint64
	dropped     [dropReasons]atomic.Uint64

	registry *prometheus.Registry
}

var _ h265.Observer = (*Metrics)(nil)

// New creates a Metrics instance with its own Prometheus registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	for _, kind := range kinds {
		m.registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "packets_emitted_total",
				Help:        "RTP payloads written by packetizers",
				ConstLabels: prometheus.Labels{"kind": kind.String()},
			},
			func() float64 { return float64(m.packets[kind].Load()) },
		))
		m.registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "nalus_emitted_total",
				Help:        "NAL units returned by depacketizers",
				ConstLabels: prometheus.Labels{"kind": kind.String()},
			},
			func() float64 { return float64(m.nalus[kind].Load()) },
		))
	}

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packet_bytes_emitted_total",
			Help:      "Bytes of RTP payload written by packetizers",
		},
		func() float64 { return float64(m.packetBytes.Load()) },
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nalu_bytes_emitted_total",
			Help:      "Bytes of NAL units returned by depacketizers",
		},
		func() float64 { return float64(m.naluBytes.Load()) },
	))

	for r := DropReason(0); r < dropReasons; r++ {
		m.registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "dropped_total",
				Help:        "Packets or partial NAL units discarded by depacketizers",
				ConstLabels: prometheus.Labels{"reason": r.String()},
			},
			func() float64 { return float64(m.dropped[r].Load()) },
		))
	}
}

// PacketEmitted implements h265.Observer.
func (m *Metrics) PacketEmitted(kind h265.PayloadKind, size int) {
	if int(kind) < len(m.packets) {
		m.packets[kind].Add(1)
	}
	m.packetBytes.Add(uint64(size))
}

// NaluEmitted implements h265.Observer.
func (m *Metrics) NaluEmitted(kind h265.PayloadKind, size int) {
	if int(kind) < len(m.nalus) {
		m.nalus[kind].Add(1)
	}
	m.naluBytes.Add(uint64(size))
}

// Dropped implements h265.Observer.
func (m *Metrics) Dropped(err error) {
	m.dropped[classify(err)].Add(1)
}

// Packets returns the number of payloads emitted with the given structure.
func (m *Metrics) Packets(kind h265.PayloadKind) uint64 {
	if int(kind) >= len(m.packets) {
		return 0
	}
	return m.packets[kind].Load()
}

// Nalus returns the number of NAL units returned from the given structure.
func (m *Metrics) Nalus(kind h265.PayloadKind) uint64 {
	if int(kind) >= len(m.nalus) {
		return 0
	}
	return m.nalus[kind].Load()
}

// DroppedCount returns the number of drops recorded for reason.
func (m *Metrics) DroppedCount(reason DropReason) uint64 {
	if reason < 0 || reason >= dropReasons {
		return 0
	}
	return m.dropped[reason].Load()
}

// Registry exposes the registry for custom exposition or tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
