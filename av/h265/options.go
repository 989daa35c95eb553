package h265

import (
	"github.com/opd-ai/rtppayload/limits"
	"github.com/sirupsen/logrus"
)

// PayloadKind identifies which RFC 7798 payload structure carried a NAL unit.
type PayloadKind int

const (
	// KindSingle is a Single NAL Unit packet.
	KindSingle PayloadKind = iota
	// KindAggregation is an Aggregation Packet (type 48).
	KindAggregation
	// KindFragmentation is a Fragmentation Unit (type 49).
	KindFragmentation
)

func (k PayloadKind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindAggregation:
		return "aggregation"
	case KindFragmentation:
		return "fragmentation"
	default:
		return "unknown"
	}
}

// Observer receives notifications from packetizers and depacketizers.
// Callbacks run synchronously on the caller's goroutine and must not block.
type Observer interface {
	// PacketEmitted is called for every packet a Packetizer writes.
	PacketEmitted(kind PayloadKind, size int)
	// NaluEmitted is called for every NAL unit a Depacketizer returns.
	NaluEmitted(kind PayloadKind, size int)
	// Dropped is called when a Depacketizer discards a packet or a
	// partially reassembled NAL unit.
	Dropped(err error)
}

type nopObserver struct{}

func (nopObserver) PacketEmitted(PayloadKind, int) {}
func (nopObserver) NaluEmitted(PayloadKind, int)   {}
func (nopObserver) Dropped(error)                  {}

type options struct {
	logger             logrus.FieldLogger
	observer           Observer
	reassemblyCapacity int
}

func defaultOptions() options {
	return options{
		logger:             logrus.StandardLogger(),
		observer:           nopObserver{},
		reassemblyCapacity: limits.DefaultReassemblyCapacity,
	}
}

// Option configures a Packetizer or Depacketizer.
type Option func(*options)

// WithLogger routes diagnostics to logger instead of the logrus standard logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver installs an activity observer, e.g. a metrics collector.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithReassemblyCapacity sets the fixed size of the Depacketizer's
// fragmentation unit scratch buffer. Packetizers ignore it.
func WithReassemblyCapacity(n int) Option {
	return func(o *options) {
		o.reassemblyCapacity = n
	}
}
