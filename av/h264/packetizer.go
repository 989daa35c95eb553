package h264

import (
	"fmt"

	"github.com/opd-ai/rtppayload/av"
	"github.com/opd-ai/rtppayload/av/ring"
	"github.com/opd-ai/rtppayload/limits"
	"github.com/pion/rtp/codecs"
	"github.com/sirupsen/logrus"
)

// Packetizer turns H.264 NAL units into RFC 6184 payloads (Single NAL unit,
// STAP-A and FU-A; non-interleaved mode, so no DON).
//
// SPS and PPS units are held back and sent as one STAP-A ahead of the next
// unit. Access unit delimiters and filler data are not sent.
type Packetizer struct {
	payloader     codecs.H264Payloader
	payloads      *ring.Ring[[]byte]
	maxPacketSize int
}

// NewPacketizer creates a packetizer holding up to capacity pending payloads.
func NewPacketizer(capacity, maxPacketSize int) (*Packetizer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity %d", av.ErrBadParam, capacity)
	}
	if err := limits.ValidatePacketSize(maxPacketSize); err != nil {
		return nil, fmt.Errorf("%w: %v", av.ErrBadParam, err)
	}

	logrus.WithFields(logrus.Fields{
		"function":        "h264.NewPacketizer",
		"capacity":        capacity,
		"max_packet_size": maxPacketSize,
	}).Info("H.264 packetizer created")

	return &Packetizer{
		payloads:      ring.New[[]byte](capacity),
		maxPacketSize: maxPacketSize,
	}, nil
}

// AddFrame packetizes an Annex-B access unit and queues the payloads.
// Fails with av.ErrOutOfMemory, queueing nothing, when they do not all fit.
func (p *Packetizer) AddFrame(frame []byte) error {
	if len(frame) == 0 {
		return fmt.Errorf("%w: empty frame", av.ErrBadParam)
	}
	return p.queue(p.payloader.Payload(uint16(p.maxPacketSize), frame))
}

// AddNalu packetizes a single NAL unit without start code.
func (p *Packetizer) AddNalu(nalu []byte) error {
	if len(nalu) == 0 {
		return fmt.Errorf("%w: empty NAL unit", av.ErrMalformedPacket)
	}
	return p.queue(p.payloader.Payload(uint16(p.maxPacketSize), nalu))
}

func (p *Packetizer) queue(payloads [][]byte) error {
	if free := p.payloads.Cap() - p.payloads.Len(); len(payloads) > free {
		logrus.WithFields(logrus.Fields{
			"function": "h264.Packetizer.queue",
			"payloads": len(payloads),
			"free":     free,
		}).Warn("Payload queue full")
		return fmt.Errorf("%w: %d payloads, %d free slots", av.ErrOutOfMemory, len(payloads), free)
	}
	for _, payload := range payloads {
		p.payloads.Push(payload)
	}
	return nil
}

// GetPacket copies the next payload into buf.
// Returns av.ErrNoMoreNalus when nothing is queued.
func (p *Packetizer) GetPacket(buf []byte) (int, error) {
	payload, ok := p.payloads.Peek()
	if !ok {
		return 0, av.ErrNoMoreNalus
	}
	if len(buf) < len(payload) {
		return 0, fmt.Errorf("%w: payload needs %d bytes, have %d", av.ErrBufferTooSmall, len(payload), len(buf))
	}
	p.payloads.Pop()
	return copy(buf, payload), nil
}

// Len returns the number of queued payloads.
func (p *Packetizer) Len() int { return p.payloads.Len() }
