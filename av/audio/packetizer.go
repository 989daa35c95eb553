package audio

import (
	"fmt"

	"github.com/opd-ai/rtppayload/av"
	"github.com/opd-ai/rtppayload/av/ring"
	"github.com/sirupsen/logrus"
)

// Codec names the audio payload format handled by a packetizer.
type Codec int

const (
	// CodecG711 is PCMU/PCMA (RFC 3551): one byte per sample.
	CodecG711 Codec = iota
	// CodecOpus is Opus (RFC 7587).
	CodecOpus
)

func (c Codec) String() string {
	switch c {
	case CodecG711:
		return "G.711"
	case CodecOpus:
		return "Opus"
	default:
		return "unknown"
	}
}

// Packetizer copies an encoded audio frame into RTP payloads. Audio
// payloads carry no payload header, so each GetPacket call takes as many
// bytes as the destination buffer holds.
type Packetizer struct {
	codec  Codec
	frame  []byte
	offset int
}

// NewG711Packetizer creates a packetizer over a G.711 frame.
func NewG711Packetizer(frame []byte) (*Packetizer, error) {
	return newPacketizer(CodecG711, frame)
}

// NewOpusPacketizer creates a packetizer over an Opus packet.
func NewOpusPacketizer(frame []byte) (*Packetizer, error) {
	if err := ValidateOpusPacket(frame); err != nil {
		return nil, err
	}
	return newPacketizer(CodecOpus, frame)
}

func newPacketizer(codec Codec, frame []byte) (*Packetizer, error) {
	if len(frame) == 0 {
		return nil, fmt.Errorf("%w: empty %s frame", av.ErrBadParam, codec)
	}
	return &Packetizer{codec: codec, frame: frame}, nil
}

// GetPacket copies the next chunk of the frame into buf.
// Returns av.ErrNoMorePackets once the frame is exhausted.
func (p *Packetizer) GetPacket(buf []byte) (int, error) {
	if p.Done() {
		return 0, av.ErrNoMorePackets
	}
	if len(buf) == 0 {
		return 0, fmt.Errorf("%w: empty packet buffer", av.ErrBadParam)
	}
	n := copy(buf, p.frame[p.offset:])
	p.offset += n
	return n, nil
}

// Done reports whether the whole frame has been emitted.
func (p *Packetizer) Done() bool { return p.offset >= len(p.frame) }

// Codec returns the packetizer's payload format.
func (p *Packetizer) Codec() Codec { return p.codec }

// Depacketizer concatenates queued audio payloads into one frame.
type Depacketizer struct {
	codec   Codec
	packets *ring.Ring[[]byte]
}

// NewG711Depacketizer creates a G.711 depacketizer holding up to capacity
// payloads.
func NewG711Depacketizer(capacity int) (*Depacketizer, error) {
	return newDepacketizer(CodecG711, capacity)
}

// NewOpusDepacketizer creates an Opus depacketizer holding up to capacity
// payloads.
func NewOpusDepacketizer(capacity int) (*Depacketizer, error) {
	return newDepacketizer(CodecOpus, capacity)
}

func newDepacketizer(codec Codec, capacity int) (*Depacketizer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity %d", av.ErrBadParam, capacity)
	}

	logrus.WithFields(logrus.Fields{
		"function": "audio.NewDepacketizer",
		"codec":    codec.String(),
		"capacity": capacity,
	}).Debug("Audio depacketizer created")

	return &Depacketizer{codec: codec, packets: ring.New[[]byte](capacity)}, nil
}

// AddPacket queues one payload. The bytes are borrowed. Opus payloads that
// do not parse are rejected with av.ErrMalformedPacket.
func (d *Depacketizer) AddPacket(payload []byte) error {
	if d.codec == CodecOpus {
		if err := ValidateOpusPacket(payload); err != nil {
			return err
		}
	}
	if len(payload) == 0 {
		return fmt.Errorf("%w: empty payload", av.ErrBadParam)
	}
	if !d.packets.Push(payload) {
		return fmt.Errorf("%w: payload queue full (%d)", av.ErrNoMorePackets, d.packets.Cap())
	}
	return nil
}

// GetFrame writes every queued payload, in order, into frame. Nothing is
// consumed when frame is too small.
func (d *Depacketizer) GetFrame(frame []byte) (int, error) {
	if d.packets.Empty() {
		return 0, av.ErrNoMoreFrames
	}

	total := 0
	for i := 0; i < d.packets.Len(); i++ {
		pkt, _ := d.packets.PeekAt(i)
		total += len(pkt)
	}
	if len(frame) < total {
		return 0, fmt.Errorf("%w: frame needs %d bytes, have %d", av.ErrBufferTooSmall, total, len(frame))
	}

	n := 0
	for !d.packets.Empty() {
		pkt, _ := d.packets.Pop()
		n += copy(frame[n:], pkt)
	}
	return n, nil
}

// Len returns the number of queued payloads.
func (d *Depacketizer) Len() int { return d.packets.Len() }
