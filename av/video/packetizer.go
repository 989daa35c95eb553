package video

import (
	"fmt"

	"github.com/opd-ai/rtppayload/av"
	"github.com/opd-ai/rtppayload/av/ring"
	"github.com/sirupsen/logrus"
)

// Packetizer splits one encoded VP8 frame into RTP payloads, each prefixed
// with the frame's payload descriptor. Only the first payload carries the
// S bit.
type Packetizer struct {
	frame         []byte
	offset        int
	desc          PayloadDescriptor
	maxPacketSize int
}

// NewPacketizer creates a packetizer over frame. The frame is borrowed.
//
// Parameters:
//   - frame: Encoded VP8 frame
//   - desc: Descriptor written before every chunk; StartOfPartition is managed
//   - maxPacketSize: Upper bound on every payload in bytes
func NewPacketizer(frame []byte, desc PayloadDescriptor, maxPacketSize int) (*Packetizer, error) {
	if len(frame) == 0 {
		return nil, fmt.Errorf("%w: empty VP8 frame", av.ErrBadParam)
	}
	if err := desc.validate(); err != nil {
		return nil, err
	}
	if maxPacketSize <= desc.MarshalSize() {
		return nil, fmt.Errorf("%w: packet size %d leaves no room after %d byte descriptor",
			av.ErrBadParam, maxPacketSize, desc.MarshalSize())
	}

	logrus.WithFields(logrus.Fields{
		"function":        "video.NewPacketizer",
		"frame_size":      len(frame),
		"max_packet_size": maxPacketSize,
	}).Debug("VP8 packetizer created")

	return &Packetizer{frame: frame, desc: desc, maxPacketSize: maxPacketSize}, nil
}

// GetPacket writes the next payload into buf, using at most
// min(len(buf), maxPacketSize) bytes. Returns av.ErrNoMorePackets once the
// whole frame has been emitted.
func (p *Packetizer) GetPacket(buf []byte) (int, error) {
	if p.Done() {
		return 0, av.ErrNoMorePackets
	}

	desc := p.desc
	desc.StartOfPartition = p.offset == 0

	limit := min(len(buf), p.maxPacketSize)
	hdr := desc.MarshalSize()
	if limit <= hdr {
		return 0, fmt.Errorf("%w: buffer of %d bytes", av.ErrBadParam, len(buf))
	}

	n, err := desc.MarshalTo(buf)
	if err != nil {
		return 0, err
	}
	n += copy(buf[n:limit], p.frame[p.offset:])
	p.offset += n - hdr
	return n, nil
}

// Done reports whether the whole frame has been emitted. After the payload
// that completes the frame, callers set the RTP marker bit.
func (p *Packetizer) Done() bool { return p.offset >= len(p.frame) }

// Depacketizer concatenates queued VP8 payloads back into a frame.
type Depacketizer struct {
	packets *ring.Ring[[]byte]
	desc    PayloadDescriptor
}

// NewDepacketizer creates a depacketizer holding up to capacity payloads.
func NewDepacketizer(capacity int) (*Depacketizer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity %d", av.ErrBadParam, capacity)
	}
	return &Depacketizer{packets: ring.New[[]byte](capacity)}, nil
}

// AddPacket queues one VP8 payload. The bytes are borrowed.
func (d *Depacketizer) AddPacket(payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: empty payload", av.ErrBadParam)
	}
	if !d.packets.Push(payload) {
		return fmt.Errorf("%w: payload queue full (%d)", av.ErrNoMorePackets, d.packets.Cap())
	}
	return nil
}

// GetFrame strips the descriptors of every queued payload and writes the
// concatenated VP8 data into frame. Nothing is consumed when frame is too
// small. A malformed payload is dropped from the queue and reported.
func (d *Depacketizer) GetFrame(frame []byte) (int, error) {
	if d.packets.Empty() {
		return 0, av.ErrNoMoreFrames
	}

	total := 0
	for i := 0; i < d.packets.Len(); i++ {
		pkt, _ := d.packets.PeekAt(i)
		var desc PayloadDescriptor
		hdr, err := desc.Unmarshal(pkt)
		if err != nil {
			d.dropAt(i, err)
			return 0, err
		}
		if i == 0 {
			if !desc.StartOfPartition {
				logrus.WithFields(logrus.Fields{
					"function": "Depacketizer.GetFrame",
				}).Warn("VP8 frame does not begin with a start of partition")
			}
			d.desc = desc
		}
		total += len(pkt) - hdr
	}
	if len(frame) < total {
		return 0, fmt.Errorf("%w: frame needs %d bytes, have %d", av.ErrBufferTooSmall, total, len(frame))
	}

	n := 0
	for !d.packets.Empty() {
		pkt, _ := d.packets.Pop()
		var desc PayloadDescriptor
		hdr, _ := desc.Unmarshal(pkt)
		n += copy(frame[n:], pkt[hdr:])
	}
	return n, nil
}

// Descriptor returns the descriptor of the first payload of the last frame
// returned by GetFrame.
func (d *Depacketizer) Descriptor() PayloadDescriptor { return d.desc }

// Len returns the number of queued payloads.
func (d *Depacketizer) Len() int { return d.packets.Len() }

// dropAt removes the i-th queued payload, keeping the order of the rest.
func (d *Depacketizer) dropAt(i int, err error) {
	n := d.packets.Len()
	for j := 0; j < n; j++ {
		pkt, _ := d.packets.Pop()
		if j != i {
			d.packets.Push(pkt)
		}
	}
	logrus.WithFields(logrus.Fields{
		"function": "Depacketizer.GetFrame",
		"index":    i,
		"error":    err.Error(),
	}).Warn("Dropping malformed VP8 payload")
}
