package h264

import (
	"fmt"

	"github.com/opd-ai/rtppayload/av"
	"github.com/opd-ai/rtppayload/av/ring"
	"github.com/pion/rtp/codecs"
	"github.com/sirupsen/logrus"
)

// Depacketizer rebuilds an Annex-B access unit from RFC 6184 payloads.
type Depacketizer struct {
	packets *ring.Ring[[]byte]
	codec   codecs.H264Packet
	// pending holds depacketized bytes not yet delivered by GetFrame.
	pending []byte
}

// NewDepacketizer creates a depacketizer holding up to capacity payloads.
func NewDepacketizer(capacity int) (*Depacketizer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity %d", av.ErrBadParam, capacity)
	}

	logrus.WithFields(logrus.Fields{
		"function": "h264.NewDepacketizer",
		"capacity": capacity,
	}).Info("H.264 depacketizer created")

	return &Depacketizer{packets: ring.New[[]byte](capacity)}, nil
}

// AddPacket queues one payload. The bytes are borrowed.
func (d *Depacketizer) AddPacket(payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: empty payload", av.ErrBadParam)
	}
	if !d.packets.Push(payload) {
		return fmt.Errorf("%w: packet queue full (%d)", av.ErrNoMorePackets, d.packets.Cap())
	}
	return nil
}

// GetFrame depacketizes every queued payload and writes the resulting
// Annex-B stream into frame. An incomplete FU-A stays buffered until its
// end fragment arrives. When frame is too small the output is kept for the
// next call.
func (d *Depacketizer) GetFrame(frame []byte) (int, error) {
	if d.packets.Empty() && len(d.pending) == 0 {
		return 0, av.ErrNoMoreFrames
	}

	for !d.packets.Empty() {
		payload, _ := d.packets.Pop()
		out, err := d.codec.Unmarshal(payload)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "h264.Depacketizer.GetFrame",
				"size":     len(payload),
				"error":    err.Error(),
			}).Warn("Dropping packet")
			return 0, fmt.Errorf("%w: %v", av.ErrMalformedPacket, err)
		}
		d.pending = append(d.pending, out...)
	}

	if len(frame) < len(d.pending) {
		return 0, fmt.Errorf("%w: frame needs %d bytes, have %d", av.ErrBufferTooSmall, len(d.pending), len(frame))
	}
	n := copy(frame, d.pending)
	d.pending = d.pending[:0]
	return n, nil
}

// Len returns the number of queued payloads.
func (d *Depacketizer) Len() int { return d.packets.Len() }
