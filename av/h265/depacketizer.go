package h265

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/opd-ai/rtppayload/av"
	"github.com/opd-ai/rtppayload/av/ring"
	"github.com/sirupsen/logrus"
)

// ErrFragmentPending is returned by GetNalu after it consumed a fragmentation
// unit that does not complete its NAL unit. Keep calling GetNalu.
var ErrFragmentPending = errors.New("fragment consumed, NAL unit incomplete")

// errDestinationShort marks av.ErrOutOfMemory caused by the caller's buffer
// rather than the reassembly buffer.
var errDestinationShort = errors.New("destination buffer too small")

// Depacketizer rebuilds H.265 NAL units from RFC 7798 RTP payloads.
//
// Packets are queued with AddPacket and drained with GetNalu or GetFrame.
// Every GetNalu call consumes at most one queued packet: one fragment of a
// Fragmentation Unit, one whole Single NAL Unit packet, or one member of an
// Aggregation Packet.
//
// A Depacketizer is not safe for concurrent use.
type Depacketizer struct {
	packets *ring.Ring[[]byte]

	// reassembly never grows past the capacity it was created with.
	reassembly   []byte
	reassembling bool
	fuDON        uint16

	apCursor int
	apDON    uint16

	donPresent bool
	currentDON uint16

	log      logrus.FieldLogger
	observer Observer
}

// NewDepacketizer creates an H.265 depacketizer holding up to capacity
// packets. donPresent must match the stream's sprop-max-don-diff > 0.
func NewDepacketizer(capacity int, donPresent bool, opts ...Option) (*Depacketizer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity %d", av.ErrBadParam, capacity)
	}
	if o.reassemblyCapacity <= NALHeaderSize {
		return nil, fmt.Errorf("%w: reassembly capacity %d", av.ErrBadParam, o.reassemblyCapacity)
	}

	d := &Depacketizer{
		packets:    ring.New[[]byte](capacity),
		reassembly: make([]byte, 0, o.reassemblyCapacity),
		donPresent: donPresent,
		log:        o.logger,
		observer:   o.observer,
	}

	d.log.WithFields(logrus.Fields{
		"function":            "NewDepacketizer",
		"capacity":            capacity,
		"don_present":         donPresent,
		"reassembly_capacity": o.reassemblyCapacity,
	}).Info("H.265 depacketizer created")

	return d, nil
}

// AddPacket queues one RTP payload. The bytes are borrowed, not copied.
func (d *Depacketizer) AddPacket(pkt []byte) error {
	if len(pkt) == 0 {
		return fmt.Errorf("%w: empty packet", av.ErrBadParam)
	}
	if !d.packets.Push(pkt) {
		return fmt.Errorf("%w: packet queue full (%d)", av.ErrNoMorePackets, d.packets.Cap())
	}
	return nil
}

// GetNalu writes the next NAL unit into buf and returns a NALUnit whose Data
// aliases buf.
//
// Errors:
//   - av.ErrNoMoreNalus: the packet queue is empty
//   - ErrFragmentPending: a non-final fragment was consumed
//   - av.ErrOutOfMemory: buf (packet kept queued) or the reassembly buffer
//     (fragmented NAL unit discarded) is too small
//   - av.ErrMalformedPacket, av.ErrUnsupportedPacket: the packet was dropped
func (d *Depacketizer) GetNalu(buf []byte) (NALUnit, error) {
	if buf == nil {
		return NALUnit{}, fmt.Errorf("%w: nil NAL unit buffer", av.ErrBadParam)
	}

	pkt, ok := d.packets.Peek()
	if !ok {
		return NALUnit{}, av.ErrNoMoreNalus
	}
	if len(pkt) < NALHeaderSize {
		return d.drop(av.ErrMalformedPacket, fmt.Sprintf("packet of %d bytes", len(pkt)))
	}

	switch typ := ParseNALHeader(pkt[0], pkt[1]).Type(); {
	case typ == TypeAggregation:
		return d.nextAggregated(pkt, buf)
	case typ == TypeFragmentation:
		return d.nextFragment(pkt, buf)
	case typ >= 1 && typ < TypeAggregation:
		return d.single(pkt, buf)
	default:
		return d.drop(av.ErrUnsupportedPacket, fmt.Sprintf("payload type %d", typ))
	}
}

// GetFrame drains the queue into frame as an Annex-B access unit, prefixing
// every NAL unit with a 4-byte start code, and returns the bytes written.
func (d *Depacketizer) GetFrame(frame []byte) (int, error) {
	if frame == nil {
		return 0, fmt.Errorf("%w: nil frame buffer", av.ErrBadParam)
	}
	if d.packets.Empty() {
		return 0, av.ErrNoMoreFrames
	}

	n := 0
	for {
		if len(frame)-n < StartCodeSize {
			if d.packets.Empty() {
				return n, nil
			}
			return n, fmt.Errorf("%w: %d bytes left for next NAL unit", av.ErrBufferTooSmall, len(frame)-n)
		}

		nalu, err := d.GetNalu(frame[n+StartCodeSize:])
		switch {
		case err == nil:
			copy(frame[n:], startCode4)
			n += StartCodeSize + len(nalu.Data)
		case errors.Is(err, ErrFragmentPending):
		case errors.Is(err, av.ErrNoMoreNalus):
			return n, nil
		case errors.Is(err, errDestinationShort):
			return n, fmt.Errorf("%w: %v", av.ErrBufferTooSmall, err)
		default:
			return n, err
		}
	}
}

// Len returns the number of queued packets.
func (d *Depacketizer) Len() int { return d.packets.Len() }

// Cap returns the packet queue capacity.
func (d *Depacketizer) Cap() int { return d.packets.Cap() }

// CurrentDON counts the NAL units emitted so far, wrapping at 16 bits.
func (d *Depacketizer) CurrentDON() uint16 { return d.currentDON }

// Reassembling reports whether a fragmented NAL unit is partially rebuilt.
func (d *Depacketizer) Reassembling() bool { return d.reassembling }

func (d *Depacketizer) single(pkt, buf []byte) (NALUnit, error) {
	offset := NALHeaderSize
	don := d.currentDON
	if d.donPresent {
		var err error
		if don, err = av.Uint16(pkt[NALHeaderSize:]); err != nil {
			return d.drop(av.ErrMalformedPacket, fmt.Sprintf("single NAL unit packet of %d bytes lacks DONL", len(pkt)))
		}
		offset += donlSize
	}

	size := NALHeaderSize + len(pkt) - offset
	if len(buf) < size {
		return NALUnit{}, d.destinationShort(size, len(buf))
	}

	d.abandonReassembly("single NAL unit packet")
	copy(buf, pkt[:NALHeaderSize])
	copy(buf[NALHeaderSize:], pkt[offset:])
	d.packets.Pop()

	return d.emit(buf[:size], don, KindSingle), nil
}

func (d *Depacketizer) nextFragment(pkt, buf []byte) (NALUnit, error) {
	if len(pkt) < NALHeaderSize+fuHeaderSize {
		return d.drop(av.ErrMalformedPacket, fmt.Sprintf("fragmentation unit of %d bytes", len(pkt)))
	}

	fuHeader := pkt[2]
	start := fuHeader&0x80 != 0
	end := fuHeader&0x40 != 0

	hdrLen := NALHeaderSize + fuHeaderSize
	if d.donPresent {
		if start {
			hdrLen += donlSize
		} else {
			hdrLen += dondSize
		}
	}
	if len(pkt) < hdrLen {
		return d.drop(av.ErrMalformedPacket, fmt.Sprintf("fragmentation unit of %d bytes, header needs %d", len(pkt), hdrLen))
	}
	if !start && !d.reassembling {
		return d.drop(av.ErrMalformedPacket, "continuation fragment without a start fragment")
	}

	payload := pkt[hdrLen:]
	total := len(d.reassembly) + len(payload)
	if start {
		total = NALHeaderSize + len(payload)
	}
	if end && len(buf) < total {
		return NALUnit{}, d.destinationShort(total, len(buf))
	}
	if total > cap(d.reassembly) {
		d.reassembly = d.reassembly[:0]
		d.reassembling = false
		return d.drop(av.ErrOutOfMemory, fmt.Sprintf("fragmented NAL unit exceeds %d byte reassembly buffer", cap(d.reassembly)))
	}

	if start {
		d.abandonReassembly("new start fragment")
		// F and LayerId/TID come from PayloadHdr, the type from the FU header.
		b0 := pkt[0]&0x81 | (fuHeader&MaxType)<<1
		d.reassembly = append(d.reassembly[:0], b0, pkt[1])
		d.reassembling = true
		d.fuDON = d.currentDON
		if d.donPresent {
			d.fuDON = binary.BigEndian.Uint16(pkt[NALHeaderSize+fuHeaderSize:])
		}
	}
	d.reassembly = append(d.reassembly, payload...)
	d.packets.Pop()

	if !end {
		return NALUnit{}, ErrFragmentPending
	}

	n := copy(buf, d.reassembly)
	d.reassembly = d.reassembly[:0]
	d.reassembling = false

	d.log.WithFields(logrus.Fields{
		"function":  "Depacketizer.GetNalu",
		"nalu_size": n,
	}).Debug("Fragmented NAL unit reassembled")

	return d.emit(buf[:n], d.fuDON, KindFragmentation), nil
}

func (d *Depacketizer) nextAggregated(pkt, buf []byte) (NALUnit, error) {
	first := d.apCursor == 0
	offset := d.apCursor
	if first {
		offset = NALHeaderSize
	}

	don := d.currentDON
	if d.donPresent {
		if first {
			var err error
			if don, err = av.Uint16(pkt[offset:]); err != nil {
				return d.drop(av.ErrMalformedPacket, "aggregation packet truncated in DONL")
			}
			offset += donlSize
		} else {
			if len(pkt) < offset+dondSize {
				return d.drop(av.ErrMalformedPacket, "aggregation packet truncated in DOND")
			}
			don = d.apDON + uint16(pkt[offset])
			offset += dondSize
		}
	}

	size, err := av.Uint16(pkt[offset:])
	if err != nil {
		return d.drop(av.ErrMalformedPacket, "aggregation packet truncated in NALU size")
	}
	offset += apSizeField

	if int(size) < NALHeaderSize {
		return d.drop(av.ErrMalformedPacket, fmt.Sprintf("aggregated NAL unit of %d bytes", size))
	}
	if offset+int(size) > len(pkt) {
		return d.drop(av.ErrMalformedPacket, fmt.Sprintf("aggregated NAL unit size %d exceeds remaining %d bytes", size, len(pkt)-offset))
	}
	if len(buf) < int(size) {
		return NALUnit{}, d.destinationShort(int(size), len(buf))
	}

	if first {
		d.abandonReassembly("aggregation packet")
	}
	n := copy(buf, pkt[offset:offset+int(size)])
	offset += n
	d.apDON = don

	if offset >= len(pkt) {
		d.apCursor = 0
		d.packets.Pop()
	} else {
		d.apCursor = offset
	}

	return d.emit(buf[:n], don, KindAggregation), nil
}

func (d *Depacketizer) emit(data []byte, don uint16, kind PayloadKind) NALUnit {
	h := ParseNALHeader(data[0], data[1])
	d.currentDON++
	d.observer.NaluEmitted(kind, len(data))
	return NALUnit{
		Data:       data,
		Type:       h.Type(),
		LayerID:    h.LayerID(),
		TemporalID: h.TID(),
		DON:        don,
	}
}

// drop discards the head packet so the stream can continue past it.
func (d *Depacketizer) drop(kind error, reason string) (NALUnit, error) {
	d.packets.Pop()
	d.apCursor = 0

	err := fmt.Errorf("%w: %s", kind, reason)
	d.log.WithFields(logrus.Fields{
		"function": "Depacketizer.GetNalu",
		"error":    err.Error(),
	}).Warn("Dropping packet")
	d.observer.Dropped(err)
	return NALUnit{}, err
}

func (d *Depacketizer) abandonReassembly(reason string) {
	if !d.reassembling {
		return
	}
	err := fmt.Errorf("%w: fragmented NAL unit interrupted by %s", av.ErrMalformedPacket, reason)
	d.log.WithFields(logrus.Fields{
		"function":        "Depacketizer.GetNalu",
		"bytes_discarded": len(d.reassembly),
	}).Warn("Discarding incomplete fragmented NAL unit")
	d.observer.Dropped(err)
	d.reassembly = d.reassembly[:0]
	d.reassembling = false
}

func (d *Depacketizer) destinationShort(need, have int) error {
	return fmt.Errorf("%w: %w: need %d bytes, have %d", av.ErrOutOfMemory, errDestinationShort, need, have)
}
