package h265

import (
	"encoding/binary"
	"fmt"

	"github.com/opd-ai/rtppayload/av"
	"github.com/opd-ai/rtppayload/av/ring"
	"github.com/opd-ai/rtppayload/limits"
	"github.com/sirupsen/logrus"
)

// fragmentState is the persisted part of a Fragmentation Unit that spans
// several GetPacket calls. The NAL unit being fragmented stays at the head
// of the queue until its last fragment is written.
type fragmentState struct {
	payloadHeader [2]byte
	fuType        uint8
	offset        int
	remaining     int
	first         bool
}

// Packetizer turns H.265 NAL units into RFC 7798 RTP payloads.
//
// Each GetPacket call writes exactly one payload, choosing between a
// Single NAL Unit packet, an Aggregation Packet and a Fragmentation Unit.
// The pending queue has a fixed capacity set at construction.
//
// A Packetizer is not safe for concurrent use.
type Packetizer struct {
	nalus *ring.Ring[NALUnit]

	// fu is nil while idle and set while a NAL unit is being fragmented.
	fu *fragmentState

	maxDONDiff    uint16
	maxPacketSize int
	currentDON    uint16
	nextDON       uint16

	log      logrus.FieldLogger
	observer Observer
}

// NewPacketizer creates an H.265 packetizer.
//
// Parameters:
//   - capacity: Number of NAL units that can be pending at once
//   - maxDONDiff: Negotiated sprop-max-don-diff; 0 disables DONL/DOND fields
//   - maxPacketSize: Upper bound on every emitted payload in bytes
//
// Returns:
//   - *Packetizer: New packetizer instance
//   - error: av.ErrBadParam on invalid parameters
func NewPacketizer(capacity int, maxDONDiff uint16, maxPacketSize int, opts ...Option) (*Packetizer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity %d", av.ErrBadParam, capacity)
	}
	if err := limits.ValidatePacketSize(maxPacketSize); err != nil {
		return nil, fmt.Errorf("%w: %v", av.ErrBadParam, err)
	}
	if err := limits.ValidateMaxDONDiff(maxDONDiff); err != nil {
		return nil, fmt.Errorf("%w: %v", av.ErrBadParam, err)
	}

	p := &Packetizer{
		nalus:         ring.New[NALUnit](capacity),
		maxDONDiff:    maxDONDiff,
		maxPacketSize: maxPacketSize,
		log:           o.logger,
		observer:      o.observer,
	}

	p.log.WithFields(logrus.Fields{
		"function":        "NewPacketizer",
		"capacity":        capacity,
		"max_don_diff":    maxDONDiff,
		"max_packet_size": maxPacketSize,
	}).Info("H.265 packetizer created")

	return p, nil
}

// AddNalu queues one NAL unit. The unit's data is borrowed, not copied, and
// must stay untouched until the unit has been fully packetized.
func (p *Packetizer) AddNalu(nalu NALUnit) error {
	if nalu.Data == nil {
		return fmt.Errorf("%w: nil NAL unit data", av.ErrMalformedPacket)
	}
	if err := nalu.validate(); err != nil {
		return err
	}
	if !p.nalus.Push(nalu) {
		return fmt.Errorf("%w: NAL unit queue full (%d)", av.ErrOutOfMemory, p.nalus.Cap())
	}
	p.nextDON = nalu.DON + 1
	return nil
}

// AddFrame splits an Annex-B access unit on its start codes and queues every
// NAL unit found, deriving the header fields from the bytes. The call is not
// transactional: units queued before an error stay queued.
func (p *Packetizer) AddFrame(frame []byte) error {
	if len(frame) == 0 {
		return fmt.Errorf("%w: empty frame", av.ErrBadParam)
	}

	added := 0
	err := SplitAnnexB(frame, func(data []byte) error {
		nalu, err := NewNALUnit(data)
		if err != nil {
			return err
		}
		nalu.DON = p.nextDON
		if err := p.AddNalu(nalu); err != nil {
			return err
		}
		added++
		return nil
	})
	if err != nil {
		p.log.WithFields(logrus.Fields{
			"function":    "Packetizer.AddFrame",
			"frame_size":  len(frame),
			"nalus_added": added,
			"error":       err.Error(),
		}).Warn("Frame split failed")
		return err
	}

	p.log.WithFields(logrus.Fields{
		"function":    "Packetizer.AddFrame",
		"frame_size":  len(frame),
		"nalus_added": added,
	}).Debug("Frame queued")
	return nil
}

// GetPacket writes the next RTP payload into buf and returns its length.
// The payload never exceeds min(len(buf), maxPacketSize) bytes.
//
// Returns av.ErrNoMoreNalus once every queued unit has been packetized.
func (p *Packetizer) GetPacket(buf []byte) (int, error) {
	if buf == nil {
		return 0, fmt.Errorf("%w: nil packet buffer", av.ErrBadParam)
	}
	limit := min(len(buf), p.maxPacketSize)
	if limit < p.minPacketSize() {
		return 0, fmt.Errorf("%w: packet size %d below minimum %d", av.ErrBadParam, limit, p.minPacketSize())
	}
	buf = buf[:limit]

	head, ok := p.nalus.Peek()
	if !ok {
		return 0, av.ErrNoMoreNalus
	}

	if p.fu != nil {
		return p.writeFragment(buf, head), nil
	}

	if len(head.Data)+p.donlSize() <= limit {
		if count := p.aggregateCount(limit); count >= 2 {
			return p.writeAggregation(buf, count), nil
		}
		return p.writeSingle(buf, head), nil
	}

	p.startFragmentation(head)
	return p.writeFragment(buf, head), nil
}

// Len returns the number of queued NAL units, including one being fragmented.
func (p *Packetizer) Len() int { return p.nalus.Len() }

// Cap returns the queue capacity.
func (p *Packetizer) Cap() int { return p.nalus.Cap() }

// CurrentDON returns the DON expected for the next NAL unit to be sent.
func (p *Packetizer) CurrentDON() uint16 { return p.currentDON }

// Fragmenting reports whether a Fragmentation Unit is in progress.
func (p *Packetizer) Fragmenting() bool { return p.fu != nil }

func (p *Packetizer) donEnabled() bool { return p.maxDONDiff > 0 }

func (p *Packetizer) donlSize() int {
	if p.donEnabled() {
		return donlSize
	}
	return 0
}

// minPacketSize is the smallest payload that still lets a fragmentation
// unit carry one byte of NAL data.
func (p *Packetizer) minPacketSize() int {
	return NALHeaderSize + fuHeaderSize + p.donlSize() + 1
}

// aggregateCount returns how many NAL units from the head of the queue fit
// into one Aggregation Packet of at most limit bytes.
func (p *Packetizer) aggregateCount(limit int) int {
	size := NALHeaderSize
	count := 0
	var prevDON uint16

	for i := 0; i < p.nalus.Len(); i++ {
		nalu, _ := p.nalus.PeekAt(i)
		if len(nalu.Data) > limits.MaxNALUSize {
			break
		}

		member := apSizeField + len(nalu.Data)
		if p.donEnabled() {
			if i == 0 {
				member += donlSize
			} else {
				if nalu.DON-prevDON > 0xFF {
					break
				}
				member += dondSize
			}
		}
		if size+member > limit {
			break
		}

		size += member
		prevDON = nalu.DON
		count++
	}
	return count
}

func (p *Packetizer) writeSingle(buf []byte, nalu NALUnit) int {
	n := copy(buf, nalu.Data[:NALHeaderSize])
	if p.donEnabled() {
		binary.BigEndian.PutUint16(buf[n:], nalu.DON)
		n += donlSize
	}
	n += copy(buf[n:], nalu.Data[NALHeaderSize:])

	p.nalus.Pop()
	p.consumed(nalu)
	p.observer.PacketEmitted(KindSingle, n)
	return n
}

func (p *Packetizer) writeAggregation(buf []byte, count int) int {
	forbidden := false
	layerID := uint8(MaxLayerID)
	tid := uint8(MaxTemporalID)
	for i := 0; i < count; i++ {
		nalu, _ := p.nalus.PeekAt(i)
		forbidden = forbidden || nalu.Forbidden()
		layerID = min(layerID, nalu.LayerID)
		tid = min(tid, nalu.TemporalID)
	}

	hdr := NewNALHeader(forbidden, TypeAggregation, layerID, tid).Bytes()
	n := copy(buf, hdr[:])

	var prevDON uint16
	for i := 0; i < count; i++ {
		nalu, _ := p.nalus.Pop()
		if p.donEnabled() {
			if i == 0 {
				binary.BigEndian.PutUint16(buf[n:], nalu.DON)
				n += donlSize
			} else {
				buf[n] = byte(nalu.DON - prevDON)
				n += dondSize
			}
			prevDON = nalu.DON
		}
		binary.BigEndian.PutUint16(buf[n:], uint16(len(nalu.Data)))
		n += apSizeField
		n += copy(buf[n:], nalu.Data)
		p.consumed(nalu)
	}

	p.log.WithFields(logrus.Fields{
		"function": "Packetizer.GetPacket",
		"members":  count,
		"size":     n,
	}).Debug("Aggregation packet written")
	p.observer.PacketEmitted(KindAggregation, n)
	return n
}

func (p *Packetizer) startFragmentation(nalu NALUnit) {
	hdr := NewNALHeader(nalu.Forbidden(), TypeFragmentation, nalu.LayerID, nalu.TemporalID)
	p.fu = &fragmentState{
		payloadHeader: hdr.Bytes(),
		fuType:        nalu.Type,
		offset:        NALHeaderSize,
		remaining:     len(nalu.Data) - NALHeaderSize,
		first:         true,
	}

	p.log.WithFields(logrus.Fields{
		"function":  "Packetizer.GetPacket",
		"nalu_type": nalu.Type,
		"nalu_size": len(nalu.Data),
	}).Debug("Fragmentation started")
}

// writeFragment emits the next fragment of the head NAL unit. Continuation
// fragments carry a DOND of 0 when DON tracking is enabled.
func (p *Packetizer) writeFragment(buf []byte, nalu NALUnit) int {
	fu := p.fu

	hdrLen := NALHeaderSize + fuHeaderSize
	if p.donEnabled() {
		if fu.first {
			hdrLen += donlSize
		} else {
			hdrLen += dondSize
		}
	}

	space := len(buf) - hdrLen
	last := fu.remaining <= space
	size := min(space, fu.remaining)

	fuHeader := fu.fuType & MaxType
	if fu.first {
		fuHeader |= 0x80
	}
	if last {
		fuHeader |= 0x40
	}

	buf[0], buf[1], buf[2] = fu.payloadHeader[0], fu.payloadHeader[1], fuHeader
	if p.donEnabled() {
		if fu.first {
			binary.BigEndian.PutUint16(buf[3:], nalu.DON)
		} else {
			buf[3] = 0
		}
	}
	copy(buf[hdrLen:], nalu.Data[fu.offset:fu.offset+size])

	fu.offset += size
	fu.remaining -= size
	fu.first = false

	n := hdrLen + size
	p.observer.PacketEmitted(KindFragmentation, n)

	if last {
		p.fu = nil
		p.nalus.Pop()
		p.consumed(nalu)
		p.log.WithFields(logrus.Fields{
			"function":  "Packetizer.GetPacket",
			"nalu_type": nalu.Type,
			"nalu_size": len(nalu.Data),
		}).Debug("Fragmentation finished")
	}
	return n
}

// reset drops every queued unit and any fragmentation in progress. DON
// counters are kept.
func (p *Packetizer) reset() {
	p.nalus.Reset()
	p.fu = nil
}

func (p *Packetizer) consumed(nalu NALUnit) {
	p.currentDON = nalu.DON + 1
}
