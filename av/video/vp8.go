package video

import (
	"encoding/binary"
	"fmt"

	"github.com/opd-ai/rtppayload/av"
	"github.com/pion/rtp/codecs"
)

// VP8 payload descriptor bits (RFC 7741 Section 4.2).
const (
	bitX = 0x80
	bitN = 0x20
	bitS = 0x10
	bitI = 0x80
	bitL = 0x40
	bitT = 0x20
	bitK = 0x10
	bitM = 0x80
	bitY = 0x20

	maxPartitionID   = 0x07
	maxShortPicture  = 0x7F
	maxPictureID     = 0x7FFF
	maxTemporalID    = 0x03
	maxKeyFrameIndex = 0x1F
)

// PayloadDescriptor is the VP8 payload descriptor that precedes every VP8
// RTP payload. The X byte is written whenever any optional field is present.
type PayloadDescriptor struct {
	NonReference     bool  // N
	StartOfPartition bool  // S
	PartitionID      uint8 // PID, 0-7

	HasPictureID bool // I
	PictureID    uint16
	// LongPictureID selects the 15-bit PictureID form. IDs above 127
	// always use it.
	LongPictureID bool

	HasTL0PICIDX bool // L
	TL0PICIDX    uint8

	HasTID    bool  // T
	TID       uint8 // 0-3
	LayerSync bool  // Y

	HasKeyIdx bool  // K
	KeyIdx    uint8 // 0-31
}

func (d *PayloadDescriptor) extended() bool {
	return d.HasPictureID || d.HasTL0PICIDX || d.HasTID || d.HasKeyIdx
}

func (d *PayloadDescriptor) longPictureID() bool {
	return d.LongPictureID || d.PictureID > maxShortPicture
}

func (d *PayloadDescriptor) validate() error {
	switch {
	case d.PartitionID > maxPartitionID:
		return fmt.Errorf("%w: VP8 partition id %d", av.ErrBadParam, d.PartitionID)
	case d.PictureID > maxPictureID:
		return fmt.Errorf("%w: VP8 picture id %d", av.ErrBadParam, d.PictureID)
	case d.TID > maxTemporalID:
		return fmt.Errorf("%w: VP8 temporal layer %d", av.ErrBadParam, d.TID)
	case d.KeyIdx > maxKeyFrameIndex:
		return fmt.Errorf("%w: VP8 key frame index %d", av.ErrBadParam, d.KeyIdx)
	}
	return nil
}

// MarshalSize returns the encoded descriptor length, 1 to 6 bytes.
func (d *PayloadDescriptor) MarshalSize() int {
	size := 1
	if !d.extended() {
		return size
	}
	size++
	if d.HasPictureID {
		size++
		if d.longPictureID() {
			size++
		}
	}
	if d.HasTL0PICIDX {
		size++
	}
	if d.HasTID || d.HasKeyIdx {
		size++
	}
	return size
}

// MarshalTo writes the descriptor into buf and returns its length.
func (d *PayloadDescriptor) MarshalTo(buf []byte) (int, error) {
	if err := d.validate(); err != nil {
		return 0, err
	}
	size := d.MarshalSize()
	if len(buf) < size {
		return 0, fmt.Errorf("%w: VP8 descriptor needs %d bytes, have %d", av.ErrBufferTooSmall, size, len(buf))
	}

	b := d.PartitionID
	if d.NonReference {
		b |= bitN
	}
	if d.StartOfPartition {
		b |= bitS
	}
	if !d.extended() {
		buf[0] = b
		return 1, nil
	}
	buf[0] = b | bitX

	var ext byte
	if d.HasPictureID {
		ext |= bitI
	}
	if d.HasTL0PICIDX {
		ext |= bitL
	}
	if d.HasTID {
		ext |= bitT
	}
	if d.HasKeyIdx {
		ext |= bitK
	}
	buf[1] = ext
	n := 2

	if d.HasPictureID {
		if d.longPictureID() {
			binary.BigEndian.PutUint16(buf[n:], d.PictureID|bitM<<8)
			n += 2
		} else {
			buf[n] = byte(d.PictureID)
			n++
		}
	}
	if d.HasTL0PICIDX {
		buf[n] = d.TL0PICIDX
		n++
	}
	if d.HasTID || d.HasKeyIdx {
		tk := d.TID<<6 | d.KeyIdx
		if d.LayerSync {
			tk |= bitY
		}
		buf[n] = tk
		n++
	}
	return n, nil
}

// Unmarshal parses the descriptor at the start of payload and returns its
// length; the VP8 data follows it.
func (d *PayloadDescriptor) Unmarshal(payload []byte) (int, error) {
	var pkt codecs.VP8Packet
	data, err := pkt.Unmarshal(payload)
	if err != nil {
		return 0, fmt.Errorf("%w: VP8 payload: %v", av.ErrMalformedPacket, err)
	}

	*d = PayloadDescriptor{
		NonReference:     pkt.N == 1,
		StartOfPartition: pkt.S == 1,
		PartitionID:      pkt.PID,
		HasPictureID:     pkt.I == 1,
		PictureID:        pkt.PictureID,
		HasTL0PICIDX:     pkt.L == 1,
		TL0PICIDX:        pkt.TL0PICIDX,
		HasTID:           pkt.T == 1,
		HasKeyIdx:        pkt.K == 1,
	}
	if d.HasTID {
		d.TID = pkt.TID
		d.LayerSync = pkt.Y == 1
	}
	if d.HasKeyIdx {
		d.KeyIdx = pkt.KEYIDX
	}
	if d.HasPictureID {
		// the M bit is the first bit after the X byte
		d.LongPictureID = payload[2]&bitM != 0
	}
	return len(payload) - len(data), nil
}
