package h265

import (
	"fmt"

	"github.com/opd-ai/rtppayload/av"
)

// NAL unit header layout (RFC 7798 section 1.1.4):
//
//	+---------------+---------------+
//	|0|1|2|3|4|5|6|7|0|1|2|3|4|5|6|7|
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|F|   Type    |  LayerId  | TID |
//	+-------------+-----------------+
const (
	// NALHeaderSize is the size of the H.265 NAL unit header and PayloadHdr.
	NALHeaderSize = 2

	// MaxType, MaxLayerID and MaxTemporalID bound the header fields.
	MaxType       = 63
	MaxLayerID    = 63
	MaxTemporalID = 7

	donlSize     = 2
	dondSize     = 1
	fuHeaderSize = 1
	apSizeField  = 2
)

// NAL unit types the payload format treats specially.
const (
	TypeVPS           uint8 = 32
	TypeSPS           uint8 = 33
	TypePPS           uint8 = 34
	TypeAUD           uint8 = 35
	TypeAggregation   uint8 = 48
	TypeFragmentation uint8 = 49
	TypePACI          uint8 = 50
)

// NALHeader is the 2-byte H.265 NAL unit header, also used as PayloadHdr.
type NALHeader uint16

// ParseNALHeader builds a header from its two wire bytes.
func ParseNALHeader(b0, b1 byte) NALHeader {
	return NALHeader(uint16(b0)<<8 | uint16(b1))
}

// NewNALHeader packs the header fields. Out-of-range values are masked.
func NewNALHeader(forbidden bool, typ, layerID, tid uint8) NALHeader {
	h := uint16(typ&MaxType)<<9 | uint16(layerID&MaxLayerID)<<3 | uint16(tid&MaxTemporalID)
	if forbidden {
		h |= 1 << 15
	}
	return NALHeader(h)
}

// F is the forbidden_zero_bit.
func (h NALHeader) F() bool { return h>>15 != 0 }

// Type is the 6-bit NAL unit type.
func (h NALHeader) Type() uint8 { return uint8(h>>9) & MaxType }

// LayerID is the 6-bit nuh_layer_id.
func (h NALHeader) LayerID() uint8 { return uint8(h>>3) & MaxLayerID }

// TID is the 3-bit nuh_temporal_id_plus1.
func (h NALHeader) TID() uint8 { return uint8(h) & MaxTemporalID }

// Bytes returns the header in wire order.
func (h NALHeader) Bytes() [2]byte {
	return [2]byte{byte(h >> 8), byte(h)}
}

func (h NALHeader) String() string {
	return fmt.Sprintf("F=%t Type=%d LayerId=%d TID=%d", h.F(), h.Type(), h.LayerID(), h.TID())
}

// NALUnit is a view over one H.265 NAL unit. Data is borrowed from the
// caller and includes the 2-byte NAL header; the header fields are carried
// alongside so that units added directly can be validated.
type NALUnit struct {
	Data       []byte
	Type       uint8
	LayerID    uint8
	TemporalID uint8
	// DON is the decoding order number; meaningful only with DON tracking.
	DON uint16
}

// NewNALUnit derives a NALUnit from raw NAL bytes.
func NewNALUnit(data []byte) (NALUnit, error) {
	if len(data) < NALHeaderSize {
		return NALUnit{}, fmt.Errorf("%w: NAL unit of %d bytes is shorter than its header", av.ErrMalformedPacket, len(data))
	}
	h := ParseNALHeader(data[0], data[1])
	return NALUnit{
		Data:       data,
		Type:       h.Type(),
		LayerID:    h.LayerID(),
		TemporalID: h.TID(),
	}, nil
}

// Forbidden reports the F bit of the unit's first byte.
func (n NALUnit) Forbidden() bool {
	return len(n.Data) > 0 && n.Data[0]&0x80 != 0
}

// Header packs the unit's descriptor fields, taking F from the data.
func (n NALUnit) Header() NALHeader {
	return NewNALHeader(n.Forbidden(), n.Type, n.LayerID, n.TemporalID)
}

func (n NALUnit) validate() error {
	if len(n.Data) < NALHeaderSize {
		return fmt.Errorf("%w: NAL unit of %d bytes is shorter than its header", av.ErrMalformedPacket, len(n.Data))
	}
	if n.Type > MaxType {
		return fmt.Errorf("%w: NAL unit type %d", av.ErrBadParam, n.Type)
	}
	if n.LayerID > MaxLayerID {
		return fmt.Errorf("%w: layer id %d", av.ErrBadParam, n.LayerID)
	}
	if n.TemporalID > MaxTemporalID {
		return fmt.Errorf("%w: temporal id %d", av.ErrBadParam, n.TemporalID)
	}
	return nil
}
