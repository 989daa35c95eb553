package rtp

import (
	"fmt"

	"github.com/opd-ai/rtppayload/av"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
)

// Version is the only RTP version this package reads or writes.
const Version = 2

// maxCSRC is the largest CSRC count the 4-bit CC field can carry.
const maxCSRC = 15

// Packet is an RTP packet. The embedded header carries the fixed fields,
// the CSRC list and any header extension (see rtp.Header.SetExtension).
type Packet struct {
	rtp.Header
	Payload []byte
	// PaddingSize is the number of padding bytes after the payload,
	// including the trailing count byte. Zero means no padding.
	PaddingSize uint8
}

// MarshalSize returns the serialized length of p.
func (p *Packet) MarshalSize() int {
	hdr := p.Header
	hdr.Padding = p.PaddingSize > 0
	return hdr.MarshalSize() + len(p.Payload) + int(p.PaddingSize)
}

// Serialize writes pkt into buf and returns the number of bytes written.
//
// The version is always written as 2 and the P bit follows PaddingSize.
// Padding bytes are zero except the last one, which holds the count.
//
// Parameters:
//   - pkt: Packet to serialize
//   - buf: Destination buffer
//
// Returns:
//   - int: Bytes written
//   - error: av.ErrBadParam on invalid input, av.ErrBufferTooSmall if buf is short
func Serialize(pkt *Packet, buf []byte) (int, error) {
	if pkt == nil || buf == nil {
		return 0, fmt.Errorf("%w: nil packet or buffer", av.ErrBadParam)
	}
	if len(pkt.CSRC) > maxCSRC {
		return 0, fmt.Errorf("%w: %d CSRC entries", av.ErrBadParam, len(pkt.CSRC))
	}
	if pkt.PayloadType > 0x7F {
		return 0, fmt.Errorf("%w: payload type %d", av.ErrBadParam, pkt.PayloadType)
	}

	hdr := pkt.Header
	hdr.Version = Version
	hdr.Padding = pkt.PaddingSize > 0

	size := hdr.MarshalSize() + len(pkt.Payload) + int(pkt.PaddingSize)
	if len(buf) < size {
		return 0, fmt.Errorf("%w: packet needs %d bytes, have %d", av.ErrBufferTooSmall, size, len(buf))
	}

	n, err := hdr.MarshalTo(buf)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", av.ErrBadParam, err)
	}
	n += copy(buf[n:], pkt.Payload)

	if pad := int(pkt.PaddingSize); pad > 0 {
		clear(buf[n : n+pad-1])
		buf[n+pad-1] = pkt.PaddingSize
		n += pad
	}
	return n, nil
}

// Deserialize parses an RTP packet. The returned payload aliases buf.
func Deserialize(buf []byte) (*Packet, error) {
	pkt := &Packet{}
	n, err := pkt.Header.Unmarshal(buf)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Deserialize",
			"size":     len(buf),
			"error":    err.Error(),
		}).Debug("RTP header rejected")
		return nil, fmt.Errorf("%w: %v", av.ErrMalformedPacket, err)
	}
	if pkt.Version != Version {
		return nil, fmt.Errorf("%w: RTP version %d", av.ErrMalformedPacket, pkt.Version)
	}

	end := len(buf)
	if pkt.Padding {
		if end <= n {
			return nil, fmt.Errorf("%w: padding bit set without padding", av.ErrMalformedPacket)
		}
		pad := int(buf[end-1])
		if pad == 0 || pad > end-n {
			return nil, fmt.Errorf("%w: padding count %d with %d bytes after header", av.ErrMalformedPacket, pad, end-n)
		}
		end -= pad
		pkt.PaddingSize = uint8(pad)
	}

	pkt.Payload = buf[n:end]
	return pkt, nil
}
