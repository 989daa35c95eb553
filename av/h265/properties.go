package h265

import (
	"fmt"

	"github.com/opd-ai/rtppayload/av"
)

// GetPacketProperties classifies a payload without touching any
// depacketizer state. Single NAL unit and aggregation packets are atomic
// and report both start and end.
func GetPacketProperties(data []byte) (av.Properties, error) {
	if len(data) < NALHeaderSize {
		return 0, fmt.Errorf("%w: packet of %d bytes", av.ErrBadParam, len(data))
	}

	switch typ := ParseNALHeader(data[0], data[1]).Type(); {
	case typ >= 1 && typ <= TypeAggregation:
		return av.PropertyStart | av.PropertyEnd, nil
	case typ == TypeFragmentation:
		if len(data) < NALHeaderSize+fuHeaderSize+1 {
			return 0, fmt.Errorf("%w: fragmentation unit of %d bytes", av.ErrMalformedPacket, len(data))
		}
		var props av.Properties
		if data[2]&0x80 != 0 {
			props |= av.PropertyStart
		}
		if data[2]&0x40 != 0 {
			props |= av.PropertyEnd
		}
		return props, nil
	default:
		return 0, fmt.Errorf("%w: payload type %d", av.ErrUnsupportedPacket, typ)
	}
}
