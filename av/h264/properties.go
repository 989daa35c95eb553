package h264

import (
	"fmt"

	"github.com/opd-ai/rtppayload/av"
)

// RFC 6184 NAL unit types used as payload structures.
const (
	TypeSTAPA = 24
	TypeFUA   = 28

	typeMask = 0x1F
)

// GetPacketProperties classifies an RFC 6184 payload. Single NAL unit
// packets and STAP-A are atomic and report both start and end.
func GetPacketProperties(data []byte) (av.Properties, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty packet", av.ErrBadParam)
	}

	switch typ := data[0] & typeMask; {
	case typ >= 1 && typ <= TypeSTAPA:
		return av.PropertyStart | av.PropertyEnd, nil
	case typ == TypeFUA:
		if len(data) < 3 {
			return 0, fmt.Errorf("%w: FU-A of %d bytes", av.ErrMalformedPacket, len(data))
		}
		var props av.Properties
		if data[1]&0x80 != 0 {
			props |= av.PropertyStart
		}
		if data[1]&0x40 != 0 {
			props |= av.PropertyEnd
		}
		return props, nil
	default:
		return 0, fmt.Errorf("%w: payload type %d", av.ErrUnsupportedPacket, typ)
	}
}
