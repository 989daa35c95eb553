// Package h264 packetizes and depacketizes H.264 video for RTP (RFC 6184,
// non-interleaved mode).
//
// The payload structures themselves come from github.com/pion/rtp/codecs;
// this package wraps them in the same fixed-capacity queue API as the
// av/h265 package so both codecs can be driven the same way:
//
//	p, _ := h264.NewPacketizer(64, 1200)
//	if err := p.AddFrame(accessUnit); err != nil {
//	    return err
//	}
//	buf := make([]byte, 1200)
//	for {
//	    n, err := p.GetPacket(buf)
//	    if errors.Is(err, av.ErrNoMoreNalus) {
//	        break
//	    }
//	    send(buf[:n])
//	}
package h264
