// Package av holds what the RTP payload format packages share: the error
// values they return, big-endian field helpers and the start/end
// classification reported by their GetPacketProperties functions.
//
// # Sub-Packages
//
//   - av/h265: H.265 packetizer and depacketizer (RFC 7798) with optional
//     decoding order numbers
//   - av/h264: H.264 packetizer and depacketizer (RFC 6184)
//   - av/video: VP8 payload descriptor codec, packetizer and depacketizer
//     (RFC 7741)
//   - av/audio: G.711 and Opus passthrough (de)packetizers
//   - av/rtp: RTP header codec, packet queue and outgoing stream state
//   - av/ring: fixed-capacity ring buffer backing every queue above
//
// # Errors
//
// Every package wraps the sentinels declared here with context, so callers
// classify failures with errors.Is:
//
//	n, err := packetizer.GetPacket(buf)
//	switch {
//	case errors.Is(err, av.ErrNoMoreNalus):
//	    // queue drained
//	case errors.Is(err, av.ErrBadParam):
//	    // buffer too small for any payload
//	case err != nil:
//	    return err
//	}
//
// # Queues
//
// Packetizers and depacketizers allocate their queues once, at
// construction. A full queue is reported instead of grown:
// av.ErrOutOfMemory when adding NAL units and av.ErrNoMorePackets when
// adding packets.
package av
