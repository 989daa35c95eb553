// Package h265 implements the RTP payload format for H.265/HEVC (RFC 7798).
//
// # Packetization
//
// A Packetizer queues NAL units, either one by one with AddNalu or by
// splitting an Annex-B access unit with AddFrame, and emits one RTP payload
// per GetPacket call:
//
//	p, err := h265.NewPacketizer(64, 0, 1200)
//	if err != nil {
//	    return err
//	}
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
//
// Each call picks the payload structure on its own:
//
//   - Fragmentation Unit (type 49) while a NAL unit is being fragmented
//   - Aggregation Packet (type 48) when two or more queued units fit
//   - Single NAL Unit packet when the head unit fits
//   - a new Fragmentation Unit otherwise
//
// # Decoding Order Numbers
//
// A non-zero maxDONDiff (sprop-max-don-diff) enables the DONL and DOND
// fields. Single NAL unit packets and first fragments carry a 16-bit DONL,
// aggregation members after the first carry an 8-bit DOND relative to the
// previous member, and continuation fragments carry a DOND of 0.
//
// # Depacketization
//
// A Depacketizer queues received payloads with AddPacket. GetNalu consumes
// one packet (or one aggregation member) per call and returns
// ErrFragmentPending for fragments that do not complete a NAL unit.
// GetFrame loops GetNalu and writes an Annex-B access unit.
//
// # Memory
//
// Queues and the fragment reassembly buffer are sized at construction and
// never grow. NAL unit and packet bytes are borrowed from the caller, so
// they must not be modified while queued.
package h265
