// Package rtp provides the RTP framing used around the payload formats in
// the av packages.
//
// It covers three small pieces built on github.com/pion/rtp:
//
//   - Serialize and Deserialize encode the RTP header (version 2, CSRC list,
//     header extension) together with the payload and optional padding.
//   - PacketQueue is a fixed-capacity FIFO of serialized packets that can
//     also be searched by sequence number for retransmission.
//   - Stream assigns SSRC, sequence numbers and timestamps to outgoing
//     payloads.
//
// # Sending
//
//	stream, err := rtp.NewStream(96, 90000)
//	if err != nil {
//	    return err
//	}
//	pkt := stream.Packet(payload, lastOfFrame)
//	n, err := rtp.Serialize(pkt, buf)
//	if err != nil {
//	    return err
//	}
//	history.ForceEnqueue(pkt.SequenceNumber, buf[:n])
//
// # Receiving
//
//	pkt, err := rtp.Deserialize(datagram)
//	if err != nil {
//	    return err // av.ErrMalformedPacket
//	}
//	depacketizer.AddPacket(pkt.Payload)
package rtp
