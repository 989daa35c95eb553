// Package limits provides centralized size constants and validation functions
// for RTP payload packetization. The packetizers in av/h265, av/h264, av/video
// and av/audio consult these limits when validating their construction
// parameters.
//
// # Size Hierarchy
//
//   - DefaultMaxPacketSize (1200 bytes): payload budget used when the caller has
//     no negotiated MTU. Leaves room for IP, UDP and RTP headers on Ethernet.
//
//   - MaxPacketSize (65507 bytes): the largest UDP datagram payload, and so the
//     largest RTP packet any packetizer will be asked to fill.
//
//   - MaxNALUSize (65535 bytes): the 16-bit NALU size field of an H.265
//     aggregation packet caps the members it can carry.
//
//   - DefaultReassemblyCapacity (1MB): scratch space for reassembling
//     fragmented NAL units.
//
// # Validation Functions
//
//	if err := limits.ValidatePacketSize(mtu); err != nil {
//	    return fmt.Errorf("invalid MTU: %w", err)
//	}
//
// Errors wrap the package sentinels, so callers can classify them with
// errors.Is(err, limits.ErrPacketSizeTooLarge).
package limits
