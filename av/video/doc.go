// Package video carries VP8 video over RTP (RFC 7741).
//
// PayloadDescriptor encodes and decodes the descriptor in front of every
// VP8 payload. Packetizer slices an encoded frame into payloads behind a
// descriptor, setting the S bit on the first one only, and Depacketizer
// strips the descriptors and concatenates the slices again.
package video
