// Package limits provides centralized size limits for RTP payload handling.
// This ensures consistent validation across the packetizers and depacketizers.
package limits

import (
	"errors"
	"fmt"
)

const (
	// DefaultMaxPacketSize is a conservative RTP payload budget for a 1500 byte
	// Ethernet MTU once IP, UDP and RTP headers are removed.
	DefaultMaxPacketSize = 1200

	// MaxPacketSize is the largest payload a single RTP packet can carry over UDP
	MaxPacketSize = 65507

	// RTPHeaderSize is the fixed part of every RTP header (RFC 3550)
	RTPHeaderSize = 12

	// MaxDONDiff is the upper bound of sprop-max-don-diff (RFC 7798 section 7.1)
	MaxDONDiff = 32767

	// MaxNALUSize is the largest NAL unit an aggregation packet can describe,
	// bounded by its 16-bit NALU size field.
	MaxNALUSize = 65535

	// DefaultReassemblyCapacity bounds the fragmentation unit scratch buffer
	DefaultReassemblyCapacity = 1024 * 1024
)

var (
	// ErrPacketSizeZero indicates a zero or negative packet size
	ErrPacketSizeZero = errors.New("packet size must be positive")

	// ErrPacketSizeTooLarge indicates a packet size beyond MaxPacketSize
	ErrPacketSizeTooLarge = errors.New("packet size too large")

	// ErrDONDiffRange indicates a max DON difference outside 0..MaxDONDiff
	ErrDONDiffRange = errors.New("max DON difference out of range")
)

// ValidatePacketSize validates a negotiated maximum payload size.
// Returns an error with context including the actual and maximum sizes.
func ValidatePacketSize(size int) error {
	if size <= 0 {
		return ErrPacketSizeZero
	}
	if size > MaxPacketSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrPacketSizeTooLarge, size, MaxPacketSize)
	}
	return nil
}

// ValidateMaxDONDiff validates a sprop-max-don-diff value.
func ValidateMaxDONDiff(diff uint16) error {
	if diff > MaxDONDiff {
		return fmt.Errorf("%w: %d exceeds %d", ErrDONDiffRange, diff, MaxDONDiff)
	}
	return nil
}
