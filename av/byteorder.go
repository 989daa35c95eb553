package av

import (
	"encoding/binary"
	"fmt"
)

// PutUint16 writes v big-endian into the first two bytes of b.
func PutUint16(b []byte, v uint16) error {
	if len(b) < 2 {
		return fmt.Errorf("%w: need 2 bytes, have %d", ErrBufferTooSmall, len(b))
	}
	binary.BigEndian.PutUint16(b, v)
	return nil
}

// Uint16 reads a big-endian uint16 from the first two bytes of b.
func Uint16(b []byte) (uint16, error) {
	if len(b) < 2 {
		return 0, fmt.Errorf("%w: need 2 bytes, have %d", ErrMalformedPacket, len(b))
	}
	return binary.BigEndian.Uint16(b), nil
}

// PutUint32 writes v big-endian into the first four bytes of b.
func PutUint32(b []byte, v uint32) error {
	if len(b) < 4 {
		return fmt.Errorf("%w: need 4 bytes, have %d", ErrBufferTooSmall, len(b))
	}
	binary.BigEndian.PutUint32(b, v)
	return nil
}

// Uint32 reads a big-endian uint32 from the first four bytes of b.
func Uint32(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, fmt.Errorf("%w: need 4 bytes, have %d", ErrMalformedPacket, len(b))
	}
	return binary.BigEndian.Uint32(b), nil
}
