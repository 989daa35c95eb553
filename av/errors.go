package av

import "errors"

// Sentinel errors shared by every payload codec in the av sub-packages.
// These errors enable reliable error classification using errors.Is().

// Caller contract errors.
var (
	// ErrBadParam indicates a nil buffer, zero size or out-of-range argument.
	ErrBadParam = errors.New("bad parameter")
)

// Wire format errors.
var (
	// ErrMalformedPacket indicates input bytes that violate the payload format.
	ErrMalformedPacket = errors.New("malformed packet")

	// ErrUnsupportedPacket indicates a payload type outside the recognized set.
	ErrUnsupportedPacket = errors.New("unsupported packet type")
)

// Capacity errors.
var (
	// ErrOutOfMemory indicates a destination or internal buffer is too small,
	// or a fixed-capacity queue is full.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrBufferTooSmall indicates the frame buffer cannot hold the next unit.
	ErrBufferTooSmall = errors.New("buffer too small")
)

// Iteration sentinels. These mark the normal end of a pull loop.
var (
	// ErrNoMorePackets indicates no packet is available, or the packet queue is full.
	ErrNoMorePackets = errors.New("no more packets")

	// ErrNoMoreNalus indicates the NAL unit or packet queue is drained.
	ErrNoMoreNalus = errors.New("no more NAL units")

	// ErrNoMoreFrames indicates no frame can be assembled from the queue.
	ErrNoMoreFrames = errors.New("no more frames")
)
