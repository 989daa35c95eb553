package rtp

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/opd-ai/rtppayload/av"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
)

// Stream stamps payloads with the RTP header fields of one outgoing
// synchronization source: SSRC, payload type, sequence number and timestamp.
type Stream struct {
	mu          sync.Mutex
	ssrc        uint32
	payloadType uint8
	clockRate   uint32
	timestamp   uint32
	sequencer   rtp.Sequencer
}

// NewStream creates a stream with a random SSRC and starting sequence number.
//
// Parameters:
//   - payloadType: RTP payload type (0-127)
//   - clockRate: Media clock rate in Hz (e.g. 90000 for video, 48000 for Opus)
//
// Returns:
//   - *Stream: New stream instance
//   - error: av.ErrBadParam on invalid parameters
func NewStream(payloadType uint8, clockRate uint32) (*Stream, error) {
	if payloadType > 0x7F {
		return nil, fmt.Errorf("%w: payload type %d", av.ErrBadParam, payloadType)
	}
	if clockRate == 0 {
		return nil, fmt.Errorf("%w: clock rate cannot be zero", av.ErrBadParam)
	}

	ssrcBytes := make([]byte, 4)
	if _, err := rand.Read(ssrcBytes); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewStream",
			"error":    err.Error(),
		}).Error("Failed to generate SSRC")
		return nil, fmt.Errorf("failed to generate SSRC: %w", err)
	}

	s := &Stream{
		ssrc:        binary.BigEndian.Uint32(ssrcBytes),
		payloadType: payloadType,
		clockRate:   clockRate,
		sequencer:   rtp.NewRandomSequencer(),
	}

	logrus.WithFields(logrus.Fields{
		"function":     "NewStream",
		"ssrc":         s.ssrc,
		"payload_type": payloadType,
		"clock_rate":   clockRate,
	}).Info("RTP stream created")

	return s, nil
}

// SSRC returns the stream's synchronization source identifier.
func (s *Stream) SSRC() uint32 { return s.ssrc }

// Packet wraps payload in a header carrying the next sequence number and the
// current timestamp. The payload is not copied.
func (s *Stream) Packet(payload []byte, marker bool) *Packet {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &Packet{
		Header: rtp.Header{
			Version:        Version,
			Marker:         marker,
			PayloadType:    s.payloadType,
			SequenceNumber: s.sequencer.NextSequenceNumber(),
			Timestamp:      s.timestamp,
			SSRC:           s.ssrc,
		},
		Payload: payload,
	}
}

// Advance moves the timestamp forward by samples clock ticks.
func (s *Stream) Advance(samples uint32) {
	s.mu.Lock()
	s.timestamp += samples
	s.mu.Unlock()
}

// AdvanceDuration moves the timestamp forward by d at the stream clock rate.
func (s *Stream) AdvanceDuration(d time.Duration) {
	s.Advance(uint32(d.Nanoseconds() * int64(s.clockRate) / int64(time.Second)))
}

// Timestamp returns the timestamp the next packet will carry.
func (s *Stream) Timestamp() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timestamp
}

// RollOverCount returns how many times the sequence number has wrapped.
func (s *Stream) RollOverCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sequencer.RollOverCount()
}
