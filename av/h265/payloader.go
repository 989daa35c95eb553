package h265

import (
	"errors"

	"github.com/opd-ai/rtppayload/av"
	"github.com/opd-ai/rtppayload/limits"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
)

// payloaderCapacity bounds the NAL units one Annex-B frame may contain.
// Larger frames are rejected whole rather than sent truncated.
const payloaderCapacity = 256

// Payloader adapts Packetizer to rtp.Payloader so it can drive a
// github.com/pion/rtp Packetizer. DON numbering continues across frames.
type Payloader struct {
	MaxDONDiff uint16
	Options    []Option

	p *Packetizer
}

var _ rtp.Payloader = (*Payloader)(nil)

// Payload packetizes one Annex-B access unit into payloads of at most mtu
// bytes. Invalid input and frames holding more than payloaderCapacity NAL
// units yield no payloads.
func (pl *Payloader) Payload(mtu uint16, frame []byte) [][]byte {
	if pl.p == nil {
		p, err := NewPacketizer(payloaderCapacity, pl.MaxDONDiff, limits.MaxPacketSize, pl.Options...)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Payloader.Payload",
				"error":    err.Error(),
			}).Error("Failed to create packetizer")
			return nil
		}
		pl.p = p
	}

	// units split before a malformed tail are still sent
	if err := pl.p.AddFrame(frame); errors.Is(err, av.ErrOutOfMemory) {
		pl.p.log.WithFields(logrus.Fields{
			"function":   "Payloader.Payload",
			"frame_size": len(frame),
			"error":      err.Error(),
		}).Warn("Dropping access unit with too many NAL units")
		pl.p.reset()
		return nil
	}

	var payloads [][]byte
	buf := make([]byte, mtu)
	for {
		n, err := pl.p.GetPacket(buf)
		if errors.Is(err, av.ErrNoMoreNalus) {
			return payloads
		}
		if err != nil {
			pl.p.log.WithFields(logrus.Fields{
				"function": "Payloader.Payload",
				"mtu":      mtu,
				"error":    err.Error(),
			}).Warn("Discarding queued NAL units")
			pl.p.reset()
			return payloads
		}
		payloads = append(payloads, append([]byte(nil), buf[:n]...))
	}
}
