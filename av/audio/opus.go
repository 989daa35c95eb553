package audio

import (
	"fmt"

	"github.com/opd-ai/rtppayload/av"
	"github.com/pion/opus"
	"github.com/pion/rtp/codecs"
	"github.com/sirupsen/logrus"
)

// ValidateOpusPacket checks that payload is a non-empty Opus packet as
// carried by RFC 7587.
func ValidateOpusPacket(payload []byte) error {
	var pkt codecs.OpusPacket
	if _, err := pkt.Unmarshal(payload); err != nil {
		return fmt.Errorf("%w: Opus payload: %v", av.ErrMalformedPacket, err)
	}
	return nil
}

// OpusBandwidth returns the audio bandwidth signalled by an Opus TOC byte
// (RFC 6716 Section 3.1).
func OpusBandwidth(toc byte) opus.Bandwidth {
	switch config := toc >> 3; {
	case config < 4:
		return opus.BandwidthNarrowband // SILK
	case config < 8:
		return opus.BandwidthMediumband // SILK
	case config < 12:
		return opus.BandwidthWideband // SILK
	case config < 14:
		return opus.BandwidthSuperwideband // Hybrid
	case config < 16:
		return opus.BandwidthFullband // Hybrid
	case config < 20:
		return opus.BandwidthNarrowband // CELT
	case config < 24:
		return opus.BandwidthWideband // CELT
	case config < 28:
		return opus.BandwidthSuperwideband // CELT
	default:
		return opus.BandwidthFullband // CELT
	}
}

// BandwidthForSampleRate returns the Opus bandwidth matching a sample rate.
// Unsupported rates map to fullband.
func BandwidthForSampleRate(sampleRate uint32) opus.Bandwidth {
	switch sampleRate {
	case 8000:
		return opus.BandwidthNarrowband
	case 12000:
		return opus.BandwidthMediumband
	case 16000:
		return opus.BandwidthWideband
	case 24000:
		return opus.BandwidthSuperwideband
	case 48000:
		return opus.BandwidthFullband
	default:
		logrus.WithFields(logrus.Fields{
			"function":    "BandwidthForSampleRate",
			"sample_rate": sampleRate,
		}).Warn("Unsupported sample rate, defaulting to fullband")
		return opus.BandwidthFullband
	}
}
