package h265

import (
	"bytes"
	"fmt"

	"github.com/opd-ai/rtppayload/av"
)

var (
	startCode3 = []byte{0x00, 0x00, 0x01}
	startCode4 = []byte{0x00, 0x00, 0x00, 0x01}
)

// StartCodeSize is the length of the start code AppendAnnexB writes.
const StartCodeSize = 4

// SplitAnnexB walks an Annex-B byte stream and calls emit for every NAL unit
// found between start codes. Bytes before the first start code are skipped.
// A stream without any start code, or a NAL unit shorter than its 2-byte
// header, fails with av.ErrMalformedPacket. Units emitted before the failure
// are not rolled back. An error returned by emit stops the walk.
func SplitAnnexB(frame []byte, emit func(nalu []byte) error) error {
	first := bytes.Index(frame, startCode3)
	if first < 0 {
		return fmt.Errorf("%w: no start code in %d bytes", av.ErrMalformedPacket, len(frame))
	}

	start := first + len(startCode3)
	for {
		next := bytes.Index(frame[start:], startCode3)
		end := len(frame)
		if next >= 0 {
			end = start + next
		}

		nalEnd := end
		if next >= 0 && nalEnd > start && frame[nalEnd-1] == 0x00 {
			// zero byte belongs to a 4-byte start code
			nalEnd--
		}

		nalu := frame[start:nalEnd]
		if len(nalu) < NALHeaderSize {
			return fmt.Errorf("%w: NAL unit at offset %d has %d bytes", av.ErrMalformedPacket, start, len(nalu))
		}
		if err := emit(nalu); err != nil {
			return err
		}

		if next < 0 {
			return nil
		}
		start = end + len(startCode3)
	}
}

// AppendAnnexB appends a 4-byte start code followed by nalu to dst.
func AppendAnnexB(dst, nalu []byte) []byte {
	dst = append(dst, startCode4...)
	return append(dst, nalu...)
}
