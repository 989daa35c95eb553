package audio

import (
	"errors"
	"testing"

	"github.com/opd-ai/rtppayload/av"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(t *testing.T, p *Packetizer, size int) [][]byte {
	t.Helper()
	var payloads [][]byte
	for {
		buf := make([]byte, size)
		n, err := p.GetPacket(buf)
		if errors.Is(err, av.ErrNoMorePackets) {
			return payloads
		}
		require.NoError(t, err)
		payloads = append(payloads, buf[:n])
	}
}

func TestPacketizer_G711Chunking(t *testing.T) {
	frame := make([]byte, 400)
	for i := range frame {
		frame[i] = byte(i)
	}

	p, err := NewG711Packetizer(frame)
	require.NoError(t, err)
	assert.Equal(t, CodecG711, p.Codec())

	payloads := chunk(t, p, 160)
	require.Len(t, payloads, 3)
	assert.Len(t, payloads[0], 160)
	assert.Len(t, payloads[1], 160)
	assert.Len(t, payloads[2], 80)
	assert.True(t, p.Done())

	d, err := NewG711Depacketizer(4)
	require.NoError(t, err)
	for _, payload := range payloads {
		require.NoError(t, d.AddPacket(payload))
	}

	out := make([]byte, 400)
	n, err := d.GetFrame(out)
	require.NoError(t, err)
	assert.Equal(t, frame, out[:n])
}

func TestPacketizer_Opus(t *testing.T) {
	frame := []byte{0xFC, 0xFF, 0xFE}

	p, err := NewOpusPacketizer(frame)
	require.NoError(t, err)
	assert.Equal(t, CodecOpus, p.Codec())

	payloads := chunk(t, p, 1200)
	require.Len(t, payloads, 1)
	assert.Equal(t, frame, payloads[0])

	d, err := NewOpusDepacketizer(2)
	require.NoError(t, err)
	require.NoError(t, d.AddPacket(payloads[0]))

	out := make([]byte, 16)
	n, err := d.GetFrame(out)
	require.NoError(t, err)
	assert.Equal(t, frame, out[:n])
}

func TestPacketizer_Errors(t *testing.T) {
	_, err := NewG711Packetizer(nil)
	assert.ErrorIs(t, err, av.ErrBadParam)

	_, err = NewOpusPacketizer([]byte{})
	assert.ErrorIs(t, err, av.ErrMalformedPacket)

	p, err := NewG711Packetizer([]byte{1, 2})
	require.NoError(t, err)
	_, err = p.GetPacket(nil)
	assert.ErrorIs(t, err, av.ErrBadParam)
}

func TestDepacketizer_Errors(t *testing.T) {
	_, err := NewOpusDepacketizer(0)
	assert.ErrorIs(t, err, av.ErrBadParam)

	d, err := NewG711Depacketizer(2)
	require.NoError(t, err)

	_, err = d.GetFrame(make([]byte, 8))
	assert.ErrorIs(t, err, av.ErrNoMoreFrames)

	assert.ErrorIs(t, d.AddPacket(nil), av.ErrBadParam)
	require.NoError(t, d.AddPacket([]byte{1, 2, 3}))
	require.NoError(t, d.AddPacket([]byte{4, 5}))
	assert.ErrorIs(t, d.AddPacket([]byte{6}), av.ErrNoMorePackets)

	_, err = d.GetFrame(make([]byte, 4))
	assert.ErrorIs(t, err, av.ErrBufferTooSmall)
	assert.Equal(t, 2, d.Len())

	out := make([]byte, 5)
	n, err := d.GetFrame(out)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, out[:n])
	assert.Equal(t, 0, d.Len())
}

func TestDepacketizer_OpusRejectsUnparseablePayload(t *testing.T) {
	d, err := NewOpusDepacketizer(2)
	require.NoError(t, err)

	assert.ErrorIs(t, d.AddPacket(nil), av.ErrMalformedPacket)
	assert.ErrorIs(t, d.AddPacket([]byte{}), av.ErrMalformedPacket)
	assert.Equal(t, 0, d.Len(), "rejected payloads are not queued")

	require.NoError(t, d.AddPacket([]byte{0xFC, 0xFF}))
	out := make([]byte, 4)
	n, err := d.GetFrame(out)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFC, 0xFF}, out[:n])
}

func TestCodecString(t *testing.T) {
	assert.Equal(t, "G.711", CodecG711.String())
	assert.Equal(t, "Opus", CodecOpus.String())
	assert.Equal(t, "unknown", Codec(7).String())
}
