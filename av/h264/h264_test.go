package h264

import (
	"errors"
	"testing"

	"github.com/opd-ai/rtppayload/av"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSPS = []byte{0x67, 0x42, 0x00, 0x1F}
	testPPS = []byte{0x68, 0xCE, 0x3C, 0x80}
)

func makeIDR(size int) []byte {
	nalu := make([]byte, size)
	nalu[0] = 0x65
	for i := 1; i < size; i++ {
		nalu[i] = byte(i%250) + 3
	}
	return nalu
}

func annexB(nalus ...[]byte) []byte {
	var out []byte
	for _, nalu := range nalus {
		out = append(out, 0x00, 0x00, 0x00, 0x01)
		out = append(out, nalu...)
	}
	return out
}

func drain(t *testing.T, p *Packetizer) [][]byte {
	t.Helper()
	var payloads [][]byte
	for {
		buf := make([]byte, 1500)
		n, err := p.GetPacket(buf)
		if errors.Is(err, av.ErrNoMoreNalus) {
			return payloads
		}
		require.NoError(t, err)
		payloads = append(payloads, buf[:n])
	}
}

func TestPacketizer_AccessUnit(t *testing.T) {
	p, err := NewPacketizer(16, 1200)
	require.NoError(t, err)

	idr := makeIDR(3000)
	require.NoError(t, p.AddFrame(annexB(testSPS, testPPS, idr)))

	payloads := drain(t, p)
	require.Greater(t, len(payloads), 2)

	first, err := GetPacketProperties(payloads[0])
	require.NoError(t, err)
	assert.Equal(t, byte(TypeSTAPA), payloads[0][0]&typeMask)
	assert.True(t, first.IsStart() && first.IsEnd())

	starts, ends := 0, 0
	for _, payload := range payloads[1:] {
		assert.LessOrEqual(t, len(payload), 1200)
		assert.Equal(t, byte(TypeFUA), payload[0]&typeMask)
		props, err := GetPacketProperties(payload)
		require.NoError(t, err)
		if props.IsStart() {
			starts++
		}
		if props.IsEnd() {
			ends++
		}
	}
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, ends)

	d, err := NewDepacketizer(16)
	require.NoError(t, err)
	for _, payload := range payloads {
		require.NoError(t, d.AddPacket(payload))
	}

	out := make([]byte, 4096)
	n, err := d.GetFrame(out)
	require.NoError(t, err)
	assert.Equal(t, annexB(testSPS, testPPS, idr), out[:n])

	_, err = d.GetFrame(out)
	assert.ErrorIs(t, err, av.ErrNoMoreFrames)
}

func TestPacketizer_AddNalu(t *testing.T) {
	p, err := NewPacketizer(4, 1200)
	require.NoError(t, err)

	nalu := []byte{0x41, 0x9A, 0x01, 0x02}
	require.NoError(t, p.AddNalu(nalu))
	assert.Equal(t, 1, p.Len())

	_, err = p.GetPacket(make([]byte, 2))
	assert.ErrorIs(t, err, av.ErrBufferTooSmall)
	assert.Equal(t, 1, p.Len())

	payloads := drain(t, p)
	require.Len(t, payloads, 1)
	assert.Equal(t, nalu, payloads[0])

	assert.ErrorIs(t, p.AddNalu(nil), av.ErrMalformedPacket)
}

func TestPacketizer_Errors(t *testing.T) {
	_, err := NewPacketizer(0, 1200)
	assert.ErrorIs(t, err, av.ErrBadParam)
	_, err = NewPacketizer(4, 0)
	assert.ErrorIs(t, err, av.ErrBadParam)

	p, err := NewPacketizer(2, 1200)
	require.NoError(t, err)
	assert.ErrorIs(t, p.AddFrame(nil), av.ErrBadParam)

	err = p.AddFrame(annexB(makeIDR(5000)))
	assert.ErrorIs(t, err, av.ErrOutOfMemory)
	assert.Equal(t, 0, p.Len(), "nothing queued on overflow")
}

func TestDepacketizer_FrameBufferTooSmall(t *testing.T) {
	d, err := NewDepacketizer(4)
	require.NoError(t, err)
	require.NoError(t, d.AddPacket([]byte{0x41, 0xAA, 0xBB}))

	_, err = d.GetFrame(make([]byte, 6))
	assert.ErrorIs(t, err, av.ErrBufferTooSmall)

	out := make([]byte, 7)
	n, err := d.GetFrame(out)
	require.NoError(t, err)
	assert.Equal(t, annexB([]byte{0x41, 0xAA, 0xBB}), out[:n])
}

func TestDepacketizer_Errors(t *testing.T) {
	_, err := NewDepacketizer(0)
	assert.ErrorIs(t, err, av.ErrBadParam)

	d, err := NewDepacketizer(1)
	require.NoError(t, err)
	assert.ErrorIs(t, d.AddPacket(nil), av.ErrBadParam)
	require.NoError(t, d.AddPacket([]byte{0x19, 0x00, 0x01}))
	assert.ErrorIs(t, d.AddPacket([]byte{0x41, 0x00}), av.ErrNoMorePackets)

	_, err = d.GetFrame(make([]byte, 64))
	assert.ErrorIs(t, err, av.ErrMalformedPacket)
	assert.Equal(t, 0, d.Len())
}

func TestGetPacketProperties(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		wantStart bool
		wantEnd   bool
		wantErr   error
	}{
		{"single", []byte{0x41, 0x9A}, true, true, nil},
		{"STAP-A", []byte{0x78, 0x00, 0x02, 0x67, 0x42}, true, true, nil},
		{"FU-A start", []byte{0x7C, 0x85, 0xAA}, true, false, nil},
		{"FU-A middle", []byte{0x7C, 0x05, 0xAA}, false, false, nil},
		{"FU-A end", []byte{0x7C, 0x45, 0xAA}, false, true, nil},
		{"FU-A truncated", []byte{0x7C, 0x85}, false, false, av.ErrMalformedPacket},
		{"STAP-B", []byte{0x19, 0x00}, false, false, av.ErrUnsupportedPacket},
		{"type zero", []byte{0x00, 0x00}, false, false, av.ErrUnsupportedPacket},
		{"empty", nil, false, false, av.ErrBadParam},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			props, err := GetPacketProperties(tt.data)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, props.IsStart())
			assert.Equal(t, tt.wantEnd, props.IsEnd())
		})
	}
}
