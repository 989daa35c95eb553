package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/opd-ai/rtppayload/av"
	"github.com/opd-ai/rtppayload/av/h265"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.PacketEmitted(h265.KindSingle, 100)
	m.PacketEmitted(h265.KindFragmentation, 1200)
	m.PacketEmitted(h265.KindFragmentation, 300)
	m.NaluEmitted(h265.KindAggregation, 40)
	m.PacketEmitted(h265.PayloadKind(7), 10)

	assert.Equal(t, uint64(1), m.Packets(h265.KindSingle))
	assert.Equal(t, uint64(0), m.Packets(h265.KindAggregation))
	assert.Equal(t, uint64(2), m.Packets(h265.KindFragmentation))
	assert.Equal(t, uint64(0), m.Packets(h265.PayloadKind(7)))
	assert.Equal(t, uint64(1), m.Nalus(h265.KindAggregation))
	assert.Equal(t, uint64(1610), m.packetBytes.Load())
	assert.Equal(t, uint64(40), m.naluBytes.Load())
}

func TestMetrics_DropReasons(t *testing.T) {
	tests := []struct {
		err    error
		reason DropReason
	}{
		{fmt.Errorf("%w: short", av.ErrMalformedPacket), DropMalformed},
		{fmt.Errorf("%w: type 50", av.ErrUnsupportedPacket), DropUnsupported},
		{fmt.Errorf("%w: reassembly", av.ErrOutOfMemory), DropOutOfMemory},
		{errors.New("boom"), DropOther},
	}

	for _, tt := range tests {
		t.Run(tt.reason.String(), func(t *testing.T) {
			m := New()
			m.Dropped(tt.err)
			assert.Equal(t, uint64(1), m.DroppedCount(tt.reason))
		})
	}

	assert.Equal(t, uint64(0), New().DroppedCount(DropReason(42)))
}

func TestMetrics_Exposition(t *testing.T) {
	m := New()
	m.Dropped(av.ErrMalformedPacket)
	m.Dropped(av.ErrMalformedPacket)
	m.Dropped(av.ErrUnsupportedPacket)

	expected := `
# HELP rtppayload_dropped_total Packets or partial NAL units discarded by depacketizers
# TYPE rtppayload_dropped_total counter
rtppayload_dropped_total{reason="malformed"} 2
rtppayload_dropped_total{reason="other"} 0
rtppayload_dropped_total{reason="out_of_memory"} 0
rtppayload_dropped_total{reason="unsupported"} 1
`
	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "rtppayload_dropped_total")
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(m.Registry(), "rtppayload_packets_emitted_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMetrics_ObservesRoundTrip(t *testing.T) {
	m := New()

	p, err := h265.NewPacketizer(16, 0, 200, h265.WithObserver(m))
	require.NoError(t, err)

	small := []byte{0x02, 0x01, 0xAA, 0xBB}
	large := make([]byte, 500)
	large[0], large[1] = 0x02, 0x01
	for _, data := range [][]byte{small, small, large} {
		nalu, err := h265.NewNALUnit(data)
		require.NoError(t, err)
		require.NoError(t, p.AddNalu(nalu))
	}

	d, err := h265.NewDepacketizer(16, false, h265.WithObserver(m))
	require.NoError(t, err)
	for {
		buf := make([]byte, 200)
		n, err := p.GetPacket(buf)
		if errors.Is(err, av.ErrNoMoreNalus) {
			break
		}
		require.NoError(t, err)
		require.NoError(t, d.AddPacket(buf[:n]))
	}

	out := make([]byte, 1024)
	_, err = d.GetFrame(out)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), m.Packets(h265.KindAggregation))
	assert.Equal(t, uint64(3), m.Packets(h265.KindFragmentation))
	assert.Equal(t, uint64(2), m.Nalus(h265.KindAggregation))
	assert.Equal(t, uint64(1), m.Nalus(h265.KindFragmentation))
	assert.Equal(t, uint64(len(small)*2+len(large)), m.naluBytes.Load())
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.PacketEmitted(h265.KindSingle, 42)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `rtppayload_packets_emitted_total{kind="single"} 1`)
	assert.Contains(t, string(body), "rtppayload_packet_bytes_emitted_total 42")
}
