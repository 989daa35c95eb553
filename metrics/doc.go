// Package metrics counts what the H.265 packetizer and depacketizer do and
// exposes the counts in the Prometheus text format.
//
// A *Metrics satisfies h265.Observer:
//
//	m := metrics.New()
//	p, _ := h265.NewPacketizer(64, 0, limits.DefaultMaxPacketSize, h265.WithObserver(m))
//	http.Handle("/metrics", m.Handler())
//
// Counters are read lazily at scrape time, so observing adds only atomic
// increments to the packetization path.
package metrics
