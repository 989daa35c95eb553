// Package audio carries G.711 and Opus audio over RTP.
//
// Neither format has a payload header, so the packetizers only copy the
// encoded frame into packet-sized chunks and the depacketizers concatenate
// queued payloads. Opus payloads are checked with
// github.com/pion/rtp/codecs, and OpusBandwidth reads the audio bandwidth
// from an Opus TOC byte.
package audio
