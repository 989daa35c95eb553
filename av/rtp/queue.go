package rtp

import (
	"errors"
	"fmt"
	"sync"

	"github.com/opd-ai/rtppayload/av"
	"github.com/opd-ai/rtppayload/av/ring"
	"github.com/sirupsen/logrus"
)

// ErrPacketNotFound is returned by Retrieve when no queued packet carries the
// requested sequence number.
var ErrPacketNotFound = errors.New("packet not found")

type queuedPacket struct {
	seq  uint16
	data []byte
}

// PacketQueue is a fixed-capacity FIFO of serialized RTP packets indexed by
// sequence number, e.g. a retransmission history. It is safe for
// concurrent use.
type PacketQueue struct {
	mu      sync.Mutex
	packets *ring.Ring[queuedPacket]
}

// NewPacketQueue creates a queue holding at most capacity packets.
func NewPacketQueue(capacity int) (*PacketQueue, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity %d", av.ErrBadParam, capacity)
	}
	return &PacketQueue{packets: ring.New[queuedPacket](capacity)}, nil
}

// Enqueue appends a packet. The data is borrowed, not copied.
// Returns av.ErrOutOfMemory when the queue is full.
func (q *PacketQueue) Enqueue(seq uint16, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty packet", av.ErrBadParam)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.packets.Push(queuedPacket{seq: seq, data: data}) {
		return fmt.Errorf("%w: packet queue full (%d)", av.ErrOutOfMemory, q.packets.Cap())
	}
	return nil
}

// ForceEnqueue appends a packet, evicting the oldest one when the queue is
// full. It reports whether an eviction happened.
func (q *PacketQueue) ForceEnqueue(seq uint16, data []byte) (bool, error) {
	if len(data) == 0 {
		return false, fmt.Errorf("%w: empty packet", av.ErrBadParam)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	evicted := false
	if q.packets.Full() {
		old, _ := q.packets.Pop()
		evicted = true
		logrus.WithFields(logrus.Fields{
			"function":    "PacketQueue.ForceEnqueue",
			"evicted_seq": old.seq,
			"new_seq":     seq,
		}).Debug("Evicted oldest packet")
	}
	q.packets.Push(queuedPacket{seq: seq, data: data})
	return evicted, nil
}

// Dequeue removes and returns the oldest packet.
// Returns av.ErrNoMorePackets when the queue is empty.
func (q *PacketQueue) Dequeue() (uint16, []byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	p, ok := q.packets.Pop()
	if !ok {
		return 0, nil, av.ErrNoMorePackets
	}
	return p.seq, p.data, nil
}

// Peek returns the oldest packet without removing it.
func (q *PacketQueue) Peek() (uint16, []byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	p, ok := q.packets.Peek()
	if !ok {
		return 0, nil, av.ErrNoMorePackets
	}
	return p.seq, p.data, nil
}

// Retrieve returns the newest queued packet with sequence number seq,
// leaving it queued.
func (q *PacketQueue) Retrieve(seq uint16) ([]byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := q.packets.Len() - 1; i >= 0; i-- {
		p, _ := q.packets.PeekAt(i)
		if p.seq == seq {
			return p.data, nil
		}
	}
	return nil, fmt.Errorf("%w: sequence %d", ErrPacketNotFound, seq)
}

// Len returns the number of queued packets.
func (q *PacketQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.packets.Len()
}

// Cap returns the queue capacity.
func (q *PacketQueue) Cap() int { return q.packets.Cap() }
