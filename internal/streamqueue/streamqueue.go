// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package streamqueue implements the detection core's stream-message
// queue (C5): a pool-allocated StreamMsg hand-off between the
// reassembler and the inspection stage. The pool is serialized by one
// mutex; per-flow queues are doubly linked FIFOs the caller is expected
// to guard with its own flow lock (enqueue/dequeue here do no locking
// of their own).
package streamqueue

import (
	"sync"

	"lorasec.io/detect/internal/packet"
)

// MsgDataSize is the fixed buffer size of one reassembled chunk.
const MsgDataSize = 2048

// Flag bits on a StreamMsg.
type Flag uint8

const (
	FlagStart Flag = 1 << iota
	FlagEOF
	FlagGap
	FlagToServer
	FlagToClient
)

// StreamMsg is one reassembled chunk handed from the reassembler to
// inspection. Data/DataLen/Seq are meaningless when Flags has FlagGap
// set; GapSize is meaningless otherwise — this is the tagged union
// spec.md §3 describes, flattened into one struct since Go has no
// space-saving reason to do otherwise for a 2 KiB message.
type StreamMsg struct {
	ID      uint32
	Flags   Flag
	SrcIP   string
	DstIP   string
	SrcPort uint16
	DstPort uint16
	Data    [MsgDataSize]byte
	DataLen uint16
	Seq     uint32
	GapSize uint32

	next, prev *StreamMsg
}

// reset zeroes a message for reuse, matching PoolGet handing back a
// zeroed value in the original pool implementation.
func (s *StreamMsg) reset() {
	id := s.ID
	*s = StreamMsg{ID: id}
}

const (
	defaultPoolSize = 5000
	poolGrowthStep  = 250
)

// Pool is the single-mutex StreamMsg allocator. The zero value is not
// ready to use; call NewPool.
type Pool struct {
	mu        sync.Mutex
	free      []*StreamMsg
	nextID    uint32
	grow      int
	onExhaust func()
}

// NewPool returns a Pool pre-sized to size messages (defaultPoolSize if
// size <= 0), growing by poolGrowthStep whenever it runs dry.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = defaultPoolSize
	}
	p := &Pool{grow: poolGrowthStep}
	p.growBy(size)
	return p
}

func (p *Pool) growBy(n int) {
	for i := 0; i < n; i++ {
		p.nextID++
		p.free = append(p.free, &StreamMsg{ID: p.nextID})
	}
}

// SetGrowthStep overrides how many messages Get allocates each time the
// pool runs dry (poolGrowthStep by default), e.g. from
// DetectorConfig.StreamPoolGrowthStep. A non-positive step is ignored.
func (p *Pool) SetGrowthStep(step int) {
	if step <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.grow = step
}

// SetExhaustionHook registers fn to be called each time Get has to grow
// the pool beyond its initial sizing — the wiring point for a
// stream-pool-exhaustion metric.
func (p *Pool) SetExhaustionHook(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onExhaust = fn
}

// Get returns a zeroed message from the pool, growing the pool if it is
// currently empty rather than blocking — spec.md §4.5 describes
// get_from_pool as blocking in the original reassembler-threading
// model, but a fixed size with no eviction path under a single process
// mutex would deadlock a single-goroutine caller; growing on demand
// preserves "never fails" without introducing a wait with no one to
// wake it.
func (p *Pool) Get() *StreamMsg {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free) == 0 {
		p.growBy(p.grow)
		if p.onExhaust != nil {
			p.onExhaust()
		}
	}
	n := len(p.free) - 1
	msg := p.free[n]
	p.free = p.free[:n]
	msg.reset()
	return msg
}

// Put returns msg to the pool.
func (p *Pool) Put(msg *StreamMsg) {
	if msg == nil {
		return
	}
	msg.next, msg.prev = nil, nil

	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, msg)
}

// Queue is a per-flow doubly linked FIFO: enqueue at top (head),
// dequeue at bot (tail). Queue itself does no locking — callers share
// the flow's own lock, per spec.md §4.5's "under the caller's locking
// discipline."
type Queue struct {
	top, bot *StreamMsg
	len      int
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Len returns the number of messages currently queued.
func (q *Queue) Len() int { return q.len }

// Put enqueues msg at the head. O(1).
func (q *Queue) Put(msg *StreamMsg) {
	if q.top != nil {
		msg.next = q.top
		q.top.prev = msg
		q.top = msg
	} else {
		q.top = msg
		q.bot = msg
	}
	q.len++
}

// Get dequeues from the tail, or returns nil if the queue is empty.
// Non-blocking: callers that need a message to appear retry rather than
// wait here.
func (q *Queue) Get() *StreamMsg {
	if q.len == 0 {
		return nil
	}
	msg := q.bot
	if msg.prev != nil {
		q.bot = msg.prev
		q.bot.next = nil
	} else {
		q.top = nil
		q.bot = nil
	}
	q.len--
	msg.next, msg.prev = nil, nil
	return msg
}

// ChunkLens holds the per-direction min-chunk-length hints C3 writes
// during Finalize and the reassembler reads to decide when to release a
// chunk (spec.md §4.5's set_min_init_chunk_len/set_min_chunk_len).
type ChunkLens struct {
	minInit [2]int
	min     [2]int
}

// NewChunkLens returns a zeroed ChunkLens.
func NewChunkLens() *ChunkLens {
	return &ChunkLens{}
}

// SetMinInitChunkLen records the minimum buffer length the reassembler
// must accumulate before the very first chunk in dir is released,
// satisfying the applayer package's chunkLenSetter interface.
func (c *ChunkLens) SetMinInitChunkLen(dir packet.Direction, n int) {
	c.minInit[dir] = n
}

// SetMinChunkLen records the minimum length for subsequent chunks.
func (c *ChunkLens) SetMinChunkLen(dir packet.Direction, n int) {
	c.min[dir] = n
}

func (c *ChunkLens) MinInitChunkLen(dir packet.Direction) int { return c.minInit[dir] }
func (c *ChunkLens) MinChunkLen(dir packet.Direction) int     { return c.min[dir] }
