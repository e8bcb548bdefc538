// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package flowstate is the "Flow state handed back" surface spec.md §6
// describes: a per-flow record carrying the 5-tuple, the app-layer
// protocol (set once per flow), the per-direction SMB2 parser
// accumulator, and the per-direction byte counters stream_size reads.
package flowstate

import (
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"lorasec.io/detect/internal/applayer"
	"lorasec.io/detect/internal/keywords"
	"lorasec.io/detect/internal/packet"
	"lorasec.io/detect/internal/smb2"
)

// Flow is one tracked connection. Construct with New, which sets the ID,
// 5-tuple and timestamps; appProto needs no setup, since its zero value is
// applayer.Unknown.
type Flow struct {
	ID      string
	SrcIP   netip.Addr
	DstIP   netip.Addr
	SrcPort uint16
	DstPort uint16
	IPProto uint8

	StartTime time.Time
	LastSeen  time.Time

	appProto atomic.Int32 // applayer.Proto; 0 (Unknown) means "not yet classified"

	mu    sync.Mutex
	smb2  [2]*smb2.State
	isn   [2]uint32
	seq   [2]uint32
	hasIs [2]bool
}

// New returns a Flow ready for tracking, stamped with now as both
// StartTime and LastSeen.
func New(id string, src, dst netip.Addr, srcPort, dstPort uint16, ipProto uint8, now time.Time) *Flow {
	return &Flow{
		ID:        id,
		SrcIP:     src,
		DstIP:     dst,
		SrcPort:   srcPort,
		DstPort:   dstPort,
		IPProto:   ipProto,
		StartTime: now,
		LastSeen:  now,
	}
}

// Touch updates LastSeen to now, for flow-expiry bookkeeping.
func (f *Flow) Touch(now time.Time) { f.LastSeen = now }

// AppProto returns the flow's classified protocol, or applayer.Unknown if
// C3 hasn't classified it yet.
func (f *Flow) AppProto() applayer.Proto {
	return applayer.Proto(f.appProto.Load())
}

// SetAppProto sets the flow's app-proto if (and only if) it hasn't been
// set yet, matching spec.md §6's "set once per flow when detection
// succeeds." Returns true if this call performed the set; false if the
// flow was already classified (by this or another goroutine racing the
// same flow).
func (f *Flow) SetAppProto(p applayer.Proto) bool {
	return f.appProto.CompareAndSwap(int32(applayer.Unknown), int32(p))
}

// SMB2State returns (lazily allocating) the per-direction SMB2 parser
// accumulator for dir.
func (f *Flow) SMB2State(dir packet.Direction) *smb2.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.smb2[dir] == nil {
		f.smb2[dir] = smb2.New()
	}
	return f.smb2[dir]
}

// SetISN records dir's initial sequence number, the baseline StreamDiff
// measures from.
func (f *Flow) SetISN(dir packet.Direction, isn uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.isn[dir] = isn
	f.seq[dir] = isn
	f.hasIs[dir] = true
}

// AdvanceSeq records the highest next-expected sequence number observed
// so far in dir. Out-of-order/retransmitted segments that don't advance
// the high-water mark are ignored, matching next_seq's meaning as "bytes
// ACKed so far," not "bytes seen in this packet."
func (f *Flow) AdvanceSeq(dir packet.Direction, nextSeq uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.hasIs[dir] {
		return
	}
	if nextSeq-f.isn[dir] > f.seq[dir]-f.isn[dir] {
		f.seq[dir] = nextSeq
	}
}

// ObserveSegment folds one packet's sequence number into dir's stream
// state: the first segment seen in a direction establishes its ISN
// (treating the first observed byte as the baseline, since this core
// never sees the handshake's SYN in isolation from payload-bearing
// packets); subsequent segments advance the high-water mark exactly as
// AdvanceSeq does.
func (f *Flow) ObserveSegment(dir packet.Direction, seq uint32, payloadLen int) {
	f.mu.Lock()
	hasIs := f.hasIs[dir]
	f.mu.Unlock()
	if !hasIs {
		f.SetISN(dir, seq)
	}
	f.AdvanceSeq(dir, seq+uint32(payloadLen))
}

// StreamDiff returns dir's next_seq - isn byte count for the
// stream_size keyword, or Available=false if dir's ISN hasn't been
// observed yet (the handshake hasn't completed, or this protocol has no
// ISN concept) — spec.md §4.6's "fail closed when required state... is
// unavailable."
func (f *Flow) StreamDiff(dir packet.Direction) keywords.Diff {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.hasIs[dir] {
		return keywords.Diff{}
	}
	return keywords.Diff{Value: f.seq[dir] - f.isn[dir], Available: true}
}
