// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package flowstate

import (
	"net/netip"
	"sync"
	"time"

	"lorasec.io/detect/internal/clock"
)

// Table abstracts "the flow store": something that can be swapped
// between a real backend and an in-memory implementation for PCAP
// replay. This core never talks to conntrack directly (spec.md §6: the
// core consumes an already-decoded packet and an injected flow
// reference), so only the flow-table slice of such an interface is
// needed here.
type Table interface {
	// Get returns the flow for id, if tracked.
	Get(id string) (*Flow, bool)
	// GetOrCreate returns the existing flow for id, or creates and stores
	// a new one using the given 5-tuple.
	GetOrCreate(id string, src, dst netip.Addr, srcPort, dstPort uint16, ipProto uint8) *Flow
	// Delete drops a flow, per spec.md §5's "when a flow is destroyed,
	// its queued stream messages are drained... and per-flow state... is
	// freed."
	Delete(id string)
	// Len reports the number of tracked flows.
	Len() int
}

// MapTable is the production Table: a sync.Map-backed flow store with no
// expiry logic of its own (flow expiry is driven externally, per spec.md
// §5, by calling Delete).
type MapTable struct {
	clk clock.Clock
	m   sync.Map // id -> *Flow
	n   int64    // approximate count, best-effort (sync.Map has no Len)
	mu  sync.Mutex
}

// NewMapTable returns an empty MapTable using clk to stamp new flows.
func NewMapTable(clk clock.Clock) *MapTable {
	return &MapTable{clk: clk}
}

func (t *MapTable) Get(id string) (*Flow, bool) {
	v, ok := t.m.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Flow), true
}

func (t *MapTable) GetOrCreate(id string, src, dst netip.Addr, srcPort, dstPort uint16, ipProto uint8) *Flow {
	if v, ok := t.m.Load(id); ok {
		return v.(*Flow)
	}
	f := New(id, src, dst, srcPort, dstPort, ipProto, t.clk.Now())
	actual, loaded := t.m.LoadOrStore(id, f)
	if !loaded {
		t.mu.Lock()
		t.n++
		t.mu.Unlock()
	}
	return actual.(*Flow)
}

func (t *MapTable) Delete(id string) {
	if _, ok := t.m.LoadAndDelete(id); ok {
		t.mu.Lock()
		t.n--
		t.mu.Unlock()
	}
}

func (t *MapTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int(t.n)
}

// SimTable is a mock-clock-driven Table for deterministic tests and
// end-to-end scenario replay against a mock clock.
type SimTable struct {
	Clock *clock.Mock

	mu sync.RWMutex
	m  map[string]*Flow
}

// NewSimTable returns an empty SimTable driven by clk.
func NewSimTable(clk *clock.Mock) *SimTable {
	return &SimTable{Clock: clk, m: make(map[string]*Flow)}
}

func (t *SimTable) Get(id string) (*Flow, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.m[id]
	return f, ok
}

func (t *SimTable) GetOrCreate(id string, src, dst netip.Addr, srcPort, dstPort uint16, ipProto uint8) *Flow {
	t.mu.Lock()
	defer t.mu.Unlock()
	if f, ok := t.m[id]; ok {
		return f
	}
	f := New(id, src, dst, srcPort, dstPort, ipProto, t.Clock.Now())
	t.m[id] = f
	return f
}

func (t *SimTable) Delete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.m, id)
}

func (t *SimTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.m)
}

// ExpireOlderThan deletes every flow whose LastSeen is older than
// t.Clock.Now()-maxAge. Applied as an active sweep rather than a
// dump-time filter, since this core has no periodic dump operation of
// its own.
func (t *SimTable) ExpireOlderThan(maxAge time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.Clock.Now()
	for id, f := range t.m {
		if now.Sub(f.LastSeen) >= maxAge {
			delete(t.m, id)
		}
	}
}
