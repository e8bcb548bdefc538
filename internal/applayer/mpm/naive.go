// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package mpm

import "bytes"

// naive is the small-pattern-set Matcher variant: a plain per-pattern
// bytes.Index scan, repeated for every occurrence. Simpler and faster
// than building an automaton when there are only a few literals to look
// for per direction, which is the common case for any one signature's
// registered patterns.
type naive struct {
	patterns []naivePattern
}

type naivePattern struct {
	bytes []byte
	id    uint32
}

func newNaive() *naive {
	return &naive{}
}

func (n *naive) AddPattern(pattern []byte, id uint32) {
	p := make([]byte, len(pattern))
	copy(p, pattern)
	n.patterns = append(n.patterns, naivePattern{bytes: p, id: id})
}

func (n *naive) Build() {
	// No precomputation needed; patterns are scanned directly at Search
	// time in registration order.
}

func (n *naive) Search(buf []byte) []Hit {
	var hits []Hit
	for _, p := range n.patterns {
		if len(p.bytes) == 0 || len(p.bytes) > len(buf) {
			continue
		}
		// Overlapping occurrences are reported (as Aho-Corasick naturally
		// would), so advance by one byte past each match start rather than
		// past the whole match.
		start := 0
		for {
			idx := bytes.Index(buf[start:], p.bytes)
			if idx < 0 {
				break
			}
			hits = append(hits, Hit{ID: p.id, Index: start + idx})
			start += idx + 1
			if start >= len(buf) {
				break
			}
		}
	}
	sortHits(hits)
	return hits
}
