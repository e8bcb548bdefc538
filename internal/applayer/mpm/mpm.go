// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package mpm implements the multi-pattern matcher C3's app-layer
// detector runs per direction: register literal byte patterns, then
// search a buffer for every occurrence of any of them. Two variants
// satisfy the same interface — a hand-rolled Aho-Corasick automaton for
// larger pattern sets, and a naive scanner for the handful-of-literals
// case that's actually common per direction — so callers never touch the
// concrete type, per DESIGN NOTES §9's "dynamic dispatch re-expressed as
// a sum type" guidance.
package mpm

// Hit is one pattern occurrence found by a Matcher.Search call.
type Hit struct {
	ID    uint32 // the pattern ID passed to AddPattern
	Index int    // byte offset in the searched buffer where the match starts
}

// Matcher is satisfied by every MPM variant this package provides.
// Implementations are built once (AddPattern calls followed by Build) and
// are then read-only and safe for concurrent Search calls, matching
// spec.md §5's "MPM contexts ... built single-threaded at rule-load, then
// frozen."
type Matcher interface {
	AddPattern(pattern []byte, id uint32)
	Build()
	// Search returns every (pattern, offset) hit in buf, in ascending
	// offset order and, for ties, ascending pattern-ID (insertion) order
	// per spec.md §4.3's ordering rule.
	Search(buf []byte) []Hit
}

// naiveThreshold is the pattern-count boundary New uses to choose between
// the two variants: below it, the naive scanner's lower constant-factor
// overhead beats Aho-Corasick's automaton-construction cost for buffers
// this small; at or above it, Aho-Corasick's single-pass guarantee wins.
const naiveThreshold = 8

// New selects a Matcher implementation based on the number of patterns
// that will be registered. Selection happens once, at Finalize time, per
// SPEC_FULL.md's C3 section.
func New(expectedPatterns int) Matcher {
	if expectedPatterns < naiveThreshold {
		return newNaive()
	}
	return newAhoCorasick()
}
