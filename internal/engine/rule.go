// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package engine is the detection core's orchestration layer: it wires C1
// (address algebra, via C7/C2's build), C2 (IP-only matching), C3
// (app-layer protocol detection), and C6 (keyword matchers) into the two
// moments described in spec.md §2 — rule-load time (CompilePipeline) and
// packet time (Inspect).
package engine

import (
	"lorasec.io/detect/internal/keywords"
)

// Rule is one compiled signature's keyword constraints — the part of a
// rule C2's radix match can't express. A signature with neither keyword
// set matches as soon as its address/protocol predicate (C2) does; one
// with a keyword set must additionally pass that keyword's C6 evaluation.
type Rule struct {
	ID         uint32
	Rpc        *keywords.Rpc
	StreamSize *keywords.StreamSize
}

// RuleSet indexes compiled rules by signature ID for RefineCandidates'
// post-C2 keyword pass.
type RuleSet struct {
	rules map[uint32]Rule
}

// NewRuleSet returns an empty RuleSet.
func NewRuleSet() *RuleSet {
	return &RuleSet{rules: make(map[uint32]Rule)}
}

// Add registers a compiled rule's keyword constraints.
func (rs *RuleSet) Add(r Rule) {
	rs.rules[r.ID] = r
}

// Get returns the rule registered for sigID, if any; a registered rule may
// carry no keyword constraints at all.
// A nil RuleSet has no rules registered, matching Go's nil-map-read
// convention rather than panicking.
func (rs *RuleSet) Get(sigID uint32) (Rule, bool) {
	if rs == nil {
		return Rule{}, false
	}
	r, ok := rs.rules[sigID]
	return r, ok
}
