// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package engine

import "lorasec.io/detect/internal/packet"

// Status summarizes what got compiled into an Engine at rule-load time —
// the counts a healthz endpoint reports, per SPEC_FULL.md's "rule-
// compilation status: how many signatures compiled into the IP-only
// trees, how many app-layer patterns registered."
type Status struct {
	SignaturesCompiled       int
	AppLayerPatternsToServer int
	AppLayerPatternsToClient int
	FlowsTracked             int
	Ready                    bool
}

// Status reports e's current compiled-rule and flow-table counts.
func (e *Engine) Status() Status {
	s := Status{Ready: e.IPOnly != nil}
	if e.Rules != nil {
		s.SignaturesCompiled = len(e.Rules.rules)
	}
	if e.AppLayer != nil {
		s.AppLayerPatternsToServer = e.AppLayer.PatternCount(packet.ToServer)
		s.AppLayerPatternsToClient = e.AppLayer.PatternCount(packet.ToClient)
	}
	if e.Flows != nil {
		s.FlowsTracked = e.Flows.Len()
	}
	return s
}
