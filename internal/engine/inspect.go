// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package engine

import (
	"lorasec.io/detect/internal/applayer"
	"lorasec.io/detect/internal/flowstate"
	"lorasec.io/detect/internal/iponly"
	"lorasec.io/detect/internal/metrics"
	"lorasec.io/detect/internal/packet"
)

// Verdict is what one packet's Inspect call produces: the flow's
// app-layer classification (Unknown until C3 succeeds) and the signature
// IDs that matched after C2's radix AND and C6's keyword refinement.
type Verdict struct {
	AppProto          applayer.Proto
	MatchedSignatures []uint32
}

// Engine is the packet-time entry point: the frozen C2 matcher and C3
// detector built at rule-load, the keyword rules C6 evaluates against
// refined candidates, and the flow table C3/C6 read and write per-flow
// state through.
type Engine struct {
	IPOnly   *iponly.Matcher
	AppLayer *applayer.Detector
	Rules    *RuleSet
	Flows    flowstate.Table
	Metrics  *metrics.Collector
}

// New returns an Engine wiring the three frozen, rule-load-built
// components together. flows may be nil if the caller has no per-flow
// state to track (app-proto classification then runs on every packet
// instead of once per flow, and stream_size always fails closed).
func New(ipOnly *iponly.Matcher, appLayer *applayer.Detector, rules *RuleSet, flows flowstate.Table) *Engine {
	return &Engine{IPOnly: ipOnly, AppLayer: appLayer, Rules: rules, Flows: flows}
}

// WithMetrics attaches a Collector that Inspect and RefineCandidates
// report to; it returns e so callers can chain it onto New.
func (e *Engine) WithMetrics(m *metrics.Collector) *Engine {
	e.Metrics = m
	return e
}

// Inspect is spec.md §2's packet-time entry point. Per spec.md §5, C2 and
// C3 are independent and may run in either order — C2's result depends
// only on addresses, C3's only on payload bytes — so Inspect runs C3
// (when the flow isn't already classified) and C2+RefineCandidates
// without either depending on the other's outcome this packet.
func (e *Engine) Inspect(pkt packet.Packet) Verdict {
	var flow *flowstate.Flow
	if e.Flows != nil {
		key := flowstate.Key(pkt.SrcIP, pkt.SrcPort, pkt.DstIP, pkt.DstPort, pkt.IPProto)
		flow = e.Flows.GetOrCreate(key, pkt.SrcIP, pkt.DstIP, pkt.SrcPort, pkt.DstPort, pkt.IPProto)
		flow.ObserveSegment(pkt.Dir, pkt.Seq, len(pkt.Payload))
	}

	appProto := e.classify(pkt, flow)
	if flow != nil && (appProto == applayer.SMB || appProto == applayer.SMB2) && len(pkt.Payload) > 0 {
		if _, err := flow.SMB2State(pkt.Dir).Parse(pkt.Payload); err != nil && e.Metrics != nil {
			e.Metrics.Smb2ParseFailures.Inc()
		}
	}

	var matched []uint32
	var numCandidates int
	if e.IPOnly != nil {
		candidates := e.IPOnly.Match(pkt.SrcIP, pkt.DstIP, pkt.IPProto)
		numCandidates = len(candidates)
		matched = RefineCandidates(e.Rules, candidates, pkt.Payload, pkt.IPProto, flow, e.Metrics)
	}

	if e.Metrics != nil {
		e.Metrics.ObserveInspect(appProto, numCandidates, len(matched))
	}

	return Verdict{AppProto: appProto, MatchedSignatures: matched}
}

// classify returns the flow's app-proto. C3 runs on each packet until it
// classifies the flow; the result is then cached via Flow's set-once CAS
// and later packets skip C3.
func (e *Engine) classify(pkt packet.Packet, flow *flowstate.Flow) applayer.Proto {
	if flow != nil {
		if p := flow.AppProto(); p != applayer.Unknown {
			return p
		}
	}
	if e.AppLayer == nil {
		return applayer.Unknown
	}

	proto, err := e.AppLayer.Detect(pkt.Payload, pkt.Dir, pkt.IPProto)
	if err != nil || proto == applayer.Unknown {
		return applayer.Unknown
	}
	if flow != nil {
		flow.SetAppProto(proto)
	}
	return proto
}
