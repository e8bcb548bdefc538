// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package metrics is the detection core's Prometheus surface: counters
// for packets inspected, candidates matched by C2, candidates surviving
// C6's keyword refinement, app-layer classifications by protocol, SMB2
// parse failures, and stream-message pool exhaustion. A flat struct of
// prometheus.Counter/*Vec fields plus a constructor registering each on
// a registry.
package metrics

import (
	"lorasec.io/detect/internal/applayer"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry wraps a prometheus.Registry, giving the detection core one
// place to register Collector's metrics and hand the result to
// promhttp.HandlerFor, rather than relying on the global default
// registry every other package might also register against.
type Registry struct {
	prom *prometheus.Registry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{prom: prometheus.NewRegistry()}
}

// Prometheus returns the underlying *prometheus.Registry, for handing to
// promhttp.HandlerFor.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.prom
}

// Collector is the detection core's metrics: one counter family per
// spec.md operation worth observing in production. Construct with
// NewCollector, which registers every metric on reg.
type Collector struct {
	PacketsInspected      prometheus.Counter
	CandidatesMatched     prometheus.Counter
	CandidatesRefined     prometheus.Counter
	AppProtoClassified    *prometheus.CounterVec
	Smb2ParseFailures     prometheus.Counter
	StreamPoolExhaustions prometheus.Counter
	RpcKeywordEvaluations *prometheus.CounterVec
	StreamSizeEvaluations *prometheus.CounterVec
}

// NewCollector builds Collector's metrics and registers them all on reg.
func NewCollector(reg *Registry) *Collector {
	c := &Collector{
		PacketsInspected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detect_packets_inspected_total",
			Help: "Total packets passed to Engine.Inspect.",
		}),
		CandidatesMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detect_candidates_matched_total",
			Help: "Total candidate signature IDs C2's radix match produced, before keyword refinement.",
		}),
		CandidatesRefined: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detect_candidates_refined_total",
			Help: "Total candidate signature IDs surviving C6's keyword refinement.",
		}),
		AppProtoClassified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "detect_app_proto_classified_total",
			Help: "Total flows classified by C3, labeled by the resulting app-proto.",
		}, []string{"proto"}),
		Smb2ParseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detect_smb2_parse_failures_total",
			Help: "Total SMB2 header parse failures.",
		}),
		StreamPoolExhaustions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detect_stream_pool_exhaustions_total",
			Help: "Total times the stream-message pool grew beyond its initial size.",
		}),
		RpcKeywordEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "detect_rpc_keyword_evaluations_total",
			Help: "Total rpc keyword evaluations, labeled by outcome (match/nomatch).",
		}, []string{"outcome"}),
		StreamSizeEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "detect_stream_size_evaluations_total",
			Help: "Total stream_size keyword evaluations, labeled by outcome (match/nomatch).",
		}, []string{"outcome"}),
	}

	reg.prom.MustRegister(
		c.PacketsInspected,
		c.CandidatesMatched,
		c.CandidatesRefined,
		c.AppProtoClassified,
		c.Smb2ParseFailures,
		c.StreamPoolExhaustions,
		c.RpcKeywordEvaluations,
		c.StreamSizeEvaluations,
	)
	return c
}

// ObserveInspect records one Engine.Inspect call's outcome: the packet
// count, how many candidates C2 produced versus how many survived C6's
// refinement, and the flow's app-proto once classified.
func (c *Collector) ObserveInspect(proto applayer.Proto, candidates, refined int) {
	c.PacketsInspected.Inc()
	c.CandidatesMatched.Add(float64(candidates))
	c.CandidatesRefined.Add(float64(refined))
	if proto != applayer.Unknown {
		c.AppProtoClassified.WithLabelValues(proto.String()).Inc()
	}
}

// ObserveRpcMatch records one rpc keyword evaluation's outcome.
func (c *Collector) ObserveRpcMatch(matched bool) {
	c.RpcKeywordEvaluations.WithLabelValues(outcomeLabel(matched)).Inc()
}

// ObserveStreamSizeMatch records one stream_size keyword evaluation's
// outcome.
func (c *Collector) ObserveStreamSizeMatch(matched bool) {
	c.StreamSizeEvaluations.WithLabelValues(outcomeLabel(matched)).Inc()
}

func outcomeLabel(matched bool) string {
	if matched {
		return "match"
	}
	return "nomatch"
}
