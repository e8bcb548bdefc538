// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package engine

import (
	"time"

	ferrors "lorasec.io/detect/internal/errors"
	"lorasec.io/detect/internal/iponly"
	"lorasec.io/detect/internal/keywords"
	"lorasec.io/detect/internal/ruleaddr"
)

// RuleText is one rule as it arrives from the (external) rule-text
// loader: an address expression pair in C7's grammar, the IP-protocol
// mask, and optional rpc/stream_size keyword text. Rule text parsing
// itself is out of scope (spec.md §1) — RuleText is the already-split
// record this core's compile pipeline consumes.
type RuleText struct {
	ID         uint32
	Src, Dst   string
	Protos     []uint8
	NoAlert    bool
	Rpc        string
	StreamSize string
}

// StageResult is one named stage's outcome: a name, an error, and how long
// the stage took; neither stage here has warnings or transforms to carry.
type StageResult struct {
	Name     string
	Err      error
	Duration time.Duration
}

// SkippedRule records one rule CompilePipeline omitted from the compiled
// result because its address expression or keyword text failed to parse.
// Per spec.md §7, a parse failure aborts only the offending rule — the
// rest of the batch still compiles.
type SkippedRule struct {
	ID  uint32
	Err error
}

// CompileResult is CompilePipeline's output: the frozen C2 matcher and
// keyword RuleSet ready to hand to a new Engine, the per-stage outcomes
// for diagnostics, and any rules skipped for a per-rule parse failure.
type CompileResult struct {
	IPOnly  *iponly.Matcher
	Rules   *RuleSet
	Stages  []StageResult
	Skipped []SkippedRule
}

// CompilePipeline runs spec.md §2's rule-load flow — rule text → C7
// (address parse) → C1 (implicit in C7/C2's range handling) → C2 (radix
// build) — plus C6's keyword compilation, as two named stages. resolve is
// the C7 variable resolver ($HOME_NET and friends); pass a resolver that
// always errors if the rule set uses no variables.
func CompilePipeline(rules []RuleText, resolve ruleaddr.Resolver) (*CompileResult, error) {
	result := &CompileResult{Rules: NewRuleSet()}

	type parsed struct {
		text RuleText
		src  []ruleaddr.Item
		dst  []ruleaddr.Item
	}
	var parsedRules []parsed

	parseStart := time.Now()
	for _, rt := range rules {
		src, err := ruleaddr.Parse(rt.Src, resolve)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedRule{
				ID: rt.ID, Err: ferrors.Wrapf(err, ferrors.KindParse, "engine: rule %d: source address", rt.ID),
			})
			continue
		}
		dst, err := ruleaddr.Parse(rt.Dst, resolve)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedRule{
				ID: rt.ID, Err: ferrors.Wrapf(err, ferrors.KindParse, "engine: rule %d: destination address", rt.ID),
			})
			continue
		}

		rule := Rule{ID: rt.ID}
		if rt.Rpc != "" {
			rpc, err := keywords.ParseRpc(rt.Rpc)
			if err != nil {
				result.Skipped = append(result.Skipped, SkippedRule{
					ID: rt.ID, Err: ferrors.Wrapf(err, ferrors.KindParse, "engine: rule %d: rpc keyword", rt.ID),
				})
				continue
			}
			rule.Rpc = rpc
		}
		if rt.StreamSize != "" {
			ss, err := keywords.ParseStreamSize(rt.StreamSize)
			if err != nil {
				result.Skipped = append(result.Skipped, SkippedRule{
					ID: rt.ID, Err: ferrors.Wrapf(err, ferrors.KindParse, "engine: rule %d: stream_size keyword", rt.ID),
				})
				continue
			}
			rule.StreamSize = ss
		}
		result.Rules.Add(rule)

		parsedRules = append(parsedRules, parsed{text: rt, src: src, dst: dst})
	}
	result.Stages = append(result.Stages, StageResult{Name: "parse", Duration: time.Since(parseStart)})

	buildStart := time.Now()
	matcher := iponly.New(len(parsedRules))
	for _, p := range parsedRules {
		matcher.RegisterSignature(p.text.ID, iponly.NewProtoMask(p.text.Protos...), p.text.NoAlert)
		if err := matcher.BuildSource(p.text.ID, p.src); err != nil {
			return nil, ferrors.Wrapf(err, ferrors.KindInternal, "engine: rule %d: build source tree", p.text.ID)
		}
		if err := matcher.BuildDest(p.text.ID, p.dst); err != nil {
			return nil, ferrors.Wrapf(err, ferrors.KindInternal, "engine: rule %d: build destination tree", p.text.ID)
		}
	}
	result.IPOnly = matcher
	result.Stages = append(result.Stages, StageResult{Name: "build", Duration: time.Since(buildStart)})

	return result, nil
}
