// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package engine

import (
	"lorasec.io/detect/internal/flowstate"
	"lorasec.io/detect/internal/keywords"
	"lorasec.io/detect/internal/metrics"
	"lorasec.io/detect/internal/packet"
)

// RefineCandidates takes the candidate signature IDs C2's radix AND
// already produced (address and IP-protocol mask both satisfied — spec.md
// §4.2 step 4 is folded into iponly.Matcher.Match itself) and drops any
// whose rpc/stream_size keyword fails. Candidates with no registered Rule,
// or whose Rule carries no keyword, pass through unconditionally — C2's
// match is already sufficient for them. m may be nil; when non-nil, every keyword
// evaluation is reported to it.
func RefineCandidates(rules *RuleSet, candidates []uint32, payload []byte, ipProto uint8, flow *flowstate.Flow, m *metrics.Collector) []uint32 {
	if len(candidates) == 0 {
		return nil
	}

	out := make([]uint32, 0, len(candidates))
	for _, id := range candidates {
		rule, ok := rules.Get(id)
		if !ok {
			out = append(out, id)
			continue
		}

		if rule.Rpc != nil {
			matched := rule.Rpc.Match(payload, ipProto)
			if m != nil {
				m.ObserveRpcMatch(matched)
			}
			if !matched {
				continue
			}
		}

		if rule.StreamSize != nil {
			var server, client keywords.Diff
			if flow != nil {
				server = flow.StreamDiff(packet.ToServer)
				client = flow.StreamDiff(packet.ToClient)
			}
			matched := rule.StreamSize.Match(server, client)
			if m != nil {
				m.ObserveStreamSizeMatch(matched)
			}
			if !matched {
				continue
			}
		}

		out = append(out, id)
	}
	return out
}
