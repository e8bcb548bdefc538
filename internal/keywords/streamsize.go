// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package keywords

import (
	"strconv"
	"strings"

	ferrors "lorasec.io/detect/internal/errors"
)

// Side selects which TCP stream direction(s) a stream_size rule inspects.
type Side uint8

const (
	SideServer Side = iota
	SideClient
	SideBoth
	SideEither
)

// Op is a stream_size comparison operator.
type Op uint8

const (
	OpLT Op = iota
	OpLEQ
	OpEQ
	OpNEQ
	OpGEQ
	OpGT
)

// compare evaluates diff op n. Go comparisons are already boolean, so
// unlike the original C implementation (whose ">=" and "!=" branches
// compared pcre_get_substring's output with strcmp and mistakenly treated
// strcmp's nonzero "not equal" result as true — inverting those two
// operators), there is no equivalent truthiness bug to carry forward here.
func compare(diff, n uint32, op Op) bool {
	switch op {
	case OpLT:
		return diff < n
	case OpLEQ:
		return diff <= n
	case OpEQ:
		return diff == n
	case OpNEQ:
		return diff != n
	case OpGEQ:
		return diff >= n
	case OpGT:
		return diff > n
	default:
		return false
	}
}

// Diff is one direction's next_seq - isn byte count, or Available=false
// when the TCP session doesn't have that direction's state yet (e.g. the
// handshake hasn't completed).
type Diff struct {
	Value     uint32
	Available bool
}

// StreamSize is a compiled `stream_size:` rule.
type StreamSize struct {
	Side Side
	Op   Op
	N    uint32
}

// ParseStreamSize parses `side, op, n` per spec.md §4.6.
func ParseStreamSize(s string) (*StreamSize, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 3 {
		return nil, ferrors.Errorf(ferrors.KindParse, "stream_size: expected 3 comma-separated fields, got %q", s)
	}
	sideField := strings.TrimSpace(fields[0])
	opField := strings.TrimSpace(fields[1])
	nField := strings.TrimSpace(fields[2])

	var side Side
	switch sideField {
	case "server":
		side = SideServer
	case "client":
		side = SideClient
	case "both":
		side = SideBoth
	case "either":
		side = SideEither
	default:
		return nil, ferrors.Errorf(ferrors.KindParse, "stream_size: invalid side %q", sideField)
	}

	var op Op
	switch opField {
	case "<":
		op = OpLT
	case "<=":
		op = OpLEQ
	case "=", "==":
		op = OpEQ
	case "!=":
		op = OpNEQ
	case ">=":
		op = OpGEQ
	case ">":
		op = OpGT
	default:
		return nil, ferrors.Errorf(ferrors.KindParse, "stream_size: invalid operator %q", opField)
	}

	n, err := strconv.ParseUint(nField, 10, 32)
	if err != nil {
		return nil, ferrors.Wrapf(err, ferrors.KindParse, "stream_size: invalid size %q", nField)
	}

	return &StreamSize{Side: side, Op: op, N: uint32(n)}, nil
}

// Match evaluates the rule against the current server/client stream
// diffs. It fails closed (returns false) when the side it needs to
// inspect isn't Available — spec.md §4.6's "fail closed... when required
// state (flow, TCP session...) is unavailable."
func (s *StreamSize) Match(server, client Diff) bool {
	switch s.Side {
	case SideServer:
		return server.Available && compare(server.Value, s.N, s.Op)
	case SideClient:
		return client.Available && compare(client.Value, s.N, s.Op)
	case SideBoth:
		return server.Available && client.Available &&
			compare(server.Value, s.N, s.Op) && compare(client.Value, s.N, s.Op)
	case SideEither:
		return (server.Available && compare(server.Value, s.N, s.Op)) ||
			(client.Available && compare(client.Value, s.N, s.Op))
	default:
		return false
	}
}
