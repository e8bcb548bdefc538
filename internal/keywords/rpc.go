// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package keywords implements the detection core's small, self-contained
// per-packet predicates (C6): rpc and stream_size.
package keywords

import (
	"encoding/binary"
	"strconv"
	"strings"

	ferrors "lorasec.io/detect/internal/errors"
	"lorasec.io/detect/internal/iponly"
)

// rpcCallType is the Sun RPC message-type value that marks a Call (as
// opposed to a Reply).
const rpcCallType = 0

// rpcHeaderLen is the size of the fixed Call header this keyword inspects:
// XID, msg type, rpcvers, program, program version, procedure — six
// big-endian uint32s.
const rpcHeaderLen = 24

// tcpRecordMarkLen is the 4-byte record-mark prefix TCP-framed RPC
// messages carry ahead of the header (RFC 1831 §10).
const tcpRecordMarkLen = 4

// Rpc is a compiled `rpc:` rule: program is always checked; version and
// procedure are only checked when their corresponding flag is set, so a
// rule like `rpc:100000, *, 3` can wildcard the version.
type Rpc struct {
	Program        uint32
	Version        uint32
	Procedure      uint32
	CheckVersion   bool
	CheckProcedure bool
}

// ParseRpc parses `program[, version|*[, procedure|*]]`, the grammar
// spec.md §4.6 gives the rpc keyword. Program is mandatory; version and
// procedure are optional and each may be `*` to skip that check.
func ParseRpc(s string) (*Rpc, error) {
	fields := strings.Split(s, ",")
	if len(fields) == 0 || len(fields) > 3 {
		return nil, ferrors.Errorf(ferrors.KindParse, "rpc: expected 1-3 comma-separated fields, got %q", s)
	}

	r := &Rpc{}
	for i, raw := range fields {
		field := strings.TrimSpace(raw)
		switch i {
		case 0:
			n, err := strconv.ParseUint(field, 10, 32)
			if err != nil {
				return nil, ferrors.Wrapf(err, ferrors.KindParse, "rpc: invalid program %q", field)
			}
			r.Program = uint32(n)
		case 1:
			if field == "*" {
				continue
			}
			n, err := strconv.ParseUint(field, 10, 32)
			if err != nil {
				return nil, ferrors.Wrapf(err, ferrors.KindParse, "rpc: invalid version %q", field)
			}
			r.Version = uint32(n)
			r.CheckVersion = true
		case 2:
			if field == "*" {
				continue
			}
			n, err := strconv.ParseUint(field, 10, 32)
			if err != nil {
				return nil, ferrors.Wrapf(err, ferrors.KindParse, "rpc: invalid procedure %q", field)
			}
			r.Procedure = uint32(n)
			r.CheckProcedure = true
		}
	}
	return r, nil
}

// Match evaluates the rule against one packet's payload. It fails closed
// (returns false, no error) on any unavailable or malformed state: wrong
// IP protocol, payload too short, or a message type other than Call — per
// spec.md §4.6, "both keywords fail closed... when required state is
// unavailable."
func (r *Rpc) Match(payload []byte, ipProto uint8) bool {
	switch ipProto {
	case iponly.ProtoTCP:
		if len(payload) < 28 {
			return false
		}
		payload = payload[tcpRecordMarkLen:]
	case iponly.ProtoUDP:
		if len(payload) < 24 {
			return false
		}
	default:
		return false
	}

	if len(payload) < rpcHeaderLen {
		return false
	}

	msgType := binary.BigEndian.Uint32(payload[4:8])
	if msgType != rpcCallType {
		return false
	}

	rpcVers := binary.BigEndian.Uint32(payload[8:12])
	_ = rpcVers // rpcvers is decoded but the keyword never filters on it

	program := binary.BigEndian.Uint32(payload[12:16])
	if program != r.Program {
		return false
	}

	if r.CheckVersion {
		version := binary.BigEndian.Uint32(payload[16:20])
		if version != r.Version {
			return false
		}
	}

	if r.CheckProcedure {
		procedure := binary.BigEndian.Uint32(payload[20:24])
		if procedure != r.Procedure {
			return false
		}
	}

	return true
}
