// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package smb2 parses the NBSS session-service envelope and the SMB2
// fixed header (C4), resumably over input that may be split arbitrarily
// across calls. Callers feed it whatever bytes arrived in a stream
// direction; the parser tracks how much of the envelope and header it
// has already consumed and picks up where it left off.
package smb2

import ferrors "lorasec.io/detect/internal/errors"

// NBSS message types (RFC 1002 §4.3.1). Only SessionMessage carries an
// SMB2 payload; every other type is a session-control frame the SMB2
// layer has nothing to say about.
type NBSSType uint8

const (
	NBSSSessionMessage          NBSSType = 0x00
	NBSSSessionRequest          NBSSType = 0x81
	NBSSPositiveSessionResponse NBSSType = 0x82
	NBSSNegativeSessionResponse NBSSType = 0x83
	NBSSRetargetSessionResponse NBSSType = 0x84
	NBSSSessionKeepAlive        NBSSType = 0x85
)

const (
	nbssHeaderLen = 4
	smb2HeaderLen = 64
)

var smb2Magic = [4]byte{0xfe, 0x53, 0x4d, 0x42}

// NBSS is the decoded 4-byte session-service envelope.
type NBSS struct {
	Type   NBSSType
	Length uint32 // 17-bit length field: one high bit from byte 1, plus bytes 2-3
}

// Header is the decoded 64-byte SMB2 fixed header, field names and
// byte offsets per spec.md §4.4.
type Header struct {
	StructureSize         uint16
	CreditCharge          uint16
	Status                uint32
	Command               uint16
	CreditRequestResponse uint16
	Flags                 uint32
	NextCommand           uint32
	MessageID             uint64
	ProcessID             uint32
	TreeID                uint32
	SessionID             uint64
	Signature             [16]byte
}

// stage marks how far State has progressed through the envelope+header.
type stage int

const (
	stageNBSS stage = iota
	stageSMB2
	stageDone
	stageFailed
	stageSkipped // a non-SessionMessage NBSS type; nothing more to parse
)

// State is the resumable parser accumulator spec.md §3 calls "purely an
// accumulator": bytesProcessed is monotone within one message, and
// cursor/buf hold whatever partial envelope or header bytes have
// arrived so far. Parse may be called repeatedly with successive
// fragments of the same message.
type State struct {
	stage          stage
	bytesProcessed int
	raw            [nbssHeaderLen + smb2HeaderLen]byte

	NBSS   NBSS
	Header Header
}

// New returns a fresh parser state, ready for the first fragment of a
// new NBSS message.
func New() *State {
	return &State{}
}

// Done reports whether the full envelope and header have been parsed.
func (s *State) Done() bool { return s.stage == stageDone }

// Failed reports whether parsing hit a magic-byte mismatch and the
// message should be abandoned.
func (s *State) Failed() bool { return s.stage == stageFailed }

// Skipped reports whether the NBSS type was something other than
// SessionMessage — not a failure, just nothing for SMB2 to parse.
func (s *State) Skipped() bool { return s.stage == stageSkipped }

// Parse feeds the next chunk of bytes into the parser. It returns the
// number of bytes consumed from buf. Once Done/Failed/Skipped is true,
// Parse is a no-op that consumes nothing — callers should start a new
// State for the next message.
func (s *State) Parse(buf []byte) (consumed int, err error) {
	if s.stage == stageDone || s.stage == stageFailed || s.stage == stageSkipped {
		return 0, nil
	}

	total := nbssHeaderLen + smb2HeaderLen

	// Fast path: the whole remaining envelope+header is already in buf.
	if s.bytesProcessed == 0 && len(buf) >= total {
		copy(s.raw[:], buf[:total])
		if err := s.decodeNBSS(); err != nil {
			return 0, err
		}
		if s.NBSS.Type != NBSSSessionMessage {
			s.stage = stageSkipped
			return nbssHeaderLen, nil
		}
		if err := s.decodeSMB2Magic(); err != nil {
			s.stage = stageFailed
			return 0, err
		}
		s.decodeSMB2Header()
		s.bytesProcessed = total
		s.stage = stageDone
		return total, nil
	}

	// Slow path: consume byte by byte (or in whatever partial runs
	// arrive), tracking bytesProcessed across calls.
	for i := 0; i < len(buf); i++ {
		if s.bytesProcessed >= total {
			break
		}
		s.raw[s.bytesProcessed] = buf[i]
		s.bytesProcessed++
		consumed++

		switch {
		case s.bytesProcessed == nbssHeaderLen:
			if err := s.decodeNBSS(); err != nil {
				return consumed, err
			}
			if s.NBSS.Type != NBSSSessionMessage {
				s.stage = stageSkipped
				return consumed, nil
			}
		case s.bytesProcessed == nbssHeaderLen+4:
			if err := s.decodeSMB2Magic(); err != nil {
				s.stage = stageFailed
				return consumed, err
			}
		case s.bytesProcessed == total:
			s.decodeSMB2Header()
			s.stage = stageDone
			return consumed, nil
		}
	}
	return consumed, nil
}

// decodeNBSS reads the 4-byte envelope once all of it has arrived.
// Byte 0 is the type; byte 1's low bit plus bytes 2-3 form a 17-bit
// big-endian length (spec.md §4.4).
func (s *State) decodeNBSS() error {
	s.NBSS.Type = NBSSType(s.raw[0])
	s.NBSS.Length = uint32(s.raw[1]&0x01)<<16 | uint32(s.raw[2])<<8 | uint32(s.raw[3])
	return nil
}

// decodeSMB2Magic checks bytes 4..7 against the SMB2 magic once they've
// arrived; this is the only failure mode spec.md §4.4 defines.
func (s *State) decodeSMB2Magic() error {
	got := [4]byte{s.raw[4], s.raw[5], s.raw[6], s.raw[7]}
	if got != smb2Magic {
		return ferrors.Errorf(ferrors.KindProtocol, "smb2: bad magic bytes %x", got)
	}
	return nil
}

// decodeSMB2Header reads the fixed 64-byte SMB2 header, little-endian,
// once the whole thing has arrived. Multi-byte fields are assembled
// with OR rather than assignment throughout — the original C parser's
// byte-by-byte slow path assigns (=) instead of OR-ing (|=) into
// MessageId for its high-order bytes (cases handling bytes 29..35),
// which clobbers the lower bytes already written; this implementation
// does not replicate that bug.
func (s *State) decodeSMB2Header() {
	p := s.raw[nbssHeaderLen:]
	h := &s.Header
	h.StructureSize = le16(p[4:6])
	h.CreditCharge = le16(p[6:8])
	h.Status = le32(p[8:12])
	h.Command = le16(p[12:14])
	h.CreditRequestResponse = le16(p[14:16])
	h.Flags = le32(p[16:20])
	h.NextCommand = le32(p[20:24])
	h.MessageID = le64(p[24:32])
	h.ProcessID = le32(p[32:36])
	h.TreeID = le32(p[36:40])
	h.SessionID = le64(p[40:48])
	copy(h.Signature[:], p[48:64])
}

func le16(b []byte) uint16 {
	var v uint16
	for i, x := range b {
		v |= uint16(x) << (8 * i)
	}
	return v
}

func le32(b []byte) uint32 {
	var v uint32
	for i, x := range b {
		v |= uint32(x) << (8 * i)
	}
	return v
}

func le64(b []byte) uint64 {
	var v uint64
	for i, x := range b {
		v |= uint64(x) << (8 * i)
	}
	return v
}
