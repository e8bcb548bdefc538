// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package applayer implements the detection core's application-layer
// protocol detector (C3): register direction-specific byte patterns with
// offset/depth constraints, then classify the first bytes of a flow
// direction into an app-proto enum once enough bytes have arrived.
package applayer

import (
	"lorasec.io/detect/internal/applayer/mpm"
	ferrors "lorasec.io/detect/internal/errors"
	"lorasec.io/detect/internal/packet"
	"lorasec.io/detect/internal/tlsfp"
)

// Proto is the classified application-layer protocol.
type Proto uint8

const (
	Unknown Proto = iota
	HTTP
	TLS
	SSH
	SMB
	SMB2
	DCERPC
	FTP
	SMTP
	IMAP
	MSN
)

func (p Proto) String() string {
	switch p {
	case HTTP:
		return "http"
	case TLS:
		return "tls"
	case SSH:
		return "ssh"
	case SMB:
		return "smb"
	case SMB2:
		return "smb2"
	case DCERPC:
		return "dcerpc"
	case FTP:
		return "ftp"
	case SMTP:
		return "smtp"
	case IMAP:
		return "imap"
	case MSN:
		return "msn"
	default:
		return "unknown"
	}
}

// content is the per-pattern matching window a signature record carries.
type content struct {
	bytes  []byte
	offset int
	depth  int
	id     uint32
}

// signature is one registered pattern occurrence: the IP protocol it
// applies to, the app-proto it yields, and the content window to confirm
// within. Multiple signatures may share a pattern ID (same bytes,
// different offset/depth/app-proto), so the pattern-ID index stores a
// chain of these.
type signature struct {
	ipProto uint8
	proto   Proto
	content content
}

// direction holds everything C3 needs for one flow direction: the
// multi-pattern context patterns are registered into, a pattern-ID to
// signature-chain index built at Finalize, and the min/max length
// tracking the reassembler uses to decide when to call Detect.
type direction struct {
	patterns []content // accumulated pre-Finalize; consumed to build the Matcher
	matcher  mpm.Matcher
	chains   map[uint32][]signature
	byBytes  map[string]uint32 // pattern bytes -> already-allocated ID, for sharing
	nextID   uint32
	minLen   int
	maxLen   int
	final    bool
}

func newDirection() *direction {
	return &direction{chains: make(map[uint32][]signature), byBytes: make(map[string]uint32)}
}

// Detector is C3: a pair of per-direction detection contexts, built once
// at rule-load and read-only from match time onward, matching spec.md
// §5's "MPM contexts... built single-threaded at rule-load, then frozen."
type Detector struct {
	dirs         [2]*direction // indexed by packet.Direction
	fp           *tlsfp.Fingerprinter
	maxSearchLen int
}

// New returns an empty Detector. Call Add for every signature, then
// Finalize before the first Detect call.
func New() *Detector {
	return &Detector{dirs: [2]*direction{newDirection(), newDirection()}}
}

// Add registers one byte-pattern signature. ipProto is the IP protocol
// number (iponly.ProtoTCP or iponly.ProtoUDP) the signature applies to;
// dir selects toserver/toclient; depth is the byte offset the match must
// end by, offset is the byte offset the match must start at or after.
// Add must be called before Finalize.
func (d *Detector) Add(ipProto uint8, proto Proto, pattern []byte, offset, depth int, dir packet.Direction) {
	dd := d.dirs[dir]

	// Signatures registered with identical pattern bytes share one MPM
	// pattern ID; the chain under that ID carries every (ip_proto,
	// app_proto, offset, depth) combination so the MPM only ever scans
	// for the bytes once per direction.
	key := string(pattern)
	id, known := dd.byBytes[key]
	if !known {
		id = dd.nextID
		dd.nextID++
		dd.byBytes[key] = id
		dd.patterns = append(dd.patterns, content{bytes: pattern, offset: offset, depth: depth, id: id})
	}

	dd.chains[id] = append(dd.chains[id], signature{
		ipProto: ipProto,
		proto:   proto,
		content: content{bytes: pattern, offset: offset, depth: depth, id: id},
	})

	if depth > 0 && (dd.minLen == 0 || depth < dd.minLen) {
		dd.minLen = depth
	}
	if depth > dd.maxLen {
		dd.maxLen = depth
	}
}

// chunkLenSetter is the stream-queue interface C3 informs of the
// per-direction minimum chunk length at Finalize, per spec.md §4.3's
// "Inform the reassembler of the per-direction min_len via the
// stream-queue minimum-chunk-length interface."
type chunkLenSetter interface {
	SetMinInitChunkLen(dir packet.Direction, n int)
}

// Finalize builds the pattern-ID -> signature-chain index and selects an
// MPM variant per direction based on how many patterns were registered.
// If q is non-nil, it is informed of each direction's min_len.
func (d *Detector) Finalize(q chunkLenSetter) {
	for dirIdx, dd := range d.dirs {
		dd.matcher = mpm.New(len(dd.patterns))
		for _, c := range dd.patterns {
			dd.matcher.AddPattern(c.bytes, c.id)
		}
		dd.matcher.Build()
		dd.final = true

		if q != nil {
			q.SetMinInitChunkLen(packet.Direction(dirIdx), dd.minLen)
		}
	}
}

// MinLen returns the smallest depth registered for dir — the minimum
// buffer size the reassembler must accumulate before calling Detect.
func (d *Detector) MinLen(dir packet.Direction) int {
	return d.dirs[dir].minLen
}

// PatternCount returns how many distinct byte patterns are registered
// for dir, for status/diagnostics reporting.
func (d *Detector) PatternCount(dir packet.Direction) int {
	return len(d.dirs[dir].patterns)
}

// SetMaxSearchLen bounds how many bytes of a direction's accumulated
// buffer Detect considers, independent of any one signature's depth —
// the wiring point for DetectorConfig.AppLayerMaxSearchLen. A
// non-positive value leaves each direction's own registered depth as the
// only bound.
func (d *Detector) SetMaxSearchLen(n int) {
	if n > 0 {
		d.maxSearchLen = n
	}
}

// Detect classifies buf, the bytes seen so far in direction dir of a
// flow over ipProto, into an app-proto. It implements spec.md §4.3's
// six-step get_proto algorithm. The caller must have called Finalize
// first; Detect on a non-finalized Detector returns an error.
func (d *Detector) Detect(buf []byte, dir packet.Direction, ipProto uint8) (Proto, error) {
	dd := d.dirs[dir]
	if !dd.final {
		return Unknown, ferrors.New(ferrors.KindInternal, "applayer: Detect called before Finalize")
	}

	// Step 1: empty context means nothing was ever registered for this
	// direction.
	if len(dd.patterns) == 0 {
		return Unknown, nil
	}

	// Step 2: clip the search window to max_len, then to the detector-wide
	// search-length cap if one is configured.
	search := buf
	if dd.maxLen > 0 && len(search) > dd.maxLen {
		search = search[:dd.maxLen]
	}
	if d.maxSearchLen > 0 && len(search) > d.maxSearchLen {
		search = search[:d.maxSearchLen]
	}
	buflen := len(buf)

	// Step 3: run the MPM search; hits already come back ordered by
	// offset then pattern-ID (mpm.sortHits), matching the "first MPM hit
	// is the primary candidate... subsequent hits tried in order" rule.
	hits := dd.matcher.Search(search)

	// Step 4: walk the signature chain for each hit in turn.
	for _, hit := range hits {
		for _, sig := range dd.chains[hit.ID] {
			if sig.ipProto != ipProto {
				continue
			}
			if sig.content.offset > buflen || sig.content.depth > buflen {
				continue
			}
			window := buf[sig.content.offset:sig.content.depth]
			if literalContains(window, sig.content.bytes) {
				return sig.proto, nil
			}
		}
	}

	// Step 5 + 6: no match; scratch queue (hits) falls out of scope here.
	return Unknown, nil
}

// literalContains is the per-signature confirmation: a plain
// substring search within [offset, depth), independent of where the MPM
// happened to report its hit. Needed because a single pattern ID can be
// shared by signatures with different offset/depth windows (spec.md
// §4.3: "Multiple signatures may share a pattern ID... the index stores
// a chain"), so the MPM's own hit index isn't authoritative for every
// chain entry.
func literalContains(window, pattern []byte) bool {
	if len(pattern) == 0 || len(pattern) > len(window) {
		return false
	}
	for i := 0; i+len(pattern) <= len(window); i++ {
		match := true
		for j, b := range pattern {
			if window[i+j] != b {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
