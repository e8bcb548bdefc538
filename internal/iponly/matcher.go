// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package iponly

import (
	"net/netip"

	"github.com/gaissmai/bart"

	ferrors "lorasec.io/detect/internal/errors"
	"lorasec.io/detect/internal/ruleaddr"
)

// SigMeta is the per-signature metadata the match algorithm's filtering
// step (spec.md §4.2 step 4) consults after the bitmap AND: the
// IP-protocol mask and whether a hit should be suppressed from alerting.
type SigMeta struct {
	ID        uint32
	ProtoMask ProtoMask
	NoAlert   bool
}

// Matcher holds the four radix trees (src/dst x v4/v6) and the signature
// metadata table they're built against. Trees are mutated only during
// Build and are read-only from Match onward, matching spec.md §4.2's
// concurrency note: "built once at rule-load and read-only at match time."
type Matcher struct {
	srcV4, srcV6 *bart.Table[*SigNumArray]
	dstV4, dstV6 *bart.Table[*SigNumArray]
	sigs         map[uint32]SigMeta
	numSigs      int
}

// New builds an empty Matcher sized for numSigs signatures.
func New(numSigs int) *Matcher {
	return &Matcher{
		srcV4:   new(bart.Table[*SigNumArray]),
		srcV6:   new(bart.Table[*SigNumArray]),
		dstV4:   new(bart.Table[*SigNumArray]),
		dstV6:   new(bart.Table[*SigNumArray]),
		sigs:    make(map[uint32]SigMeta),
		numSigs: numSigs,
	}
}

// RegisterSignature records a signature's IP-protocol mask ahead of
// building its address lists into the trees. Must happen before Match is
// ever called against sigID; build-time insertion doesn't require it, but
// the protocol-mask filter at match time does.
func (m *Matcher) RegisterSignature(sigID uint32, mask ProtoMask, noAlert bool) {
	m.sigs[sigID] = SigMeta{ID: sigID, ProtoMask: mask, NoAlert: noAlert}
}

// BuildSource inserts a signature's source-address items into the src
// trees. BuildDest does the same for destination-address items.
func (m *Matcher) BuildSource(sigID uint32, items []ruleaddr.Item) error {
	return m.build(sigID, items, true)
}

func (m *Matcher) BuildDest(sigID uint32, items []ruleaddr.Item) error {
	return m.build(sigID, items, false)
}

func (m *Matcher) build(sigID uint32, items []ruleaddr.Item, isSrc bool) error {
	for _, it := range items {
		prefixes, err := itemPrefixes(it)
		if err != nil {
			return err
		}
		for _, pfx := range prefixes {
			tree := m.treeFor(isSrc, pfx.Addr())
			insertOrFlip(tree, pfx, sigID, it.Negated, m.numSigs)
		}
	}
	return nil
}

// itemPrefixes converts a ruleaddr.Item's range into the CIDR prefixes
// bart.Table needs as keys. Items produced directly from CIDR/host syntax
// already cover exactly one prefix; an explicit a-b range is decomposed
// into its minimal covering set.
func itemPrefixes(it ruleaddr.Item) ([]netip.Prefix, error) {
	if it.Range.IP1 == it.Range.IP2 {
		bits := 32
		if !it.Range.IP1.Is4() {
			bits = 128
		}
		return []netip.Prefix{netip.PrefixFrom(it.Range.IP1, bits)}, nil
	}
	single := netip.PrefixFrom(it.Range.IP1, it.PrefixLen)
	if single.IsValid() && single.Masked().Addr() == it.Range.IP1 {
		last := lastOfPrefix(single)
		if last == it.Range.IP2 {
			return []netip.Prefix{single}, nil
		}
	}
	return RangeToPrefixes(it.Range.IP1, it.Range.IP2), nil
}

// lastOfPrefix returns a prefix's last (broadcast) address: every host
// bit flipped to 1.
func lastOfPrefix(p netip.Prefix) netip.Addr {
	base := p.Masked().Addr()
	bits := 32
	if !base.Is4() {
		bits = 128
	}
	hostBits := bits - p.Bits()
	if base.Is4() {
		b := base.As4()
		v := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
		if hostBits >= 32 {
			v = 0xffffffff
		} else {
			v |= (uint32(1)<<uint(hostBits) - 1)
		}
		return netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
	}
	b := base.As16()
	remaining := hostBits
	for i := 15; i >= 0 && remaining > 0; i-- {
		if remaining >= 8 {
			b[i] = 0xff
			remaining -= 8
			continue
		}
		b[i] |= byte(1<<uint(remaining) - 1)
		remaining = 0
	}
	return netip.AddrFrom16(b)
}

func (m *Matcher) treeFor(isSrc bool, ip netip.Addr) *bart.Table[*SigNumArray] {
	switch {
	case isSrc && ip.Is4():
		return m.srcV4
	case isSrc:
		return m.srcV6
	case ip.Is4():
		return m.dstV4
	default:
		return m.dstV6
	}
}

// insertOrFlip implements spec.md §4.2's build algorithm:
//  1. exact match at this netmask -> flip the bit in place
//  2. else best (longest-prefix) match -> clone it, flip the bit, insert
//     as a new node at this netmask
//  3. else -> fresh bitmap, flip the bit, insert
func insertOrFlip(tree *bart.Table[*SigNumArray], pfx netip.Prefix, sigID uint32, negated bool, numSigs int) {
	if existing, ok := tree.Get(pfx); ok {
		flip(existing, sigID, negated)
		return
	}

	var bmp *SigNumArray
	if _, val, ok := tree.LookupPrefixLPM(pfx); ok {
		bmp = val.Clone()
	} else {
		bmp = NewSigNumArray(numSigs)
	}
	flip(bmp, sigID, negated)
	tree.Insert(pfx, bmp)
}

func flip(bmp *SigNumArray, sigID uint32, negated bool) {
	if negated {
		bmp.Clear(sigID)
	} else {
		bmp.Set(sigID)
	}
}

// Match implements spec.md §4.2's match algorithm: best-match lookup of
// src and dst, AND the two bitmaps, then filter survivors by IP-protocol
// mask. Returns the signature IDs that fire.
func (m *Matcher) Match(src, dst netip.Addr, ipProto uint8) []uint32 {
	srcTree := m.treeFor(true, src)
	dstTree := m.treeFor(false, dst)

	srcBits, ok := srcTree.Lookup(src)
	if !ok {
		return nil
	}
	dstBits, ok := dstTree.Lookup(dst)
	if !ok {
		return nil
	}

	candidates := srcBits.And(dstBits)
	if candidates.Empty() {
		return nil
	}

	var out []uint32
	for _, id := range candidates.SetBits() {
		meta, ok := m.sigs[id]
		if !ok {
			continue
		}
		if !meta.ProtoMask.Has(ipProto) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// HasSignature reports whether sigID has been registered via
// RegisterSignature.
func (m *Matcher) HasSignature(sigID uint32) bool {
	_, ok := m.sigs[sigID]
	return ok
}

// RequireSignature is the fail-fast counterpart of BuildSource/BuildDest:
// a rule loader that wants to catch an unregistered signature at
// compile time, rather than silently losing it at the protocol-mask
// filter in Match, calls this before building its address lists.
func (m *Matcher) RequireSignature(sigID uint32) error {
	if m.HasSignature(sigID) {
		return nil
	}
	return ferrors.Errorf(ferrors.KindValidation, "iponly: signature %d not registered", sigID)
}
