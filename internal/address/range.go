// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package address implements the comparison, cut, join, and complement
// algebra over IPv4/IPv6 address ranges that rule compilation uses to
// reduce a signature's (possibly overlapping, possibly negated) address
// expression into a canonical disjoint ordered list.
//
// Every comparison happens on host-order values. Storage is netip.Addr,
// which already normalizes to host-order integers internally; the v6
// carry arithmetic below treats an address as two 64-bit limbs rather
// than the four 32-bit limbs the distilled spec describes, since that's
// the natural shape for netip.Addr.As16() plus math/bits carry ops.
package address

import (
	"encoding/binary"
	"math/bits"
	"net/netip"
)

// Family tags which address space a Range belongs to.
type Family uint8

const (
	FamilyV4 Family = iota
	FamilyV6
)

// SigSet is the signature-ID set a Range carries. Cut and Join merge two
// ranges' SigSets by union, never by replacement.
type SigSet map[uint32]struct{}

// NewSigSet builds a SigSet from the given signature IDs.
func NewSigSet(ids ...uint32) SigSet {
	s := make(SigSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Union returns a new SigSet containing every ID in s or other.
func (s SigSet) Union(other SigSet) SigSet {
	out := make(SigSet, len(s)+len(other))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// Has reports whether id is a member.
func (s SigSet) Has(id uint32) bool {
	_, ok := s[id]
	return ok
}

// PortRange is an inclusive destination-port range optionally inherited
// from the rule and carried alongside an address Range.
type PortRange struct {
	Lo, Hi uint16
}

// Range is a closed (inclusive on both ends) address range tagged by
// family, with an associated signature set and optional port list. ip1
// must be <= ip2.
type Range struct {
	Family Family
	IP1    netip.Addr
	IP2    netip.Addr
	Sigs   SigSet
	Ports  []PortRange
}

// NewRange builds a Range, validating ip1 <= ip2 and that both addresses
// share the same family.
func NewRange(ip1, ip2 netip.Addr, sigs SigSet) (Range, error) {
	ip1, ip2 = ip1.Unmap(), ip2.Unmap()
	if ip1.Is4() != ip2.Is4() {
		return Range{}, errFamilyMismatch
	}
	if ip1.Compare(ip2) > 0 {
		return Range{}, errInverted
	}
	fam := FamilyV4
	if !ip1.Is4() {
		fam = FamilyV6
	}
	if sigs == nil {
		sigs = SigSet{}
	}
	return Range{Family: fam, IP1: ip1, IP2: ip2, Sigs: sigs}, nil
}

// Single builds a single-host Range (ip1 == ip2 == ip).
func Single(ip netip.Addr, sigs SigSet) (Range, error) {
	return NewRange(ip, ip, sigs)
}

// FullRange returns the Range spanning the entire address space of fam:
// 0.0.0.0-255.255.255.255 for v4, ::-ffff:...:ffff for v6.
func FullRange(fam Family) Range {
	if fam == FamilyV4 {
		lo := netip.AddrFrom4([4]byte{0, 0, 0, 0})
		hi := netip.AddrFrom4([4]byte{255, 255, 255, 255})
		r, _ := NewRange(lo, hi, nil)
		return r
	}
	var loB, hiB [16]byte
	for i := range hiB {
		hiB[i] = 0xff
	}
	lo := netip.AddrFrom16(loB)
	hi := netip.AddrFrom16(hiB)
	r, _ := NewRange(lo, hi, nil)
	return r
}

// toLimbs splits a into two 64-bit host-order limbs. v4 addresses are
// widened into the low 32 bits of lo with hi pinned to 0 so the same
// bits.Add64/Sub64 carry logic below works for both families without a
// v4-mapped-address representation artifact leaking into the arithmetic.
func toLimbs(a netip.Addr) (hi, lo uint64) {
	if a.Is4() {
		b := a.As4()
		lo = uint64(binary.BigEndian.Uint32(b[:]))
		return 0, lo
	}
	b := a.As16()
	hi = binary.BigEndian.Uint64(b[0:8])
	lo = binary.BigEndian.Uint64(b[8:16])
	return
}

func fromLimbs(hi, lo uint64, is4 bool) netip.Addr {
	if is4 {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(lo))
		return netip.AddrFrom4(b)
	}
	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], hi)
	binary.BigEndian.PutUint64(b[8:16], lo)
	return netip.AddrFrom16(b)
}

// addOne returns a+1, carrying across the 128-bit value.
func addOne(a netip.Addr) netip.Addr {
	hi, lo := toLimbs(a)
	var carry uint64
	lo, carry = bits.Add64(lo, 1, 0)
	hi, _ = bits.Add64(hi, 0, carry)
	return fromLimbs(hi, lo, a.Is4())
}

// subOne returns a-1, borrowing across the 128-bit value.
func subOne(a netip.Addr) netip.Addr {
	hi, lo := toLimbs(a)
	var borrow uint64
	lo, borrow = bits.Sub64(lo, 1, 0)
	hi, _ = bits.Sub64(hi, 0, borrow)
	return fromLimbs(hi, lo, a.Is4())
}

