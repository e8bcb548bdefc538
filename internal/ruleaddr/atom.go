// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ruleaddr

import (
	"net/netip"
	"strconv"
	"strings"

	ferrors "lorasec.io/detect/internal/errors"
	"lorasec.io/detect/internal/address"
)

// Item is one range produced by parsing an address expression, tagged with
// the CIDR prefix length it was derived from (32 or 128 for a single host;
// 0 for an a-b range or "any", which sorts as least specific alongside /0). Parse sorts its output
// ascending by PrefixLen, matching spec.md §4.7's "shorter prefixes first"
// requirement for C2's build algorithm.
type Item struct {
	Range     address.Range
	PrefixLen int
	Negated   bool
}

// parseAtom parses a single grammar atom (IPv4, IPv6, CIDR, range, or
// "any") into one or more Items. "any" is the only atom that yields more
// than one: it expands to the full v4 and v6 address spaces simultaneously.
func parseAtom(word string) ([]Item, error) {
	if word == "" {
		return nil, ferrors.New(ferrors.KindParse, "ruleaddr: empty address atom")
	}
	if strings.EqualFold(word, "any") {
		v4, _ := address.NewRange(netip.MustParseAddr("0.0.0.0"), netip.MustParseAddr("255.255.255.255"), nil)
		v6, _ := address.NewRange(netip.MustParseAddr("::"), netip.MustParseAddr("ffff:ffff:ffff:ffff:ffff:ffff:ffff:ffff"), nil)
		return []Item{{Range: v4, PrefixLen: 0}, {Range: v6, PrefixLen: 0}}, nil
	}
	if idx := strings.Index(word, "/"); idx >= 0 {
		return parseCIDR(word[:idx], word[idx+1:])
	}
	if idx := strings.Index(word, "-"); idx >= 0 && strings.Count(word, "-") == 1 && !strings.Contains(word, "::") {
		return parseHostRange(word[:idx], word[idx+1:])
	}
	// Bare IPv6 ranges can contain '-' only if written with explicit bounds
	// separated by a delimiter distinct from '::'; the check above excludes
	// addresses that merely contain the "::" compression marker. A literal
	// IPv6-to-IPv6 range ("::1-::5") is rejected here in favor of CIDR
	// notation, matching how the grammar describes `range` purely in terms
	// of IPv4 bounds.
	ip, err := netip.ParseAddr(word)
	if err != nil {
		return nil, ferrors.Wrapf(err, ferrors.KindParse, "ruleaddr: invalid address atom %q", word)
	}
	r, err := address.Single(ip, nil)
	if err != nil {
		return nil, ferrors.Wrapf(err, ferrors.KindParse, "ruleaddr: invalid address atom %q", word)
	}
	bits := 32
	if !ip.Is4() {
		bits = 128
	}
	return []Item{{Range: r, PrefixLen: bits}}, nil
}

func parseHostRange(loText, hiText string) ([]Item, error) {
	lo, err := netip.ParseAddr(loText)
	if err != nil {
		return nil, ferrors.Wrapf(err, ferrors.KindParse, "ruleaddr: invalid range lower bound %q", loText)
	}
	hi, err := netip.ParseAddr(hiText)
	if err != nil {
		return nil, ferrors.Wrapf(err, ferrors.KindParse, "ruleaddr: invalid range upper bound %q", hiText)
	}
	r, err := address.NewRange(lo, hi, nil)
	if err != nil {
		return nil, ferrors.Wrapf(err, ferrors.KindParse, "ruleaddr: invalid range %q-%q", loText, hiText)
	}
	return []Item{{Range: r, PrefixLen: 0}}, nil
}

func parseCIDR(ipText, maskText string) ([]Item, error) {
	ip, err := netip.ParseAddr(ipText)
	if err != nil {
		return nil, ferrors.Wrapf(err, ferrors.KindParse, "ruleaddr: invalid CIDR address %q", ipText)
	}

	bits := -1
	if n, err := strconv.Atoi(maskText); err == nil {
		bits = n
	} else if maskIP, err := netip.ParseAddr(maskText); err == nil {
		bits, err = dottedMaskBits(maskIP)
		if err != nil {
			return nil, err
		}
	} else {
		return nil, ferrors.Errorf(ferrors.KindParse, "ruleaddr: invalid CIDR mask %q", maskText)
	}

	maxBits := 32
	if !ip.Is4() {
		maxBits = 128
	}
	if bits < 0 || bits > maxBits {
		return nil, ferrors.Errorf(ferrors.KindParse, "ruleaddr: CIDR mask %d out of range for %q", bits, ipText)
	}

	prefix := netip.PrefixFrom(ip, bits).Masked()
	lo := prefix.Addr()
	hi := lastAddr(prefix)
	r, err := address.NewRange(lo, hi, nil)
	if err != nil {
		return nil, ferrors.Wrapf(err, ferrors.KindParse, "ruleaddr: invalid CIDR %q/%s", ipText, maskText)
	}
	return []Item{{Range: r, PrefixLen: bits}}, nil
}

// dottedMaskBits converts a dotted-decimal netmask (255.255.255.0) into its
// equivalent CIDR prefix length. Only contiguous masks are valid.
func dottedMaskBits(mask netip.Addr) (int, error) {
	if !mask.Is4() {
		return 0, ferrors.New(ferrors.KindParse, "ruleaddr: dotted netmask must be IPv4")
	}
	b := mask.As4()
	bits := 0
	seenZero := false
	for _, byteVal := range b {
		for i := 7; i >= 0; i-- {
			set := byteVal&(1<<uint(i)) != 0
			if set {
				if seenZero {
					return 0, ferrors.New(ferrors.KindParse, "ruleaddr: non-contiguous netmask")
				}
				bits++
			} else {
				seenZero = true
			}
		}
	}
	return bits, nil
}

func lastAddr(p netip.Prefix) netip.Addr {
	base := p.Addr()
	bits := p.Bits()
	total := 32
	if !base.Is4() {
		total = 128
	}
	hostBits := total - bits

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
	// Set every host bit (the low hostBits bits of the 128-bit value) to 1.
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
