// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package address

import "net/netip"

// Cut splits two overlapping ranges a and b into up to three pairwise
// disjoint, ordered ranges whose union equals a ∪ b. Each output range's
// SigSet is the union of every input range it overlaps, and its Ports
// list is merged the same way. Cut requires cmp(a, b) to be one of
// ES, EB, LE, GE; EQ and the disjoint outcomes (LT, GT) are rejected.
func Cut(a, b Range) ([]Range, error) {
	cmp, err := Cmp(a, b)
	if err != nil {
		return nil, err
	}

	switch cmp {
	case ES:
		return cutContained(b, a), nil // b ⊃ a: split the container b
	case EB:
		return cutContained(a, b), nil // a ⊃ b: split the container a
	case LE:
		return cutOverlap(a, b), nil // a starts first
	case GE:
		return cutOverlap(b, a), nil // b starts first
	default:
		return nil, errCutNotOverlap
	}
}

// cutContained splits outer (which strictly contains inner, possibly
// sharing one boundary) into up to three segments: the part of outer
// before inner, inner merged with outer's sigs, and the part of outer
// after inner.
func cutContained(outer, inner Range) []Range {
	var out []Range
	if outer.IP1.Compare(inner.IP1) < 0 {
		out = append(out, segment(outer.IP1, subOne(inner.IP1), outer.Sigs, outer.Ports))
	}
	out = append(out, segment(inner.IP1, inner.IP2, inner.Sigs.Union(outer.Sigs), mergePorts(inner.Ports, outer.Ports)))
	if inner.IP2.Compare(outer.IP2) < 0 {
		out = append(out, segment(addOne(inner.IP2), outer.IP2, outer.Sigs, outer.Ports))
	}
	return out
}

// cutOverlap splits two ranges that overlap on the left, with first
// starting no later than second (cmp(first, second) == LE).
func cutOverlap(first, second Range) []Range {
	return []Range{
		segment(first.IP1, subOne(second.IP1), first.Sigs, first.Ports),
		segment(second.IP1, first.IP2, first.Sigs.Union(second.Sigs), mergePorts(first.Ports, second.Ports)),
		segment(addOne(first.IP2), second.IP2, second.Sigs, second.Ports),
	}
}

// segment builds a Range from lo/hi without revalidating family (the
// caller derives lo/hi from an already-validated Range's own bounds).
func segment(lo, hi netip.Addr, sigs SigSet, ports []PortRange) Range {
	fam := FamilyV4
	if !lo.Is4() {
		fam = FamilyV6
	}
	return Range{Family: fam, IP1: lo, IP2: hi, Sigs: sigs, Ports: ports}
}

// mergePorts unions two port-range lists, de-duplicating identical
// entries. This is carried data (spec.md §3's "optional list of
// destination port ranges"), not itself subject to the disjoint-range
// algebra C2 applies to addresses.
func mergePorts(a, b []PortRange) []PortRange {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	seen := make(map[PortRange]struct{}, len(a)+len(b))
	out := make([]PortRange, 0, len(a)+len(b))
	for _, p := range a {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	for _, p := range b {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
