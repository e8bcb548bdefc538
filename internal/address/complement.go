// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package address

// CutNot returns up to two disjoint ranges covering the full address
// space of a's family minus a. It fails when a is already the full
// space (there is nothing left to represent).
func CutNot(a Range) ([]Range, error) {
	full := FullRange(a.Family)
	if a.IP1.Compare(full.IP1) == 0 && a.IP2.Compare(full.IP2) == 0 {
		return nil, errFullSpace
	}

	var out []Range
	if a.IP1.Compare(full.IP1) > 0 {
		out = append(out, segment(full.IP1, subOne(a.IP1), SigSet{}, nil))
	}
	if a.IP2.Compare(full.IP2) < 0 {
		out = append(out, segment(addOne(a.IP2), full.IP2, SigSet{}, nil))
	}
	return out, nil
}

// ComplementGroups returns the ranges covering fam's full address space
// minus every range in sorted, a disjoint ascending-ordered group such as
// BuildGroups produces. The rule-address parser (internal/ruleaddr) does not
// call it: it carries negation as a per-item flag instead.
func ComplementGroups(fam Family, sorted []Range) []Range {
	full := FullRange(fam)
	if len(sorted) == 0 {
		return []Range{full}
	}

	var out []Range
	if sorted[0].IP1.Compare(full.IP1) > 0 {
		out = append(out, segment(full.IP1, subOne(sorted[0].IP1), SigSet{}, nil))
	}
	for i := 1; i < len(sorted); i++ {
		prevEnd := sorted[i-1].IP2
		next := addOne(prevEnd)
		if next.Compare(sorted[i].IP1) < 0 {
			out = append(out, segment(next, subOne(sorted[i].IP1), SigSet{}, nil))
		}
	}
	last := sorted[len(sorted)-1]
	if last.IP2.Compare(full.IP2) < 0 {
		out = append(out, segment(addOne(last.IP2), full.IP2, SigSet{}, nil))
	}
	return out
}

// Join widens target to target ∪ source by taking the minimum of the two
// lower bounds and the maximum of the two upper bounds, and unioning
// their signature sets. Used when merging two ranges already known to be
// equivalent groups rather than disjoint neighbors.
func Join(target, source Range) Range {
	lo := target.IP1
	if source.IP1.Compare(lo) < 0 {
		lo = source.IP1
	}
	hi := target.IP2
	if source.IP2.Compare(hi) > 0 {
		hi = source.IP2
	}
	return segment(lo, hi, target.Sigs.Union(source.Sigs), mergePorts(target.Ports, source.Ports))
}

// IsComplete reports whether a sorted, disjoint list of ranges covers the
// entirety of fam's address space: the first range starts at zero, the
// last ends at the maximum, and every consecutive pair is contiguous
// (next.IP1 == addOne(prev.IP2)), per spec.md §4.1.
func IsComplete(fam Family, sorted []Range) bool {
	if len(sorted) == 0 {
		return false
	}
	full := FullRange(fam)
	if sorted[0].IP1.Compare(full.IP1) != 0 {
		return false
	}
	if sorted[len(sorted)-1].IP2.Compare(full.IP2) != 0 {
		return false
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].IP1.Compare(addOne(sorted[i-1].IP2)) != 0 {
			return false
		}
	}
	return true
}
