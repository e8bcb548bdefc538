// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package address

import "sort"

// BuildGroups reduces a signature's (possibly overlapping) raw address
// ranges into the canonical disjoint, ordered decomposition described in
// spec.md §3 (the DetectAddressHead/DetectAddress chain): consecutive
// entries end up strictly ordered with a.IP2 < b.IP1, and each carries
// the union of every input range's signature set that covered it.
//
// This runs once per signature at rule-load time, so the O(n^2) repeated
// rescan below trades asymptotic elegance for a short, obviously correct
// implementation of the Cut-based merge spec.md §4.1 describes as "the
// algebraic kernel of rule compilation".
func BuildGroups(ranges []Range) ([]Range, error) {
	all := make([]Range, len(ranges))
	copy(all, ranges)
	sortRanges(all)

	for {
		merged := false
		for i := 0; i+1 < len(all); i++ {
			cmp, err := Cmp(all[i], all[i+1])
			if err != nil {
				return nil, err
			}

			switch cmp {
			case LT:
				continue
			case EQ:
				all[i] = segment(all[i].IP1, all[i].IP2, all[i].Sigs.Union(all[i+1].Sigs), mergePorts(all[i].Ports, all[i+1].Ports))
				all = append(all[:i+1], all[i+2:]...)
			default: // ES, EB, LE, GE: overlapping, resolve with Cut
				pieces, err := Cut(all[i], all[i+1])
				if err != nil {
					return nil, err
				}
				rest := append([]Range{}, all[i+2:]...)
				all = append(all[:i], append(pieces, rest...)...)
			}
			sortRanges(all)
			merged = true
			break
		}
		if !merged {
			break
		}
	}

	return all, nil
}

func sortRanges(rs []Range) {
	sort.Slice(rs, func(i, j int) bool {
		return rs[i].IP1.Compare(rs[j].IP1) < 0
	})
}
