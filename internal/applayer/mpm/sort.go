// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package mpm

import "sort"

// sortHits orders hits ascending by offset and, for ties, ascending by
// pattern ID — spec.md §4.3: "Ordering among hits at the same byte offset
// is defined by pattern-ID (insertion order)."
func sortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Index != hits[j].Index {
			return hits[i].Index < hits[j].Index
		}
		return hits[i].ID < hits[j].ID
	})
}
