// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ruleaddr

import "lorasec.io/detect/internal/address"

// Ranges extracts the address.Range from each Item, discarding the
// PrefixLen ordering metadata, for handing to address.BuildGroups once
// the items have already been produced in ascending-PrefixLen order.
func Ranges(items []Item) []address.Range {
	out := make([]address.Range, len(items))
	for i, it := range items {
		out[i] = it.Range
	}
	return out
}
