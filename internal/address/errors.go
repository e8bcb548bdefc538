// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package address

import (
	ferrors "lorasec.io/detect/internal/errors"
)

var (
	errFamilyMismatch = ferrors.New(ferrors.KindValidation, "address: ip1 and ip2 must share a family")
	errInverted       = ferrors.New(ferrors.KindValidation, "address: ip1 must be <= ip2")
	// errCmpUnreachable marks a bug: the seven-way cmp switch is meant to
	// be exhaustive. Hitting this is an internal invariant violation per
	// spec.md §7, not a normal error path.
	errCmpUnreachable = ferrors.New(ferrors.KindInternal, "address: cmp matched no case (unreachable)")
	errFullSpace      = ferrors.New(ferrors.KindValidation, "address: cannot complement the full address space")
	errCutNotOverlap  = ferrors.New(ferrors.KindValidation, "address: cut requires overlapping ranges")
)
