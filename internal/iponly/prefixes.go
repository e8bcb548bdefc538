// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package iponly

import (
	"math/big"
	"net/netip"
)

// RangeToPrefixes decomposes the inclusive address range [lo, hi] into the
// minimal ordered list of CIDR prefixes that exactly covers it. C2's radix
// trees are keyed by netip.Prefix; a C1/C7 range that isn't already a
// single CIDR block — an explicit a-b range, or anything that passed
// through Cut/Join/negation — needs this conversion before it can be
// inserted into a bart.Table.
//
// math/big is the one piece of stdlib-only arithmetic in this package:
// the decomposition needs bit length and trailing-zero-bit queries over a
// 128-bit value, and no pack library wraps that; internal/address's own
// 64-bit-limb carry arithmetic doesn't help here since this is a bit-scan,
// not an add/subtract.
func RangeToPrefixes(lo, hi netip.Addr) []netip.Prefix {
	lo, hi = lo.Unmap(), hi.Unmap()
	bits := 32
	if !lo.Is4() {
		bits = 128
	}

	start := addrToBig(lo)
	end := addrToBig(hi)
	one := big.NewInt(1)

	var out []netip.Prefix
	for start.Cmp(end) <= 0 {
		alignBits := trailingZeroBits(start, bits)

		diff := new(big.Int).Sub(end, start)
		diff.Add(diff, one)
		sizeBits := diff.BitLen() - 1

		blockBits := alignBits
		if sizeBits < blockBits {
			blockBits = sizeBits
		}

		prefixLen := bits - blockBits
		out = append(out, netip.PrefixFrom(bigToAddr(start, bits), prefixLen))

		blockSize := new(big.Int).Lsh(one, uint(blockBits))
		start.Add(start, blockSize)
	}
	return out
}

func trailingZeroBits(x *big.Int, bits int) int {
	if x.Sign() == 0 {
		return bits
	}
	n := int(x.TrailingZeroBits())
	if n > bits {
		return bits
	}
	return n
}

func addrToBig(a netip.Addr) *big.Int {
	b := a.AsSlice()
	return new(big.Int).SetBytes(b)
}

func bigToAddr(v *big.Int, bits int) netip.Addr {
	byteLen := bits / 8
	buf := make([]byte, byteLen)
	v.FillBytes(buf)
	if bits == 32 {
		var a [4]byte
		copy(a[:], buf)
		return netip.AddrFrom4(a)
	}
	var a [16]byte
	copy(a[:], buf)
	return netip.AddrFrom16(a)
}
