// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package address

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRange(t *testing.T, lo, hi string, sigs ...uint32) Range {
	t.Helper()
	r, err := NewRange(netip.MustParseAddr(lo), netip.MustParseAddr(hi), NewSigSet(sigs...))
	require.NoError(t, err)
	return r
}

func TestNewRange_FamilyMismatch(t *testing.T) {
	_, err := NewRange(netip.MustParseAddr("10.0.0.1"), netip.MustParseAddr("::1"), nil)
	assert.Error(t, err)
}

func TestNewRange_Inverted(t *testing.T) {
	_, err := NewRange(netip.MustParseAddr("10.0.0.5"), netip.MustParseAddr("10.0.0.1"), nil)
	assert.Error(t, err)
}

func TestSingle(t *testing.T) {
	r, err := Single(netip.MustParseAddr("192.0.2.1"), NewSigSet(1))
	require.NoError(t, err)
	assert.Equal(t, r.IP1, r.IP2)
}

func TestAddSubOne_V4Carry(t *testing.T) {
	max := netip.MustParseAddr("255.255.255.255")
	zero := netip.MustParseAddr("0.0.0.0")
	assert.Equal(t, netip.MustParseAddr("1.0.0.0"), addOne(netip.MustParseAddr("0.255.255.255")))
	assert.Equal(t, netip.MustParseAddr("0.255.255.255"), subOne(netip.MustParseAddr("1.0.0.0")))
	assert.True(t, addOne(max).Is4())
	assert.True(t, subOne(zero).Is4())
}

func TestAddSubOne_V6Carry(t *testing.T) {
	a := netip.MustParseAddr("::ffff:ffff:ffff:ffff")
	got := addOne(a)
	want := netip.MustParseAddr("::1:0:0:0:0")
	assert.Equal(t, want, got)
	assert.Equal(t, a, subOne(got))
}

func TestFullRange(t *testing.T) {
	v4 := FullRange(FamilyV4)
	assert.Equal(t, netip.MustParseAddr("0.0.0.0"), v4.IP1)
	assert.Equal(t, netip.MustParseAddr("255.255.255.255"), v4.IP2)

	v6 := FullRange(FamilyV6)
	assert.Equal(t, netip.MustParseAddr("::"), v6.IP1)
	assert.Equal(t, netip.MustParseAddr("ffff:ffff:ffff:ffff:ffff:ffff:ffff:ffff"), v6.IP2)
}

func TestSigSet_UnionHas(t *testing.T) {
	a := NewSigSet(1, 2)
	b := NewSigSet(2, 3)
	u := a.Union(b)
	assert.True(t, u.Has(1))
	assert.True(t, u.Has(2))
	assert.True(t, u.Has(3))
	assert.False(t, u.Has(4))
}
