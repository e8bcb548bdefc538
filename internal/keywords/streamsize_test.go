// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStreamSize_ServerLT(t *testing.T) {
	s, err := ParseStreamSize("server,<,6")
	require.NoError(t, err)
	assert.Equal(t, SideServer, s.Side)
	assert.Equal(t, OpLT, s.Op)
	assert.Equal(t, uint32(6), s.N)
}

func TestParseStreamSize_ClientGTWithSpaces(t *testing.T) {
	s, err := ParseStreamSize(" client , > , 8 ")
	require.NoError(t, err)
	assert.Equal(t, SideClient, s.Side)
	assert.Equal(t, OpGT, s.Op)
	assert.Equal(t, uint32(8), s.N)
}

func TestParseStreamSize_AllOperators(t *testing.T) {
	cases := map[string]Op{
		"<":  OpLT,
		"<=": OpLEQ,
		"==": OpEQ,
		"!=": OpNEQ,
		">=": OpGEQ,
		">":  OpGT,
	}
	for opStr, want := range cases {
		s, err := ParseStreamSize("both," + opStr + ",1")
		require.NoError(t, err)
		assert.Equal(t, want, s.Op)
	}
}

func TestParseStreamSize_InvalidSide(t *testing.T) {
	_, err := ParseStreamSize("invalidoption,<,6")
	assert.Error(t, err)
}

func TestParseStreamSize_InvalidOperator(t *testing.T) {
	_, err := ParseStreamSize("server,~,6")
	assert.Error(t, err)
}

func TestParseStreamSize_WrongFieldCount(t *testing.T) {
	_, err := ParseStreamSize("server,<")
	assert.Error(t, err)
}

func TestStreamSizeMatch_Server(t *testing.T) {
	s, err := ParseStreamSize("server,<,6")
	require.NoError(t, err)
	assert.True(t, s.Match(Diff{Value: 5, Available: true}, Diff{}))
	assert.False(t, s.Match(Diff{Value: 7, Available: true}, Diff{}))
}

func TestStreamSizeMatch_Client(t *testing.T) {
	s, err := ParseStreamSize("client,>,8")
	require.NoError(t, err)
	assert.True(t, s.Match(Diff{}, Diff{Value: 20 - 10, Available: true}))
}

func TestStreamSizeMatch_Both(t *testing.T) {
	s, err := ParseStreamSize("both,>=,10")
	require.NoError(t, err)
	assert.True(t, s.Match(Diff{Value: 10, Available: true}, Diff{Value: 15, Available: true}))
	assert.False(t, s.Match(Diff{Value: 10, Available: true}, Diff{Value: 5, Available: true}))
}

func TestStreamSizeMatch_Either(t *testing.T) {
	s, err := ParseStreamSize("either,>=,10")
	require.NoError(t, err)
	assert.True(t, s.Match(Diff{Value: 10, Available: true}, Diff{Value: 5, Available: true}))
	assert.False(t, s.Match(Diff{Value: 5, Available: true}, Diff{Value: 3, Available: true}))
}

func TestStreamSizeMatch_UnavailableSideFailsClosed(t *testing.T) {
	s, err := ParseStreamSize("server,>,8")
	require.NoError(t, err)
	assert.False(t, s.Match(Diff{Value: 100, Available: false}, Diff{}))
}

func TestStreamSizeMatch_BothRequiresBothAvailable(t *testing.T) {
	s, err := ParseStreamSize("both,>=,0")
	require.NoError(t, err)
	assert.False(t, s.Match(Diff{Value: 5, Available: true}, Diff{Available: false}))
}

// TestStreamSizeMatch_OriginalSuricataExample reproduces
// DetectStreamSizeParseTest03/04 from the original C implementation: a
// client stream with next_seq=20, isn=10 (diff=10) against "client,>,8".
func TestStreamSizeMatch_OriginalSuricataExample(t *testing.T) {
	s, err := ParseStreamSize("client,>,8")
	require.NoError(t, err)
	clientDiff := Diff{Value: 20 - 10, Available: true}
	assert.True(t, s.Match(Diff{}, clientDiff))

	// Test04: isn=12 instead of 10 -> diff=8, not > 8.
	clientDiff2 := Diff{Value: 20 - 12, Available: true}
	assert.False(t, s.Match(Diff{}, clientDiff2))
}
