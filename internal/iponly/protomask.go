// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package iponly

// ProtoMask is a 256-bit set of IP protocol numbers (TCP=6, UDP=17, ...),
// used by the match algorithm's step 4: "consult the full signature table
// for the signature's IP-protocol mask; drop candidates whose protocol
// mask does not include the packet's protocol."
type ProtoMask [4]uint64

// NewProtoMask builds a ProtoMask containing the given protocol numbers.
func NewProtoMask(protos ...uint8) ProtoMask {
	var m ProtoMask
	for _, p := range protos {
		m.Set(p)
	}
	return m
}

// Set adds protocol p to the mask.
func (m *ProtoMask) Set(p uint8) {
	m[p/64] |= 1 << (p % 64)
}

// Has reports whether protocol p is in the mask.
func (m ProtoMask) Has(p uint8) bool {
	return m[p/64]&(1<<(p%64)) != 0
}

// Common IP protocol numbers signatures reference.
const (
	ProtoICMP = 1
	ProtoTCP  = 6
	ProtoUDP  = 17
)
