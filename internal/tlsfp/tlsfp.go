// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package tlsfp computes JA3 client fingerprints for flows C3 has
// already classified as TLS. It is an additive enrichment, never a
// classification signal: a nil *Fingerprinter simply disables it.
package tlsfp

import (
	"encoding/hex"

	"github.com/dreadl0ck/ja3"
	"github.com/gopacket/gopacket"
)

// emptyDigest is md5("") — what ja3.DigestPacket returns for a packet
// whose ClientHello fields it couldn't parse. Fingerprinting treats this
// as "no fingerprint" rather than a real hash.
const emptyDigest = "d41d8cd98f00b204e9800998ecf8427e"

// Fingerprinter wraps github.com/dreadl0ck/ja3's packet digest. The zero
// value is ready to use; a nil *Fingerprinter is also safe to call
// Digest on and always returns ("", false), letting callers skip the
// nil check at call sites that already hold an optional fingerprinter.
type Fingerprinter struct{}

// New returns a ready Fingerprinter.
func New() *Fingerprinter {
	return &Fingerprinter{}
}

// Digest computes the JA3 hash of pkt's TLS ClientHello. ok is false if
// pkt carries no parseable ClientHello, or f is nil.
func (f *Fingerprinter) Digest(pkt gopacket.Packet) (hash string, ok bool) {
	if f == nil {
		return "", false
	}
	digest := ja3.DigestPacket(pkt)
	hash = hex.EncodeToString(digest[:])
	if hash == emptyDigest {
		return "", false
	}
	return hash, true
}
