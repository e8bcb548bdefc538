// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package applayer

import (
	"github.com/gopacket/gopacket"

	"lorasec.io/detect/internal/packet"
	"lorasec.io/detect/internal/tlsfp"
)

// Result is C3's classification outcome for one Detect call: the
// app-proto, plus an optional JA3 enrichment attached only when the
// classification is TLS and a Fingerprinter is wired in. JA3 never
// changes Proto — it only annotates it, per SPEC_FULL.md's C3 section.
type Result struct {
	Proto Proto
	JA3   string
}

// SetFingerprinter wires a JA3 fingerprinter into the detector. A nil
// fingerprinter (the default) disables JA3 enrichment entirely.
func (d *Detector) SetFingerprinter(f *tlsfp.Fingerprinter) {
	d.fp = f
}

// DetectPacket runs Detect and, if the result is TLS and a
// Fingerprinter is wired in, additionally computes the JA3 hash of pkt.
// pkt is the raw decoded packet Detect's buf came from; passing the
// wrong packet only affects the JA3 field, never Proto.
func (d *Detector) DetectPacket(buf []byte, dir packet.Direction, ipProto uint8, pkt gopacket.Packet) (Result, error) {
	proto, err := d.Detect(buf, dir, ipProto)
	if err != nil {
		return Result{}, err
	}
	res := Result{Proto: proto}
	if proto == TLS && d.fp != nil {
		if hash, ok := d.fp.Digest(pkt); ok {
			res.JA3 = hash
		}
	}
	return res, nil
}
