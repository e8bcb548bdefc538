// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package applayer

import (
	"lorasec.io/detect/internal/iponly"
	"lorasec.io/detect/internal/packet"
)

// httpMethods are the request-line verbs the HTTP detector recognizes
// toserver. depth is method-length+1 so the trailing space that
// terminates the method is itself part of the confirmed window.
var httpMethods = []string{
	"GET ", "POST ", "PUT ", "HEAD ", "OPTIONS ", "TRACE ", "CONNECT ",
}

// RegisterDefaults wires the detection core's contractual default
// pattern table into d: HTTP, TLS, SMB/SMB2, and DCERPC, followed by the
// SSH, FTP, SMTP, IMAP and MSN banner patterns. spec.md §4.3
// calls these "contracts — an implementer must register the same
// patterns to pass integration tests", so this is the one place in the
// package where the exact byte literals and offset/depth values matter
// more than idiom.
func RegisterDefaults(d *Detector) {
	for _, m := range httpMethods {
		d.Add(iponly.ProtoTCP, HTTP, []byte(m), 0, len(m), packet.ToServer)
	}
	d.Add(iponly.ProtoTCP, HTTP, []byte("HTTP/"), 0, 5, packet.ToClient)

	// TLS/SSLv3+ record header: content type 0x16 (handshake), version
	// 0x03 0x0X (SSLv3 through TLS 1.3 all share the 0x03 major byte).
	for _, minor := range []byte{0x00, 0x01, 0x02, 0x03, 0x04} {
		tlsHeader := []byte{0x16, 0x03, minor}
		d.Add(iponly.ProtoTCP, TLS, tlsHeader, 0, 3, packet.ToServer)
		d.Add(iponly.ProtoTCP, TLS, tlsHeader, 0, 3, packet.ToClient)
	}

	// SMB / SMB2: NBSS envelope (4 bytes) precedes the magic, so both
	// sit at offset 4, depth 8 (four bytes of magic following the
	// envelope).
	d.Add(iponly.ProtoTCP, SMB, []byte{0xff, 0x53, 0x4d, 0x42}, 4, 8, packet.ToServer)
	d.Add(iponly.ProtoTCP, SMB, []byte{0xff, 0x53, 0x4d, 0x42}, 4, 8, packet.ToClient)
	d.Add(iponly.ProtoTCP, SMB2, []byte{0xfe, 0x53, 0x4d, 0x42}, 4, 8, packet.ToServer)
	d.Add(iponly.ProtoTCP, SMB2, []byte{0xfe, 0x53, 0x4d, 0x42}, 4, 8, packet.ToClient)

	// DCERPC: first two bytes carry the RPC version, which differs by
	// transport (TCP uses RPCH 5.0 framing, UDP uses the older 4.0 CL
	// framing).
	d.Add(iponly.ProtoTCP, DCERPC, []byte{0x05, 0x00}, 0, 2, packet.ToServer)
	d.Add(iponly.ProtoTCP, DCERPC, []byte{0x05, 0x00}, 0, 2, packet.ToClient)
	d.Add(iponly.ProtoUDP, DCERPC, []byte{0x04, 0x00}, 0, 2, packet.ToServer)
	d.Add(iponly.ProtoUDP, DCERPC, []byte{0x04, 0x00}, 0, 2, packet.ToClient)

	// SSH: the version-exchange banner, both directions.
	d.Add(iponly.ProtoTCP, SSH, []byte("SSH-"), 0, 4, packet.ToServer)
	d.Add(iponly.ProtoTCP, SSH, []byte("SSH-"), 0, 4, packet.ToClient)

	// FTP: control-channel banner and command verbs.
	d.Add(iponly.ProtoTCP, FTP, []byte("220 "), 0, 4, packet.ToClient)
	d.Add(iponly.ProtoTCP, FTP, []byte("USER "), 0, 5, packet.ToServer)
	d.Add(iponly.ProtoTCP, FTP, []byte("PASS "), 0, 5, packet.ToServer)
	d.Add(iponly.ProtoTCP, FTP, []byte("PORT "), 0, 5, packet.ToServer)
	d.Add(iponly.ProtoTCP, FTP, []byte("AUTH SSL"), 0, 8, packet.ToClient)

	// SMTP: EHLO/HELO greeting toserver, ESMTP/SMTP banner toclient (the
	// banner's own window starts at offset 4 to skip the 3-digit reply
	// code and space before the "ESMTP"/"SMTP" token).
	d.Add(iponly.ProtoTCP, SMTP, []byte("EHLO "), 0, 5, packet.ToServer)
	d.Add(iponly.ProtoTCP, SMTP, []byte("HELO "), 0, 5, packet.ToServer)
	d.Add(iponly.ProtoTCP, SMTP, []byte("ESMTP "), 4, 64, packet.ToClient)
	d.Add(iponly.ProtoTCP, SMTP, []byte("SMTP "), 4, 64, packet.ToClient)

	// IMAP: "* OK " greeting toclient, "1 capability" probe toserver.
	d.Add(iponly.ProtoTCP, IMAP, []byte("* OK "), 0, 5, packet.ToClient)
	d.Add(iponly.ProtoTCP, IMAP, []byte("1 capability"), 0, 12, packet.ToServer)

	// MSN Messenger: "MSNP" appears a few bytes into the first line on
	// both sides of the connection.
	d.Add(iponly.ProtoTCP, MSN, []byte("MSNP"), 6, 10, packet.ToServer)
	d.Add(iponly.ProtoTCP, MSN, []byte("MSNP"), 6, 10, packet.ToClient)
}
