// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package tlsfp

import (
	"encoding/hex"
	"net"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clientHelloHex is a minimal synthetic TLS 1.2 ClientHello record:
// content type 0x16 (handshake), version 0x0303, two cipher suites, no
// extensions.
const clientHelloHex = "" +
	"160303" + // content type, version
	"0031" + // record length
	"01" + // ClientHello
	"00002d" + // handshake length
	"0303" + // client version TLS 1.2
	"0000000000000000000000000000000000000000000000000000000000000000" + // random
	"00" + // session ID length
	"0004" + // cipher suites length
	"c02bc02f" + // two cipher suites
	"01" + // compression methods length
	"00" + // null compression
	"0000" // extensions length: 0

func buildTCPPacket(t *testing.T, payload []byte) gopacket.Packet {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x01, 0x02, 0x03, 0x04, 0x05},
		DstMAC:       net.HardwareAddr{0x00, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.ParseIP("192.168.1.5").To4(),
		DstIP:    net.ParseIP("10.0.0.1").To4(),
	}
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(51234),
		DstPort: layers.TCPPort(443),
		Seq:     1000,
		PSH:     true,
		ACK:     true,
	}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload(payload)))
	return gopacket.NewPacket(buf.Bytes(), layers.LayerTypeEthernet, gopacket.NoCopy)
}

func TestDigest_ClientHelloProducesHash(t *testing.T) {
	payload, err := hex.DecodeString(clientHelloHex)
	require.NoError(t, err)

	pkt := buildTCPPacket(t, payload)
	f := New()
	hash, ok := f.Digest(pkt)
	require.True(t, ok)
	assert.Len(t, hash, 32)
}

func TestDigest_NonTLSPayloadYieldsEmptyDigest(t *testing.T) {
	pkt := buildTCPPacket(t, []byte("GET / HTTP/1.1\r\n"))
	f := New()
	_, ok := f.Digest(pkt)
	assert.False(t, ok)
}

func TestDigest_NilFingerprinterIsSafe(t *testing.T) {
	var f *Fingerprinter
	pkt := buildTCPPacket(t, []byte("irrelevant"))
	hash, ok := f.Digest(pkt)
	assert.False(t, ok)
	assert.Empty(t, hash)
}
