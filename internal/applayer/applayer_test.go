// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package applayer

import (
	"encoding/hex"
	"net"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lorasec.io/detect/internal/iponly"
	"lorasec.io/detect/internal/packet"
	"lorasec.io/detect/internal/streamqueue"
	"lorasec.io/detect/internal/tlsfp"
)

func TestDetect_S1_HTTPResponseClassification(t *testing.T) {
	d := New()
	RegisterDefaults(d)
	d.Finalize(nil)

	buf := []byte("HTTP/1.1 200 OK\r\nServer: Apache/1.0\r\n\r\n")
	proto, err := d.Detect(buf, packet.ToClient, iponly.ProtoTCP)
	require.NoError(t, err)
	assert.Equal(t, HTTP, proto)
}

func TestDetect_S2_FTPBannerClassification(t *testing.T) {
	d := New()
	RegisterDefaults(d)
	d.Finalize(nil)

	buf := []byte("220 Welcome to the OISF FTP server\r\n")
	proto, err := d.Detect(buf, packet.ToClient, iponly.ProtoTCP)
	require.NoError(t, err)
	assert.Equal(t, FTP, proto)
}

func TestDetect_S3_AmbiguousBannerIsUnknown(t *testing.T) {
	d := New()
	// Only the HTTP response pattern is registered on this direction.
	d.Add(iponly.ProtoTCP, HTTP, []byte("HTTP/"), 0, 5, packet.ToClient)
	d.Finalize(nil)

	buf := []byte("220 Welcome to the OISF HTTP/FTP server\r\n")
	proto, err := d.Detect(buf, packet.ToClient, iponly.ProtoTCP)
	require.NoError(t, err)
	assert.Equal(t, Unknown, proto)
}

func TestDetect_HTTPRequest(t *testing.T) {
	d := New()
	RegisterDefaults(d)
	d.Finalize(nil)

	buf := []byte("GET /index.html HTTP/1.1\r\n")
	proto, err := d.Detect(buf, packet.ToServer, iponly.ProtoTCP)
	require.NoError(t, err)
	assert.Equal(t, HTTP, proto)
}

func TestDetect_HTTPResponse(t *testing.T) {
	d := New()
	RegisterDefaults(d)
	d.Finalize(nil)

	buf := []byte("HTTP/1.1 200 OK\r\n")
	proto, err := d.Detect(buf, packet.ToClient, iponly.ProtoTCP)
	require.NoError(t, err)
	assert.Equal(t, HTTP, proto)
}

func TestDetect_TLSClientHello(t *testing.T) {
	d := New()
	RegisterDefaults(d)
	d.Finalize(nil)

	buf := []byte{0x16, 0x03, 0x01, 0x00, 0xa5, 0x01, 0x00}
	proto, err := d.Detect(buf, packet.ToServer, iponly.ProtoTCP)
	require.NoError(t, err)
	assert.Equal(t, TLS, proto)
}

func TestDetect_SMB2(t *testing.T) {
	d := New()
	RegisterDefaults(d)
	d.Finalize(nil)

	buf := []byte{0x00, 0x00, 0x00, 0x66, 0xfe, 0x53, 0x4d, 0x42, 0x40, 0x00}
	proto, err := d.Detect(buf, packet.ToServer, iponly.ProtoTCP)
	require.NoError(t, err)
	assert.Equal(t, SMB2, proto)
}

func TestDetect_SMB1(t *testing.T) {
	d := New()
	RegisterDefaults(d)
	d.Finalize(nil)

	buf := []byte{0x00, 0x00, 0x00, 0x66, 0xff, 0x53, 0x4d, 0x42, 0x00, 0x00}
	proto, err := d.Detect(buf, packet.ToClient, iponly.ProtoTCP)
	require.NoError(t, err)
	assert.Equal(t, SMB, proto)
}

func TestDetect_DCERPC_TCPvsUDP(t *testing.T) {
	d := New()
	RegisterDefaults(d)
	d.Finalize(nil)

	tcpBuf := []byte{0x05, 0x00, 0x0b, 0x03}
	proto, err := d.Detect(tcpBuf, packet.ToServer, iponly.ProtoTCP)
	require.NoError(t, err)
	assert.Equal(t, DCERPC, proto)

	// Same leading bytes over UDP don't match the TCP-only signature.
	proto, err = d.Detect(tcpBuf, packet.ToServer, iponly.ProtoUDP)
	require.NoError(t, err)
	assert.Equal(t, Unknown, proto)

	udpBuf := []byte{0x04, 0x00, 0x00, 0x00}
	proto, err = d.Detect(udpBuf, packet.ToServer, iponly.ProtoUDP)
	require.NoError(t, err)
	assert.Equal(t, DCERPC, proto)
}

func TestDetect_UnknownOnNoMatch(t *testing.T) {
	d := New()
	RegisterDefaults(d)
	d.Finalize(nil)

	proto, err := d.Detect([]byte("not a recognized banner at all"), packet.ToServer, iponly.ProtoTCP)
	require.NoError(t, err)
	assert.Equal(t, Unknown, proto)
}

func TestDetect_EmptyDirectionContextReturnsUnknown(t *testing.T) {
	d := New()
	// Register only toserver patterns; toclient direction stays empty.
	d.Add(iponly.ProtoTCP, HTTP, []byte("GET "), 0, 4, packet.ToServer)
	d.Finalize(nil)

	proto, err := d.Detect([]byte("GET / HTTP/1.0\r\n"), packet.ToClient, iponly.ProtoTCP)
	require.NoError(t, err)
	assert.Equal(t, Unknown, proto)
}

func TestDetect_BeforeFinalizeErrors(t *testing.T) {
	d := New()
	RegisterDefaults(d)
	_, err := d.Detect([]byte("GET / HTTP/1.0\r\n"), packet.ToServer, iponly.ProtoTCP)
	assert.Error(t, err)
}

func TestDetect_OffsetBeyondBufferRejectsCandidate(t *testing.T) {
	d := New()
	// The MPM finds the pattern bytes at offset 4, but the signature's
	// offset/depth window lies past the end of the buffer, so it is rejected.
	d.Add(iponly.ProtoTCP, SMB2, []byte{0xfe, 0x53, 0x4d, 0x42}, 100, 104, packet.ToServer)
	d.Finalize(nil)

	buf := []byte{0x00, 0x00, 0x00, 0x66, 0xfe, 0x53, 0x4d, 0x42}
	proto, err := d.Detect(buf, packet.ToServer, iponly.ProtoTCP)
	require.NoError(t, err)
	assert.Equal(t, Unknown, proto)
}

func TestAdd_SharedPatternBytesChainMultipleSignatures(t *testing.T) {
	d := New()
	// Same bytes, two different (app-proto, offset, depth) meanings.
	d.Add(iponly.ProtoTCP, SMB, []byte{0xAA, 0xBB}, 0, 2, packet.ToServer)
	d.Add(iponly.ProtoTCP, DCERPC, []byte{0xAA, 0xBB}, 4, 6, packet.ToServer)
	d.Finalize(nil)

	dd := d.dirs[packet.ToServer]
	assert.Len(t, dd.patterns, 1, "identical pattern bytes should share one MPM pattern")
	assert.Len(t, dd.chains, 1)
	for _, chain := range dd.chains {
		assert.Len(t, chain, 2, "both signatures should be linked under the shared pattern ID")
	}

	// Buffer where only the second signature's window actually contains
	// the bytes; the chain walk must fall through the first and match
	// the second.
	buf := []byte{0x00, 0x00, 0x00, 0x00, 0xAA, 0xBB}
	proto, err := d.Detect(buf, packet.ToServer, iponly.ProtoTCP)
	require.NoError(t, err)
	assert.Equal(t, DCERPC, proto)
}

func TestDetect_MinLenTracksSmallestDepth(t *testing.T) {
	d := New()
	RegisterDefaults(d)
	d.Finalize(nil)
	assert.Equal(t, 2, d.MinLen(packet.ToServer)) // DCERPC's depth=2 is smallest
}

func TestDetect_SetMaxSearchLenClipsBeyondSignatureDepth(t *testing.T) {
	d := New()
	// A pattern whose depth is generous (100), so nothing but the
	// detector-wide cap would ever clip the search window.
	d.Add(iponly.ProtoTCP, HTTP, []byte("late-match"), 50, 100, packet.ToServer)
	d.Finalize(nil)
	d.SetMaxSearchLen(20)

	// The buffer is exactly depth bytes long, so without the cap the
	// signature's window [50, 100) would fit and match.
	buf := make([]byte, 100)
	copy(buf[50:], []byte("late-match"))

	proto, err := d.Detect(buf, packet.ToServer, iponly.ProtoTCP)
	require.NoError(t, err)
	assert.Equal(t, Unknown, proto, "the 20-byte search cap keeps the MPM scan from ever reaching offset 50")
}

func TestDetect_SetMaxSearchLenIgnoresNonPositive(t *testing.T) {
	d := New()
	RegisterDefaults(d)
	d.Finalize(nil)
	d.SetMaxSearchLen(0)
	d.SetMaxSearchLen(-5)

	proto, err := d.Detect([]byte("GET / HTTP/1.1\r\n"), packet.ToServer, iponly.ProtoTCP)
	require.NoError(t, err)
	assert.Equal(t, HTTP, proto)
}

type fakeChunkLenSetter struct {
	calls map[packet.Direction]int
}

func (f *fakeChunkLenSetter) SetMinInitChunkLen(dir packet.Direction, n int) {
	if f.calls == nil {
		f.calls = make(map[packet.Direction]int)
	}
	f.calls[dir] = n
}

func TestFinalize_InformsChunkLenSetter(t *testing.T) {
	d := New()
	RegisterDefaults(d)
	f := &fakeChunkLenSetter{}
	d.Finalize(f)
	assert.Equal(t, 2, f.calls[packet.ToServer])
	assert.Equal(t, 2, f.calls[packet.ToClient])
}

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
	tcp := &layers.TCP{SrcPort: 51234, DstPort: 443, Seq: 1000, PSH: true, ACK: true}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload(payload)))
	return gopacket.NewPacket(buf.Bytes(), layers.LayerTypeEthernet, gopacket.NoCopy)
}

func TestDetectPacket_TLSAttachesJA3(t *testing.T) {
	d := New()
	RegisterDefaults(d)
	d.Finalize(nil)
	d.SetFingerprinter(tlsfp.New())

	clientHelloHex := "1603030031" + "0100002d" + "0303" +
		"0000000000000000000000000000000000000000000000000000000000000000" +
		"00" + "0004" + "c02bc02f" + "01" + "00" + "0000"
	payload, err := hex.DecodeString(clientHelloHex)
	require.NoError(t, err)

	pkt := buildTCPPacket(t, payload)
	res, err := d.DetectPacket(payload, packet.ToServer, iponly.ProtoTCP, pkt)
	require.NoError(t, err)
	assert.Equal(t, TLS, res.Proto)
	assert.Len(t, res.JA3, 32)
}

func TestDetectPacket_NonTLSHasNoJA3(t *testing.T) {
	d := New()
	RegisterDefaults(d)
	d.Finalize(nil)
	d.SetFingerprinter(tlsfp.New())

	payload := []byte("GET / HTTP/1.1\r\n")
	pkt := buildTCPPacket(t, payload)
	res, err := d.DetectPacket(payload, packet.ToServer, iponly.ProtoTCP, pkt)
	require.NoError(t, err)
	assert.Equal(t, HTTP, res.Proto)
	assert.Empty(t, res.JA3)
}

// TestFinalize_StreamqueueChunkLensSatisfiesInterface confirms
// *streamqueue.ChunkLens can be passed directly to Finalize with no
// adapter — both sides key min-chunk-length hints by packet.Direction.
func TestFinalize_StreamqueueChunkLensSatisfiesInterface(t *testing.T) {
	d := New()
	RegisterDefaults(d)
	cl := streamqueue.NewChunkLens()
	d.Finalize(cl)
	assert.Equal(t, 2, cl.MinInitChunkLen(packet.ToServer))
	assert.Equal(t, 2, cl.MinInitChunkLen(packet.ToClient))
}

func TestDetectPacket_WithoutFingerprinterSkipsJA3(t *testing.T) {
	d := New()
	RegisterDefaults(d)
	d.Finalize(nil)

	clientHelloHex := "1603030031" + "0100002d" + "0303" +
		"0000000000000000000000000000000000000000000000000000000000000000" +
		"00" + "0004" + "c02bc02f" + "01" + "00" + "0000"
	payload, err := hex.DecodeString(clientHelloHex)
	require.NoError(t, err)

	pkt := buildTCPPacket(t, payload)
	res, err := d.DetectPacket(payload, packet.ToServer, iponly.ProtoTCP, pkt)
	require.NoError(t, err)
	assert.Equal(t, TLS, res.Proto)
	assert.Empty(t, res.JA3)
}
