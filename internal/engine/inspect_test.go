// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package engine

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lorasec.io/detect/internal/applayer"
	"lorasec.io/detect/internal/clock"
	"lorasec.io/detect/internal/flowstate"
	"lorasec.io/detect/internal/iponly"
	"lorasec.io/detect/internal/metrics"
	"lorasec.io/detect/internal/packet"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testPacket(src, dst string, srcPort, dstPort uint16, payload []byte) packet.Packet {
	return packet.Packet{
		SrcIP:   netip.MustParseAddr(src),
		DstIP:   netip.MustParseAddr(dst),
		IPProto: iponly.ProtoTCP,
		SrcPort: srcPort,
		DstPort: dstPort,
		Seq:     1000,
		Payload: payload,
		Dir:     packet.ToServer,
	}
}

func TestEngineInspect_CreatesAndReusesFlow(t *testing.T) {
	result, err := CompilePipeline([]RuleText{
		{ID: 1, Src: "any", Dst: "any", Protos: []uint8{iponly.ProtoTCP}},
	}, noVars)
	require.NoError(t, err)

	flows := flowstate.NewMapTable(clock.Real{})
	e := New(result.IPOnly, nil, result.Rules, flows)

	pkt := testPacket("192.168.1.2", "10.0.0.1", 1234, 80, []byte("hello"))
	v := e.Inspect(pkt)
	assert.Contains(t, v.MatchedSignatures, uint32(1))
	assert.Equal(t, 1, flows.Len())

	e.Inspect(pkt)
	assert.Equal(t, 1, flows.Len(), "second packet on the same 5-tuple reuses the flow")
}

func TestEngineInspect_NoFlowTableStillMatches(t *testing.T) {
	result, err := CompilePipeline([]RuleText{
		{ID: 1, Src: "any", Dst: "any", Protos: []uint8{iponly.ProtoTCP}},
	}, noVars)
	require.NoError(t, err)

	e := New(result.IPOnly, nil, result.Rules, nil)
	v := e.Inspect(testPacket("192.168.1.2", "10.0.0.1", 1234, 80, nil))
	assert.Contains(t, v.MatchedSignatures, uint32(1))
	assert.Equal(t, applayer.Unknown, v.AppProto)
}

func TestEngineInspect_AppProtoClassifiedOnceAndCached(t *testing.T) {
	det := applayer.New()
	det.Add(iponly.ProtoTCP, applayer.Proto(2), []byte("HTTP/"), 0, 5, packet.ToServer)
	det.Finalize(noopChunkLens{})

	flows := flowstate.NewMapTable(clock.Real{})
	e := New(nil, det, nil, flows)

	pkt := testPacket("192.168.1.2", "10.0.0.1", 1234, 80, []byte("HTTP/1.1 200 OK"))
	v := e.Inspect(pkt)
	assert.Equal(t, applayer.Proto(2), v.AppProto)

	pkt2 := testPacket("192.168.1.2", "10.0.0.1", 1234, 80, []byte("not http anymore"))
	v2 := e.Inspect(pkt2)
	assert.Equal(t, applayer.Proto(2), v2.AppProto, "flow stays classified once set, even if later payload wouldn't match")
}

func TestEngineInspect_ReportsToMetrics(t *testing.T) {
	result, err := CompilePipeline([]RuleText{
		{ID: 1, Src: "any", Dst: "any", Protos: []uint8{iponly.ProtoTCP}},
	}, noVars)
	require.NoError(t, err)

	reg := metrics.NewRegistry()
	m := metrics.NewCollector(reg)
	e := New(result.IPOnly, nil, result.Rules, nil).WithMetrics(m)

	e.Inspect(testPacket("192.168.1.2", "10.0.0.1", 1234, 80, nil))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PacketsInspected))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CandidatesMatched))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CandidatesRefined))
}

type noopChunkLens struct{}

func (noopChunkLens) SetMinInitChunkLen(dir packet.Direction, n int) {}
