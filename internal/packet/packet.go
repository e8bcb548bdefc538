// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package packet defines the decoded-packet boundary type spec.md §6
// describes as the core's input: source/destination address, IP
// protocol, payload, TCP/UDP header fields, and a flow reference. It is
// populated from gopacket's decoded layers at the edge of the detection
// core, keeping gopacket out of C2/C3/C6's own packages.
package packet

import (
	"net/netip"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

// Direction records which way a packet travels relative to the flow that
// originated it: toward the server that first received a SYN/first
// datagram, or back toward the client.
type Direction uint8

const (
	ToServer Direction = iota
	ToClient
)

// Packet is the decoded view of one network packet the core operates on.
type Packet struct {
	SrcIP    netip.Addr
	DstIP    netip.Addr
	IPProto  uint8
	SrcPort  uint16
	DstPort  uint16
	Seq      uint32
	Ack      uint32
	Payload  []byte
	Dir      Direction
	FlowID   uint64
	Captured gopacket.CaptureInfo
}

// FromGopacket decodes a raw frame with gopacket and extracts the fields
// the core needs. Only Ethernet/IPv4/IPv6 + TCP/UDP are supported; packets
// of any other shape return ok=false rather than an error, matching the
// core's "not every packet is in scope" posture — decode failures here
// are not protocol-parse errors in the KindProtocol sense, they're simply
// packets the detection core has nothing to say about.
func FromGopacket(data []byte, ci gopacket.CaptureInfo) (Packet, bool) {
	pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.NoCopy)

	var p Packet
	p.Captured = ci

	if v4 := pkt.Layer(layers.LayerTypeIPv4); v4 != nil {
		ip := v4.(*layers.IPv4)
		p.SrcIP, _ = netip.AddrFromSlice(ip.SrcIP.To4())
		p.DstIP, _ = netip.AddrFromSlice(ip.DstIP.To4())
		p.IPProto = uint8(ip.Protocol)
	} else if v6 := pkt.Layer(layers.LayerTypeIPv6); v6 != nil {
		ip := v6.(*layers.IPv6)
		p.SrcIP, _ = netip.AddrFromSlice(ip.SrcIP.To16())
		p.DstIP, _ = netip.AddrFromSlice(ip.DstIP.To16())
		p.IPProto = uint8(ip.NextHeader)
	} else {
		return Packet{}, false
	}

	switch {
	case pkt.Layer(layers.LayerTypeTCP) != nil:
		tcp := pkt.Layer(layers.LayerTypeTCP).(*layers.TCP)
		p.SrcPort = uint16(tcp.SrcPort)
		p.DstPort = uint16(tcp.DstPort)
		p.Seq = tcp.Seq
		p.Ack = tcp.Ack
		p.Payload = tcp.Payload
	case pkt.Layer(layers.LayerTypeUDP) != nil:
		udp := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
		p.SrcPort = uint16(udp.SrcPort)
		p.DstPort = uint16(udp.DstPort)
		p.Payload = udp.Payload
	default:
		return Packet{}, false
	}

	return p, true
}
