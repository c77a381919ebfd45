package dissect

import (
	"encoding/hex"
	"fmt"
	"net"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// 数据字段最多展示的字节数
const maxDataPreview = 32

func builtinProtocols() []Protocol {
	return []Protocol{
		{Name: "Ethernet II", Prefix: "eth", Layer: layers.LayerTypeEthernet, Format: formatEthernet},
		{Name: "Linux cooked capture", Prefix: "sll", Layer: layers.LayerTypeLinuxSLL, Format: formatLinuxSLL},
		{Name: "Address Resolution Protocol", Prefix: "arp", Layer: layers.LayerTypeARP, Format: formatARP},
		{Name: "Internet Protocol Version 4", Prefix: "ip", Layer: layers.LayerTypeIPv4, Format: formatIPv4},
		{Name: "Internet Protocol Version 6", Prefix: "ipv6", Layer: layers.LayerTypeIPv6, Format: formatIPv6},
		{Name: "Internet Control Message Protocol", Prefix: "icmp", Layer: layers.LayerTypeICMPv4, Format: formatICMPv4},
		{Name: "Internet Control Message Protocol v6", Prefix: "icmpv6", Layer: layers.LayerTypeICMPv6, Format: formatICMPv6},
		{Name: "Transmission Control Protocol", Prefix: "tcp", Layer: layers.LayerTypeTCP, Format: formatTCP},
		{Name: "User Datagram Protocol", Prefix: "udp", Layer: layers.LayerTypeUDP, Format: formatUDP},
		{Name: "Domain Name System", Prefix: "dns", Layer: layers.LayerTypeDNS, Format: formatDNS},
		{Name: "Data", Prefix: "data", Layer: gopacket.LayerTypePayload, Format: formatPayload},
	}
}

func formatEthernet(l gopacket.Layer, n *Node) string {
	eth, ok := l.(*layers.Ethernet)
	if !ok {
		return ""
	}

	n.Add("eth.dst", "Destination: %s", eth.DstMAC)
	n.Add("eth.src", "Source: %s", eth.SrcMAC)
	if eth.EthernetType == layers.EthernetTypeLLC {
		n.Add("eth.len", "Length: %d", eth.Length)
	} else {
		n.Add("eth.type", "Type: %s (0x%04x)", eth.EthernetType, uint16(eth.EthernetType))
	}

	return fmt.Sprintf("Ethernet II, Src: %s, Dst: %s", eth.SrcMAC, eth.DstMAC)
}

func formatLinuxSLL(l gopacket.Layer, n *Node) string {
	sll, ok := l.(*layers.LinuxSLL)
	if !ok {
		return ""
	}

	n.Add("sll.pkttype", "Packet type: %s (%d)", sll.PacketType, uint16(sll.PacketType))
	n.Add("sll.hatype", "Link-layer address type: %d", sll.AddrType)
	n.Add("sll.halen", "Link-layer address length: %d", sll.AddrLen)
	n.Add("sll.src", "Source: %s", sll.Addr)
	n.Add("sll.etype", "Protocol: %s (0x%04x)", sll.EthernetType, uint16(sll.EthernetType))

	return "Linux cooked capture v1"
}

func formatARP(l gopacket.Layer, n *Node) string {
	arp, ok := l.(*layers.ARP)
	if !ok {
		return ""
	}

	op := "unknown"
	switch arp.Operation {
	case layers.ARPRequest:
		op = "request"
	case layers.ARPReply:
		op = "reply"
	}

	n.Add("arp.hw.type", "Hardware type: %s (%d)", arp.AddrType, uint16(arp.AddrType))
	n.Add("arp.proto.type", "Protocol type: %s (0x%04x)", arp.Protocol, uint16(arp.Protocol))
	n.Add("arp.hw.size", "Hardware size: %d", arp.HwAddressSize)
	n.Add("arp.proto.size", "Protocol size: %d", arp.ProtAddressSize)
	n.Add("arp.opcode", "Opcode: %s (%d)", op, arp.Operation)
	n.Add("arp.src.hw_mac", "Sender MAC address: %s", net.HardwareAddr(arp.SourceHwAddress))
	n.Add("arp.src.proto_ipv4", "Sender IP address: %s", net.IP(arp.SourceProtAddress))
	n.Add("arp.dst.hw_mac", "Target MAC address: %s", net.HardwareAddr(arp.DstHwAddress))
	n.Add("arp.dst.proto_ipv4", "Target IP address: %s", net.IP(arp.DstProtAddress))

	return fmt.Sprintf("Address Resolution Protocol (%s)", op)
}

func formatIPv4(l gopacket.Layer, n *Node) string {
	ip, ok := l.(*layers.IPv4)
	if !ok {
		return ""
	}

	n.Add("ip.version", "%04b .... = Version: %d", ip.Version, ip.Version)
	n.Add("ip.hdr_len", ".... %04b = Header Length: %d bytes (%d)", ip.IHL, int(ip.IHL)*4, ip.IHL)
	n.Add("ip.dsfield", "Differentiated Services Field: 0x%02x", ip.TOS)
	n.Add("ip.len", "Total Length: %d", ip.Length)
	n.Add("ip.id", "Identification: 0x%04x (%d)", ip.Id, ip.Id)

	flags := n.AddTree("ip.flags", "Flags: 0x%x%s", uint8(ip.Flags), ipv4FlagSummary(ip.Flags))
	flags.Add("ip.flags.rb", "Reserved bit: %s", setOrNot(ip.Flags&layers.IPv4EvilBit != 0))
	flags.Add("ip.flags.df", "Don't fragment: %s", setOrNot(ip.Flags&layers.IPv4DontFragment != 0))
	flags.Add("ip.flags.mf", "More fragments: %s", setOrNot(ip.Flags&layers.IPv4MoreFragments != 0))

	n.Add("ip.frag_offset", "Fragment Offset: %d", ip.FragOffset)
	n.Add("ip.ttl", "Time to Live: %d", ip.TTL)
	n.Add("ip.proto", "Protocol: %s (%d)", ip.Protocol, uint8(ip.Protocol))
	n.Add("ip.checksum", "Header Checksum: 0x%04x", ip.Checksum)
	n.Add("ip.src", "Source Address: %s", ip.SrcIP)
	n.Add("ip.dst", "Destination Address: %s", ip.DstIP)
	if len(ip.Options) > 0 {
		opts := n.AddTree("ip.options", "Options: (%d options)", len(ip.Options))
		for _, o := range ip.Options {
			opts.Add("ip.opt.type", "Option type %d, length %d", o.OptionType, o.OptionLength)
		}
	}

	return fmt.Sprintf("Internet Protocol Version 4, Src: %s, Dst: %s", ip.SrcIP, ip.DstIP)
}

func ipv4FlagSummary(f layers.IPv4Flag) string {
	switch {
	case f&layers.IPv4DontFragment != 0:
		return ", Don't fragment"
	case f&layers.IPv4MoreFragments != 0:
		return ", More fragments"
	}
	return ""
}

func formatIPv6(l gopacket.Layer, n *Node) string {
	ip, ok := l.(*layers.IPv6)
	if !ok {
		return ""
	}

	n.Add("ipv6.version", "%04b .... = Version: %d", ip.Version, ip.Version)
	n.Add("ipv6.tclass", "Traffic Class: 0x%02x", ip.TrafficClass)
	n.Add("ipv6.flow", "Flow Label: 0x%05x", ip.FlowLabel)
	n.Add("ipv6.plen", "Payload Length: %d", ip.Length)
	n.Add("ipv6.nxt", "Next Header: %s (%d)", ip.NextHeader, uint8(ip.NextHeader))
	n.Add("ipv6.hlim", "Hop Limit: %d", ip.HopLimit)
	n.Add("ipv6.src", "Source Address: %s", ip.SrcIP)
	n.Add("ipv6.dst", "Destination Address: %s", ip.DstIP)

	return fmt.Sprintf("Internet Protocol Version 6, Src: %s, Dst: %s", ip.SrcIP, ip.DstIP)
}

func formatICMPv4(l gopacket.Layer, n *Node) string {
	icmp, ok := l.(*layers.ICMPv4)
	if !ok {
		return ""
	}

	n.Add("icmp.type", "Type: %d (%s)", icmp.TypeCode.Type(), icmp.TypeCode)
	n.Add("icmp.code", "Code: %d", icmp.TypeCode.Code())
	n.Add("icmp.checksum", "Checksum: 0x%04x", icmp.Checksum)
	n.Add("icmp.ident", "Identifier: %d (0x%04x)", icmp.Id, icmp.Id)
	n.Add("icmp.seq", "Sequence Number: %d (0x%04x)", icmp.Seq, icmp.Seq)

	return "Internet Control Message Protocol"
}

func formatICMPv6(l gopacket.Layer, n *Node) string {
	icmp, ok := l.(*layers.ICMPv6)
	if !ok {
		return ""
	}

	n.Add("icmpv6.type", "Type: %d (%s)", icmp.TypeCode.Type(), icmp.TypeCode)
	n.Add("icmpv6.code", "Code: %d", icmp.TypeCode.Code())
	n.Add("icmpv6.checksum", "Checksum: 0x%04x", icmp.Checksum)

	return "Internet Control Message Protocol v6"
}

func formatTCP(l gopacket.Layer, n *Node) string {
	tcp, ok := l.(*layers.TCP)
	if !ok {
		return ""
	}

	payloadLen := len(tcp.LayerPayload())
	n.Add("tcp.srcport", "Source Port: %d", uint16(tcp.SrcPort))
	n.Add("tcp.dstport", "Destination Port: %d", uint16(tcp.DstPort))
	n.Add("tcp.len", "[TCP Segment Len: %d]", payloadLen)
	n.Add("tcp.seq", "Sequence Number: %d", tcp.Seq)
	n.Add("tcp.ack", "Acknowledgment Number: %d", tcp.Ack)
	n.Add("tcp.hdr_len", "%04b .... = Header Length: %d bytes (%d)", tcp.DataOffset, int(tcp.DataOffset)*4, tcp.DataOffset)

	names, bits := tcpFlags(tcp)
	flags := n.AddTree("tcp.flags", "Flags: 0x%03x (%s)", bits, strings.Join(names, ", "))
	for _, f := range []struct {
		abbrev string
		name   string
		set    bool
	}{
		{"tcp.flags.ns", "Nonce", tcp.NS},
		{"tcp.flags.cwr", "Congestion Window Reduced", tcp.CWR},
		{"tcp.flags.ece", "ECN-Echo", tcp.ECE},
		{"tcp.flags.urg", "Urgent", tcp.URG},
		{"tcp.flags.ack", "Acknowledgment", tcp.ACK},
		{"tcp.flags.push", "Push", tcp.PSH},
		{"tcp.flags.reset", "Reset", tcp.RST},
		{"tcp.flags.syn", "Syn", tcp.SYN},
		{"tcp.flags.fin", "Fin", tcp.FIN},
	} {
		flags.Add(f.abbrev, "%s: %s", f.name, setOrNot(f.set))
	}

	n.Add("tcp.window_size_value", "Window: %d", tcp.Window)
	n.Add("tcp.checksum", "Checksum: 0x%04x", tcp.Checksum)
	n.Add("tcp.urgent_pointer", "Urgent Pointer: %d", tcp.Urgent)
	if len(tcp.Options) > 0 {
		opts := n.AddTree("tcp.options", "Options: (%d bytes)", int(tcp.DataOffset)*4-20)
		for _, o := range tcp.Options {
			opts.Add("tcp.option_kind", "%s", o)
		}
	}
	if payloadLen > 0 {
		n.Add("tcp.payload", "TCP payload (%d bytes)", payloadLen)
	}

	return fmt.Sprintf("Transmission Control Protocol, Src Port: %d, Dst Port: %d, Seq: %d, Ack: %d, Len: %d",
		uint16(tcp.SrcPort), uint16(tcp.DstPort), tcp.Seq, tcp.Ack, payloadLen)
}

func tcpFlags(tcp *layers.TCP) ([]string, uint16) {
	var names []string
	var bits uint16
	for _, f := range []struct {
		name string
		set  bool
		bit  uint16
	}{
		{"NS", tcp.NS, 0x100},
		{"CWR", tcp.CWR, 0x080},
		{"ECE", tcp.ECE, 0x040},
		{"URG", tcp.URG, 0x020},
		{"ACK", tcp.ACK, 0x010},
		{"PSH", tcp.PSH, 0x008},
		{"RST", tcp.RST, 0x004},
		{"SYN", tcp.SYN, 0x002},
		{"FIN", tcp.FIN, 0x001},
	} {
		if f.set {
			names = append(names, f.name)
			bits |= f.bit
		}
	}
	return names, bits
}

func formatUDP(l gopacket.Layer, n *Node) string {
	udp, ok := l.(*layers.UDP)
	if !ok {
		return ""
	}

	n.Add("udp.srcport", "Source Port: %d", uint16(udp.SrcPort))
	n.Add("udp.dstport", "Destination Port: %d", uint16(udp.DstPort))
	n.Add("udp.length", "Length: %d", udp.Length)
	n.Add("udp.checksum", "Checksum: 0x%04x", udp.Checksum)
	if payloadLen := len(udp.LayerPayload()); payloadLen > 0 {
		n.Add("udp.payload", "UDP payload (%d bytes)", payloadLen)
	}

	return fmt.Sprintf("User Datagram Protocol, Src Port: %d, Dst Port: %d",
		uint16(udp.SrcPort), uint16(udp.DstPort))
}

func formatDNS(l gopacket.Layer, n *Node) string {
	dns, ok := l.(*layers.DNS)
	if !ok {
		return ""
	}

	kind := "query"
	if dns.QR {
		kind = "response"
	}

	n.Add("dns.id", "Transaction ID: 0x%04x", dns.ID)
	flags := n.AddTree("dns.flags", "Flags: %s", kind)
	flags.Add("dns.flags.opcode", "Opcode: %s (%d)", dns.OpCode, uint8(dns.OpCode))
	flags.Add("dns.flags.recdesired", "Recursion desired: %t", dns.RD)
	if dns.QR {
		flags.Add("dns.flags.recavail", "Recursion available: %t", dns.RA)
		flags.Add("dns.flags.rcode", "Reply code: %s (%d)", dns.ResponseCode, uint8(dns.ResponseCode))
	}
	n.Add("dns.count.queries", "Questions: %d", dns.QDCount)
	n.Add("dns.count.answers", "Answer RRs: %d", dns.ANCount)
	n.Add("dns.count.auth_rr", "Authority RRs: %d", dns.NSCount)
	n.Add("dns.count.add_rr", "Additional RRs: %d", dns.ARCount)

	if len(dns.Questions) > 0 {
		queries := n.AddTree("dns.queries", "Queries")
		for _, q := range dns.Questions {
			queries.Add("dns.qry.name", "%s: type %s, class %s", q.Name, q.Type, q.Class)
		}
	}
	if len(dns.Answers) > 0 {
		answers := n.AddTree("dns.answers", "Answers")
		for _, rr := range dns.Answers {
			answers.Add("dns.resp.name", "%s: type %s, class %s, ttl %d", rr.Name, rr.Type, rr.Class, rr.TTL)
		}
	}

	return fmt.Sprintf("Domain Name System (%s)", kind)
}

func formatPayload(l gopacket.Layer, n *Node) string {
	data := l.LayerContents()

	preview := data
	suffix := ""
	if len(preview) > maxDataPreview {
		preview = preview[:maxDataPreview]
		suffix = "..."
	}
	n.Add("data.data", "Data: %s%s", hex.EncodeToString(preview), suffix)
	n.Add("data.len", "[Length: %d]", len(data))

	return fmt.Sprintf("Data (%d bytes)", len(data))
}

func setOrNot(set bool) string {
	if set {
		return "Set"
	}
	return "Not set"
}
