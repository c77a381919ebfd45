package testutil

import (
	"fmt"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	ethIPv4UDPHeaderSize = 14 + 20 + 8
	ethIPv4TCPHeaderSize = 14 + 20 + 20
)

var (
	srcMAC = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	dstMAC = net.HardwareAddr{0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb}
	srcIP  = net.IP{10, 0, 0, 1}
	dstIP  = net.IP{10, 0, 0, 2}
)

// Packet 待写入抓包文件的一帧
type Packet struct {
	Data      []byte
	Timestamp time.Time
}

// UDPFrame 构造总长为 size 字节的 Ethernet/IPv4/UDP 帧
func UDPFrame(size int, srcPort, dstPort uint16) ([]byte, error) {
	if size < ethIPv4UDPHeaderSize {
		return nil, fmt.Errorf("udp frame needs at least %d bytes, got %d", ethIPv4UDPHeaderSize, size)
	}

	ip := ipv4(layers.IPProtocolUDP)
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(srcPort),
		DstPort: layers.UDPPort(dstPort),
	}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return nil, err
	}

	return serialize(ethernet(), ip, udp, gopacket.Payload(filler(size-ethIPv4UDPHeaderSize)))
}

// TCPFrame 构造总长为 size 字节的 Ethernet/IPv4/TCP 帧
func TCPFrame(size int, srcPort, dstPort uint16, seq uint32) ([]byte, error) {
	if size < ethIPv4TCPHeaderSize {
		return nil, fmt.Errorf("tcp frame needs at least %d bytes, got %d", ethIPv4TCPHeaderSize, size)
	}

	ip := ipv4(layers.IPProtocolTCP)
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(srcPort),
		DstPort: layers.TCPPort(dstPort),
		Seq:     seq,
		ACK:     true,
		PSH:     true,
		Ack:     1,
		Window:  65535,
	}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		return nil, err
	}

	return serialize(ethernet(), ip, tcp, gopacket.Payload(filler(size-ethIPv4TCPHeaderSize)))
}

// Sequence 按固定间隔为一组帧分配时间戳
func Sequence(start time.Time, step time.Duration, frames ...[]byte) []Packet {
	packets := make([]Packet, 0, len(frames))
	for i, data := range frames {
		packets = append(packets, Packet{
			Data:      data,
			Timestamp: start.Add(time.Duration(i) * step),
		})
	}
	return packets
}

func ethernet() *layers.Ethernet {
	return &layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       dstMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
}

func ipv4(proto layers.IPProtocol) *layers.IPv4 {
	return &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Id:       0x1234,
		Flags:    layers.IPv4DontFragment,
		Protocol: proto,
		SrcIP:    srcIP,
		DstIP:    dstIP,
	}
}

func serialize(ls ...gopacket.SerializableLayer) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{
		FixLengths:       true,
		ComputeChecksums: true,
	}
	if err := gopacket.SerializeLayers(buf, opts, ls...); err != nil {
		return nil, err
	}

	out := make([]byte, len(buf.Bytes()))
	copy(out, buf.Bytes())
	return out, nil
}

func filler(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + i%26)
	}
	return b
}
