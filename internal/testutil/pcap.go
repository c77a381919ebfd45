package testutil

import (
	"compress/gzip"
	"io"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// FileKind 抓包文件种类
type FileKind int

const (
	KindPcap FileKind = iota
	KindPcapNanos
	KindPcapGzip
	KindPcapNg
)

const fixtureSnaplen = 65536

// WriteCapture 把帧按指定种类写入 w
func WriteCapture(w io.Writer, kind FileKind, packets []Packet) error {
	switch kind {
	case KindPcapNg:
		return writePcapNg(w, packets)
	case KindPcapGzip:
		gz := gzip.NewWriter(w)
		if err := writePcap(pcapgo.NewWriter(gz), packets); err != nil {
			return err
		}
		return gz.Close()
	case KindPcapNanos:
		return writePcap(pcapgo.NewWriterNanos(w), packets)
	default:
		return writePcap(pcapgo.NewWriter(w), packets)
	}
}

func writePcap(w *pcapgo.Writer, packets []Packet) error {
	if err := w.WriteFileHeader(fixtureSnaplen, layers.LinkTypeEthernet); err != nil {
		return err
	}
	for _, p := range packets {
		if err := w.WritePacket(captureInfo(p), p.Data); err != nil {
			return err
		}
	}
	return nil
}

func writePcapNg(w io.Writer, packets []Packet) error {
	ng, err := pcapgo.NewNgWriter(w, layers.LinkTypeEthernet)
	if err != nil {
		return err
	}
	for _, p := range packets {
		if err := ng.WritePacket(captureInfo(p), p.Data); err != nil {
			return err
		}
	}
	return ng.Flush()
}

func captureInfo(p Packet) gopacket.CaptureInfo {
	return gopacket.CaptureInfo{
		Timestamp:     p.Timestamp,
		CaptureLength: len(p.Data),
		Length:        len(p.Data),
	}
}
