// Package source 打开离线抓包文件并逐帧读出原始数据。
//
// 支持经典 pcap（微秒/纳秒、两种字节序、gzip 压缩）和 pcapng，
// 实际解析由 gopacket/pcapgo 完成。
package source

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"GoPcapDissect/internal/frame"
)

const (
	// 经典 pcap 文件头与记录头长度
	pcapFileHeaderSize   = 24
	pcapRecordHeaderSize = 16

	// 无选项的 SHB + IDB，以及 EPB 的固定部分
	ngLeadingBlocksSize = 28 + 20
	ngPacketBlockSize   = 32

	// DefaultMaxFrameSize 默认的单帧最大捕获长度
	DefaultMaxFrameSize = 262144
)

var (
	ErrOpen          = errors.New("cannot open capture file")
	ErrUnknownFormat = errors.New("unknown capture file format")
	ErrFrameTooLarge = errors.New("frame exceeds max frame size")
	ErrSourceClosed  = errors.New("trace source is closed")
)

// Format 文件格式
type Format string

const (
	FormatPcap   Format = "pcap"
	FormatPcapNg Format = "pcapng"
)

// Source 顺序读取帧的追踪源
type Source interface {
	// Next 返回下一帧的帧头与数据，读完时返回 io.EOF。
	// 返回的数据只在下一次调用前有效。
	Next() (frame.Header, []byte, error)
	LinkType() layers.LinkType
	Format() Format
	// TimestampDigits 文件时间戳的小数位数（6 或 9）
	TimestampDigits() int
	Close() error
}

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// Option 追踪源选项
type Option func(*fileSource)

// WithMaxFrameSize 设置可接受的最大捕获长度
func WithMaxFrameSize(n uint32) Option {
	return func(s *fileSource) {
		if n > 0 {
			s.maxFrameSize = n
		}
	}
}

type fileSource struct {
	file         *os.File
	gz           *gzip.Reader
	reader       packetReader
	format       Format
	digits       int
	maxFrameSize uint32
	offset       int64
	closed       bool
}

// Open 识别文件格式并打开追踪源
func Open(path string, opts ...Option) (Source, error) {
	s := &fileSource{
		maxFrameSize: DefaultMaxFrameSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	s.file = f

	if err := s.detect(bufio.NewReader(f)); err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}

	return s, nil
}

// detect 根据魔数选择读取器
func (s *fileSource) detect(br *bufio.Reader) error {
	magic, err := br.Peek(4)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownFormat, err)
	}

	if magic[0] == 0x1f && magic[1] == 0x8b {
		s.gz, err = gzip.NewReader(br)
		if err != nil {
			return err
		}
		br = bufio.NewReader(s.gz)
		if magic, err = br.Peek(4); err != nil {
			return fmt.Errorf("%w: %v", ErrUnknownFormat, err)
		}
	}

	switch binary.BigEndian.Uint32(magic) {
	case 0xa1b2c3d4, 0xd4c3b2a1:
		s.format, s.digits = FormatPcap, 6
	case 0xa1b23c4d, 0x4d3cb2a1:
		s.format, s.digits = FormatPcap, 9
	case 0x0a0d0d0a:
		s.format, s.digits = FormatPcapNg, 6
	default:
		return fmt.Errorf("%w: magic %x", ErrUnknownFormat, magic)
	}

	if s.format == FormatPcapNg {
		r, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return err
		}
		s.reader = r
		s.offset = ngLeadingBlocksSize
		return nil
	}

	r, err := pcapgo.NewReader(br)
	if err != nil {
		return err
	}
	s.reader = r
	s.offset = pcapFileHeaderSize
	return nil
}

// Next 读取下一帧
func (s *fileSource) Next() (frame.Header, []byte, error) {
	if s.closed {
		return frame.Header{}, nil, ErrSourceClosed
	}

	data, ci, err := s.reader.ReadPacketData()
	if err != nil {
		return frame.Header{}, nil, err
	}

	if uint32(ci.CaptureLength) > s.maxFrameSize {
		return frame.Header{}, nil, fmt.Errorf("%w: %d > %d",
			ErrFrameTooLarge, ci.CaptureLength, s.maxFrameSize)
	}

	hdr := frame.Header{
		CapLen:    uint32(ci.CaptureLength),
		OrigLen:   uint32(ci.Length),
		Offset:    s.offset,
		Timestamp: ci.Timestamp,
	}

	switch s.format {
	case FormatPcapNg:
		s.offset += ngPacketBlockSize + int64(pad4(ci.CaptureLength))
	default:
		s.offset += pcapRecordHeaderSize + int64(ci.CaptureLength)
	}

	return hdr, data, nil
}

func (s *fileSource) LinkType() layers.LinkType {
	if s.reader == nil {
		return layers.LinkTypeNull
	}
	return s.reader.LinkType()
}

func (s *fileSource) Format() Format {
	return s.format
}

func (s *fileSource) TimestampDigits() int {
	return s.digits
}

// Close 关闭文件，可重复调用
func (s *fileSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.gz != nil {
		err = s.gz.Close()
		s.gz = nil
	}
	if s.file != nil {
		if cerr := s.file.Close(); cerr != nil && err == nil {
			err = cerr
		}
		s.file = nil
	}
	s.reader = nil
	return err
}

func pad4(n int) int {
	return (n + 3) &^ 3
}
