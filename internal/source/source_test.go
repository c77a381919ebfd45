package source_test

import (
	"io"
	"testing"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GoPcapDissect/internal/source"
	"GoPcapDissect/internal/testutil"
)

func readAll(t *testing.T, src source.Source) []uint32 {
	t.Helper()

	var sizes []uint32
	for {
		hdr, data, err := src.Next()
		if err == io.EOF {
			return sizes
		}
		require.NoError(t, err)
		assert.Len(t, data, int(hdr.CapLen))
		sizes = append(sizes, hdr.CapLen)
	}
}

// TestOpenFormats 测试各种文件格式都能识别并读出全部帧
func TestOpenFormats(t *testing.T) {
	tests := []struct {
		name   string
		kind   testutil.FileKind
		format source.Format
		digits int
	}{
		{"pcap", testutil.KindPcap, source.FormatPcap, 6},
		{"pcap-nanos", testutil.KindPcapNanos, source.FormatPcap, 9},
		{"pcap-gzip", testutil.KindPcapGzip, source.FormatPcap, 6},
		{"pcapng", testutil.KindPcapNg, source.FormatPcapNg, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packets := testutil.UDPPackets(t, time.Millisecond, 64, 128, 256)
			path := testutil.WriteCaptureFile(t, tt.kind, packets)

			src, err := source.Open(path)
			require.NoError(t, err)
			defer src.Close()

			assert.Equal(t, tt.format, src.Format())
			assert.Equal(t, tt.digits, src.TimestampDigits())
			assert.Equal(t, layers.LinkTypeEthernet, src.LinkType())
			assert.Equal(t, []uint32{64, 128, 256}, readAll(t, src))
		})
	}
}

// TestClassicPcapOffsets 测试经典 pcap 的帧偏移
func TestClassicPcapOffsets(t *testing.T) {
	packets := testutil.UDPPackets(t, time.Second, 64, 128, 256)
	path := testutil.WriteCaptureFile(t, testutil.KindPcap, packets)

	src, err := source.Open(path)
	require.NoError(t, err)
	defer src.Close()

	want := []int64{24, 24 + 16 + 64, 24 + 16 + 64 + 16 + 128}
	for i, offset := range want {
		hdr, _, err := src.Next()
		require.NoError(t, err)
		assert.Equal(t, offset, hdr.Offset, "frame %d", i+1)
		assert.True(t, packets[i].Timestamp.Equal(hdr.Timestamp))
		assert.Equal(t, hdr.CapLen, hdr.OrigLen)
	}
}

// TestOpenErrors 测试无法打开或无法识别的文件
func TestOpenErrors(t *testing.T) {
	_, err := source.Open("/nonexistent/trace.pcap")
	assert.ErrorIs(t, err, source.ErrOpen)

	path := testutil.WriteRawFile(t, "junk.bin", []byte("definitely not a capture file"))
	_, err = source.Open(path)
	assert.ErrorIs(t, err, source.ErrOpen)
	assert.ErrorIs(t, err, source.ErrUnknownFormat)

	path = testutil.WriteRawFile(t, "short.bin", []byte{0x01})
	_, err = source.Open(path)
	assert.ErrorIs(t, err, source.ErrUnknownFormat)
}

// TestMaxFrameSize 测试超出最大帧长时报错
func TestMaxFrameSize(t *testing.T) {
	packets := testutil.UDPPackets(t, time.Millisecond, 64, 512)
	path := testutil.WriteCaptureFile(t, testutil.KindPcap, packets)

	src, err := source.Open(path, source.WithMaxFrameSize(256))
	require.NoError(t, err)
	defer src.Close()

	_, _, err = src.Next()
	require.NoError(t, err)

	_, _, err = src.Next()
	assert.ErrorIs(t, err, source.ErrFrameTooLarge)
}

// TestTruncatedRecord 测试文件截断时返回非 EOF 错误
func TestTruncatedRecord(t *testing.T) {
	packets := testutil.UDPPackets(t, time.Millisecond, 64, 128)
	full := testutil.WriteCaptureFile(t, testutil.KindPcap, packets)

	data := readFile(t, full)
	path := testutil.WriteRawFile(t, "truncated.pcap", data[:len(data)-10])

	src, err := source.Open(path)
	require.NoError(t, err)
	defer src.Close()

	_, _, err = src.Next()
	require.NoError(t, err)

	_, _, err = src.Next()
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
}

// TestCloseIdempotent 测试重复关闭
func TestCloseIdempotent(t *testing.T) {
	path := testutil.WriteCaptureFile(t, testutil.KindPcap, testutil.UDPPackets(t, time.Millisecond, 64))

	src, err := source.Open(path)
	require.NoError(t, err)

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())

	_, _, err = src.Next()
	assert.ErrorIs(t, err, source.ErrSourceClosed)
}
