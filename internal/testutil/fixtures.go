package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// FixtureStart 测试抓包的起始时间
var FixtureStart = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// WriteCaptureFile 在临时目录生成抓包文件并返回路径
func WriteCaptureFile(t testing.TB, kind FileKind, packets []Packet) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "trace.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)

	require.NoError(t, WriteCapture(f, kind, packets))
	require.NoError(t, f.Close())
	return path
}

// UDPPackets 生成一组指定长度的 UDP 帧，间隔 step
func UDPPackets(t testing.TB, step time.Duration, sizes ...int) []Packet {
	t.Helper()

	frames := make([][]byte, 0, len(sizes))
	for i, size := range sizes {
		data, err := UDPFrame(size, 40000+uint16(i), 40100)
		require.NoError(t, err)
		frames = append(frames, data)
	}
	return Sequence(FixtureStart, step, frames...)
}

// WriteRawFile 写入任意字节，用于构造损坏的文件
func WriteRawFile(t testing.TB, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}
