package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GoPcapDissect/internal/dissect"
	"GoPcapDissect/internal/testutil"
)

func runArgs(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func captureFile(t *testing.T, sizes ...int) string {
	t.Helper()
	return testutil.WriteCaptureFile(t, testutil.KindPcap, testutil.UDPPackets(t, 10*time.Millisecond, sizes...))
}

// TestManualEndToEnd 测试 manual 方式按帧顺序输出三帧
func TestManualEndToEnd(t *testing.T) {
	code, out, _ := runArgs("-f", captureFile(t, 64, 128, 256), "-t", "manual")
	require.Equal(t, exitOK, code)

	var frames []string
	for _, line := range strings.Split(strings.TrimSuffix(out, "\n"), "\n") {
		require.True(t, strings.HasPrefix(line, "***\t"), line)
		if strings.HasPrefix(line, "***\tFrame ") {
			frames = append(frames, line)
		}
	}

	assert.Equal(t, []string{
		"***\tFrame 1: 64 bytes on wire (512 bits), 64 bytes captured (512 bits)",
		"***\tFrame 2: 128 bytes on wire (1024 bits), 128 bytes captured (1024 bits)",
		"***\tFrame 3: 256 bytes on wire (2048 bits), 256 bytes captured (2048 bits)",
	}, frames)
}

// TestTextIsDefault 测试默认和未知输出方式都使用 text
func TestTextIsDefault(t *testing.T) {
	path := captureFile(t, 64)

	code, def, _ := runArgs("-f", path)
	require.Equal(t, exitOK, code)
	assert.True(t, strings.HasPrefix(def, "Frame 1: "))
	assert.Contains(t, def, "\n    Frame Number: 1\n")
	assert.NotContains(t, def, "***")

	code, unknown, _ := runArgs("-f", path, "-t", "yaml")
	require.Equal(t, exitOK, code)
	assert.Equal(t, def, unknown)
}

func TestArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no-args", nil},
		{"missing-file", []string{"-f", filepath.Join(os.TempDir(), "does-not-exist.pcap")}},
		{"unknown-flag", []string{"-x"}},
		{"flag-without-value", []string{"-f"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, errOut := runArgs(tt.args...)
			assert.Equal(t, exitError, code)
			assert.Empty(t, out)
			assert.Contains(t, errOut, "Usage: pcapdissect")
		})
	}
}

func TestHelp(t *testing.T) {
	code, _, errOut := runArgs("-h")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, errOut, "Usage: pcapdissect")
}

// TestUnknownFormat 测试无法识别的文件
func TestUnknownFormat(t *testing.T) {
	path := testutil.WriteRawFile(t, "notes.txt", []byte("definitely not a capture"))

	code, out, errOut := runArgs("-f", path)
	assert.Equal(t, exitError, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "cannot open trace source")
}

// TestReadErrorKeepsOutput 测试读取中途出错时保留已输出内容
func TestReadErrorKeepsOutput(t *testing.T) {
	data, err := os.ReadFile(captureFile(t, 64, 128))
	require.NoError(t, err)
	path := testutil.WriteRawFile(t, "truncated.pcap", data[:len(data)-10])

	code, out, errOut := runArgs("-f", path, "-t", "manual")
	assert.Equal(t, exitError, code)
	assert.Contains(t, out, "***\tFrame 1: ")
	assert.NotContains(t, out, "Frame 2: ")
	assert.Contains(t, errOut, "frame read failed")
}

// TestEngineInitFailure 测试引擎初始化失败返回 2
func TestEngineInitFailure(t *testing.T) {
	orig := newEngine
	defer func() { newEngine = orig }()
	newEngine = func() (*dissect.Engine, error) {
		return dissect.NewEngine(dissect.WithProtocols(dissect.Protocol{
			Name:   "Ethernet clash",
			Prefix: "eth",
			Layer:  layers.LayerTypeEthernet,
			Format: func(gopacket.Layer, *dissect.Node) string { return "" },
		}))
	}

	code, out, errOut := runArgs("-f", captureFile(t, 64))
	assert.Equal(t, exitEngineInit, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "dissection engine init failed")
	assert.Contains(t, errOut, "protocol prefix already registered")
}

// TestMetricsTextfile 测试通过配置文件导出指标
func TestMetricsTextfile(t *testing.T) {
	dir := t.TempDir()
	prom := filepath.Join(dir, "pcapdissect.prom")
	cfgPath := filepath.Join(dir, "pcapdissect.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("output:\n  mode: manual\nmetrics:\n  textfile: "+prom+"\n"), 0644))

	code, out, _ := runArgs("-f", captureFile(t, 64, 128), "-c", cfgPath)
	require.Equal(t, exitOK, code)
	assert.True(t, strings.HasPrefix(out, "***\t"))

	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pcapdissect_frames_read_total 2")
	assert.Contains(t, string(data), "pcapdissect_bytes_captured_total 192")
}
