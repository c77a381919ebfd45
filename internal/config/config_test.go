package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pcapdissect.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

// TestDefault 测试默认配置
func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, uint32(262144), cfg.Source.MaxFrameSize)
	assert.Equal(t, "text", cfg.Output.Mode)
	assert.Equal(t, "auto", cfg.Time.Precision)
	assert.Empty(t, cfg.Time.ReferenceFrames)
	assert.Empty(t, cfg.Metrics.Textfile)
	assert.False(t, cfg.Log.Verbose)

	_, fixed := cfg.Time.Digits()
	assert.False(t, fixed)
}

// TestLoadFile 测试从文件加载
func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
source:
  max_frame_size: 65535
output:
  mode: manual
time:
  precision: us
  reference_frames: [3, 7]
metrics:
  textfile: /tmp/pcapdissect.prom
log:
  verbose: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint32(65535), cfg.Source.MaxFrameSize)
	assert.Equal(t, "manual", cfg.Output.Mode)
	assert.Equal(t, []uint32{3, 7}, cfg.Time.ReferenceFrames)
	assert.Equal(t, "/tmp/pcapdissect.prom", cfg.Metrics.Textfile)
	assert.True(t, cfg.Log.Verbose)

	digits, fixed := cfg.Time.Digits()
	assert.True(t, fixed)
	assert.Equal(t, 6, digits)
}

// TestLoadEnvOverride 测试环境变量覆盖
func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "output:\n  mode: text\n")
	t.Setenv("PCAPDISSECT_OUTPUT_MODE", "manual")
	t.Setenv("PCAPDISSECT_TIME_PRECISION", "ns")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "manual", cfg.Output.Mode)
	assert.Equal(t, "ns", cfg.Time.Precision)
}

// TestLoadErrors 测试非法配置
func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "time:\n  precision: fortnight\n"))
	assert.ErrorContains(t, err, "time.precision")

	_, err = Load(writeConfig(t, "source:\n  max_frame_size: 0\n"))
	assert.ErrorContains(t, err, "max_frame_size")

	_, err = Load(writeConfig(t, "time:\n  reference_frames: [0]\n"))
	assert.ErrorContains(t, err, "reference_frames")
}
