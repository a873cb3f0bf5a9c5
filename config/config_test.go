package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/usbstream/pkg"
	"github.com/ardnew/usbstream/stream/driver"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "usbstream.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.File)

	assert.True(t, cfg.Video.Enabled)
	assert.Equal(t, driver.FrameResolutionAny, cfg.Video.Width)
	assert.Equal(t, driver.DefaultFrameRate, cfg.Video.FPS)
	assert.Equal(t, uint32(driver.DefaultAudioBufferSize), cfg.Mic.BufferSize)
	assert.Equal(t, uint32(driver.DefaultAudioBufferSize), cfg.Speaker.BufferSize)
	assert.Equal(t, driver.DefaultConnectDelay, cfg.Device.ConnectDelay)
	assert.Equal(t, 5*time.Second, cfg.Device.ConnectTimeout)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
	assert.Equal(t, pkg.LogFormatText, cfg.LogFormat())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
video:
  width: 320
  height: 240
  fps: 30
mic:
  channels: 1
  bits: 16
  sample_rate: 48000
speaker:
  buffer_size: 0
device:
  connect_delay: 5ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.File)
	assert.Equal(t, pkg.LogFormatJSON, cfg.LogFormat())

	v := cfg.VideoConfig()
	assert.Equal(t, uint16(320), v.Width)
	assert.Equal(t, uint16(240), v.Height)
	assert.Equal(t, driver.FPSInterval(30), v.Interval)
	assert.Len(t, v.TransferBufferA, DefaultTransferBufferSize)
	assert.Len(t, v.FrameBuffer, DefaultFrameBufferSize)
	require.NoError(t, v.Validate())

	a := cfg.AudioConfig()
	assert.Equal(t, driver.AudioFormat{Channels: 1, BitResolution: 16, SampleRate: 48000, BufferSize: 6400}, a.Mic)
	assert.Zero(t, a.Speaker.BufferSize)
	assert.True(t, cfg.AudioEnabled())

	opts := cfg.SimOptions(nil)
	assert.Equal(t, 5*time.Millisecond, opts.ConnectDelay)
	assert.Equal(t, driver.DefaultMicPeriod, opts.MicPeriod)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "video:\n  fps: 30\n")
	t.Setenv("USBSTREAM_VIDEO_FPS", "10")
	t.Setenv("USBSTREAM_MIC_BUFFER_SIZE", "0")
	t.Setenv("USBSTREAM_SPEAKER_BUFFER_SIZE", "0")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Video.FPS)
	assert.False(t, cfg.AudioEnabled())
}

func TestLoadOverridesWin(t *testing.T) {
	path := writeConfig(t, "log:\n  level: error\n  format: text\n")
	t.Setenv("USBSTREAM_LOG_LEVEL", "info")

	cfg, err := Load(path, WithLogLevel("debug"), WithLogFormat("json"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, pkg.LogFormatJSON, cfg.LogFormat())

	var buf bytes.Buffer
	require.NoError(t, cfg.WriteYAML(&buf))
	assert.Contains(t, buf.String(), "level: debug")
	assert.Contains(t, buf.String(), "format: json")

	_, err = Load(path, WithLogLevel("loud"))
	require.ErrorIs(t, err, pkg.ErrInvalidParameter)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad level", "log:\n  level: loud\n"},
		{"bad format", "log:\n  format: xml\n"},
		{"zero fps", "video:\n  fps: 0\n"},
		{"zero frame buffer", "video:\n  frame_buffer_size: 0\n"},
		{"malformed yaml", "video: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err, "a named file must exist")
}

func TestDisabledVideoSkipsValidation(t *testing.T) {
	cfg, err := Load(writeConfig(t, "video:\n  enabled: false\n  fps: 0\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Video.Enabled)
}

func TestWriteYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "video:\n  fps: 30\n"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, cfg.WriteYAML(&buf))
	out := buf.String()
	assert.Contains(t, out, "fps: 30")
	assert.Contains(t, out, "connect_delay: 50ms")
	assert.Contains(t, out, "buffer_size: 6400")
}
