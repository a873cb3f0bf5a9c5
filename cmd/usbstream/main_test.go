package main

import (
	"bytes"
	"io"
	"net"
	"os"
	"path/filepath"
	"runtime/pprof"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

const testConfig = `
log:
  level: error
video:
  width: 320
  height: 240
  fps: 30
device:
  connect_delay: 5ms
  mic_period: 4ms
  speaker_period: 4ms
  connect_timeout: 2s
`

// runCLI runs the root command with a test configuration file.
func runCLI(t *testing.T, config string, args ...string) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "usbstream.yaml")
	require.NoError(t, os.WriteFile(path, []byte(config), 0o644))

	var out, errOut bytes.Buffer
	opts := &rootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", path}, args...))
	err := execute(cmd, opts)
	return out.String(), err
}

func TestConfigCommand(t *testing.T) {
	out, err := runCLI(t, testConfig, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "usbstream.yaml")
	assert.Contains(t, out, "fps: 30")
	assert.Contains(t, out, "connect_delay: 5ms")
}

func TestConfigCommandAppliesLogFlags(t *testing.T) {
	out, err := runCLI(t, testConfig, "--log-level", "debug", "--json", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "level: debug")
	assert.Contains(t, out, "format: json")
	assert.NotContains(t, out, "level: error")
}

func TestConfigCommandRejectsBadLogLevel(t *testing.T) {
	_, err := runCLI(t, testConfig, "--log-level", "chatty", "config")
	require.Error(t, err)
}

func TestSizesCommand(t *testing.T) {
	out, err := runCLI(t, testConfig, "sizes")
	require.NoError(t, err)
	assert.Contains(t, out, "Espressif")
	assert.Contains(t, out, "video MJPEG, 4 sizes")
	assert.Contains(t, out, "*  320x240")
	assert.Contains(t, out, "mic pcm, 2 formats")
	assert.Contains(t, out, "speaker pcm, 2 formats")
}

func TestRunCommandSavesFrames(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	out, err := runCLI(t, testConfig, "run", "--duration", "300ms",
		"--frames-dir", dir, "--frames-limit", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "device Connected")
	assert.Contains(t, out, "summary")
	assert.Contains(t, out, "320x240")
	assert.Contains(t, out, "files:")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
	assert.LessOrEqual(t, len(entries), 2)
}

func TestRunCommandSendsRTP(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	out, err := runCLI(t, testConfig, "run", "--duration", "200ms",
		"--rtp", conn.LocalAddr().String(), "--ssrc", "77")
	require.NoError(t, err)
	assert.Contains(t, out, "rtp:")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	buf := make([]byte, 1500)
	n, _, err := conn.ReadFrom(buf)
	require.NoError(t, err)

	var pkt rtp.Packet
	require.NoError(t, pkt.Unmarshal(buf[:n]))
	assert.Equal(t, uint32(77), pkt.SSRC)
	assert.NotEmpty(t, pkt.Payload)
}

func TestRunCommandNothingEnabled(t *testing.T) {
	const config = `
log:
  level: error
video:
  enabled: false
mic:
  buffer_size: 0
speaker:
  buffer_size: 0
`
	_, err := runCLI(t, config, "run", "--duration", "10ms")
	require.Error(t, err)
}

func TestProfileFlags(t *testing.T) {
	dir := t.TempDir()
	cpu := filepath.Join(dir, "cpu.prof")
	heap := filepath.Join(dir, "heap.prof")

	_, err := runCLI(t, testConfig, "--cpuprofile", cpu, "--memprofile", heap, "config")
	require.NoError(t, err)
	assert.FileExists(t, cpu)
	assert.FileExists(t, heap)
}

func TestProfileFinishedWhenCommandFails(t *testing.T) {
	const config = `
log:
  level: error
video:
  enabled: false
mic:
  buffer_size: 0
speaker:
  buffer_size: 0
`
	cpu := filepath.Join(t.TempDir(), "cpu.prof")
	_, err := runCLI(t, config, "--cpuprofile", cpu, "run", "--duration", "10ms")
	require.Error(t, err)

	info, err := os.Stat(cpu)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())

	// CPU profiling is no longer active.
	require.NoError(t, pprof.StartCPUProfile(io.Discard))
	pprof.StopCPUProfile()
}
