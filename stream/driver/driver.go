package driver

import (
	"context"
	"time"
)

// Frame is one unit of data delivered by the driver: an assembled video
// image for [KindUVC] or a block of PCM samples for [KindUACMic].
//
// Data references driver-owned memory and is only valid for the duration of
// the handler call. Handlers that need to retain it must copy.
type Frame struct {
	Kind      Kind
	Format    Format
	Data      []byte
	Sequence  uint32
	Timestamp time.Time

	// Video geometry (KindUVC).
	Width  uint16
	Height uint16

	// Audio format (KindUACMic).
	Channels      uint8
	BitResolution uint16
	SampleRate    uint32
}

// Clone returns a copy of f whose Data does not alias driver memory.
func (f *Frame) Clone() *Frame {
	c := *f
	c.Data = append([]byte(nil), f.Data...)
	return &c
}

// FrameHandler receives frames on a driver-internal goroutine.
type FrameHandler func(frame *Frame)

// StateHandler receives device state changes on a driver-internal goroutine.
type StateHandler func(state State)

// VideoFrameSize describes one frame geometry supported by a camera.
type VideoFrameSize struct {
	Width       uint16
	Height      uint16
	Interval    time.Duration // default interval
	MinInterval time.Duration
	MaxInterval time.Duration
}

// AudioFrameSize describes one PCM format supported by a UAC stream.
type AudioFrameSize struct {
	Channels      uint8
	BitResolution uint16
	SampleRate    uint32
	MinSampleRate uint32
	MaxSampleRate uint32
}

// VideoConfig is the single record forwarded to configure the UVC stream.
// TransferBufferA and TransferBufferB double-buffer raw USB payload while the
// driver assembles one frame into FrameBuffer.
type VideoConfig struct {
	Width              uint16
	Height             uint16
	Interval           time.Duration
	TransferBufferSize int
	TransferBufferA    []byte
	TransferBufferB    []byte
	FrameBufferSize    int
	FrameBuffer        []byte
	Handler            FrameHandler
}

// AudioFormat holds the PCM parameters and buffer size of one UAC direction.
// A BufferSize of 0 leaves that direction unused.
type AudioFormat struct {
	Channels      uint8
	BitResolution uint16
	SampleRate    uint32
	BufferSize    uint32
}

// BytesPerSecond returns the PCM byte rate, or 0 if any field is negotiable.
func (a AudioFormat) BytesPerSecond() int {
	return int(a.Channels) * int(a.BitResolution) / 8 * int(a.SampleRate)
}

// AudioConfig is the single combined record forwarded to configure both UAC
// directions.
type AudioConfig struct {
	Mic        AudioFormat
	Speaker    AudioFormat
	MicHandler FrameHandler
}

// Driver is the streaming engine a controller forwards to. It owns the USB
// host stack, the isochronous transfer scheduling and the goroutines that
// invoke the frame and state handlers.
//
// Implementations report failures as errors; an error wrapping one of the
// pkg sentinels lets callers classify it with errors.Is.
type Driver interface {
	// Configuration (valid while stopped)

	// ConfigureVideo installs the UVC configuration.
	ConfigureVideo(cfg *VideoConfig) error

	// ConfigureAudio installs the UAC configuration for both directions.
	ConfigureAudio(cfg *AudioConfig) error

	// SetStateHandler installs the device state handler, replacing any
	// previous one.
	SetStateHandler(h StateHandler) error

	// Lifecycle

	// Start creates the driver tasks and begins waiting for a device.
	Start() error

	// Stop deletes the driver tasks and releases the configured buffers.
	// Stopping a driver that was never started succeeds.
	Stop() error

	// WaitConnected blocks until a device is connected or ctx is done.
	WaitConnected(ctx context.Context) error

	// Control

	// Control applies a control request to one sub-stream. The value is
	// the mute flag (0/1) or volume (0-100) and is ignored for
	// suspend/resume.
	Control(kind Kind, ctrl Control, value uint32) error

	// ResetVideoFrame changes the expected geometry and interval while the
	// UVC stream is suspended. Zero width and height keep the size; a zero
	// interval keeps the interval. Effective at the next resume.
	ResetVideoFrame(width, height uint16, interval time.Duration) error

	// ResetAudioFrame changes a UAC format while that stream is suspended.
	// Effective at the next resume.
	ResetAudioFrame(kind Kind, channels uint8, bits uint16, rate uint32) error

	// Queries (valid after connection)

	// VideoFrameSizes returns the camera frame sizes and the index of the
	// one in use.
	VideoFrameSizes() ([]VideoFrameSize, int, error)

	// AudioFrameSizes returns the formats of a UAC stream and the index of
	// the one in use.
	AudioFrameSizes(kind Kind) ([]AudioFrameSize, int, error)

	// Data

	// ReadMic copies buffered microphone data into buf. It blocks until buf
	// is full or ctx is done and returns the bytes read so far.
	ReadMic(ctx context.Context, buf []byte) (int, error)

	// WriteSpeaker queues playback samples. It blocks until all of data is
	// queued or ctx is done and returns the bytes queued so far.
	WriteSpeaker(ctx context.Context, data []byte) (int, error)
}
