package stream

import (
	"fmt"
	"time"

	"github.com/ardnew/usbstream/pkg"
	"github.com/ardnew/usbstream/stream/driver"
)

// VideoConfig describes the UVC sub-stream.
//
// TransferBufferA and TransferBufferB receive raw isochronous payload in
// alternation while the driver assembles one frame into FrameBuffer. Each
// buffer must be at least as long as its declared size. The buffers are
// handed to the driver and must stay untouched until Stop returns.
type VideoConfig struct {
	Width    uint16        // driver.FrameResolutionAny to negotiate
	Height   uint16        // driver.FrameResolutionAny to negotiate
	Interval time.Duration // time between frames

	TransferBufferSize int
	TransferBufferA    []byte
	TransferBufferB    []byte

	FrameBufferSize int
	FrameBuffer     []byte
}

// DefaultVideoConfig returns the geometry a new controller starts with:
// negotiable width and height at 15 frames per second, without buffers.
func DefaultVideoConfig() VideoConfig {
	return VideoConfig{
		Width:    driver.FrameResolutionAny,
		Height:   driver.FrameResolutionAny,
		Interval: driver.FPSInterval(driver.DefaultFrameRate),
	}
}

// Validate checks that every buffer is present, has a non-zero size and is
// at least as long as that size.
func (v *VideoConfig) Validate() error {
	bufs := [...]struct {
		name string
		buf  []byte
		size int
	}{
		{"transfer buffer A", v.TransferBufferA, v.TransferBufferSize},
		{"transfer buffer B", v.TransferBufferB, v.TransferBufferSize},
		{"frame buffer", v.FrameBuffer, v.FrameBufferSize},
	}
	for _, b := range bufs {
		if b.buf == nil || b.size <= 0 {
			return fmt.Errorf("%w: %s is nil or zero-sized", pkg.ErrInvalidParameter, b.name)
		}
		if len(b.buf) < b.size {
			return fmt.Errorf("%w: %s has %d bytes, declared %d",
				pkg.ErrBufferTooSmall, b.name, len(b.buf), b.size)
		}
	}
	return nil
}

// geometry returns v without its buffers, which the controller never keeps.
func (v VideoConfig) geometry() VideoConfig {
	v.TransferBufferA, v.TransferBufferB, v.FrameBuffer = nil, nil, nil
	return v
}

// AudioConfig describes both UAC directions. The numeric fields accept the
// driver's negotiation sentinels; a BufferSize of 0 leaves that direction
// unused.
type AudioConfig struct {
	Mic     driver.AudioFormat
	Speaker driver.AudioFormat
}

// DefaultAudioConfig returns negotiable mic and speaker formats with
// driver.DefaultAudioBufferSize bytes of buffering in each direction.
func DefaultAudioConfig() AudioConfig {
	f := driver.AudioFormat{
		Channels:      driver.ChannelsAny,
		BitResolution: driver.BitsAny,
		SampleRate:    driver.SampleRateAny,
		BufferSize:    driver.DefaultAudioBufferSize,
	}
	return AudioConfig{Mic: f, Speaker: f}
}
