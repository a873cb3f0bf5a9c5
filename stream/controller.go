package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ardnew/usbstream/pkg"
	"github.com/ardnew/usbstream/stream/driver"
)

// Controller configures and drives the UVC and UAC sub-streams of one USB
// device session through a driver.Driver.
//
// Configuration and control calls are meant to come from one owning
// goroutine. Frame and state callbacks run concurrently on driver goroutines
// and never touch the stored configuration.
type Controller struct {
	drv driver.Driver
	log *slog.Logger
	id  uuid.UUID

	// Stored configuration, written by configuration and reset calls
	video   VideoConfig
	audio   AudioConfig
	running bool
	mutex   sync.RWMutex

	// Resets accepted by the driver, stored once Resume applies them
	pendingVideo *videoReset
	pendingAudio [len(driver.Kinds)]*driver.AudioFormat

	// Callback slots, read by driver goroutines
	frames [2]atomic.Pointer[frameRegistration] // video, mic
	state  atomic.Pointer[stateRegistration]
}

type videoReset struct {
	width, height uint16
	interval      time.Duration
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The controller adds component and session
// attributes. The default is the pkg default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.log = logger
	}
}

// WithSessionID sets the session id attached to every log line. By default
// each controller gets a random one.
func WithSessionID(id uuid.UUID) Option {
	return func(c *Controller) {
		c.id = id
	}
}

// New creates a controller over d with default configuration: negotiable
// video geometry at 15 frames per second and negotiable PCM formats with
// 6400-byte buffers in each direction.
func New(d driver.Driver, opts ...Option) *Controller {
	c := &Controller{
		drv:   d,
		id:    uuid.New(),
		video: DefaultVideoConfig(),
		audio: DefaultAudioConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = pkg.ForComponent(c.log, pkg.ComponentStream).With("session", c.id.String())
	return c
}

// SessionID returns the id attached to this controller's log lines.
func (c *Controller) SessionID() uuid.UUID {
	return c.id
}

// fail logs a failed operation and returns it wrapped in an OpError.
// Timeouts are routine for polling callers and are logged at debug level.
func (c *Controller) fail(op, stream string, err error) error {
	level := slog.LevelError
	if errors.Is(err, pkg.ErrTimeout) {
		level = slog.LevelDebug
	}
	args := []any{"operation", op}
	if stream != "" {
		args = append(args, "stream", stream)
	}
	args = append(args, "error", err)
	c.log.Log(context.Background(), level, "operation failed", args...)
	return &OpError{Op: op, Stream: stream, Err: err}
}

// =============================================================================
// Configuration
// =============================================================================

// ConfigureVideo validates cfg and forwards it to the driver. A nil or
// zero-sized buffer is rejected with pkg.ErrInvalidParameter, and a buffer
// shorter than its declared size with pkg.ErrBufferTooSmall; in both cases
// nothing is forwarded. The stored geometry changes only when the driver
// accepts the configuration.
//
// ConfigureVideo must be called while stopped; it returns
// pkg.ErrInvalidState otherwise.
func (c *Controller) ConfigureVideo(cfg VideoConfig) error {
	const op = "configure_video"
	stream := driver.KindUVC.String()
	if err := cfg.Validate(); err != nil {
		return c.fail(op, stream, err)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.running {
		return c.fail(op, stream, pkg.ErrInvalidState)
	}
	err := c.drv.ConfigureVideo(&driver.VideoConfig{
		Width:              cfg.Width,
		Height:             cfg.Height,
		Interval:           cfg.Interval,
		TransferBufferSize: cfg.TransferBufferSize,
		TransferBufferA:    cfg.TransferBufferA,
		TransferBufferB:    cfg.TransferBufferB,
		FrameBufferSize:    cfg.FrameBufferSize,
		FrameBuffer:        cfg.FrameBuffer,
		Handler:            c.deliverVideo,
	})
	if err != nil {
		return c.fail(op, stream, err)
	}
	c.video = cfg.geometry()
	c.pendingVideo = nil

	c.log.Info("video configured",
		"width", cfg.Width, "height", cfg.Height,
		"fps", driver.IntervalFPS(cfg.Interval),
		"xfer_size", cfg.TransferBufferSize, "frame_size", cfg.FrameBufferSize)
	return nil
}

// ConfigureAudio forwards both UAC directions to the driver as one record.
// The values are not range-checked here; the driver rejects what the device
// cannot do. The stored configuration changes only when the driver accepts
// it.
func (c *Controller) ConfigureAudio(cfg AudioConfig) error {
	const op = "configure_audio"

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.running {
		return c.fail(op, "", pkg.ErrInvalidState)
	}
	err := c.drv.ConfigureAudio(&driver.AudioConfig{
		Mic:        cfg.Mic,
		Speaker:    cfg.Speaker,
		MicHandler: c.deliverMic,
	})
	if err != nil {
		return c.fail(op, "", err)
	}
	c.audio = cfg
	c.pendingAudio = [len(driver.Kinds)]*driver.AudioFormat{}

	c.log.Info("audio configured",
		"mic_ch", cfg.Mic.Channels, "mic_bits", cfg.Mic.BitResolution,
		"mic_rate", cfg.Mic.SampleRate, "mic_buf", cfg.Mic.BufferSize,
		"spk_ch", cfg.Speaker.Channels, "spk_bits", cfg.Speaker.BitResolution,
		"spk_rate", cfg.Speaker.SampleRate, "spk_buf", cfg.Speaker.BufferSize)
	return nil
}

// VideoConfig returns the stored video geometry and buffer sizes. The
// buffers themselves are not retained and are nil in the result.
func (c *Controller) VideoConfig() VideoConfig {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.video
}

// AudioConfig returns the stored audio configuration.
func (c *Controller) AudioConfig() AudioConfig {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.audio
}

// =============================================================================
// Lifecycle
// =============================================================================

// Start starts the driver. The configured buffers belong to the driver
// until Stop returns.
func (c *Controller) Start() error {
	if err := c.drv.Start(); err != nil {
		return c.fail("start", "", err)
	}
	c.mutex.Lock()
	c.running = true
	c.clearPendingLocked()
	c.mutex.Unlock()

	c.log.Info("stream started")
	return nil
}

// Stop stops the driver and releases the configured buffers. Stopping a
// controller that was never started is not an error. Stop must not be
// called from a frame or state callback.
func (c *Controller) Stop() error {
	if err := c.drv.Stop(); err != nil {
		return c.fail("stop", "", err)
	}
	c.mutex.Lock()
	wasRunning := c.running
	c.running = false
	c.clearPendingLocked()
	c.mutex.Unlock()

	if wasRunning {
		c.log.Info("stream stopped")
	}
	return nil
}

// clearPendingLocked drops resets the driver forgets on reconnect.
func (c *Controller) clearPendingLocked() {
	c.pendingVideo = nil
	c.pendingAudio = [len(driver.Kinds)]*driver.AudioFormat{}
}

// Close stops the stream if it is running. It implements io.Closer.
func (c *Controller) Close() error {
	if !c.Running() {
		return nil
	}
	return c.Stop()
}

// Running reports whether Start succeeded without a later Stop.
func (c *Controller) Running() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.running
}

// withTimeout bounds ctx by timeout when timeout is positive.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// ConnectWait blocks until a device is connected, timeout elapses or ctx is
// done. A non-positive timeout leaves the wait bounded by ctx alone. An
// elapsed deadline is reported as pkg.ErrTimeout.
func (c *Controller) ConnectWait(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	if err := c.drv.WaitConnected(ctx); err != nil {
		return c.fail("connect_wait", "", pkg.ContextError(err))
	}
	c.log.Debug("device connected")
	return nil
}

// =============================================================================
// Control
// =============================================================================

func (c *Controller) control(op string, kind driver.Kind, ctrl driver.Control, value uint32) error {
	if !kind.IsValid() || !ctrl.AppliesTo(kind) {
		return c.fail(op, kind.String(), pkg.ErrInvalidStream)
	}
	if err := c.drv.Control(kind, ctrl, value); err != nil {
		return c.fail(op, kind.String(), err)
	}
	c.log.Debug("control applied", "operation", op, "stream", kind.String(), "value", value)
	return nil
}

// Suspend pauses a sub-stream.
func (c *Controller) Suspend(kind driver.Kind) error {
	return c.control("suspend", kind, driver.ControlSuspend, 0)
}

// Resume restarts a suspended sub-stream, applying any frame reset made
// while it was suspended. The reset is reflected in VideoConfig or
// AudioConfig only once Resume succeeds; if the device rejects it, the
// stream stays suspended with its previous format.
func (c *Controller) Resume(kind driver.Kind) error {
	if err := c.control("resume", kind, driver.ControlResume, 0); err != nil {
		return err
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	switch kind {
	case driver.KindUVC:
		if r := c.pendingVideo; r != nil {
			if r.width != 0 {
				c.video.Width, c.video.Height = r.width, r.height
			}
			if r.interval != 0 {
				c.video.Interval = r.interval
			}
			c.pendingVideo = nil
		}
	case driver.KindUACMic, driver.KindUACSpeaker:
		if f := c.pendingAudio[kind]; f != nil {
			if kind == driver.KindUACMic {
				c.audio.Mic = *f
			} else {
				c.audio.Speaker = *f
			}
			c.pendingAudio[kind] = nil
		}
	}
	return nil
}

// Mute mutes or unmutes the mic or speaker.
func (c *Controller) Mute(kind driver.Kind, mute bool) error {
	var v uint32
	if mute {
		v = 1
	}
	return c.control("mute", kind, driver.ControlMute, v)
}

// SetVolume sets the mic or speaker volume in percent (0-100).
func (c *Controller) SetVolume(kind driver.Kind, volume uint8) error {
	if volume > driver.MaxVolume {
		return c.fail("set_volume", kind.String(), pkg.ErrInvalidParameter)
	}
	return c.control("set_volume", kind, driver.ControlVolume, uint32(volume))
}

// ResetVideoFrame changes the video geometry and interval while the video
// stream is suspended; the change takes effect at the next Resume. A zero
// width and height keep the current size and a zero interval keeps the
// current interval. Giving only one of width and height is
// pkg.ErrInvalidParameter.
//
// Like ConfigureVideo, the stored configuration records the requested size
// and interval. The device may stream the nearest size it offers, which
// VideoFrameSizes reports.
func (c *Controller) ResetVideoFrame(width, height uint16, interval time.Duration) error {
	const op = "reset_video_frame"
	stream := driver.KindUVC.String()
	if (width == 0) != (height == 0) || interval < 0 {
		return c.fail(op, stream, pkg.ErrInvalidParameter)
	}
	if err := c.drv.ResetVideoFrame(width, height, interval); err != nil {
		return c.fail(op, stream, err)
	}

	c.mutex.Lock()
	c.pendingVideo = &videoReset{width: width, height: height, interval: interval}
	c.mutex.Unlock()

	c.log.Info("video frame reset", "width", width, "height", height, "interval", interval)
	return nil
}

// ResetAudioFrame changes the PCM format of the mic or speaker while that
// stream is suspended; the change takes effect at the next Resume. All
// values must be non-zero. A format the device does not offer makes that
// Resume fail.
func (c *Controller) ResetAudioFrame(kind driver.Kind, channels uint8, bits uint16, rate uint32) error {
	const op = "reset_audio_frame"
	if !kind.IsAudio() {
		return c.fail(op, kind.String(), pkg.ErrInvalidStream)
	}
	if channels == 0 || bits == 0 || rate == 0 {
		return c.fail(op, kind.String(), pkg.ErrInvalidParameter)
	}
	if err := c.drv.ResetAudioFrame(kind, channels, bits, rate); err != nil {
		return c.fail(op, kind.String(), err)
	}

	c.mutex.Lock()
	f := c.audio.Mic
	if kind == driver.KindUACSpeaker {
		f = c.audio.Speaker
	}
	f.Channels, f.BitResolution, f.SampleRate = channels, bits, rate
	c.pendingAudio[kind] = &f
	c.mutex.Unlock()

	c.log.Info("audio frame reset", "stream", kind.String(),
		"channels", channels, "bits", bits, "rate", rate)
	return nil
}

// =============================================================================
// Data
// =============================================================================

// ReadMic reads buffered microphone data into buf, waiting until buf is full,
// timeout elapses or ctx is done. A read that times out after receiving some
// data returns the partial count and no error; one that received nothing
// returns pkg.ErrTimeout.
func (c *Controller) ReadMic(ctx context.Context, buf []byte, timeout time.Duration) (int, error) {
	const op = "read_mic"
	stream := driver.KindUACMic.String()
	if len(buf) == 0 {
		return 0, c.fail(op, stream, pkg.ErrInvalidParameter)
	}
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	n, err := c.drv.ReadMic(ctx, buf)
	if err = pkg.ContextError(err); err != nil {
		if n > 0 && errors.Is(err, pkg.ErrTimeout) {
			return n, nil
		}
		return n, c.fail(op, stream, err)
	}
	return n, nil
}

// WriteSpeaker queues data for playback, waiting for buffer space until
// timeout elapses or ctx is done. On timeout it returns the number of bytes
// queued so far with pkg.ErrTimeout.
func (c *Controller) WriteSpeaker(ctx context.Context, data []byte, timeout time.Duration) (int, error) {
	const op = "write_speaker"
	stream := driver.KindUACSpeaker.String()
	if len(data) == 0 {
		return 0, c.fail(op, stream, pkg.ErrInvalidParameter)
	}
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	n, err := c.drv.WriteSpeaker(ctx, data)
	if err = pkg.ContextError(err); err != nil {
		return n, c.fail(op, stream, err)
	}
	return n, nil
}

// =============================================================================
// Queries
// =============================================================================

// VideoFrameSizes returns the frame sizes the connected camera offers and
// the index of the one in use.
func (c *Controller) VideoFrameSizes() ([]driver.VideoFrameSize, int, error) {
	sizes, idx, err := c.drv.VideoFrameSizes()
	if err != nil {
		return nil, 0, c.fail("frame_size_list", driver.KindUVC.String(), err)
	}
	return sizes, idx, nil
}

// AudioFrameSizes returns the PCM formats the connected device offers for
// the mic or speaker and the index of the one in use.
func (c *Controller) AudioFrameSizes(kind driver.Kind) ([]driver.AudioFrameSize, int, error) {
	const op = "frame_size_list"
	if !kind.IsAudio() {
		return nil, 0, c.fail(op, kind.String(), pkg.ErrInvalidStream)
	}
	sizes, idx, err := c.drv.AudioFrameSizes(kind)
	if err != nil {
		return nil, 0, c.fail(op, kind.String(), err)
	}
	return sizes, idx, nil
}

// FrameListSize returns how many frame sizes or formats kind offers and the
// index of the one in use.
func (c *Controller) FrameListSize(kind driver.Kind) (int, int, error) {
	if kind == driver.KindUVC {
		sizes, idx, err := c.VideoFrameSizes()
		return len(sizes), idx, err
	}
	sizes, idx, err := c.AudioFrameSizes(kind)
	return len(sizes), idx, err
}
