package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ardnew/usbstream/pkg"
	"github.com/ardnew/usbstream/stream/driver"
)

// Options configures a simulated driver.
type Options struct {
	// Profile is the simulated device. The zero value selects DefaultProfile.
	Profile Profile

	// ConnectDelay is the time between Start and the device reporting
	// connected. Defaults to driver.DefaultConnectDelay.
	ConnectDelay time.Duration

	// MicPeriod is the microphone block period.
	// Defaults to driver.DefaultMicPeriod.
	MicPeriod time.Duration

	// SpeakerPeriod is the speaker drain period.
	// Defaults to driver.DefaultSpeakerPeriod.
	SpeakerPeriod time.Duration

	// Manual disables the connect timer and the streaming loops. The device
	// is then driven with Connect, Disconnect, EmitVideoFrame, EmitMicFrame
	// and DrainSpeaker.
	Manual bool

	// Logger receives driver logs. Nil uses the pkg default logger.
	Logger *slog.Logger
}

// Stats counts the work done by the simulated device since creation.
type Stats struct {
	VideoFrames   uint64
	VideoDropped  uint64
	MicFrames     uint64
	MicDropped    uint64 // bytes discarded because the mic buffer was full
	SpeakerPlayed uint64 // bytes drained from the speaker buffer
}

// subStream is the per-kind control state of the connected device.
type subStream struct {
	suspended bool
	muted     bool
	volume    uint8
	index     int // selected format index
}

type videoReset struct {
	width, height uint16
	interval      time.Duration
}

// Driver is an in-process simulated UVC/UAC composite device implementing
// driver.Driver. It assembles synthetic MJPEG frames into the configured
// buffers, produces a sine tone on the microphone and consumes speaker data
// at the negotiated rate.
type Driver struct {
	opts Options
	log  *slog.Logger

	mu sync.Mutex

	// Configuration
	video        *driver.VideoConfig
	audio        *driver.AudioConfig
	stateHandler driver.StateHandler

	// Lifecycle
	running     bool
	connected   bool
	connectedCh chan struct{} // closed while connected
	done        chan struct{} // closed by Stop
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	// Negotiated stream state
	streams  [len(driver.Kinds)]subStream
	width    uint16
	height   uint16
	interval time.Duration
	mic      driver.AudioFormat
	speaker  driver.AudioFormat

	// Pending resets applied on resume
	pendingVideo *videoReset
	pendingAudio [len(driver.Kinds)]*driver.AudioFormat

	// Buffers
	micRing   *ring
	spkRing   *ring
	micBlock  []byte
	spkBlock  []byte
	xferIndex int

	seq   [len(driver.Kinds)]uint32
	tone  tone
	stats Stats

	// Serialize handler invocations per kind.
	videoMu sync.Mutex
	micMu   sync.Mutex
}

// Compile-time check.
var _ driver.Driver = (*Driver)(nil)

// New creates a simulated driver.
func New(opts Options) *Driver {
	if opts.Profile.VideoSizes == nil && opts.Profile.MicFormats == nil &&
		opts.Profile.SpeakerFormats == nil {
		opts.Profile = DefaultProfile()
	}
	if opts.ConnectDelay <= 0 {
		opts.ConnectDelay = driver.DefaultConnectDelay
	}
	if opts.MicPeriod <= 0 {
		opts.MicPeriod = driver.DefaultMicPeriod
	}
	if opts.SpeakerPeriod <= 0 {
		opts.SpeakerPeriod = driver.DefaultSpeakerPeriod
	}
	d := &Driver{
		opts:        opts,
		log:         pkg.ForComponent(opts.Logger, pkg.ComponentSim),
		connectedCh: make(chan struct{}),
		done:        make(chan struct{}),
	}
	close(d.done)
	return d
}

// Profile returns the simulated device profile.
func (d *Driver) Profile() Profile {
	return d.opts.Profile
}

// Stats returns a snapshot of the device counters.
func (d *Driver) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// =============================================================================
// Configuration
// =============================================================================

// ConfigureVideo implements driver.Driver.
func (d *Driver) ConfigureVideo(cfg *driver.VideoConfig) error {
	if cfg == nil || cfg.TransferBufferA == nil || cfg.TransferBufferB == nil ||
		cfg.FrameBuffer == nil || cfg.TransferBufferSize <= 0 || cfg.FrameBufferSize <= 0 {
		return pkg.ErrInvalidParameter
	}
	if len(cfg.TransferBufferA) < cfg.TransferBufferSize ||
		len(cfg.TransferBufferB) < cfg.TransferBufferSize ||
		len(cfg.FrameBuffer) < cfg.FrameBufferSize {
		return pkg.ErrBufferTooSmall
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return pkg.ErrInvalidState
	}
	c := *cfg
	d.video = &c
	d.log.Debug("video configured",
		"width", c.Width, "height", c.Height, "interval", c.Interval,
		"xfer_size", c.TransferBufferSize, "frame_size", c.FrameBufferSize)
	return nil
}

// ConfigureAudio implements driver.Driver.
func (d *Driver) ConfigureAudio(cfg *driver.AudioConfig) error {
	if cfg == nil {
		return pkg.ErrInvalidParameter
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return pkg.ErrInvalidState
	}
	c := *cfg
	d.audio = &c
	d.log.Debug("audio configured",
		"mic_ch", c.Mic.Channels, "mic_bits", c.Mic.BitResolution,
		"mic_rate", c.Mic.SampleRate, "mic_buf", c.Mic.BufferSize,
		"spk_ch", c.Speaker.Channels, "spk_bits", c.Speaker.BitResolution,
		"spk_rate", c.Speaker.SampleRate, "spk_buf", c.Speaker.BufferSize)
	return nil
}

// SetStateHandler implements driver.Driver.
func (d *Driver) SetStateHandler(h driver.StateHandler) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stateHandler = h
	return nil
}

// =============================================================================
// Lifecycle
// =============================================================================

// Start implements driver.Driver.
func (d *Driver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return pkg.ErrAlreadyRunning
	}
	if d.video == nil && d.audio == nil {
		return pkg.ErrNotConfigured
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})
	d.running = true
	d.micRing, d.spkRing = nil, nil
	if d.audio != nil {
		if d.audio.Mic.BufferSize > 0 {
			d.micRing = newRing(int(d.audio.Mic.BufferSize))
		}
		if d.audio.Speaker.BufferSize > 0 {
			d.spkRing = newRing(int(d.audio.Speaker.BufferSize))
		}
	}

	if !d.opts.Manual {
		d.wg.Add(1)
		go d.connectAfter(ctx, d.opts.ConnectDelay)
		if d.video != nil {
			d.wg.Add(1)
			go d.videoLoop(ctx)
		}
		if d.micRing != nil {
			d.wg.Add(1)
			go d.periodic(ctx, d.opts.MicPeriod, func() { _ = d.EmitMicFrame() })
		}
		if d.spkRing != nil {
			d.wg.Add(1)
			go d.periodic(ctx, d.opts.SpeakerPeriod, func() { d.DrainSpeaker() })
		}
	}

	d.log.Info("streaming started", "manual", d.opts.Manual)
	return nil
}

// Stop implements driver.Driver. It waits for the streaming goroutines to
// exit, so it must not be called from a frame or state handler.
func (d *Driver) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	d.cancel()
	close(d.done)
	wasConnected := d.connected
	d.setDisconnectedLocked()
	if d.micRing != nil {
		d.micRing.Close()
	}
	if d.spkRing != nil {
		d.spkRing.Close()
	}
	d.mu.Unlock()

	d.wg.Wait()

	if wasConnected {
		d.notify(driver.StateDisconnected)
	}
	d.log.Info("streaming stopped")
	return nil
}

// WaitConnected implements driver.Driver.
func (d *Driver) WaitConnected(ctx context.Context) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return pkg.ErrNotRunning
	}
	if d.connected {
		d.mu.Unlock()
		return nil
	}
	connected, done := d.connectedCh, d.done
	d.mu.Unlock()

	select {
	case <-connected:
		return nil
	case <-done:
		return pkg.ErrNotRunning
	case <-ctx.Done():
		return pkg.ContextError(ctx.Err())
	}
}

// Connect simulates the device attaching and finishing enumeration. It
// negotiates every configured sub-stream and reports StateConnected.
func (d *Driver) Connect() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return pkg.ErrNotRunning
	}
	if d.connected {
		d.mu.Unlock()
		return nil
	}
	for i := range d.streams {
		d.streams[i] = subStream{volume: driver.DefaultVolume}
		d.pendingAudio[i] = nil
	}
	d.pendingVideo = nil
	if err := d.negotiateLocked(); err != nil {
		d.mu.Unlock()
		d.log.Error("negotiation failed", "error", err)
		d.notify(driver.StateError)
		return err
	}
	d.connected = true
	close(d.connectedCh)
	d.mu.Unlock()

	d.log.Info("device connected",
		"vid", fmt.Sprintf("%04x", d.opts.Profile.VendorID),
		"pid", fmt.Sprintf("%04x", d.opts.Profile.ProductID),
		"product", d.opts.Profile.Product)
	d.notify(driver.StateConnected)
	return nil
}

// Disconnect simulates the device being unplugged while streaming.
func (d *Driver) Disconnect() {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return
	}
	d.setDisconnectedLocked()
	d.mu.Unlock()

	d.log.Info("device disconnected")
	d.notify(driver.StateDisconnected)
}

// IsConnected reports whether the simulated device is connected.
func (d *Driver) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

func (d *Driver) setDisconnectedLocked() {
	if d.connected {
		d.connected = false
		d.connectedCh = make(chan struct{})
	}
}

func (d *Driver) notify(state driver.State) {
	d.mu.Lock()
	h := d.stateHandler
	d.mu.Unlock()
	if h != nil {
		h(state)
	}
}

// negotiateLocked resolves the configured formats against the profile.
func (d *Driver) negotiateLocked() error {
	p := &d.opts.Profile
	if d.video != nil {
		idx, exact := matchVideo(p.VideoSizes, d.video.Width, d.video.Height)
		if idx < 0 {
			return fmt.Errorf("%w: device has no video frame sizes", pkg.ErrUnsupportedFormat)
		}
		s := p.VideoSizes[idx]
		if !exact {
			d.log.Warn("requested frame size not offered, using nearest",
				"want_width", d.video.Width, "want_height", d.video.Height,
				"width", s.Width, "height", s.Height)
		}
		d.streams[driver.KindUVC].index = idx
		d.width, d.height = s.Width, s.Height
		d.interval = videoInterval(s, d.video.Interval)
		if n := FrameSize(d.width, d.height); n > d.video.FrameBufferSize {
			d.log.Warn("frame buffer smaller than one frame, frames will be dropped",
				"frame_size", n, "buffer_size", d.video.FrameBufferSize)
		}
	}
	if d.audio != nil {
		if d.audio.Mic.BufferSize > 0 {
			idx, f, ok := matchAudio(p.MicFormats, d.audio.Mic)
			if !ok {
				return fmt.Errorf("%w: mic %d ch %d bit %d Hz", pkg.ErrUnsupportedFormat,
					d.audio.Mic.Channels, d.audio.Mic.BitResolution, d.audio.Mic.SampleRate)
			}
			d.streams[driver.KindUACMic].index = idx
			d.mic = f
			d.micBlock = make([]byte, chunkSize(f, d.opts.MicPeriod))
		}
		if d.audio.Speaker.BufferSize > 0 {
			idx, f, ok := matchAudio(p.SpeakerFormats, d.audio.Speaker)
			if !ok {
				return fmt.Errorf("%w: speaker %d ch %d bit %d Hz", pkg.ErrUnsupportedFormat,
					d.audio.Speaker.Channels, d.audio.Speaker.BitResolution, d.audio.Speaker.SampleRate)
			}
			d.streams[driver.KindUACSpeaker].index = idx
			d.speaker = f
			d.spkBlock = make([]byte, chunkSize(f, d.opts.SpeakerPeriod))
		}
	}
	return nil
}

// =============================================================================
// Control
// =============================================================================

// Control implements driver.Driver.
func (d *Driver) Control(kind driver.Kind, ctrl driver.Control, value uint32) error {
	if !ctrl.AppliesTo(kind) {
		return fmt.Errorf("%w: %s on %s", pkg.ErrNotSupported, ctrl, kind)
	}
	if ctrl == driver.ControlVolume && value > driver.MaxVolume {
		return fmt.Errorf("%w: volume %d", pkg.ErrInvalidParameter, value)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return pkg.ErrNotConnected
	}
	if !d.kindConfiguredLocked(kind) {
		return fmt.Errorf("%w: %s", pkg.ErrNotConfigured, kind)
	}

	s := &d.streams[kind]
	switch ctrl {
	case driver.ControlSuspend:
		s.suspended = true
	case driver.ControlResume:
		if err := d.applyPendingLocked(kind); err != nil {
			return err
		}
		s.suspended = false
	case driver.ControlMute:
		s.muted = value != 0
	case driver.ControlVolume:
		s.volume = uint8(value)
	}
	d.log.Debug("control applied", "stream", kind.String(), "control", ctrl.String(), "value", value)
	return nil
}

func (d *Driver) kindConfiguredLocked(kind driver.Kind) bool {
	switch kind {
	case driver.KindUVC:
		return d.video != nil
	case driver.KindUACMic:
		return d.audio != nil && d.audio.Mic.BufferSize > 0
	case driver.KindUACSpeaker:
		return d.audio != nil && d.audio.Speaker.BufferSize > 0
	}
	return false
}

// applyPendingLocked renegotiates with a pending reset folded into a copy
// of the configuration. The copy replaces the configuration only when the
// device supports it; otherwise the previous negotiation is restored and the
// reset stays pending.
func (d *Driver) applyPendingLocked(kind driver.Kind) error {
	video, audio := d.video, d.audio
	switch kind {
	case driver.KindUVC:
		r := d.pendingVideo
		if r == nil {
			return nil
		}
		v := *d.video
		if r.width != 0 && r.height != 0 {
			v.Width, v.Height = r.width, r.height
		}
		if r.interval != 0 {
			v.Interval = r.interval
		}
		d.video = &v
	case driver.KindUACMic, driver.KindUACSpeaker:
		f := d.pendingAudio[kind]
		if f == nil {
			return nil
		}
		a := *d.audio
		if kind == driver.KindUACMic {
			a.Mic = *f
		} else {
			a.Speaker = *f
		}
		d.audio = &a
	}

	if err := d.negotiateLocked(); err != nil {
		d.video, d.audio = video, audio
		if rerr := d.negotiateLocked(); rerr != nil {
			d.log.Error("renegotiation failed", "error", rerr)
		}
		return err
	}
	if kind == driver.KindUVC {
		d.pendingVideo = nil
	} else {
		d.pendingAudio[kind] = nil
	}
	return nil
}

// ResetVideoFrame implements driver.Driver.
func (d *Driver) ResetVideoFrame(width, height uint16, interval time.Duration) error {
	if (width == 0) != (height == 0) || interval < 0 {
		return pkg.ErrInvalidParameter
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.video == nil {
		return fmt.Errorf("%w: %s", pkg.ErrNotConfigured, driver.KindUVC)
	}
	if !d.connected || !d.streams[driver.KindUVC].suspended {
		return fmt.Errorf("%w: %s must be suspended", pkg.ErrInvalidState, driver.KindUVC)
	}
	d.pendingVideo = &videoReset{width: width, height: height, interval: interval}
	return nil
}

// ResetAudioFrame implements driver.Driver.
func (d *Driver) ResetAudioFrame(kind driver.Kind, channels uint8, bits uint16, rate uint32) error {
	if !kind.IsAudio() {
		return fmt.Errorf("%w: %s", pkg.ErrInvalidStream, kind)
	}
	if channels == 0 || bits == 0 || rate == 0 {
		return pkg.ErrInvalidParameter
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.kindConfiguredLocked(kind) {
		return fmt.Errorf("%w: %s", pkg.ErrNotConfigured, kind)
	}
	if !d.connected || !d.streams[kind].suspended {
		return fmt.Errorf("%w: %s must be suspended", pkg.ErrInvalidState, kind)
	}
	f := d.audio.Mic
	if kind == driver.KindUACSpeaker {
		f = d.audio.Speaker
	}
	f.Channels, f.BitResolution, f.SampleRate = channels, bits, rate
	d.pendingAudio[kind] = &f
	return nil
}

// =============================================================================
// Queries
// =============================================================================

// VideoFrameSizes implements driver.Driver.
func (d *Driver) VideoFrameSizes() ([]driver.VideoFrameSize, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return nil, 0, pkg.ErrNotConnected
	}
	sizes := append([]driver.VideoFrameSize(nil), d.opts.Profile.VideoSizes...)
	return sizes, d.streams[driver.KindUVC].index, nil
}

// AudioFrameSizes implements driver.Driver.
func (d *Driver) AudioFrameSizes(kind driver.Kind) ([]driver.AudioFrameSize, int, error) {
	if !kind.IsAudio() {
		return nil, 0, fmt.Errorf("%w: %s", pkg.ErrInvalidStream, kind)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return nil, 0, pkg.ErrNotConnected
	}
	src := d.opts.Profile.MicFormats
	if kind == driver.KindUACSpeaker {
		src = d.opts.Profile.SpeakerFormats
	}
	return append([]driver.AudioFrameSize(nil), src...), d.streams[kind].index, nil
}

// Geometry returns the negotiated video geometry and interval.
func (d *Driver) Geometry() (width, height uint16, interval time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width, d.height, d.interval
}

// =============================================================================
// Data
// =============================================================================

// ReadMic implements driver.Driver.
func (d *Driver) ReadMic(ctx context.Context, buf []byte) (int, error) {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return 0, pkg.ErrNotRunning
	}
	r := d.micRing
	d.mu.Unlock()
	if r == nil {
		return 0, fmt.Errorf("%w: %s", pkg.ErrNotConfigured, driver.KindUACMic)
	}
	return r.ReadFull(ctx, buf)
}

// WriteSpeaker implements driver.Driver.
func (d *Driver) WriteSpeaker(ctx context.Context, data []byte) (int, error) {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return 0, pkg.ErrNotRunning
	}
	r := d.spkRing
	d.mu.Unlock()
	if r == nil {
		return 0, fmt.Errorf("%w: %s", pkg.ErrNotConfigured, driver.KindUACSpeaker)
	}
	return r.WriteAll(ctx, data)
}

// EmitVideoFrame assembles one frame through the transfer buffers into the
// frame buffer and delivers it to the video handler. Frames larger than the
// frame buffer are dropped with pkg.ErrBufferTooSmall.
func (d *Driver) EmitVideoFrame() error {
	d.videoMu.Lock()
	defer d.videoMu.Unlock()

	d.mu.Lock()
	if err := d.readyLocked(driver.KindUVC); err != nil {
		d.mu.Unlock()
		return err
	}
	cfg := d.video
	seq := d.seq[driver.KindUVC]
	d.seq[driver.KindUVC]++

	payload := cfg.FrameBuffer[:cfg.FrameBufferSize]
	n := d.assembleLocked(cfg, payload, seq)
	if n < 0 {
		d.stats.VideoDropped++
		d.mu.Unlock()
		d.log.Warn("frame overflows frame buffer, dropped",
			"seq", seq, "frame_size", FrameSize(d.width, d.height),
			"buffer_size", cfg.FrameBufferSize)
		return pkg.ErrBufferTooSmall
	}
	d.stats.VideoFrames++
	frame := &driver.Frame{
		Kind:      driver.KindUVC,
		Format:    d.opts.Profile.VideoFormat,
		Data:      payload[:n],
		Sequence:  seq,
		Timestamp: time.Now(),
		Width:     d.width,
		Height:    d.height,
	}
	h := cfg.Handler
	d.mu.Unlock()

	if h != nil {
		h(frame)
	}
	return nil
}

// assembleLocked encodes a frame for the negotiated geometry and moves it
// into dst through the alternating transfer buffers, as the isochronous
// pipe would. It returns -1 when dst cannot hold the frame.
func (d *Driver) assembleLocked(cfg *driver.VideoConfig, dst []byte, seq uint32) int {
	size := FrameSize(d.width, d.height)
	if size > len(dst) {
		return -1
	}
	// Encoded in place, then staged chunk by chunk through the transfer
	// buffers in the order the pipe fills them.
	encodeFrame(dst, d.width, d.height, seq)
	xfer := [2][]byte{
		cfg.TransferBufferA[:cfg.TransferBufferSize],
		cfg.TransferBufferB[:cfg.TransferBufferSize],
	}
	for off := 0; off < size; {
		buf := xfer[d.xferIndex]
		d.xferIndex ^= 1
		m := copy(buf, dst[off:size])
		copy(dst[off:], buf[:m])
		off += m
	}
	return size
}

// EmitMicFrame produces one microphone block, queues it for ReadMic and
// delivers it to the mic handler.
func (d *Driver) EmitMicFrame() error {
	d.micMu.Lock()
	defer d.micMu.Unlock()

	d.mu.Lock()
	if err := d.readyLocked(driver.KindUACMic); err != nil {
		d.mu.Unlock()
		return err
	}
	s := d.streams[driver.KindUACMic]
	n := d.tone.fill(d.micBlock, d.mic, s.volume, s.muted)
	block := d.micBlock[:n]
	d.stats.MicDropped += uint64(d.micRing.Overwrite(block))
	d.stats.MicFrames++
	seq := d.seq[driver.KindUACMic]
	d.seq[driver.KindUACMic]++
	frame := &driver.Frame{
		Kind:          driver.KindUACMic,
		Format:        driver.FormatPCM,
		Data:          block,
		Sequence:      seq,
		Timestamp:     time.Now(),
		Channels:      d.mic.Channels,
		BitResolution: d.mic.BitResolution,
		SampleRate:    d.mic.SampleRate,
	}
	h := d.audio.MicHandler
	d.mu.Unlock()

	if h != nil {
		h(frame)
	}
	return nil
}

// DrainSpeaker consumes one period of speaker data, as the device would
// play it, and returns the bytes consumed.
func (d *Driver) DrainSpeaker() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.readyLocked(driver.KindUACSpeaker) != nil {
		return 0
	}
	n := d.spkRing.Read(d.spkBlock)
	d.stats.SpeakerPlayed += uint64(n)
	return n
}

// readyLocked reports why a sub-stream cannot move data right now.
func (d *Driver) readyLocked(kind driver.Kind) error {
	switch {
	case !d.running:
		return pkg.ErrNotRunning
	case !d.connected:
		return pkg.ErrNotConnected
	case !d.kindConfiguredLocked(kind):
		return fmt.Errorf("%w: %s", pkg.ErrNotConfigured, kind)
	case d.streams[kind].suspended:
		return fmt.Errorf("%w: %s suspended", pkg.ErrInvalidState, kind)
	}
	return nil
}

// =============================================================================
// Streaming goroutines
// =============================================================================

func (d *Driver) connectAfter(ctx context.Context, delay time.Duration) {
	defer d.wg.Done()
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return
	case <-t.C:
	}
	if err := d.Connect(); err != nil && ctx.Err() == nil {
		d.log.Warn("connect failed", "error", err)
	}
}

// videoLoop emits frames at the negotiated interval, picking up interval
// changes made by a reset.
func (d *Driver) videoLoop(ctx context.Context) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		interval := d.interval
		d.mu.Unlock()
		if interval <= 0 {
			interval = driver.FPSInterval(driver.DefaultFrameRate)
		}

		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		_ = d.EmitVideoFrame()
	}
}

func (d *Driver) periodic(ctx context.Context, period time.Duration, fn func()) {
	defer d.wg.Done()
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}
