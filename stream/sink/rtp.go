package sink

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/pion/rtp"

	"github.com/ardnew/usbstream/pkg"
	"github.com/ardnew/usbstream/stream/driver"
)

// RTP defaults.
const (
	DefaultMTU         = 1200
	DefaultPayloadType = 96 // first dynamic payload type
	rtpHeaderSize      = 12
)

// RTPOptions configures an RTPAudioSink.
type RTPOptions struct {
	SSRC        uint32
	PayloadType uint8 // defaults to DefaultPayloadType
	MTU         int   // defaults to DefaultMTU
	Logger      *slog.Logger
}

// RTPStats counts the packets an RTPAudioSink has written.
type RTPStats struct {
	Packets uint64
	Bytes   uint64 // payload bytes
	Errors  uint64
}

// RTPAudioSink packetises 16-bit PCM mic frames as RTP L16 (RFC 3551) and
// writes each packet to an io.Writer, typically a connected UDP socket.
// Samples are converted from the little-endian USB layout to network order.
type RTPAudioSink struct {
	w           io.Writer
	ssrc        uint32
	payloadType uint8
	mtu         int
	sequencer   rtp.Sequencer
	timestamp   uint32
	started     bool
	payload     []byte
	stats       RTPStats
	log         *slog.Logger
	mu          sync.Mutex
}

// NewRTPAudioSink creates a sink writing to w.
func NewRTPAudioSink(w io.Writer, opts RTPOptions) *RTPAudioSink {
	if opts.PayloadType == 0 {
		opts.PayloadType = DefaultPayloadType
	}
	if opts.MTU <= rtpHeaderSize {
		opts.MTU = DefaultMTU
	}
	return &RTPAudioSink{
		w:           w,
		ssrc:        opts.SSRC,
		payloadType: opts.PayloadType,
		mtu:         opts.MTU,
		sequencer:   rtp.NewRandomSequencer(),
		log:         pkg.ForComponent(opts.Logger, pkg.ComponentSink).With("sink", "rtp"),
	}
}

// WriteFrame packetises one PCM frame. The RTP timestamp advances by the
// number of sample frames written, so a receiver clocked at the frame's
// sample rate plays it back in real time.
func (s *RTPAudioSink) WriteFrame(f *driver.Frame) error {
	if f.Format != driver.FormatPCM || f.BitResolution != 16 || f.Channels == 0 {
		return fmt.Errorf("%w: %s %d-bit %d ch", pkg.ErrUnsupportedFormat,
			f.Format, f.BitResolution, f.Channels)
	}
	frameBytes := int(f.Channels) * 2
	if len(f.Data)%frameBytes != 0 {
		return fmt.Errorf("%w: %d bytes is not a whole number of %d-byte samples",
			pkg.ErrInvalidParameter, len(f.Data), frameBytes)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	maxPayload := (s.mtu - rtpHeaderSize) / frameBytes * frameBytes
	if cap(s.payload) < maxPayload {
		s.payload = make([]byte, maxPayload)
	}
	for off := 0; off < len(f.Data); {
		n := min(maxPayload, len(f.Data)-off)
		payload := s.payload[:n]
		swap16(payload, f.Data[off:off+n])

		pkt := rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				Marker:         !s.started,
				PayloadType:    s.payloadType,
				SequenceNumber: s.sequencer.NextSequenceNumber(),
				Timestamp:      s.timestamp,
				SSRC:           s.ssrc,
			},
			Payload: payload,
		}
		raw, err := pkt.Marshal()
		if err != nil {
			s.stats.Errors++
			return err
		}
		if _, err := s.w.Write(raw); err != nil {
			s.stats.Errors++
			return err
		}
		s.started = true
		s.timestamp += uint32(n / frameBytes)
		s.stats.Packets++
		s.stats.Bytes += uint64(n)
		off += n
	}
	return nil
}

// HandleFrame has the signature of a stream frame callback so the sink can
// be registered for the mic directly. Write errors are logged.
func (s *RTPAudioSink) HandleFrame(f *driver.Frame, _ any) {
	if err := s.WriteFrame(f); err != nil {
		s.log.Warn("rtp write failed", "seq", f.Sequence, "error", err)
	}
}

// Stats returns a snapshot of the sink counters.
func (s *RTPAudioSink) Stats() RTPStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// swap16 copies src to dst swapping the bytes of each 16-bit sample.
func swap16(dst, src []byte) {
	for i := 0; i+1 < len(src); i += 2 {
		dst[i], dst[i+1] = src[i+1], src[i]
	}
}
