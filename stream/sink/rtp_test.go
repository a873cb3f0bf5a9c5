package sink

import (
	"errors"
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/usbstream/pkg"
	"github.com/ardnew/usbstream/stream/driver"
)

// packetRecorder keeps every write as one packet.
type packetRecorder struct {
	packets []*rtp.Packet
	err     error
}

func (r *packetRecorder) Write(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	var pkt rtp.Packet
	if err := pkt.Unmarshal(append([]byte(nil), p...)); err != nil {
		return 0, err
	}
	r.packets = append(r.packets, &pkt)
	return len(p), nil
}

func pcmFrame(channels uint8, data ...byte) *driver.Frame {
	return &driver.Frame{
		Kind:          driver.KindUACMic,
		Format:        driver.FormatPCM,
		Data:          data,
		Channels:      channels,
		BitResolution: 16,
		SampleRate:    16000,
	}
}

func TestRTPAudioSink_Packetize(t *testing.T) {
	var rec packetRecorder
	// 8 payload bytes per packet: four mono samples.
	s := NewRTPAudioSink(&rec, RTPOptions{SSRC: 0xCAFE, MTU: rtpHeaderSize + 9})

	data := make([]byte, 20)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, s.WriteFrame(pcmFrame(1, data...)))
	require.Len(t, rec.packets, 3)

	first := rec.packets[0]
	assert.Equal(t, uint8(2), first.Version)
	assert.Equal(t, uint8(DefaultPayloadType), first.PayloadType)
	assert.Equal(t, uint32(0xCAFE), first.SSRC)
	assert.True(t, first.Marker)
	assert.Equal(t, []byte{1, 0, 3, 2, 5, 4, 7, 6}, first.Payload, "samples are big-endian on the wire")

	for i, pkt := range rec.packets {
		assert.Equal(t, first.SequenceNumber+uint16(i), pkt.SequenceNumber)
		assert.Equal(t, uint32(4*i), pkt.Timestamp)
		if i > 0 {
			assert.False(t, pkt.Marker)
		}
	}
	assert.Len(t, rec.packets[2].Payload, 4)

	require.NoError(t, s.WriteFrame(pcmFrame(1, 0, 0)))
	assert.Equal(t, uint32(10), rec.packets[3].Timestamp, "timestamp continues across frames")

	st := s.Stats()
	assert.Equal(t, uint64(4), st.Packets)
	assert.Equal(t, uint64(22), st.Bytes)
}

func TestRTPAudioSink_StereoKeepsSampleFrames(t *testing.T) {
	var rec packetRecorder
	// 10 payload bytes fit, but a stereo sample frame is 4 bytes.
	s := NewRTPAudioSink(&rec, RTPOptions{MTU: rtpHeaderSize + 10})

	require.NoError(t, s.WriteFrame(pcmFrame(2, make([]byte, 16)...)))
	require.Len(t, rec.packets, 2)
	assert.Len(t, rec.packets[0].Payload, 8)
	assert.Equal(t, uint32(2), rec.packets[1].Timestamp)
}

func TestRTPAudioSink_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		frame *driver.Frame
		err   error
	}{
		{"video", &driver.Frame{Format: driver.FormatMJPEG, Data: []byte{1, 2}}, pkg.ErrUnsupportedFormat},
		{"8-bit", &driver.Frame{Format: driver.FormatPCM, BitResolution: 8, Channels: 1}, pkg.ErrUnsupportedFormat},
		{"partial sample", pcmFrame(2, 1, 2, 3), pkg.ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec packetRecorder
			s := NewRTPAudioSink(&rec, RTPOptions{})
			require.ErrorIs(t, s.WriteFrame(tt.frame), tt.err)
			assert.Empty(t, rec.packets)
		})
	}
}

func TestRTPAudioSink_WriteError(t *testing.T) {
	errDown := errors.New("network down")
	rec := packetRecorder{err: errDown}
	s := NewRTPAudioSink(&rec, RTPOptions{})

	require.ErrorIs(t, s.WriteFrame(pcmFrame(1, 1, 2)), errDown)
	s.HandleFrame(pcmFrame(1, 1, 2), nil)
	assert.Equal(t, uint64(2), s.Stats().Errors)
	assert.Zero(t, s.Stats().Packets)
}
