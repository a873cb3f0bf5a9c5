package sim

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/ardnew/usbstream/stream/driver"
)

// Profile describes the simulated device: its identity and the formats it
// advertises for each sub-stream.
type Profile struct {
	VendorID     uint16
	ProductID    uint16
	Manufacturer string
	Product      string

	VideoFormat    driver.Format
	VideoSizes     []driver.VideoFrameSize
	MicFormats     []driver.AudioFrameSize
	SpeakerFormats []driver.AudioFrameSize
}

// DefaultProfile returns a composite camera, microphone and speaker device
// resembling the boards the controller is usually paired with.
func DefaultProfile() Profile {
	sizes := func(w, h uint16) driver.VideoFrameSize {
		return driver.VideoFrameSize{
			Width:       w,
			Height:      h,
			Interval:    driver.FPSInterval(15),
			MinInterval: driver.FPSInterval(30),
			MaxInterval: driver.FPSInterval(5),
		}
	}
	return Profile{
		VendorID:     0x303a,
		ProductID:    0x8000,
		Manufacturer: "Espressif",
		Product:      "USB Camera + Audio",
		VideoFormat:  driver.FormatMJPEG,
		VideoSizes: []driver.VideoFrameSize{
			sizes(640, 480),
			sizes(480, 320),
			sizes(352, 288),
			sizes(320, 240),
		},
		MicFormats: []driver.AudioFrameSize{
			{Channels: 1, BitResolution: 16, SampleRate: 16000, MinSampleRate: 8000, MaxSampleRate: 48000},
			{Channels: 1, BitResolution: 16, SampleRate: 48000, MinSampleRate: 8000, MaxSampleRate: 48000},
		},
		SpeakerFormats: []driver.AudioFrameSize{
			{Channels: 1, BitResolution: 16, SampleRate: 16000, MinSampleRate: 8000, MaxSampleRate: 48000},
			{Channels: 2, BitResolution: 16, SampleRate: 48000, MinSampleRate: 8000, MaxSampleRate: 48000},
		},
	}
}

// Synthetic MJPEG layout: SOI, an APP4 segment carrying the geometry and
// sequence number, filler scan data, EOI.
const (
	jpegSOI      = 0xFFD8
	jpegEOI      = 0xFFD9
	jpegAPP4     = 0xFFE4
	headerMagic  = "USBS"
	headerLength = 2 + 2 + 2 + 4 + 2 + 2 + 4 // SOI, marker, length, magic, w, h, seq
	scanDivisor  = 64                        // one filler byte per 64 pixels
)

// FrameSize returns the synthetic payload size for a w×h frame.
func FrameSize(w, h uint16) int {
	return headerLength + int(w)*int(h)/scanDivisor + 2
}

// encodeFrame writes a synthetic frame into dst and returns its length, or
// -1 if dst is too small.
func encodeFrame(dst []byte, w, h uint16, seq uint32) int {
	n := FrameSize(w, h)
	if len(dst) < n {
		return -1
	}
	binary.BigEndian.PutUint16(dst[0:], jpegSOI)
	binary.BigEndian.PutUint16(dst[2:], jpegAPP4)
	binary.BigEndian.PutUint16(dst[4:], headerLength-4)
	copy(dst[6:10], headerMagic)
	binary.BigEndian.PutUint16(dst[10:], w)
	binary.BigEndian.PutUint16(dst[12:], h)
	binary.BigEndian.PutUint32(dst[14:], seq)
	fill := byte(seq)
	for i := headerLength; i < n-2; i++ {
		fill = fill*31 + 7
		dst[i] = fill & 0x7F
	}
	binary.BigEndian.PutUint16(dst[n-2:], jpegEOI)
	return n
}

// DecodeFrame extracts the geometry and sequence number from a payload
// produced by the simulated camera.
func DecodeFrame(data []byte) (w, h uint16, seq uint32, ok bool) {
	if len(data) < headerLength+2 ||
		binary.BigEndian.Uint16(data[0:]) != jpegSOI ||
		binary.BigEndian.Uint16(data[2:]) != jpegAPP4 ||
		string(data[6:10]) != headerMagic ||
		binary.BigEndian.Uint16(data[len(data)-2:]) != jpegEOI {
		return 0, 0, 0, false
	}
	return binary.BigEndian.Uint16(data[10:]),
		binary.BigEndian.Uint16(data[12:]),
		binary.BigEndian.Uint32(data[14:]),
		true
}

// toneHz is the pitch of the simulated microphone signal.
const toneHz = 440

// tone generates a sine wave into little-endian PCM blocks, keeping phase
// between calls.
type tone struct {
	phase float64
}

// fill writes whole samples of f into dst scaled by volume (0-100) and
// returns the bytes written. A muted or zero-volume tone yields silence.
func (t *tone) fill(dst []byte, f driver.AudioFormat, volume uint8, muted bool) int {
	width := int(f.BitResolution) / 8
	frame := width * int(f.Channels)
	if width == 0 || frame == 0 || f.SampleRate == 0 {
		return 0
	}
	n := len(dst) / frame * frame
	step := 2 * math.Pi * toneHz / float64(f.SampleRate)
	amp := float64(volume) / driver.MaxVolume
	if muted {
		amp = 0
	}
	for off := 0; off < n; off += frame {
		v := int32(amp * math.Sin(t.phase) * math.MaxInt32)
		t.phase += step
		if t.phase > 2*math.Pi {
			t.phase -= 2 * math.Pi
		}
		for c := 0; c < int(f.Channels); c++ {
			s := dst[off+c*width : off+(c+1)*width]
			// Keep the most significant bytes of the 32-bit sample.
			for b := 0; b < width; b++ {
				s[b] = byte(v >> (32 - 8*(width-b)))
			}
		}
	}
	return n
}

// chunkSize returns the bytes produced or consumed per period for f.
func chunkSize(f driver.AudioFormat, period time.Duration) int {
	bps := f.BytesPerSecond()
	frame := int(f.Channels) * int(f.BitResolution) / 8
	if bps == 0 || frame == 0 {
		return 0
	}
	n := int(int64(bps) * int64(period) / int64(time.Second))
	if n < frame {
		n = frame
	}
	return n / frame * frame
}
