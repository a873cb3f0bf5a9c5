package sim

import (
	"time"

	"github.com/ardnew/usbstream/stream/driver"
)

// matchVideo picks the advertised frame size closest to the requested
// geometry. FrameResolutionAny in either dimension selects the first size.
// exact reports whether the device offers the requested geometry.
func matchVideo(sizes []driver.VideoFrameSize, w, h uint16) (idx int, exact bool) {
	if len(sizes) == 0 {
		return -1, false
	}
	if w == driver.FrameResolutionAny || h == driver.FrameResolutionAny {
		return 0, true
	}
	best, bestDiff := 0, -1
	want := int(w) * int(h)
	for i, s := range sizes {
		if s.Width == w && s.Height == h {
			return i, true
		}
		diff := int(s.Width)*int(s.Height) - want
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	return best, false
}

// videoInterval clamps a requested interval into the range the frame size
// supports; a zero request selects the default interval.
func videoInterval(s driver.VideoFrameSize, want time.Duration) time.Duration {
	switch {
	case want <= 0:
		return s.Interval
	case s.MinInterval > 0 && want < s.MinInterval:
		return s.MinInterval
	case s.MaxInterval > 0 && want > s.MaxInterval:
		return s.MaxInterval
	default:
		return want
	}
}

// matchAudio picks an advertised format compatible with want, where
// negotiable fields match anything. Formats whose default sample rate equals
// the request win over formats that merely cover it in their range. The
// negotiated format is returned with the buffer size carried over from want.
func matchAudio(formats []driver.AudioFrameSize, want driver.AudioFormat) (int, driver.AudioFormat, bool) {
	for _, ranged := range [...]bool{false, true} {
		for i, f := range formats {
			if want.Channels != driver.ChannelsAny && want.Channels != f.Channels {
				continue
			}
			if want.BitResolution != driver.BitsAny && want.BitResolution != f.BitResolution {
				continue
			}
			rate := f.SampleRate
			if want.SampleRate != driver.SampleRateAny && want.SampleRate != f.SampleRate {
				if !ranged || want.SampleRate < f.MinSampleRate || want.SampleRate > f.MaxSampleRate {
					continue
				}
				rate = want.SampleRate
			}
			return i, driver.AudioFormat{
				Channels:      f.Channels,
				BitResolution: f.BitResolution,
				SampleRate:    rate,
				BufferSize:    want.BufferSize,
			}, true
		}
	}
	return -1, driver.AudioFormat{}, false
}
