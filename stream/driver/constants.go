package driver

import (
	"fmt"
	"time"
)

// Kind identifies one of the three independent sub-streams.
type Kind uint8

// Sub-stream kinds.
const (
	KindUVC        Kind = 0 // UVC video capture
	KindUACMic     Kind = 1 // UAC microphone capture
	KindUACSpeaker Kind = 2 // UAC speaker playback
)

// Kinds lists every sub-stream kind in declaration order.
var Kinds = [...]Kind{KindUVC, KindUACMic, KindUACSpeaker}

// String returns a short sub-stream name.
func (k Kind) String() string {
	switch k {
	case KindUVC:
		return "uvc"
	case KindUACMic:
		return "mic"
	case KindUACSpeaker:
		return "speaker"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// IsValid reports whether k names a known sub-stream.
func (k Kind) IsValid() bool {
	return k <= KindUACSpeaker
}

// IsAudio reports whether k is one of the UAC sub-streams.
func (k Kind) IsAudio() bool {
	return k == KindUACMic || k == KindUACSpeaker
}

// Control identifies a per-stream control request.
type Control uint8

// Control kinds.
const (
	ControlSuspend Control = 0 // Suspend the sub-stream
	ControlResume  Control = 1 // Resume the sub-stream
	ControlMute    Control = 2 // Mute (value 1) or unmute (value 0), UAC only
	ControlVolume  Control = 3 // Set volume (0-100), UAC only
)

// String returns a short control name.
func (c Control) String() string {
	switch c {
	case ControlSuspend:
		return "suspend"
	case ControlResume:
		return "resume"
	case ControlMute:
		return "mute"
	case ControlVolume:
		return "volume"
	default:
		return fmt.Sprintf("control(%d)", uint8(c))
	}
}

// AppliesTo reports whether the control is meaningful for the sub-stream.
func (c Control) AppliesTo(k Kind) bool {
	switch c {
	case ControlSuspend, ControlResume:
		return k.IsValid()
	case ControlMute, ControlVolume:
		return k.IsAudio()
	default:
		return false
	}
}

// State is a device-level event reported through the state handler.
type State uint8

// Device states.
const (
	StateUnknown      State = 0 // No event observed yet
	StateConnected    State = 1 // Device enumerated and streams are ready
	StateDisconnected State = 2 // Device removed or stream stopped
	StateError        State = 3 // Driver hit an unrecoverable error
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUnknown:
		return "Unknown"
	case StateConnected:
		return "Connected"
	case StateDisconnected:
		return "Disconnected"
	case StateError:
		return "Error"
	default:
		return fmt.Sprintf("Unknown State (%d)", uint8(s))
	}
}

// Format is the payload encoding of a delivered frame.
type Format uint8

// Payload formats.
const (
	FormatUnknown Format = 0
	FormatMJPEG   Format = 1
	FormatYUY2    Format = 2
	FormatH264    Format = 3
	FormatPCM     Format = 4
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatMJPEG:
		return "MJPEG"
	case FormatYUY2:
		return "YUY2"
	case FormatH264:
		return "H264"
	case FormatPCM:
		return "PCM"
	default:
		return "Unknown"
	}
}

// Negotiable sentinels. A field holding one of these values lets the driver
// pick whatever the device offers.
const (
	FrameResolutionAny uint16 = 0xFFFF // Any frame width or height
	ChannelsAny        uint8  = 0      // Any channel count
	BitsAny            uint16 = 0      // Any bit resolution
	SampleRateAny      uint32 = 0      // Any sample rate
)

// Defaults applied by a freshly constructed controller.
const (
	DefaultFrameRate       = 15   // frames per second
	DefaultAudioBufferSize = 6400 // bytes, per UAC direction
	DefaultVolume          = 80   // percent
	MaxVolume              = 100  // percent
)

// Driver timing defaults.
const (
	DefaultConnectDelay  = 50 * time.Millisecond // settle time after attach
	DefaultMicPeriod     = 16 * time.Millisecond // minimum mic callback period
	DefaultSpeakerPeriod = 16 * time.Millisecond // maximum speaker drain period
)

// FPSInterval converts a frame rate to the interval between frames.
// A non-positive rate yields 0, which drivers treat as "no change".
func FPSInterval(fps int) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Second / time.Duration(fps)
}

// IntervalFPS converts a frame interval back to a whole frame rate.
func IntervalFPS(interval time.Duration) int {
	if interval <= 0 {
		return 0
	}
	return int((time.Second + interval/2) / interval)
}
