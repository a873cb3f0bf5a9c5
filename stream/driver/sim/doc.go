// Package sim provides an in-process simulated USB camera and audio device
// implementing [driver.Driver].
//
// It is meant for tests and for exercising the controller without hardware.
// The simulated device advertises a [Profile] of frame sizes and PCM formats,
// negotiates the configured values against it when it "connects", and then
// streams:
//
//   - Video: a synthetic MJPEG frame per negotiated interval, staged through
//     the caller's transfer buffers and assembled into the frame buffer.
//     Frames that do not fit the frame buffer are dropped.
//   - Microphone: a 440 Hz tone in blocks of one mic period (16 ms by
//     default), queued for ReadMic and passed to the mic handler. A full
//     buffer discards its oldest bytes.
//   - Speaker: one speaker period of queued data is consumed per period.
//
// # Timed and Manual Modes
//
// By default the device connects [driver.DefaultConnectDelay] after Start
// and streams on timers. With [Options].Manual set, nothing happens on its
// own; tests drive the device explicitly:
//
//	d := sim.New(sim.Options{Manual: true})
//	ctrl := stream.New(d)
//	// configure and start ctrl ...
//	d.Connect()
//	d.EmitVideoFrame()
//	d.EmitMicFrame()
//	d.DrainSpeaker()
//
// Payloads produced by the camera can be inspected with [DecodeFrame].
package sim
