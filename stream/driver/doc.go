// Package driver defines the boundary between the stream controller and a USB
// isochronous streaming engine.
//
// A driver owns everything below the controller: device enumeration,
// descriptor parsing, isochronous packet scheduling and the goroutines that
// assemble frames. The controller only configures it, starts and stops it,
// forwards control requests, and relays the frames and state changes it
// reports.
//
// # Sub-streams
//
// Three independent data paths are addressed by [Kind]:
//   - [KindUVC]: video capture, delivered as assembled frames
//   - [KindUACMic]: microphone capture, delivered as PCM blocks and also
//     readable through [Driver.ReadMic]
//   - [KindUACSpeaker]: speaker playback, fed through [Driver.WriteSpeaker]
//
// # Negotiation
//
// Geometry and PCM fields accept sentinels ([FrameResolutionAny],
// [ChannelsAny], [BitsAny], [SampleRateAny]) meaning "use what the device
// offers".
//
// # Implementing a Driver
//
// A driver must invoke handlers from its own goroutines, never while holding
// locks the controller could wait on, and must not retain the handler's
// [Frame] after it returns. An in-process simulated device is available in
// [github.com/ardnew/usbstream/stream/driver/sim].
package driver
