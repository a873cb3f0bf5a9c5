// Package stream provides the lifecycle and callback controller for a USB
// camera and audio device streamed over isochronous transfers.
//
// A [Controller] owns the stream configuration of one device session: video
// geometry and frame interval, mic and speaker PCM formats and buffer sizes.
// It keeps three callback slots (video frames, mic blocks and device state)
// and forwards start, stop, control, reset, read, write and query requests
// to a [driver.Driver].
//
// # Lifecycle
//
//	c := stream.New(drv, stream.WithLogger(logger))
//	defer c.Close()
//
//	c.ConfigureVideo(stream.VideoConfig{...})
//	c.ConfigureAudio(stream.DefaultAudioConfig())
//	stream.RegisterFrame(c, driver.KindUVC, onFrame, state)
//	c.Start()
//	c.ConnectWait(ctx, 5*time.Second)
//	...
//	c.Stop()
//
// Configuration may change again between Stop and the next Start. Close
// stops a running stream, so a deferred Close never leaks driver tasks.
//
// # Callbacks
//
// Each slot holds at most one registration; registering again replaces it,
// and registering nil is rejected without touching the current one. The
// argument supplied at registration is passed back unchanged on every call.
// [RegisterFrame] and [RegisterState] give the argument a static type.
//
// Callbacks run on driver goroutines. The [driver.Frame] they receive
// borrows driver memory that is reused once the callback returns; call
// [driver.Frame.Clone] to keep it.
//
// # Errors
//
// Every operation logs its failures with the operation name, the sub-stream
// and the error, and returns an [*OpError] wrapping either a pkg sentinel or
// the driver's error. Timeouts of ConnectWait, ReadMic and WriteSpeaker are
// reported as [pkg.ErrTimeout]; a mic read that received part of its buffer
// before the deadline succeeds with the partial count.
package stream
