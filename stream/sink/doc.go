// Package sink provides consumers for the frames a stream controller
// delivers.
//
// [RTPAudioSink] sends mic blocks as RTP L16 packets and [FrameWriter]
// stores video frames as files. Both expose a HandleFrame method with the
// signature of [github.com/ardnew/usbstream/stream.FrameFunc], so they can
// be registered directly:
//
//	rtpSink := sink.NewRTPAudioSink(conn, sink.RTPOptions{SSRC: 1})
//	c.RegisterFrameCallback(driver.KindUACMic, rtpSink.HandleFrame, nil)
//
// HandleFrame copies what it needs before returning, as the frame data is
// borrowed from the driver.
package sink
