package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ardnew/usbstream/pkg"
	"github.com/ardnew/usbstream/stream"
	"github.com/ardnew/usbstream/stream/driver"
	"github.com/ardnew/usbstream/stream/driver/sim"
	"github.com/ardnew/usbstream/stream/sink"
)

type runOptions struct {
	duration    time.Duration
	framesDir   string
	framesLimit int
	rtpAddr     string
	ssrc        uint32
}

// runStats is updated from the frame callbacks.
type runStats struct {
	videoFrames  atomic.Uint64
	videoBytes   atomic.Uint64
	width        atomic.Uint32
	height       atomic.Uint32
	micBlocks    atomic.Uint64
	micBytes     atomic.Uint64
	speakerBytes atomic.Uint64
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Stream from the device for a while",
		Long: `Configure the enabled sub-streams, start streaming, wait for the device to
connect and keep streaming until the duration elapses or the command is
interrupted. Video frames can be saved to a directory and mic audio sent as
RTP L16 over UDP.`,
		Example: `  usbstream run --duration 10s
  usbstream run --frames-dir ./frames --frames-limit 30
  usbstream run --rtp 127.0.0.1:5004 --ssrc 1234`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runStream(ctx, cmd.OutOrStdout(), root, opts)
		},
	}

	flags := cmd.Flags()
	flags.DurationVarP(&opts.duration, "duration", "d", 3*time.Second, "How long to stream")
	flags.StringVar(&opts.framesDir, "frames-dir", "", "Directory to save video frames into")
	flags.IntVar(&opts.framesLimit, "frames-limit", 0, "Stop saving after this many frames (0 for no limit)")
	flags.StringVar(&opts.rtpAddr, "rtp", "", "UDP host:port to send mic audio to as RTP L16")
	flags.Uint32Var(&opts.ssrc, "ssrc", 0, "RTP synchronization source identifier")

	return cmd
}

func runStream(ctx context.Context, out io.Writer, root *rootOptions, opts *runOptions) error {
	cfg := root.cfg
	if !cfg.Video.Enabled && !cfg.AudioEnabled() {
		return fmt.Errorf("%w: video and audio are both disabled", pkg.ErrNotConfigured)
	}

	d := sim.New(cfg.SimOptions(root.logger))
	c := stream.New(d, stream.WithLogger(root.logger))
	defer c.Close()

	printer := &statePrinter{w: out}
	err := stream.RegisterState(c, func(s driver.State, p *statePrinter) { p.print(s) }, printer)
	if err != nil {
		return err
	}

	st := &runStats{}
	var frames *sink.FrameWriter
	if cfg.Video.Enabled {
		if opts.framesDir != "" {
			frames, err = sink.NewFrameWriter(opts.framesDir, sink.FrameWriterOptions{
				Limit:  opts.framesLimit,
				Logger: root.logger,
			})
			if err != nil {
				return err
			}
		}
		if err := c.ConfigureVideo(cfg.VideoConfig()); err != nil {
			return err
		}
		err = stream.RegisterFrame(c, driver.KindUVC, func(f *driver.Frame, rs *runStats) {
			rs.videoFrames.Add(1)
			rs.videoBytes.Add(uint64(len(f.Data)))
			rs.width.Store(uint32(f.Width))
			rs.height.Store(uint32(f.Height))
			if frames != nil {
				frames.HandleFrame(f, nil)
			}
		}, st)
		if err != nil {
			return err
		}
	}

	var rtpSink *sink.RTPAudioSink
	if cfg.AudioEnabled() {
		if err := c.ConfigureAudio(cfg.AudioConfig()); err != nil {
			return err
		}
		if cfg.Mic.BufferSize > 0 {
			if opts.rtpAddr != "" {
				conn, err := net.Dial("udp", opts.rtpAddr)
				if err != nil {
					return err
				}
				defer conn.Close()
				rtpSink = sink.NewRTPAudioSink(conn, sink.RTPOptions{SSRC: opts.ssrc, Logger: root.logger})
			}
			err = stream.RegisterFrame(c, driver.KindUACMic, func(f *driver.Frame, rs *runStats) {
				rs.micBlocks.Add(1)
				rs.micBytes.Add(uint64(len(f.Data)))
				if rtpSink != nil {
					rtpSink.HandleFrame(f, nil)
				}
			}, st)
			if err != nil {
				return err
			}
		}
	}

	if err := c.Start(); err != nil {
		return err
	}
	if err := c.ConnectWait(ctx, cfg.Device.ConnectTimeout); err != nil {
		return err
	}

	pkg.LogInfo(pkg.ComponentCLI, "streaming", "duration", opts.duration)

	var feeder sync.WaitGroup
	stopFeed := make(chan struct{})
	if cfg.Speaker.BufferSize > 0 {
		feeder.Add(1)
		go func() {
			defer feeder.Done()
			feedSpeaker(c, st, stopFeed)
		}()
	}

	timer := time.NewTimer(opts.duration)
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	timer.Stop()
	close(stopFeed)
	feeder.Wait()

	if err := c.Stop(); err != nil {
		return err
	}

	heading(out, "summary")
	if cfg.Video.Enabled {
		fmt.Fprintf(out, "video:   %d frames, %d bytes, %dx%d\n",
			st.videoFrames.Load(), st.videoBytes.Load(), st.width.Load(), st.height.Load())
	}
	if cfg.Mic.BufferSize > 0 {
		fmt.Fprintf(out, "mic:     %d blocks, %d bytes\n", st.micBlocks.Load(), st.micBytes.Load())
	}
	if cfg.Speaker.BufferSize > 0 {
		fmt.Fprintf(out, "speaker: %d bytes queued\n", st.speakerBytes.Load())
	}
	if frames != nil {
		fmt.Fprintf(out, "files:   %d written to %s\n", frames.Count(), opts.framesDir)
	}
	if rtpSink != nil {
		rs := rtpSink.Stats()
		fmt.Fprintf(out, "rtp:     %d packets, %d bytes to %s\n", rs.Packets, rs.Bytes, opts.rtpAddr)
	}
	return nil
}

// feedSpeaker queues silence until stop is closed. Each write is bounded so
// the loop notices stop promptly.
func feedSpeaker(c *stream.Controller, st *runStats, stop <-chan struct{}) {
	block := make([]byte, 1024)
	for {
		select {
		case <-stop:
			return
		default:
		}
		n, err := c.WriteSpeaker(context.Background(), block, 50*time.Millisecond)
		st.speakerBytes.Add(uint64(n))
		if err != nil && !errors.Is(err, pkg.ErrTimeout) {
			pkg.LogError(pkg.ComponentCLI, "speaker feed stopped", "error", err)
			return
		}
	}
}
