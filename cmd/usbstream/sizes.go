package main

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ardnew/usbstream/pkg"
	"github.com/ardnew/usbstream/pkg/usbid"
	"github.com/ardnew/usbstream/stream"
	"github.com/ardnew/usbstream/stream/driver"
	"github.com/ardnew/usbstream/stream/driver/sim"
)

func newSizesCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sizes",
		Short: "List the frame sizes and audio formats the device offers",
		Long: `Connect to the device and list its video frame sizes and its mic and speaker
PCM formats. The entry negotiated for the current configuration is marked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listSizes(cmd, root)
		},
	}
}

func listSizes(cmd *cobra.Command, root *rootOptions) error {
	cfg := root.cfg
	out := cmd.OutOrStdout()

	d := sim.New(cfg.SimOptions(root.logger))
	c := stream.New(d, stream.WithLogger(root.logger))
	defer c.Close()

	if cfg.Video.Enabled {
		if err := c.ConfigureVideo(cfg.VideoConfig()); err != nil {
			return err
		}
	}
	if cfg.AudioEnabled() {
		if err := c.ConfigureAudio(cfg.AudioConfig()); err != nil {
			return err
		}
	}
	if err := c.Start(); err != nil {
		return err
	}
	if err := c.ConnectWait(cmd.Context(), cfg.Device.ConnectTimeout); err != nil {
		return err
	}

	p := d.Profile()
	names, _, err := usbid.Load(afero.NewOsFs())
	if err != nil {
		pkg.LogWarn(pkg.ComponentCLI, "usb.ids not usable", "error", err)
		names = &usbid.Names{}
	}
	vendor, product := names.Describe(p.VendorID, p.ProductID, p.Manufacturer, p.Product)
	heading(out, "%s %s (%04x:%04x)", vendor, product, p.VendorID, p.ProductID)

	sizes, current, err := c.VideoFrameSizes()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "video %s, %d sizes\n", p.VideoFormat, len(sizes))
	for i, s := range sizes {
		marker(out, i == current)
		fmt.Fprintf(out, "%4dx%-4d %3d fps (%d-%d)\n", s.Width, s.Height,
			driver.IntervalFPS(s.Interval),
			driver.IntervalFPS(s.MaxInterval), driver.IntervalFPS(s.MinInterval))
	}

	for _, kind := range []driver.Kind{driver.KindUACMic, driver.KindUACSpeaker} {
		if err := listAudio(out, c, kind); err != nil {
			return err
		}
	}
	return c.Stop()
}

func listAudio(out io.Writer, c *stream.Controller, kind driver.Kind) error {
	count, current, err := c.FrameListSize(kind)
	if err != nil {
		return err
	}
	formats, _, err := c.AudioFrameSizes(kind)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s pcm, %d formats\n", kind, count)
	for i, f := range formats {
		marker(out, i == current)
		fmt.Fprintf(out, "%d ch %2d bit %5d Hz (%d-%d)\n", f.Channels, f.BitResolution,
			f.SampleRate, f.MinSampleRate, f.MaxSampleRate)
	}
	return nil
}
