// Command usbstream drives a simulated USB camera and audio device through
// the stream controller. It configures the sub-streams from usbstream.yaml
// and USBSTREAM_* variables, streams for a while, and reports what arrived.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	opts := &rootOptions{}
	cmd := newRootCommand(opts)
	if err := execute(cmd, opts); err != nil {
		os.Exit(1)
	}
}

// execute runs the command tree and then finishes any profiles, including
// when the command fails.
func execute(cmd *cobra.Command, opts *rootOptions) error {
	err := cmd.Execute()
	if perr := opts.prof.stop(); perr != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", perr)
		if err == nil {
			err = perr
		}
	}
	return err
}
