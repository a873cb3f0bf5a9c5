package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ardnew/usbstream/config"
	"github.com/ardnew/usbstream/pkg"
)

// rootOptions holds the persistent flags and what PersistentPreRunE derives
// from them.
type rootOptions struct {
	configFile string
	logLevel   string
	jsonLogs   bool
	prof       profiler

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usbstream",
		Short: "USB camera and audio streaming controller",
		Long: `usbstream configures the video, microphone and speaker sub-streams of a
USB device, starts streaming and reports frames and device state changes.
The device is simulated in-process.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.load(cmd); err != nil {
				return err
			}
			return opts.prof.start()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "Configuration file (default: usbstream.yaml in the search path)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")
	flags.BoolVar(&opts.jsonLogs, "json", false, "Write logs as JSON")
	flags.StringVar(&opts.prof.cpuPath, "cpuprofile", "", "Write a CPU profile to this file")
	flags.StringVar(&opts.prof.heapPath, "memprofile", "", "Write a heap profile to this file on exit")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newSizesCommand(opts))
	cmd.AddCommand(newConfigCommand(opts))
	return cmd
}

// load reads the configuration and installs the logger.
func (o *rootOptions) load(cmd *cobra.Command) error {
	var overrides []config.Override
	if o.logLevel != "" {
		overrides = append(overrides, config.WithLogLevel(o.logLevel))
	}
	if o.jsonLogs {
		overrides = append(overrides, config.WithLogFormat("json"))
	}
	cfg, err := config.Load(o.configFile, overrides...)
	if err != nil {
		return err
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat() == pkg.LogFormatJSON {
		o.logger = pkg.NewJSONLogger(cmd.ErrOrStderr(), handlerOpts)
	} else {
		o.logger = pkg.NewLogger(cmd.ErrOrStderr(), handlerOpts)
	}
	pkg.SetLogger(o.logger)
	pkg.SetLogLevel(level)

	o.cfg = cfg
	pkg.LogDebug(pkg.ComponentCLI, "configuration ready", "file", cfg.File, "command", cmd.Name())
	return nil
}
