// Package config loads usbstream settings from a YAML file, USBSTREAM_*
// environment variables and built-in defaults, and turns them into stream
// and driver configurations.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ardnew/usbstream/pkg"
	"github.com/ardnew/usbstream/stream"
	"github.com/ardnew/usbstream/stream/driver"
	"github.com/ardnew/usbstream/stream/driver/sim"
)

// EnvPrefix prefixes every environment variable, e.g. USBSTREAM_VIDEO_FPS.
const EnvPrefix = "USBSTREAM"

// Default buffer sizes for the video path.
const (
	DefaultTransferBufferSize = 55 * 1024
	DefaultFrameBufferSize    = 55 * 1024
)

// Log holds logging settings.
type Log struct {
	Level  string `mapstructure:"level"`  // debug, info, warn or error
	Format string `mapstructure:"format"` // text or json
}

// Video holds UVC settings. Width and height of 65535 negotiate with the
// device.
type Video struct {
	Enabled            bool   `mapstructure:"enabled"`
	Width              uint16 `mapstructure:"width"`
	Height             uint16 `mapstructure:"height"`
	FPS                int    `mapstructure:"fps"`
	TransferBufferSize int    `mapstructure:"transfer_buffer_size"`
	FrameBufferSize    int    `mapstructure:"frame_buffer_size"`
}

// Audio holds the settings of one UAC direction. Zero channels, bits or rate
// negotiate with the device; a zero buffer size disables the direction.
type Audio struct {
	Channels   uint8  `mapstructure:"channels"`
	Bits       uint16 `mapstructure:"bits"`
	SampleRate uint32 `mapstructure:"sample_rate"`
	BufferSize uint32 `mapstructure:"buffer_size"`
}

// Device holds the simulated device timing and the connect timeout.
type Device struct {
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ConnectDelay   time.Duration `mapstructure:"connect_delay"`
	MicPeriod      time.Duration `mapstructure:"mic_period"`
	SpeakerPeriod  time.Duration `mapstructure:"speaker_period"`
}

// Config is the complete usbstream configuration.
type Config struct {
	Log     Log    `mapstructure:"log"`
	Video   Video  `mapstructure:"video"`
	Mic     Audio  `mapstructure:"mic"`
	Speaker Audio  `mapstructure:"speaker"`
	Device  Device `mapstructure:"device"`

	// File is the configuration file that was read, if any.
	File string `mapstructure:"-"`

	settings map[string]any
}

// SearchPaths lists the directories searched for usbstream.yaml when no file
// is named explicitly.
func SearchPaths() []string {
	return []string{
		".",
		filepath.Join(xdg.ConfigHome, "usbstream"),
		"/etc/usbstream",
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")

	v.SetDefault("video.enabled", true)
	v.SetDefault("video.width", driver.FrameResolutionAny)
	v.SetDefault("video.height", driver.FrameResolutionAny)
	v.SetDefault("video.fps", driver.DefaultFrameRate)
	v.SetDefault("video.transfer_buffer_size", DefaultTransferBufferSize)
	v.SetDefault("video.frame_buffer_size", DefaultFrameBufferSize)

	for _, dir := range []string{"mic", "speaker"} {
		v.SetDefault(dir+".channels", driver.ChannelsAny)
		v.SetDefault(dir+".bits", driver.BitsAny)
		v.SetDefault(dir+".sample_rate", driver.SampleRateAny)
		v.SetDefault(dir+".buffer_size", driver.DefaultAudioBufferSize)
	}

	v.SetDefault("device.connect_timeout", 5*time.Second)
	v.SetDefault("device.connect_delay", driver.DefaultConnectDelay)
	v.SetDefault("device.mic_period", driver.DefaultMicPeriod)
	v.SetDefault("device.speaker_period", driver.DefaultSpeakerPeriod)
}

// Override sets a value above every other source, typically from a
// command-line flag.
type Override func(v *viper.Viper)

// WithLogLevel overrides log.level.
func WithLogLevel(level string) Override {
	return func(v *viper.Viper) { v.Set("log.level", level) }
}

// WithLogFormat overrides log.format.
func WithLogFormat(format string) Override {
	return func(v *viper.Viper) { v.Set("log.format", format) }
}

// Load reads the configuration. If path is empty, usbstream.yaml is looked
// up in SearchPaths and a missing file is not an error; a named file must
// exist. Environment variables override the file, and overrides win over
// both.
func Load(path string, overrides ...Override) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("usbstream")
		v.SetConfigType("yaml")
		for _, p := range SearchPaths() {
			v.AddConfigPath(p)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	for _, o := range overrides {
		o(v)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.File = v.ConfigFileUsed()
	cfg.settings = v.AllSettings()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pkg.LogDebug(pkg.ComponentConfig, "configuration loaded", "file", cfg.File)
	return &cfg, nil
}

// Validate checks the settings that have no negotiable meaning.
func (c *Config) Validate() error {
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log format %q", pkg.ErrInvalidParameter, c.Log.Format)
	}
	if c.Video.Enabled {
		if c.Video.FPS <= 0 {
			return fmt.Errorf("%w: video fps %d", pkg.ErrInvalidParameter, c.Video.FPS)
		}
		if c.Video.TransferBufferSize <= 0 || c.Video.FrameBufferSize <= 0 {
			return fmt.Errorf("%w: video buffer sizes must be positive", pkg.ErrInvalidParameter)
		}
	}
	return nil
}

// LogLevel parses the configured log level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", pkg.ErrInvalidParameter, c.Log.Level)
	}
	return level, nil
}

// LogFormat returns the configured log format.
func (c *Config) LogFormat() pkg.LogFormat {
	if c.Log.Format == "json" {
		return pkg.LogFormatJSON
	}
	return pkg.LogFormatText
}

// VideoConfig allocates the transfer and frame buffers and returns the video
// configuration.
func (c *Config) VideoConfig() stream.VideoConfig {
	return stream.VideoConfig{
		Width:              c.Video.Width,
		Height:             c.Video.Height,
		Interval:           driver.FPSInterval(c.Video.FPS),
		TransferBufferSize: c.Video.TransferBufferSize,
		TransferBufferA:    make([]byte, c.Video.TransferBufferSize),
		TransferBufferB:    make([]byte, c.Video.TransferBufferSize),
		FrameBufferSize:    c.Video.FrameBufferSize,
		FrameBuffer:        make([]byte, c.Video.FrameBufferSize),
	}
}

func (a Audio) format() driver.AudioFormat {
	return driver.AudioFormat{
		Channels:      a.Channels,
		BitResolution: a.Bits,
		SampleRate:    a.SampleRate,
		BufferSize:    a.BufferSize,
	}
}

// AudioConfig returns the mic and speaker configuration.
func (c *Config) AudioConfig() stream.AudioConfig {
	return stream.AudioConfig{Mic: c.Mic.format(), Speaker: c.Speaker.format()}
}

// AudioEnabled reports whether either UAC direction has a buffer.
func (c *Config) AudioEnabled() bool {
	return c.Mic.BufferSize > 0 || c.Speaker.BufferSize > 0
}

// SimOptions returns options for the simulated device.
func (c *Config) SimOptions(logger *slog.Logger) sim.Options {
	return sim.Options{
		ConnectDelay:  c.Device.ConnectDelay,
		MicPeriod:     c.Device.MicPeriod,
		SpeakerPeriod: c.Device.SpeakerPeriod,
		Logger:        logger,
	}
}

// WriteYAML writes the effective settings, after defaults and environment
// overrides, as YAML.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(printable(c.settings)); err != nil {
		return errors.Wrap(err, "encode config")
	}
	return enc.Close()
}

// printable renders durations in their string form so they read back as
// durations.
func printable(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch x := v.(type) {
		case map[string]any:
			out[k] = printable(x)
		case time.Duration:
			out[k] = x.String()
		default:
			out[k] = v
		}
	}
	return out
}
