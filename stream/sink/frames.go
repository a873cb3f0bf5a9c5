package sink

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/ardnew/usbstream/pkg"
	"github.com/ardnew/usbstream/stream/driver"
)

// FrameWriterOptions configures a FrameWriter.
type FrameWriterOptions struct {
	// Fs is the filesystem written to. Defaults to the OS filesystem.
	Fs afero.Fs

	// Prefix names the files: <Prefix>-<n>.<ext>. Defaults to "frame".
	Prefix string

	// Limit stops writing after this many frames. Zero means no limit.
	Limit int

	Logger *slog.Logger
}

// FrameWriter stores each video frame it receives as a numbered file in a
// directory, with an extension chosen from the frame format.
type FrameWriter struct {
	fs     afero.Fs
	dir    string
	prefix string
	limit  int
	count  int
	log    *slog.Logger
	mu     sync.Mutex
}

// NewFrameWriter creates a writer into dir, creating the directory if
// needed.
func NewFrameWriter(dir string, opts FrameWriterOptions) (*FrameWriter, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Prefix == "" {
		opts.Prefix = "frame"
	}
	if err := opts.Fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FrameWriter{
		fs:     opts.Fs,
		dir:    dir,
		prefix: opts.Prefix,
		limit:  opts.Limit,
		log:    pkg.ForComponent(opts.Logger, pkg.ComponentSink).With("sink", "frames"),
	}, nil
}

// extension returns the file extension for a frame format.
func extension(f driver.Format) string {
	switch f {
	case driver.FormatMJPEG:
		return "jpg"
	case driver.FormatYUY2:
		return "yuv"
	case driver.FormatH264:
		return "h264"
	case driver.FormatPCM:
		return "pcm"
	}
	return "bin"
}

// WriteFrame writes f to the next numbered file and returns its path. Once
// the limit is reached it returns an empty path and writes nothing.
func (w *FrameWriter) WriteFrame(f *driver.Frame) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.limit > 0 && w.count >= w.limit {
		return "", nil
	}
	name := filepath.Join(w.dir, fmt.Sprintf("%s-%06d.%s", w.prefix, w.count, extension(f.Format)))
	if err := afero.WriteFile(w.fs, name, f.Data, 0o644); err != nil {
		return "", err
	}
	w.count++
	w.log.Debug("frame written", "path", name, "bytes", len(f.Data),
		"width", f.Width, "height", f.Height)
	return name, nil
}

// HandleFrame has the signature of a stream frame callback. Write errors
// are logged.
func (w *FrameWriter) HandleFrame(f *driver.Frame, _ any) {
	if _, err := w.WriteFrame(f); err != nil {
		w.log.Warn("frame write failed", "seq", f.Sequence, "error", err)
	}
}

// Count returns the number of frames written.
func (w *FrameWriter) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}
