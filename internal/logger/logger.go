package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	reset     = "\033[0m"
	red       = "\033[31m"
	green     = "\033[32m"
	yellow    = "\033[33m"
	magenta   = "\033[35m"
	cyan      = "\033[36m"
	white     = "\033[37m"
	boldBlue  = "\033[1;34m"
	boldWhite = "\033[1;37m"
)

var levelColors = map[slog.Level]string{
	slog.LevelDebug: cyan,
	slog.LevelInfo:  green,
	slog.LevelWarn:  yellow,
	slog.LevelError: red,
}

// Keys printed as a bracketed prefix instead of key=value.
var prefixKeys = map[string]bool{"run_id": true, "candidate": true}

// ColoredHandler writes one colored line per record for terminals.
type ColoredHandler struct {
	opts  slog.HandlerOptions
	out   io.Writer
	mu    *sync.Mutex
	attrs []slog.Attr
	group string
}

func NewColoredHandler(w io.Writer, opts *slog.HandlerOptions) *ColoredHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &ColoredHandler{opts: *opts, out: w, mu: &sync.Mutex{}}
}

func (h *ColoredHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *ColoredHandler) Handle(_ context.Context, r slog.Record) error {
	levelColor, ok := levelColors[r.Level]
	if !ok {
		levelColor = white
	}

	var line strings.Builder
	fmt.Fprintf(&line, "%s%s%s ", magenta, r.Time.Format("15:04:05.000"), reset)
	fmt.Fprintf(&line, "%s%-6s%s ", levelColor, strings.ToUpper(r.Level.String()), reset)

	var rest []slog.Attr
	collect := func(a slog.Attr) bool {
		if prefixKeys[a.Key] && a.Value.Kind() == slog.KindString {
			fmt.Fprintf(&line, "%s[%s]%s ", boldBlue, a.Value.String(), reset)
			return true
		}
		rest = append(rest, a)
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	fmt.Fprintf(&line, "%s%s%s", boldWhite, r.Message, reset)

	for _, a := range rest {
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		val := a.Value.Resolve().String()
		if a.Value.Kind() == slog.KindString {
			val = fmt.Sprintf("%q", val)
		}
		fmt.Fprintf(&line, " %s%s%s=%s", yellow, key, reset, val)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.out, line.String())
	return err
}

func (h *ColoredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &nh
}

func (h *ColoredHandler) WithGroup(name string) slog.Handler {
	nh := *h
	if nh.group != "" {
		name = nh.group + "." + name
	}
	nh.group = name
	return &nh
}

// fanout sends every record to all handlers that want it.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

type Options struct {
	Debug  bool
	LogDir string // empty disables the file sink
}

// Setup builds the process logger: colored stdout plus, when LogDir is set,
// a plain text file jobbot_YYYYMMDD_HHMMSS.log. The returned close func
// flushes the file.
func Setup(opts Options) (*slog.Logger, func() error, error) {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}

	handlers := fanout{NewColoredHandler(os.Stdout, hopts)}
	closeFn := func() error { return nil }

	if opts.LogDir != "" {
		if err := os.MkdirAll(opts.LogDir, 0o755); err != nil {
			return nil, nil, err
		}
		name := fmt.Sprintf("jobbot_%s.log", time.Now().Format("20060102_150405"))
		f, err := os.OpenFile(filepath.Join(opts.LogDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, hopts))
		closeFn = f.Close
	}

	l := slog.New(handlers)
	slog.SetDefault(l)
	return l, closeFn, nil
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
