package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var _ slog.Handler = (*ConsoleHandler)(nil)

// ConsoleOptions configures a ConsoleHandler.
type ConsoleOptions struct {
	Level     slog.Leveler
	Color     bool
	AddSource bool
}

type consoleStyles struct {
	time  lipgloss.Style
	key   lipgloss.Style
	msg   lipgloss.Style
	trace lipgloss.Style
	debug lipgloss.Style
	info  lipgloss.Style
	warn  lipgloss.Style
	error lipgloss.Style
}

func newConsoleStyles(w io.Writer) *consoleStyles {
	r := lipgloss.NewRenderer(w)
	return &consoleStyles{
		time:  r.NewStyle().Foreground(lipgloss.Color("#8A8A8A")),
		key:   r.NewStyle().Foreground(lipgloss.Color("#7D56F4")),
		msg:   r.NewStyle().Bold(true),
		trace: r.NewStyle().Foreground(lipgloss.Color("#5F5F5F")),
		debug: r.NewStyle().Foreground(lipgloss.Color("#6EC4F4")),
		info:  r.NewStyle().Foreground(lipgloss.Color("#6EF4A1")),
		warn:  r.NewStyle().Foreground(lipgloss.Color("#F4D06E")),
		error: r.NewStyle().Foreground(lipgloss.Color("#F45E6E")).Bold(true),
	}
}

// ConsoleHandler writes one human-readable line per record:
//
//	15:04:05.000 INFO  order dispatched dish=Pasta cook=:00000003
type ConsoleHandler struct {
	opts   ConsoleOptions
	styles *consoleStyles

	// preformatted attrs from WithAttrs
	attrs  string
	prefix string

	mu *sync.Mutex
	w  io.Writer
}

// NewConsoleHandler creates a ConsoleHandler writing to w.
func NewConsoleHandler(w io.Writer, opts ConsoleOptions) *ConsoleHandler {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	return &ConsoleHandler{
		opts:   opts,
		styles: newConsoleStyles(w),
		mu:     &sync.Mutex{},
		w:      w,
	}
}

// Enabled implements slog.Handler.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

// Handle implements slog.Handler.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	if !r.Time.IsZero() {
		buf.WriteString(h.paint(h.styles.time, r.Time.Format("15:04:05.000")))
		buf.WriteByte(' ')
	}
	buf.WriteString(h.paint(h.levelStyle(r.Level), fmt.Sprintf("%-5s", LevelName(r.Level))))
	buf.WriteByte(' ')
	buf.WriteString(h.paint(h.styles.msg, r.Message))

	if h.opts.AddSource && r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		buf.WriteByte(' ')
		buf.WriteString(h.paint(h.styles.key, "source="))
		fmt.Fprintf(&buf, "%s:%d", filepath.Base(frame.File), frame.Line)
	}

	buf.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&buf, h.prefix, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// WithAttrs implements slog.Handler.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var buf bytes.Buffer
	for _, a := range attrs {
		h.appendAttr(&buf, h.prefix, a)
	}
	h2 := *h
	h2.attrs = h.attrs + buf.String()
	return &h2
}

// WithGroup implements slog.Handler.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

func (h *ConsoleHandler) appendAttr(buf *bytes.Buffer, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range group {
			h.appendAttr(buf, prefix, ga)
		}
		return
	}

	buf.WriteByte(' ')
	buf.WriteString(h.paint(h.styles.key, prefix+a.Key+"="))
	buf.WriteString(formatValue(a.Value))
}

func formatValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindTime:
		s = v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		s = v.Duration().String()
	default:
		s = v.String()
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}

func (h *ConsoleHandler) levelStyle(level slog.Level) lipgloss.Style {
	switch {
	case level < slog.LevelDebug:
		return h.styles.trace
	case level < slog.LevelInfo:
		return h.styles.debug
	case level < slog.LevelWarn:
		return h.styles.info
	case level < slog.LevelError:
		return h.styles.warn
	default:
		return h.styles.error
	}
}

func (h *ConsoleHandler) paint(style lipgloss.Style, s string) string {
	if !h.opts.Color {
		return s
	}
	return style.Render(s)
}
