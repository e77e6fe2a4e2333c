package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"slices"
)

// createHandler builds the handler of a module logger. Records go to stdout
// unless it is closed, to the journal when journald is reachable, to the
// rotated file when one is configured, and always to the ring buffer.
// Must be called with mutex held.
func createHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var sinks fanout
	if isStdoutAvailable() {
		sinks = append(sinks, newFormatHandler(os.Stdout, format, opts))
	}
	if IsJournalAvailable() {
		sinks = append(sinks, NewJournalHandler(level))
	}
	if logFile != nil {
		sinks = append(sinks, newFormatHandler(logFile, format, opts))
	}
	sinks = append(sinks, NewBufferHandler(level))

	if len(sinks) == 1 {
		return sinks[0]
	}
	return sinks
}

func newFormatHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// isStdoutAvailable is false when stdout is closed or /dev/null, as under
// systemd with StandardOutput=null.
func isStdoutAvailable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&(os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0 || mode.IsRegular()
}

// fanout passes every record to each sink that accepts its level. A failing
// sink does not keep the record from the others.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(f, func(h slog.Handler) bool {
		return h.Enabled(ctx, level)
	})
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
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(derive func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = derive(h)
	}
	return out
}
