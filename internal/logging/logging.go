// Package logging builds the client's structured logger. Records are written
// as JSON lines to a file, since the terminal belongs to the UI. When a
// Rollbar token is configured, error records are also forwarded to Rollbar.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rollbar/rollbar-go"
)

// Options configures New.
type Options struct {
	Path         string
	Level        slog.Level
	RollbarToken string
	Environment  string
	Version      string
}

// Reporter receives forwarded error records.
type Reporter interface {
	MessageWithExtras(level string, msg string, extras map[string]interface{})
}

// New opens the log file and returns a logger writing to it. The returned
// close func flushes Rollbar and closes the file.
func New(opts Options) (*slog.Logger, func() error, error) {
	if opts.Path == "" {
		return nil, nil, errors.New("log path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	handler := NewHandler(file, opts.Level)
	closers := []func() error{file.Close}
	if opts.RollbarToken != "" {
		host, _ := os.Hostname()
		client := rollbar.New(opts.RollbarToken, opts.Environment, opts.Version, host, "")
		handler = NewForwarder(handler, client)
		closers = append([]func() error{client.Close}, closers...)
	}

	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}
	return slog.New(handler).With("pid", os.Getpid()), closeAll, nil
}

// NewHandler returns the JSON handler used for the log file.
func NewHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

// Forwarder passes every record to the wrapped handler and additionally
// sends records at slog.LevelError and above to a Reporter.
type Forwarder struct {
	next   slog.Handler
	sink   Reporter
	attrs  []slog.Attr
	prefix string
}

// NewForwarder wraps next.
func NewForwarder(next slog.Handler, sink Reporter) *Forwarder {
	return &Forwarder{next: next, sink: sink}
}

// Enabled implements slog.Handler.
func (f *Forwarder) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= slog.LevelError || f.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (f *Forwarder) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if f.next.Enabled(ctx, r.Level) {
		err = f.next.Handle(ctx, r)
	}
	if r.Level < slog.LevelError {
		return err
	}

	extras := make(map[string]interface{}, len(f.attrs)+r.NumAttrs())
	for _, a := range f.attrs {
		addExtra(extras, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addExtra(extras, f.prefix, a)
		return true
	})
	f.sink.MessageWithExtras(rollbar.ERR, r.Message, extras)
	return err
}

// WithAttrs implements slog.Handler.
func (f *Forwarder) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *f
	next.next = f.next.WithAttrs(attrs)
	next.attrs = append([]slog.Attr(nil), f.attrs...)
	for _, a := range attrs {
		if f.prefix != "" {
			a.Key = f.prefix + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

// WithGroup implements slog.Handler.
func (f *Forwarder) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	next := *f
	next.next = f.next.WithGroup(name)
	next.prefix = f.prefix + name + "."
	return &next
}

func addExtra(extras map[string]interface{}, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range v.Group() {
			addExtra(extras, p, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	switch v.Kind() {
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			extras[prefix+a.Key] = err.Error()
			return
		}
		extras[prefix+a.Key] = v.String()
	default:
		extras[prefix+a.Key] = v.Any()
	}
}
