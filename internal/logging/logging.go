/*
 * Copyright 2026, TGSSim contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package logging wraps log/slog with the line format the simulator's log
// file uses: "[FUNCTION:LINE] message".
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync"
)

// Level is the simulator's own three-step log level, matching spec's CLI
// LOG_LEVEL argument: 0=error, 1=warning, 2=debug.
type Level int

const (
	LevelError   Level = 0
	LevelWarning Level = 1
	LevelDebug   Level = 2
)

// ParseLevel validates a LOG_LEVEL command line argument.
func ParseLevel(n int) (Level, error) {
	switch n {
	case 0:
		return LevelError, nil
	case 1:
		return LevelWarning, nil
	case 2:
		return LevelDebug, nil
	default:
		return 0, fmt.Errorf("log level must be 0 (error), 1 (warning) or 2 (debug), got %d", n)
	}
}

func (l Level) slogThreshold() slog.Level {
	switch l {
	case LevelError:
		return slog.LevelError
	case LevelWarning:
		return slog.LevelWarn
	default:
		return slog.LevelDebug
	}
}

// handler formats each record as "[FUNCTION:LINE] message attr=value ...".
type handler struct {
	mu        *sync.Mutex
	out       io.Writer
	threshold slog.Level
	attrs     []slog.Attr
}

// NewHandler builds a handler writing to out, gated at the given level.
func NewHandler(out io.Writer, level Level) slog.Handler {
	return &handler{
		mu:        &sync.Mutex{},
		out:       out,
		threshold: level.slogThreshold(),
	}
}

func (h *handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.threshold
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &handler{mu: h.mu, out: h.out, threshold: h.threshold, attrs: merged}
}

func (h *handler) WithGroup(_ string) slog.Handler {
	// Groups are not used by this simulator's logging call sites.
	return h
}

func (h *handler) Handle(_ context.Context, r slog.Record) error {
	loc := "[unknown:0]"
	if r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		frame, _ := frames.Next()
		loc = fmt.Sprintf("[%s:%d]", shortFuncName(frame.Function), frame.Line)
	}

	var sb strings.Builder
	sb.WriteString(loc)
	sb.WriteByte(' ')
	sb.WriteString(r.Message)

	for _, a := range h.attrs {
		sb.WriteByte(' ')
		sb.WriteString(a.String())
	}
	r.Attrs(func(a slog.Attr) bool {
		sb.WriteByte(' ')
		sb.WriteString(a.String())
		return true
	})
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, sb.String())
	return err
}

// shortFuncName trims a fully qualified function name down to "Type.Method"
// or "function", dropping the package path.
func shortFuncName(full string) string {
	if i := strings.LastIndex(full, "/"); i >= 0 {
		full = full[i+1:]
	}
	if i := strings.Index(full, "."); i >= 0 {
		full = full[i+1:]
	}
	return full
}

// New builds the simulator's shared *slog.Logger, writing to file at level.
func New(file io.Writer, level Level) *slog.Logger {
	return slog.New(NewHandler(file, level))
}
