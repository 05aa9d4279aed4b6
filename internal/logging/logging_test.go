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

package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in      int
		want    Level
		wantErr bool
	}{
		{0, LevelError, false},
		{1, LevelWarning, false},
		{2, LevelDebug, false},
		{3, 0, true},
		{-1, 0, true},
	}
	for _, c := range cases {
		got, err := ParseLevel(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseLevel(%d): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseLevel(%d): unexpected error %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ParseLevel(%d) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestHandlerGatesByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelWarning)

	logger.Debug("should be dropped")
	if buf.Len() != 0 {
		t.Fatalf("debug message leaked through warning threshold: %q", buf.String())
	}

	logger.Warn("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Fatalf("warning message missing from output: %q", buf.String())
	}
}

func TestHandlerFormatsFunctionLine(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelDebug)

	logger.Error("boom")
	out := buf.String()
	if !strings.HasPrefix(out, "[") {
		t.Fatalf("expected line to start with [FUNCTION:LINE], got %q", out)
	}
	if !strings.Contains(out, "TestHandlerFormatsFunctionLine") {
		t.Fatalf("expected caller function name in output, got %q", out)
	}
}

func TestWithAttrsCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelDebug).With(slog.String("component", "uart"))

	logger.Info("byte received")
	if !strings.Contains(buf.String(), "component=uart") {
		t.Fatalf("expected attr in output, got %q", buf.String())
	}
}
