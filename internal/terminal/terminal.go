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

// Package terminal puts the controlling console into raw mode and pumps
// single bytes from stdin into the emulator: everything but two control
// characters is forwarded to the UART; Ctrl-C requests shutdown and
// Ctrl-D dumps the register file to the log (spec §6).
package terminal

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

const (
	byteQuit = 0x03 // Ctrl-C
	byteDump = 0x04 // Ctrl-D
)

// Terminal owns the raw-mode toggle for stdin.
type Terminal struct {
	fd       int
	oldState *term.State
	log      *slog.Logger
}

// New returns a Terminal bound to stdin.
func New(log *slog.Logger) *Terminal {
	return &Terminal{fd: int(os.Stdin.Fd()), log: log}
}

// EnterRawMode disables line buffering and echo so individual keystrokes
// reach Pump immediately.
func (t *Terminal) EnterRawMode() error {
	state, err := term.MakeRaw(t.fd)
	if err != nil {
		return err
	}
	t.oldState = state
	return nil
}

// Restore returns the terminal to its state from before EnterRawMode.
func (t *Terminal) Restore() {
	if t.oldState == nil {
		return
	}
	if err := term.Restore(t.fd, t.oldState); err != nil {
		t.log.Warn("failed to restore terminal state", "error", err)
	}
}

// Pump blocks reading single bytes from r until Ctrl-C is seen or r
// reaches EOF. onByte receives every byte that isn't one of the two
// control characters; onDump runs for Ctrl-D. The console-input goroutine
// calls this with os.Stdin; tests pass a strings.Reader instead.
func (t *Terminal) Pump(r io.Reader, onByte func(byte), onDump func()) {
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if err != nil {
			if err != io.EOF {
				t.log.Warn("console read failed", "error", err)
			}
			return
		}
		if n == 0 {
			continue
		}
		switch buf[0] {
		case byteQuit:
			return
		case byteDump:
			onDump()
		default:
			onByte(buf[0])
		}
	}
}
