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

// Package progmem implements the PIC16F876-class 14-bit Flash program
// memory: a dense array of 8192 words, read-only at runtime once loaded.
package progmem

import "log/slog"

// Size is the number of 14-bit instruction words the device holds.
const Size = 8192

// Erased is the value an unwritten (erased) Flash location reads as.
const Erased uint16 = 0x3FFF

// Memory is the flat array of 14-bit program words.
type Memory struct {
	words [Size]uint16
	log   *slog.Logger
}

// New builds an all-erased program memory.
func New(log *slog.Logger) *Memory {
	m := &Memory{log: log}
	for i := range m.words {
		m.words[i] = Erased
	}
	return m
}

// Read returns the 14-bit word at addr. An out-of-range address is a
// non-fatal warning that returns the erased-Flash value.
func (m *Memory) Read(addr uint16) uint16 {
	if int(addr) >= Size {
		m.log.Warn("program memory read out of range", "address", addr)
		return Erased
	}
	return m.words[addr] & 0x3FFF
}

// Write stores a 14-bit word at addr, used only while loading a HEX file.
// An out-of-range address here is a fatal condition: the caller (the HEX
// loader) has already promised addr < Size.
func (m *Memory) Write(addr uint16, word uint16) {
	m.words[addr] = word & 0x3FFF
}
