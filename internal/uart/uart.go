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

// Package uart implements the PIC16F876-class EUSART peripheral used by
// the firmware's console: TXREG transmits immediately to the attached
// writer, RCREG delivers bytes pushed in from outside the CPU goroutine.
package uart

import (
	"io"
	"log/slog"

	"github.com/tgssim/tgssim/internal/regfile"
)

// UART wires TXREG/RCREG into the shared register file and transmits
// bytes written to TXREG straight through to out (the console).
type UART struct {
	rf  *regfile.File
	log *slog.Logger
	out io.Writer
}

// New attaches the UART's peripheral hooks to rf and returns the device.
func New(rf *regfile.File, log *slog.Logger, out io.Writer) *UART {
	u := &UART{rf: rf, log: log, out: out}
	rf.AttachPeripheral(0, regfile.TXREGAddr, nil, u.onWriteTXREG)
	rf.AttachPeripheral(0, regfile.RCREGAddr, u.onReadRCREG, nil)
	rf.AttachPeripheral(1, regfile.TXSTAAddr, nil, u.onWriteTXSTA)
	return u
}

// onWriteTXREG transmits data immediately (the emulator has no baud-rate
// timing to model) and raises TXIF to signal the byte is "sent".
func (u *UART) onWriteTXREG(h regfile.Handle, bank, addr int, stored, data byte) byte {
	if _, err := u.out.Write([]byte{data}); err != nil {
		u.log.Warn("uart transmit failed", "error", err)
	}
	pir1 := h.DirectRead(0, regfile.PIR1Addr)
	h.DirectWrite(0, regfile.PIR1Addr, pir1|regfile.Pir1TXIF)
	return data
}

// onWriteTXSTA stores the byte and, if TXEN is newly set, raises TXIF —
// the transmitter reporting itself ready the instant it is enabled, since
// there is no baud-rate clock to wait on (spec §4.3).
func (u *UART) onWriteTXSTA(h regfile.Handle, bank, addr int, stored, data byte) byte {
	wasEnabled := stored&regfile.TxstaTXEN != 0
	nowEnabled := data&regfile.TxstaTXEN != 0
	if nowEnabled && !wasEnabled {
		pir1 := h.DirectRead(0, regfile.PIR1Addr)
		h.DirectWrite(0, regfile.PIR1Addr, pir1|regfile.Pir1TXIF)
	}
	return data
}

// onReadRCREG clears RCIF: reading the received byte acknowledges it.
func (u *UART) onReadRCREG(h regfile.Handle, bank, addr int, stored byte) byte {
	pir1 := h.DirectRead(0, regfile.PIR1Addr)
	h.DirectWrite(0, regfile.PIR1Addr, pir1&^regfile.Pir1RCIF)
	return stored
}

// ReceiveByte delivers a byte from outside the CPU goroutine (the console
// input pump) into RCREG and raises RCIF. This is the locking entry point
// console input uses; it never runs inside the register-file lock itself.
func (u *UART) ReceiveByte(b byte) {
	u.rf.DirectWrite(0, regfile.RCREGAddr, b)
	pir1 := u.rf.DirectRead(0, regfile.PIR1Addr)
	u.rf.DirectWrite(0, regfile.PIR1Addr, pir1|regfile.Pir1RCIF)
}
