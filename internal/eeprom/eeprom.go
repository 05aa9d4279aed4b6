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

// Package eeprom emulates the 24LC32-class 4 Kbyte I2C EEPROM the
// firmware uses for persistent storage, driven entirely through writes to
// SSPCON2 (start/stop/restart/receive control) and SSPBUF (the byte
// shifted in or out). There is no real I2C clock to model: each SSPBUF or
// SSPCON2 write takes effect the instant the register-file write lands.
package eeprom

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/tgssim/tgssim/internal/regfile"
)

// Size is the EEPROM's byte capacity.
const Size = 4096

// addrMask wraps the 12-bit address register at 4096, matching the real
// part's page/array wraparound rather than saturating or decrementing.
const addrMask = Size - 1

type protocolState int

const (
	stateAwaitDevice protocolState = iota
	stateAwaitAddrHi
	stateAwaitAddrLo
	stateAwaitData
)

// EEPROM holds the backing byte array and the protocol cursor SSPCON2/
// SSPBUF writes drive forward.
type EEPROM struct {
	rf  *regfile.File
	log *slog.Logger

	data [Size]byte

	state       protocolState
	addr        uint16
	addrHi      byte
	pendingByte byte // what the next SSPBUF read returns
}

// New attaches the EEPROM's SSPCON2/SSPBUF hooks to rf.
func New(rf *regfile.File, log *slog.Logger) *EEPROM {
	e := &EEPROM{rf: rf, log: log}
	rf.AttachPeripheral(0, regfile.SSPBUFAddr, e.onReadSSPBUF, e.onWriteSSPBUF)
	rf.AttachPeripheral(1, regfile.SSPCON2Addr, nil, e.onWriteSSPCON2)
	return e
}

func (e *EEPROM) onReadSSPBUF(h regfile.Handle, bank, addr int, stored byte) byte {
	return e.pendingByte
}

// onWriteSSPBUF advances the protocol cursor by state (spec §4.6): the
// device-select byte (0xA1 triggers an addressed read, 0xA0 starts an
// address load), the two address bytes, then a single terminal data byte
// that returns the cursor to AWAIT_DEVICE — sequential writes are not
// modelled. Every SSPBUF write sets PIR1.SSPIF regardless of state.
func (e *EEPROM) onWriteSSPBUF(h regfile.Handle, bank, addr int, stored, data byte) byte {
	switch e.state {
	case stateAwaitDevice:
		switch data {
		case 0xA1:
			e.pendingByte = e.data[e.addr]
			e.addr = (e.addr + 1) & addrMask
		case 0xA0:
			e.state = stateAwaitAddrHi
		default:
			e.log.Warn("eeprom: unexpected device byte in AWAIT_DEVICE", "byte", data)
		}
	case stateAwaitAddrHi:
		e.addrHi = data
		e.state = stateAwaitAddrLo
	case stateAwaitAddrLo:
		e.addr = (uint16(e.addrHi)<<8 | uint16(data)) & addrMask
		e.state = stateAwaitData
	case stateAwaitData:
		e.data[e.addr] = data
		e.state = stateAwaitDevice
	}
	e.setSSPIF(h)
	return data
}

// onWriteSSPCON2 handles the start/stop/restart/receive/ack control bits.
// Setting any of them posts PIR1.SSPIF; PEN and RSEN additionally reset the
// cursor to AWAIT_DEVICE. ACKEN/PEN/RSEN/SEN are one-shot and self-clear in
// the stored byte; RCEN is left alone — the EEPROM doesn't drive a read off
// RCEN, the AWAIT_DEVICE/0xA1 SSPBUF sequence does (spec §4.6).
func (e *EEPROM) onWriteSSPCON2(h regfile.Handle, bank, addr int, stored, data byte) byte {
	controlBits := regfile.SspCon2ACKEN | regfile.SspCon2RCEN | regfile.SspCon2PEN | regfile.SspCon2RSEN | regfile.SspCon2SEN
	if data&controlBits != 0 {
		e.setSSPIF(h)
	}
	if data&(regfile.SspCon2PEN|regfile.SspCon2RSEN) != 0 {
		e.state = stateAwaitDevice
	}
	oneShot := regfile.SspCon2ACKEN | regfile.SspCon2PEN | regfile.SspCon2RSEN | regfile.SspCon2SEN
	return data &^ oneShot
}

func (e *EEPROM) setSSPIF(h regfile.Handle) {
	pir1 := h.DirectRead(0, regfile.PIR1Addr)
	h.DirectWrite(0, regfile.PIR1Addr, pir1|regfile.Pir1SSPIF)
}

// Load replaces the EEPROM's contents with the exact Size-byte image at
// path. A file of any other length is a fatal Config/IO error (spec §7).
func (e *EEPROM) Load(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("loading eeprom image: %w", err)
	}
	if len(raw) != Size {
		return fmt.Errorf("eeprom image %q is %d bytes, want %d", path, len(raw), Size)
	}
	copy(e.data[:], raw)
	return nil
}

// Save writes the EEPROM's current contents back to path as a Size-byte
// image.
func (e *EEPROM) Save(path string) error {
	if err := os.WriteFile(path, e.data[:], 0o644); err != nil {
		return fmt.Errorf("saving eeprom image: %w", err)
	}
	return nil
}
