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

package eeprom

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/tgssim/tgssim/internal/regfile"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeSequence(rf *regfile.File, bytes ...byte) {
	rf.DirectWrite(1, regfile.SSPCON2Addr, regfile.SspCon2SEN)
	for _, b := range bytes {
		rf.DirectWrite(0, regfile.SSPBUFAddr, b)
	}
}

func TestWriteSequenceStoresDataAtAddress(t *testing.T) {
	rf := regfile.New(discardLogger())
	e := New(rf, discardLogger())

	// control byte, addr hi, addr lo, then the single terminal data byte.
	writeSequence(rf, 0xA0, 0x00, 0x10, 0x42)

	if e.data[0x10] != 0x42 {
		t.Errorf("data[0x10] = %#02x, want 0x42", e.data[0x10])
	}
	if e.state != stateAwaitDevice {
		t.Error("a data byte should return the cursor to AWAIT_DEVICE (sequential writes not modelled)")
	}
}

func TestSSPCON2OneShotBitsSelfClear(t *testing.T) {
	rf := regfile.New(discardLogger())
	New(rf, discardLogger())

	rf.DirectWrite(1, regfile.SSPCON2Addr, regfile.SspCon2SEN)

	if got := rf.DirectRead(1, regfile.SSPCON2Addr); got&regfile.SspCon2SEN != 0 {
		t.Error("SEN should self-clear after the write hook runs")
	}
}

func TestSSPCON2SetsSSPIF(t *testing.T) {
	rf := regfile.New(discardLogger())
	New(rf, discardLogger())

	rf.DirectWrite(1, regfile.SSPCON2Addr, regfile.SspCon2SEN)

	if got := rf.DirectRead(0, regfile.PIR1Addr); got&regfile.Pir1SSPIF == 0 {
		t.Error("SSPIF should be set after any SSPCON2 control bit is written")
	}
}

func TestSSPBUFWriteAlwaysSetsSSPIF(t *testing.T) {
	rf := regfile.New(discardLogger())
	New(rf, discardLogger())

	rf.DirectWrite(0, regfile.SSPBUFAddr, 0x00) // unrecognized device byte, still posts SSPIF
	if got := rf.DirectRead(0, regfile.PIR1Addr); got&regfile.Pir1SSPIF == 0 {
		t.Error("SSPIF should be set on every SSPBUF write")
	}
}

func TestDeviceByte0xA1ReadsAddressedByteAndAdvances(t *testing.T) {
	rf := regfile.New(discardLogger())
	e := New(rf, discardLogger())
	e.data[0x123] = 0xAB

	rf.DirectWrite(1, regfile.SSPCON2Addr, regfile.SspCon2SEN)
	rf.DirectWrite(0, regfile.SSPBUFAddr, 0xA0)
	rf.DirectWrite(0, regfile.SSPBUFAddr, 0x01)
	rf.DirectWrite(0, regfile.SSPBUFAddr, 0x23)
	rf.DirectWrite(1, regfile.SSPCON2Addr, regfile.SspCon2PEN)
	rf.DirectWrite(1, regfile.SSPCON2Addr, regfile.SspCon2SEN)
	rf.DirectWrite(0, regfile.SSPBUFAddr, 0xA1)

	if got := rf.DirectRead(0, regfile.SSPBUFAddr); got != 0xAB {
		t.Errorf("SSPBUF = %#02x, want 0xAB", got)
	}
	if e.addr != 0x124 {
		t.Errorf("address register = %#03x, want 0x124 after the read post-increments", e.addr)
	}
}

func TestDeviceByteUnrecognizedWarnsAndStays(t *testing.T) {
	rf := regfile.New(discardLogger())
	e := New(rf, discardLogger())

	rf.DirectWrite(1, regfile.SSPCON2Addr, regfile.SspCon2SEN)
	rf.DirectWrite(0, regfile.SSPBUFAddr, 0xFF)

	if e.state != stateAwaitDevice {
		t.Error("an unrecognized device byte should leave the cursor at AWAIT_DEVICE")
	}
}

func TestAddressWrapsAtArrayBoundary(t *testing.T) {
	rf := regfile.New(discardLogger())
	e := New(rf, discardLogger())

	writeSequence(rf, 0xA0, 0x0F, 0xFF, 0x11)

	if e.data[Size-1] != 0x11 {
		t.Errorf("data[last] = %#02x, want 0x11", e.data[Size-1])
	}

	// Reading the last byte post-increments the address past the array end.
	rf.DirectWrite(0, regfile.SSPBUFAddr, 0xA1)
	if e.addr != 0 {
		t.Errorf("address register = %#03x after reading the last byte, want 0 (wrapped)", e.addr)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	rf := regfile.New(discardLogger())
	e := New(rf, discardLogger())
	writeSequence(rf, 0xA0, 0x00, 0x00, 0x9A)

	path := filepath.Join(t.TempDir(), "eeprom.bin")
	if err := e.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rf2 := regfile.New(discardLogger())
	e2 := New(rf2, discardLogger())
	if err := e2.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if e2.data[0] != 0x9A {
		t.Errorf("loaded data[0] = %#02x, want 0x9A", e2.data[0])
	}
}

func TestLoadRejectsWrongSizedImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.bin")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatal(err)
	}
	rf := regfile.New(discardLogger())
	e := New(rf, discardLogger())
	if err := e.Load(path); err == nil {
		t.Fatal("expected error loading a wrong-sized image")
	}
}
