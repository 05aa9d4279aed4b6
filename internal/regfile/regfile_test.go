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

package regfile

import (
	"io"
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func selectBank(f *File, bank int) {
	status := f.DirectRead(0, StatusAddr)
	status &^= StatusRP0 | StatusRP1
	status |= byte(bank&0x3) << 5
	f.DirectWrite(0, StatusAddr, status)
}

func TestPowerOnStatus(t *testing.T) {
	f := New(discardLogger())
	if got := f.DirectRead(0, StatusAddr); got != StatusInitial {
		t.Errorf("STATUS = %#02x, want %#02x", got, StatusInitial)
	}
}

func TestBankedAccessFollowsStatusBank(t *testing.T) {
	f := New(discardLogger())
	// A plain, unaliased RAM cell (0x20) is genuinely distinct per bank.
	selectBank(f, 0)
	f.BankedWrite(0x20, 0x11)
	selectBank(f, 1)
	f.BankedWrite(0x20, 0x22)
	selectBank(f, 0)
	if got := f.BankedRead(0x20); got != 0x11 {
		t.Errorf("bank 0 addr 0x20 = %#02x, want 0x11", got)
	}
	selectBank(f, 1)
	if got := f.BankedRead(0x20); got != 0x22 {
		t.Errorf("bank 1 addr 0x20 = %#02x, want 0x22", got)
	}
}

func TestCoreSFRsAliasBank0(t *testing.T) {
	f := New(discardLogger())
	selectBank(f, 0)
	f.BankedWrite(PCLATHAddr, 0x05)
	selectBank(f, 2)
	if got := f.BankedRead(PCLATHAddr); got != 0x05 {
		t.Errorf("bank 2 PCLATH = %#02x, want 0x05 (aliased to bank 0)", got)
	}
	selectBank(f, 3)
	f.BankedWrite(INTCONAddr, 0x80)
	selectBank(f, 0)
	if got := f.BankedRead(INTCONAddr); got != 0x80 {
		t.Errorf("bank 0 INTCON = %#02x, want 0x80 (written through bank 3 alias)", got)
	}
}

func TestTMR0AliasesBank0(t *testing.T) {
	f := New(discardLogger())
	f.DirectWrite(0, TMR0Addr, 0x42)
	if got := f.DirectRead(2, TMR0Addr); got != 0x42 {
		t.Errorf("bank 2 TMR0 = %#02x, want 0x42", got)
	}
}

func TestOptionRegAliasesBank1(t *testing.T) {
	f := New(discardLogger())
	f.DirectWrite(1, OptionRegAddr, 0x07)
	if got := f.DirectRead(3, OptionRegAddr); got != 0x07 {
		t.Errorf("bank 3 OPTION_REG = %#02x, want 0x07", got)
	}
}

func TestCommonRAMWindowAliasesBank0(t *testing.T) {
	f := New(discardLogger())
	f.DirectWrite(2, 0x75, 0x99)
	if got := f.DirectRead(0, 0x75); got != 0x99 {
		t.Errorf("bank 0 addr 0x75 = %#02x, want 0x99", got)
	}
	if got := f.DirectRead(3, 0x75); got != 0x99 {
		t.Errorf("bank 3 addr 0x75 = %#02x, want 0x99", got)
	}
}

func TestIndirectAddressingForwardsThroughFSR(t *testing.T) {
	f := New(discardLogger())
	// FSR = 0x20, IRP = 0 -> targets bank 0 addr 0x20.
	f.DirectWrite(0, FSRAddr, 0x20)
	f.DirectWrite(0, 0x20, 0x55)
	if got := f.DirectRead(0, IndfAddr); got != 0x55 {
		t.Errorf("INDF read = %#02x, want 0x55", got)
	}
	f.DirectWrite(0, IndfAddr, 0xAA)
	if got := f.DirectRead(0, 0x20); got != 0xAA {
		t.Errorf("addr 0x20 after INDF write = %#02x, want 0xAA", got)
	}
}

func TestIndirectAddressingUsesIRPForBank(t *testing.T) {
	f := New(discardLogger())
	// FSR = 0x10, IRP = 1 -> combined 9-bit address 0x110 -> bank 2 addr 0x10.
	f.DirectWrite(0, FSRAddr, 0x10)
	status := f.DirectRead(0, StatusAddr)
	f.DirectWrite(0, StatusAddr, status|StatusIRP)
	f.DirectWrite(2, 0x10, 0x77)
	if got := f.DirectRead(0, IndfAddr); got != 0x77 {
		t.Errorf("INDF with IRP set = %#02x, want 0x77", got)
	}
}

func TestIndirectThroughINDFItselfReadsZero(t *testing.T) {
	f := New(discardLogger())
	f.DirectWrite(0, FSRAddr, 0x00) // FSR points at INDF itself
	if got := f.DirectRead(0, IndfAddr); got != 0 {
		t.Errorf("self-referential INDF read = %#02x, want 0", got)
	}
}

func TestPeripheralHookInterceptsReadAndWrite(t *testing.T) {
	f := New(discardLogger())
	var seenWrite byte
	f.AttachPeripheral(0, 0x19, func(h Handle, bank, addr int, stored byte) byte {
		return stored | 0x80
	}, func(h Handle, bank, addr int, stored byte, data byte) byte {
		seenWrite = data
		return data &^ 0x01
	})
	f.DirectWrite(0, 0x19, 0xFF)
	if seenWrite != 0xFF {
		t.Errorf("write hook saw %#02x, want 0xFF", seenWrite)
	}
	if got := f.DirectRead(0, 0x19); got != (0xFE | 0x80) {
		t.Errorf("read hook result = %#02x, want %#02x", got, 0xFE|0x80)
	}
}

func TestHasInterruptFiredRequiresGIE(t *testing.T) {
	f := New(discardLogger())
	f.DirectWrite(0, INTCONAddr, IntconT0IE|IntconT0IF)
	if f.HasInterruptFired() {
		t.Error("interrupt should not fire with GIE clear")
	}
	f.DirectWrite(0, INTCONAddr, IntconGIE|IntconT0IE|IntconT0IF)
	if !f.HasInterruptFired() {
		t.Error("interrupt should fire: GIE and TMR0 pair set")
	}
}

func TestHasInterruptFiredPeripheralRequiresPEIE(t *testing.T) {
	f := New(discardLogger())
	f.DirectWrite(0, PIR1Addr, Pir1RCIF)
	f.DirectWrite(1, PIE1Addr, Pie1RCIE)
	f.DirectWrite(0, INTCONAddr, IntconGIE)
	if f.HasInterruptFired() {
		t.Error("peripheral interrupt should not fire without PEIE")
	}
	f.DirectWrite(0, INTCONAddr, IntconGIE|IntconPEIE)
	if !f.HasInterruptFired() {
		t.Error("peripheral interrupt should fire: GIE, PEIE, RCIE and RCIF all set")
	}
}

func TestFatalOnOutOfRangeBank(t *testing.T) {
	f := New(discardLogger())
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for out-of-range bank")
		}
		if _, ok := r.(*FatalError); !ok {
			t.Fatalf("recovered %T, want *FatalError", r)
		}
	}()
	f.DirectRead(Banks, 0)
}
