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

// Package regfile implements the PIC16F876-class banked register file: a
// 4x128 byte matrix with per-cell read/write hooks, SFR aliasing across
// banks, indirect addressing through INDF/FSR/IRP, and the interrupt
// arbitration peripherals consult through the same shared state.
package regfile

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// Banks is the number of 128-byte register-file windows.
const Banks = 4

// RegistersPerBank is the width of one bank.
const RegistersPerBank = 128

// Register addresses shared by every PIC16F876 bank (values are the
// 7-bit in-bank offset; the owning bank is documented per constant).
const (
	IndfAddr    = 0x00 // all banks
	TMR0Addr    = 0x01 // bank 0; aliased from bank 2
	PCLAddr     = 0x02 // bank 0; aliased from banks 1-3
	StatusAddr  = 0x03 // bank 0; aliased from banks 1-3
	FSRAddr     = 0x04 // bank 0; aliased from banks 1-3
	PCLATHAddr  = 0x0A // bank 0; aliased from banks 1-3
	INTCONAddr  = 0x0B // bank 0; aliased from banks 1-3
	PIR1Addr    = 0x0C // bank 0
	TMR2Addr    = 0x11 // bank 0
	T2CONAddr   = 0x12 // bank 0
	SSPBUFAddr  = 0x13 // bank 0
	TXREGAddr   = 0x19 // bank 0
	RCREGAddr   = 0x1A // bank 0
	ADRESHAddr  = 0x1E // bank 0
	ADCON0Addr  = 0x1F // bank 0

	OptionRegAddr = 0x01 // bank 1; aliased from bank 3
	PIE1Addr      = 0x0C // bank 1
	SSPCON2Addr   = 0x11 // bank 1
	TXSTAAddr     = 0x18 // bank 1
	ADRESLAddr    = 0x1E // bank 1
)

// STATUS flag bits.
const (
	StatusC    byte = 1 << 0
	StatusDC   byte = 1 << 1
	StatusZ    byte = 1 << 2
	StatusRP0  byte = 1 << 5
	StatusRP1  byte = 1 << 6
	StatusIRP  byte = 1 << 7
)

// INTCON bits.
const (
	IntconRBIF byte = 1 << 0
	IntconINTF byte = 1 << 1
	IntconT0IF byte = 1 << 2
	IntconRBIE byte = 1 << 3
	IntconINTE byte = 1 << 4
	IntconT0IE byte = 1 << 5
	IntconPEIE byte = 1 << 6
	IntconGIE  byte = 1 << 7
)

// PIR1/PIE1 share bit positions between the flag and enable register.
const (
	Pir1SSPIF byte = 1 << 3
	Pir1TXIF  byte = 1 << 4
	Pir1RCIF  byte = 1 << 5

	Pie1SSPIE = Pir1SSPIF
	Pie1TXIE  = Pir1TXIF
	Pie1RCIE  = Pir1RCIF
)

// StatusInitial is the power-on-reset value of STATUS (TO and PD set).
const StatusInitial byte = 0x18

// OPTION_REG bits.
const (
	OptionPSMask byte = 0x07 // prescaler rate select, TMR0: rate = 2 << PS
	OptionPSA    byte = 1 << 3
)

// T2CON bits.
const (
	T2conTMR2ON byte = 1 << 2
)

// TXSTA bits.
const (
	TxstaTXEN byte = 1 << 5
)

// ADCON0 bits.
const (
	Adcon0ADON byte = 1 << 0
	Adcon0GO   byte = 1 << 2
)

// SSPCON2 bits.
const (
	SspCon2SEN   byte = 1 << 0
	SspCon2RSEN  byte = 1 << 1
	SspCon2PEN   byte = 1 << 2
	SspCon2RCEN  byte = 1 << 3
	SspCon2ACKEN byte = 1 << 4
)

type cellKind int

const (
	cellPlain cellKind = iota
	cellAlias
	cellIndirect
	cellPeripheral
)

// ReadHook is invoked when a peripheral-backed cell is read. stored is the
// cell's own storage slot; the hook's return value is what the reader sees.
type ReadHook func(h Handle, bank, addr int, stored byte) byte

// WriteHook is invoked when a peripheral-backed cell is written. It returns
// the value that ends up in the cell's storage slot (often data itself,
// sometimes a modified copy, e.g. SSPCON2 clearing its one-shot bits).
type WriteHook func(h Handle, bank, addr int, stored byte, data byte) byte

type hookPair struct {
	onRead  ReadHook
	onWrite WriteHook
}

// File is the whole banked register file: one mutex guards the 4x128
// matrix, matching spec's single-lock concurrency contract (spec §5).
type File struct {
	mu sync.Mutex

	storage   [Banks][RegistersPerBank]byte
	kind      [Banks][RegistersPerBank]cellKind
	aliasBank [Banks][RegistersPerBank]int
	hooks     [Banks][RegistersPerBank]hookPair

	log *slog.Logger
}

// FatalError marks an emulator-internal violation (spec §7): an
// out-of-range bank/address reaching the register file. It indicates a
// defect in the emulator itself, never in the guest program, so the process
// aborts rather than trying to recover. Only the register file raises it;
// the EEPROM protocol cursor has no out-of-range state check.
type FatalError struct {
	msg string
}

func (e *FatalError) Error() string { return e.msg }

func (f *File) fatal(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	f.log.Error(msg)
	panic(&FatalError{msg: msg})
}

// New builds a register file with every cell defaulted to plain RAM, then
// applies the initialization overrides spec §4.1 lists in order: INDF
// cells, SFR aliasing, TMR0/OPTION_REG cross-bank aliasing, the common RAM
// window, and the STATUS power-on value. Peripheral hooks (step 6) are
// attached later by each peripheral's own constructor via AttachPeripheral.
func New(log *slog.Logger) *File {
	f := &File{log: log}

	// (1) INDF in every bank forwards through FSR/IRP.
	for bank := 0; bank < Banks; bank++ {
		f.kind[bank][IndfAddr] = cellIndirect
	}

	// (2) Core SFRs in banks 1-3 alias bank 0.
	for _, addr := range []int{PCLAddr, StatusAddr, FSRAddr, PCLATHAddr, INTCONAddr} {
		for bank := 1; bank < Banks; bank++ {
			f.alias(bank, addr, 0, addr)
		}
	}

	// (3) TMR0 (bank 2) aliases bank 0; OPTION_REG (bank 3) aliases bank 1.
	f.alias(2, TMR0Addr, 0, TMR0Addr)
	f.alias(3, OptionRegAddr, 1, OptionRegAddr)

	// (4) The 16-byte common RAM window aliases bank 0 from every bank.
	for addr := 0x70; addr < 0x80; addr++ {
		for bank := 1; bank < Banks; bank++ {
			f.alias(bank, addr, 0, addr)
		}
	}

	// (5) STATUS power-on value.
	f.storage[0][StatusAddr] = StatusInitial

	return f
}

func (f *File) alias(bank, addr, ownerBank, _ int) {
	f.kind[bank][addr] = cellAlias
	f.aliasBank[bank][addr] = ownerBank
}

// AttachPeripheral wires a peripheral's read/write hooks to a register-file
// cell. Called once per SFR during each peripheral's own construction
// (spec §4.1 step 6): UART attaches TXREG/RCREG, ADC attaches ADCON0,
// EEPROM attaches SSPCON2/SSPBUF. A nil hook leaves that direction behaving
// as plain RAM: reads return the stored byte, writes store data verbatim.
func (f *File) AttachPeripheral(bank, addr int, onRead ReadHook, onWrite WriteHook) {
	if onRead == nil {
		onRead = func(_ Handle, _, _ int, stored byte) byte { return stored }
	}
	if onWrite == nil {
		onWrite = func(_ Handle, _, _ int, _, data byte) byte { return data }
	}
	f.kind[bank][addr] = cellPeripheral
	f.hooks[bank][addr] = hookPair{onRead: onRead, onWrite: onWrite}
}

// Handle is passed to hooks running under the file's lock. It exposes only
// the non-locking access variants, so a hook that does all its register
// access through it never re-acquires the lock it is already holding (spec
// §9, "re-entrant lock avoidance"). Nothing stops a hook from calling the
// File's locking methods directly; doing so deadlocks.
type Handle struct {
	f *File
}

// DirectRead is the non-locking variant used from inside a hook.
func (h Handle) DirectRead(bank, addr int) byte {
	return h.f.directRead(bank, addr)
}

// DirectWrite is the non-locking variant used from inside a hook.
func (h Handle) DirectWrite(bank, addr int, data byte) {
	h.f.directWrite(bank, addr, data)
}

func checkCoordinates(bank, addr int) error {
	if bank < 0 || bank >= Banks {
		return fmt.Errorf("register file: bank %d out of range", bank)
	}
	if addr < 0 || addr >= RegistersPerBank {
		return fmt.Errorf("register file: address %#02x out of range", addr)
	}
	return nil
}

func (f *File) directRead(bank, addr int) byte {
	switch f.kind[bank][addr] {
	case cellIndirect:
		tb, ta := f.indirectTarget()
		if ta == IndfAddr {
			// Indirectly addressing INDF itself reads as 0 on real silicon.
			return 0
		}
		return f.directRead(tb, ta)
	case cellAlias:
		ob := f.aliasBank[bank][addr]
		return f.storage[ob][addr]
	case cellPeripheral:
		return f.hooks[bank][addr].onRead(Handle{f: f}, bank, addr, f.storage[bank][addr])
	default:
		return f.storage[bank][addr]
	}
}

func (f *File) directWrite(bank, addr int, data byte) {
	switch f.kind[bank][addr] {
	case cellIndirect:
		tb, ta := f.indirectTarget()
		if ta == IndfAddr {
			return // writing indirectly to INDF is a no-op on real silicon.
		}
		f.directWrite(tb, ta, data)
	case cellAlias:
		ob := f.aliasBank[bank][addr]
		f.storage[ob][addr] = data
	case cellPeripheral:
		stored := f.hooks[bank][addr].onWrite(Handle{f: f}, bank, addr, f.storage[bank][addr], data)
		f.storage[bank][addr] = stored
	default:
		f.storage[bank][addr] = data
	}
}

// indirectTarget resolves the 9-bit (IRP:FSR) address INDF forwards to.
func (f *File) indirectTarget() (bank, addr int) {
	fsr := f.storage[0][FSRAddr]
	irp := (f.storage[0][StatusAddr] >> 7) & 1
	combined := (uint16(irp) << 8) | uint16(fsr)
	return int(combined >> 7 & 0x3), int(combined & 0x7F)
}

func (f *File) currentBank() int {
	return int(f.storage[0][StatusAddr]>>5) & 0x3
}

// BankedRead selects the current bank from STATUS<6:5> and reads addr.
func (f *File) BankedRead(addr int) byte {
	if err := checkCoordinates(0, addr); err != nil {
		f.fatal("%s", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.directRead(f.currentBank(), addr)
}

// BankedWrite selects the current bank from STATUS<6:5> and writes addr.
func (f *File) BankedWrite(addr int, data byte) {
	if err := checkCoordinates(0, addr); err != nil {
		f.fatal("%s", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.directWrite(f.currentBank(), addr, data)
}

// DirectRead is the locking, bank-unconditional accessor used by actors
// outside the CPU loop (the console-input pump, peripheral tick sources).
func (f *File) DirectRead(bank, addr int) byte {
	if err := checkCoordinates(bank, addr); err != nil {
		f.fatal("%s", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.directRead(bank, addr)
}

// DirectWrite is the locking, bank-unconditional accessor used by actors
// outside the CPU loop.
func (f *File) DirectWrite(bank, addr int, data byte) {
	if err := checkCoordinates(bank, addr); err != nil {
		f.fatal("%s", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.directWrite(bank, addr, data)
}

// SetRaw writes a cell's owned storage slot directly, bypassing any
// peripheral hook attached to it (resolving alias cells to their owning
// bank first). It exists for a peripheral to update its own shadow state
// without re-triggering its own write hook — the CPU uses it to mirror PC
// into PCL after a normal fetch, as opposed to a firmware MOVWF PCL, which
// must still go through the hook.
func (f *File) SetRaw(bank, addr int, data byte) {
	if err := checkCoordinates(bank, addr); err != nil {
		f.fatal("%s", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	ob, oa := bank, addr
	if f.kind[bank][addr] == cellAlias {
		ob = f.aliasBank[bank][addr]
	}
	f.storage[ob][oa] = data
}

// HasInterruptFired implements spec §4.1's interrupt arbitration formula,
// reading known bank locations directly rather than going through the
// current-bank selector (INTCON/PIR1 live in bank 0, PIE1 in bank 1,
// regardless of what STATUS currently selects).
func (f *File) HasInterruptFired() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	intcon := f.directRead(0, INTCONAddr)
	if intcon&IntconGIE == 0 {
		return false
	}
	if intcon&(IntconT0IE|IntconT0IF) == (IntconT0IE | IntconT0IF) {
		return true
	}
	if intcon&(IntconINTE|IntconINTF) == (IntconINTE | IntconINTF) {
		return true
	}
	if intcon&(IntconRBIE|IntconRBIF) == (IntconRBIE | IntconRBIF) {
		return true
	}
	if intcon&IntconPEIE == 0 {
		return false
	}

	pie1 := f.directRead(1, PIE1Addr)
	pir1 := f.directRead(0, PIR1Addr)
	if pie1&Pie1RCIE != 0 && pir1&Pir1RCIF != 0 {
		return true
	}
	if pie1&Pie1TXIE != 0 && pir1&Pir1TXIF != 0 {
		return true
	}
	if pie1&Pie1SSPIE != 0 && pir1&Pir1SSPIF != 0 {
		return true
	}
	return false
}

const hexDigits = "0123456789ABCDEF"

func formatByte(b byte) string {
	return string([]byte{hexDigits[b>>4], hexDigits[b&0xF]})
}

// Dump emits the 128x4 register matrix through the log sink, holding the
// lock for the entire table walk (spec §5).
func (f *File) Dump() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.log.Debug("register file dump: Address | Bank0 | Bank1 | Bank2 | Bank3")
	for addr := 0; addr < RegistersPerBank; addr++ {
		f.log.Debug(fmt.Sprintf("0x%02X | 0x%s | 0x%s | 0x%s | 0x%s",
			addr,
			formatByte(f.directRead(0, addr)),
			formatByte(f.directRead(1, addr)),
			formatByte(f.directRead(2, addr)),
			formatByte(f.directRead(3, addr)),
		))
	}
}

// Quiet builds a register file like New, without any peripheral attached,
// substituting a text logger on stdout when log is nil.
func Quiet(log *slog.Logger) *File {
	if log == nil {
		log = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	return New(log)
}
