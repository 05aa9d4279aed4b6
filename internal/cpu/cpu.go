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

// Package cpu implements the PIC16F876-class instruction core: fetch,
// decode, execute, STATUS flag computation, the 8-deep hardware call
// stack, and interrupt vectoring. It is the only package that advances
// the program counter; every other peripheral only reacts to register
// writes the CPU (or the outside world, for UART/EEPROM) makes.
package cpu

import (
	"log/slog"

	"github.com/tgssim/tgssim/internal/disasm"
	"github.com/tgssim/tgssim/internal/progmem"
	"github.com/tgssim/tgssim/internal/regfile"
)

// stackDepth is the hardware return-address stack's fixed size. Pushing
// past it silently overwrites the oldest entry (spec §4.7); popping past
// empty returns a stale entry. Both are logged as warnings, never fatal.
const stackDepth = 8

// pcMask keeps the program counter within the 8192-word address space.
const pcMask = 0x1FFF

// CPU holds the working register, program counter, and hardware stack.
// Everything else the instruction set touches lives in the shared
// register file.
type CPU struct {
	rf  *regfile.File
	pm  *progmem.Memory
	log *slog.Logger

	w  byte
	pc uint16

	stack [stackDepth]uint16
	sp    int
	depth int
}

// New builds a CPU bound to rf and pm, with PC at the reset vector.
// It attaches a hook on PCL so firmware writes (MOVWF PCL, BSF PCL,x, ...)
// recombine with PCLATH<4:0> into a full PC update.
func New(rf *regfile.File, pm *progmem.Memory, log *slog.Logger) *CPU {
	c := &CPU{rf: rf, pm: pm, log: log}
	rf.AttachPeripheral(0, regfile.PCLAddr, nil, c.onWritePCL)
	c.syncPCL()
	return c
}

func (c *CPU) onWritePCL(h regfile.Handle, bank, addr int, stored, data byte) byte {
	pclath := h.DirectRead(0, regfile.PCLATHAddr)
	c.pc = (uint16(pclath&0x1F) << 8) | uint16(data)
	return data
}

// syncPCL mirrors the CPU's own PC into PCL and PCLATH<4:0> without
// re-entering onWritePCL (SetRaw bypasses the hook). This is the "write PC
// back to (PCLATH:PCL), upper three bits of PCLATH forced to zero" step
// spec §4.2 requires at the end of every step; PCLATH<7:5> never carry
// meaningful content, so they read as zero per spec §3's standing invariant.
func (c *CPU) syncPCL() {
	c.rf.SetRaw(0, regfile.PCLAddr, byte(c.pc&0xFF))
	c.rf.SetRaw(0, regfile.PCLATHAddr, byte((c.pc>>8)&0x1F))
}

// PC returns the current program counter, for tests and logging.
func (c *CPU) PC() uint16 { return c.pc }

// W returns the working register, for tests and logging.
func (c *CPU) W() byte { return c.w }

func (c *CPU) push(addr uint16) {
	if c.depth >= stackDepth {
		c.log.Warn("hardware stack overflow; oldest return address overwritten")
	} else {
		c.depth++
	}
	c.stack[c.sp] = addr
	c.sp = (c.sp + 1) % stackDepth
}

func (c *CPU) pop() uint16 {
	if c.depth == 0 {
		c.log.Warn("hardware stack underflow; returning a stale address")
		c.sp = (c.sp - 1 + stackDepth) % stackDepth
		return c.stack[c.sp]
	}
	c.depth--
	c.sp = (c.sp - 1 + stackDepth) % stackDepth
	return c.stack[c.sp]
}

func (c *CPU) fetch() uint16 {
	instr := c.pm.Read(c.pc)
	c.pc = (c.pc + 1) & pcMask
	c.syncPCL()
	return instr
}

// skip discards the next instruction word, advancing PC past it without
// executing it (the effect BTFSC/BTFSS/DECFSZ/INCFSZ have when they skip).
func (c *CPU) skip() {
	c.fetch()
}

// Step runs one instruction-boundary cycle: service a pending interrupt
// if one is armed and enabled, otherwise fetch, decode and execute the
// next instruction. Each call is one iteration of the orchestrator's CPU
// loop (spec §5).
func (c *CPU) Step() {
	if c.rf.HasInterruptFired() {
		c.serviceInterrupt()
		return
	}
	instr := c.fetch()
	c.execute(instr)
}

func (c *CPU) serviceInterrupt() {
	intcon := c.rf.DirectRead(0, regfile.INTCONAddr)
	c.rf.DirectWrite(0, regfile.INTCONAddr, intcon&^regfile.IntconGIE)
	c.push(c.pc)
	c.pc = 0x0004
	c.syncPCL()
	c.log.Debug("servicing interrupt, vectoring to 0x0004")
}

func (c *CPU) execute(instr uint16) {
	instr &= 0x3FFF

	switch instr {
	case 0x0000:
		return // NOP
	case 0x0008:
		c.pc = c.pop() & pcMask
		c.syncPCL()
		return // RETURN
	case 0x0009:
		c.pc = c.pop() & pcMask
		c.syncPCL()
		intcon := c.rf.DirectRead(0, regfile.INTCONAddr)
		c.rf.DirectWrite(0, regfile.INTCONAddr, intcon|regfile.IntconGIE)
		return // RETFIE
	case 0x0063, 0x0064:
		return // SLEEP, CLRWDT: no power management or watchdog modeled
	}

	switch instr >> 12 & 0x3 {
	case 0b00:
		c.executeByteOriented(instr)
	case 0b01:
		c.executeBitOriented(instr)
	case 0b10:
		c.executeControlTransfer(instr)
	default:
		c.executeLiteralAndControl(instr)
	}
}

func (c *CPU) executeByteOriented(instr uint16) {
	op := (instr >> 8) & 0x3F
	d := (instr >> 7) & 0x1
	f := byte(instr & 0x7F)

	store := func(result byte) {
		if d == 0 {
			c.w = result
		} else {
			c.writeF(f, result)
		}
	}

	switch op {
	case 0b000111: // ADDWF
		result, carry, halfcarry := addFlags(c.readF(f), c.w)
		c.setArithmeticFlags(result, carry, halfcarry)
		store(result)
	case 0b000101: // ANDWF
		result := c.readF(f) & c.w
		c.setZ(result)
		store(result)
	case 0b000001: // CLRF / CLRW
		c.setZ(0)
		if d == 0 {
			c.w = 0
		} else {
			c.writeF(f, 0)
		}
	case 0b001001: // COMF
		result := ^c.readF(f)
		c.setZ(result)
		store(result)
	case 0b000011: // DECF
		result := c.readF(f) - 1
		c.setZ(result)
		store(result)
	case 0b001011: // DECFSZ
		result := c.readF(f) - 1
		store(result)
		if result == 0 {
			c.skip()
		}
	case 0b001010: // INCF
		result := c.readF(f) + 1
		c.setZ(result)
		store(result)
	case 0b001111: // INCFSZ
		result := c.readF(f) + 1
		store(result)
		if result == 0 {
			c.skip()
		}
	case 0b000100: // IORWF
		result := c.readF(f) | c.w
		c.setZ(result)
		store(result)
	case 0b001000: // MOVF
		result := c.readF(f)
		c.setZ(result)
		store(result)
	case 0b000000: // MOVWF (d=1) / already-handled NOP (d=0,f=0)
		c.writeF(f, c.w)
	case 0b001101: // RLF
		v := c.readF(f)
		carryIn := c.statusBit(regfile.StatusC)
		result := (v << 1) | carryIn
		c.setCarry((v>>7)&1 != 0)
		store(result)
	case 0b001100: // RRF
		v := c.readF(f)
		carryIn := c.statusBit(regfile.StatusC)
		result := (v >> 1) | (carryIn << 7)
		c.setCarry(v&1 != 0)
		store(result)
	case 0b000010: // SUBWF
		result, carry, halfcarry := subFlags(c.readF(f), c.w)
		c.setArithmeticFlags(result, carry, halfcarry)
		store(result)
	case 0b001110: // SWAPF
		v := c.readF(f)
		result := (v << 4) | (v >> 4)
		store(result)
	case 0b000110: // XORWF
		result := c.readF(f) ^ c.w
		c.setZ(result)
		store(result)
	default:
		c.log.Warn("unknown byte-oriented opcode", "instruction", disasm.Mnemonic(instr))
	}
}

func (c *CPU) executeBitOriented(instr uint16) {
	op := (instr >> 10) & 0x3
	b := byte((instr >> 7) & 0x7)
	f := byte(instr & 0x7F)
	mask := byte(1) << b

	switch op {
	case 0b00: // BCF
		c.writeF(f, c.readF(f)&^mask)
	case 0b01: // BSF
		c.writeF(f, c.readF(f)|mask)
	case 0b10: // BTFSC
		if c.readF(f)&mask == 0 {
			c.skip()
		}
	case 0b11: // BTFSS
		if c.readF(f)&mask != 0 {
			c.skip()
		}
	}
}

func (c *CPU) executeControlTransfer(instr uint16) {
	k := instr & 0x7FF
	if instr&0x0800 == 0 {
		c.push(c.pc)
		c.gotoTarget(k)
		return // CALL
	}
	c.gotoTarget(k) // GOTO
}

func (c *CPU) gotoTarget(k uint16) {
	pclath := c.rf.BankedRead(regfile.PCLATHAddr)
	c.pc = (uint16(pclath&0x18) << 8) | (k & 0x7FF)
	c.syncPCL()
}

func (c *CPU) executeLiteralAndControl(instr uint16) {
	op := (instr >> 8) & 0x3F
	k := byte(instr & 0xFF)

	switch op {
	case 0b111110: // ADDLW
		result, carry, halfcarry := addFlags(c.w, k)
		c.setArithmeticFlags(result, carry, halfcarry)
		c.w = result
	case 0b111001: // ANDLW
		c.w &= k
		c.setZ(c.w)
	case 0b110000: // MOVLW
		c.w = k
	case 0b111000: // IORLW
		c.w |= k
		c.setZ(c.w)
	case 0b110100: // RETLW
		c.w = k
		c.pc = c.pop() & pcMask
		c.syncPCL()
	case 0b111100: // SUBLW
		result, carry, halfcarry := subFlags(k, c.w)
		c.setArithmeticFlags(result, carry, halfcarry)
		c.w = result
	case 0b111010: // XORLW
		c.w ^= k
		c.setZ(c.w)
	default:
		c.log.Warn("unknown literal/control opcode", "instruction", disasm.Mnemonic(instr))
	}
}

func (c *CPU) readF(addr byte) byte     { return c.rf.BankedRead(int(addr)) }
func (c *CPU) writeF(addr byte, v byte) { c.rf.BankedWrite(int(addr), v) }

func (c *CPU) statusBit(mask byte) byte {
	if c.rf.BankedRead(regfile.StatusAddr)&mask != 0 {
		return 1
	}
	return 0
}

func (c *CPU) setZ(result byte) {
	status := c.rf.BankedRead(regfile.StatusAddr)
	if result == 0 {
		status |= regfile.StatusZ
	} else {
		status &^= regfile.StatusZ
	}
	c.rf.BankedWrite(regfile.StatusAddr, status)
}

func (c *CPU) setCarry(set bool) {
	status := c.rf.BankedRead(regfile.StatusAddr)
	if set {
		status |= regfile.StatusC
	} else {
		status &^= regfile.StatusC
	}
	c.rf.BankedWrite(regfile.StatusAddr, status)
}

func (c *CPU) setArithmeticFlags(result byte, carry, halfcarry bool) {
	status := c.rf.BankedRead(regfile.StatusAddr)
	status &^= regfile.StatusC | regfile.StatusDC | regfile.StatusZ
	if carry {
		status |= regfile.StatusC
	}
	if halfcarry {
		status |= regfile.StatusDC
	}
	if result == 0 {
		status |= regfile.StatusZ
	}
	c.rf.BankedWrite(regfile.StatusAddr, status)
}

// addFlags computes a+b with PIC-style carry (set on unsigned overflow)
// and digit carry (set on a nibble carry out of bit 3).
func addFlags(a, b byte) (result byte, carry, halfcarry bool) {
	sum := uint16(a) + uint16(b)
	result = byte(sum)
	carry = sum > 0xFF
	halfcarry = (uint16(a&0x0F) + uint16(b&0x0F)) > 0x0F
	return
}

// subFlags computes a-b with PIC-style borrow semantics: carry set means
// no borrow occurred (a >= b), matching SUBWF/SUBLW on real silicon.
func subFlags(a, b byte) (result byte, carry, halfcarry bool) {
	result = a - b
	carry = a >= b
	halfcarry = (a & 0x0F) >= (b & 0x0F)
	return
}
