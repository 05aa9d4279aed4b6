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

// Package disasm turns a raw 14-bit instruction word into a short
// mnemonic string for log lines. It never drives execution; internal/cpu
// decodes opcodes on its own, this package exists purely so DEBUG/WARNING
// log lines can name the instruction a human would recognize.
package disasm

import "fmt"

// byteOriented maps a 6-bit byte-oriented opcode to its mnemonic.
var byteOriented = map[uint16]string{
	0b000111: "ADDWF",
	0b000101: "ANDWF",
	0b000001: "CLRF", // d forced, f ignored for CLRW (f=0x00,d=0)
	0b001001: "COMF",
	0b000011: "DECF",
	0b001011: "DECFSZ",
	0b001010: "INCF",
	0b001111: "INCFSZ",
	0b000100: "IORWF",
	0b001000: "MOVF",
	0b000000: "MOVWF", // also NOP/TRIS family when d=0
	0b001101: "RLF",
	0b001100: "RRF",
	0b000010: "SUBWF",
	0b001110: "SWAPF",
	0b000110: "XORWF",
}

var bitOriented = map[uint16]string{
	0b00: "BCF",
	0b01: "BSF",
	0b10: "BTFSC",
	0b11: "BTFSS",
}

// literalAndControl covers the top2==11 class only; CALL/GOTO (top2==10)
// are decoded directly in Mnemonic.
var literalAndControl = map[uint16]string{
	0b111110: "ADDLW",
	0b111001: "ANDLW",
	0b110000: "MOVLW",
	0b111000: "IORLW",
	0b110100: "RETLW",
	0b111100: "SUBLW",
	0b111010: "XORLW",
}

// Mnemonic decodes instr into a short human-readable form such as
// "MOVWF 0x04,F", "BSF 0x0B,7", "GOTO 0x100" or "UNKNOWN 0x3FFF".
func Mnemonic(instr uint16) string {
	instr &= 0x3FFF

	switch instr {
	case 0x0000:
		return "NOP"
	case 0x0008:
		return "RETURN"
	case 0x0009:
		return "RETFIE"
	case 0x0063:
		return "SLEEP"
	case 0x0064:
		return "CLRWDT"
	}

	switch instr >> 12 & 0x3 {
	case 0b00:
		// Byte-oriented: 6-bit opcode, 1-bit d, 7-bit f.
		op := (instr >> 8) & 0x3F
		d := (instr >> 7) & 0x1
		f := instr & 0x7F
		if name, ok := byteOriented[op]; ok {
			if d == 0 {
				return fmt.Sprintf("%s 0x%02X,W", name, f)
			}
			return fmt.Sprintf("%s 0x%02X,F", name, f)
		}
		return fmt.Sprintf("UNKNOWN 0x%04X", instr)
	case 0b01:
		// Bit-oriented: 2-bit opcode, 3-bit b, 7-bit f.
		op := (instr >> 10) & 0x3
		b := (instr >> 7) & 0x7
		f := instr & 0x7F
		name := bitOriented[op]
		return fmt.Sprintf("%s 0x%02X,%d", name, f, b)
	case 0b10:
		// Control transfer: 1-bit c, 11-bit k (c=0 CALL, c=1 GOTO).
		k := instr & 0x7FF
		if instr&0x0800 == 0 {
			return fmt.Sprintf("CALL 0x%03X", k)
		}
		return fmt.Sprintf("GOTO 0x%03X", k)
	default: // 0b11
		// Literal and control: 6-bit opcode, 8-bit literal.
		op := (instr >> 8) & 0x3F
		k := instr & 0xFF
		if name, ok := literalAndControl[op]; ok {
			return fmt.Sprintf("%s 0x%02X", name, k)
		}
		return fmt.Sprintf("UNKNOWN 0x%04X", instr)
	}
}
