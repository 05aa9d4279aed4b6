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

// Package timer drives TMR0 and TMR2 from the orchestrator's tick source.
// TMR0 follows OPTION_REG's prescaler assignment and raises T0IF on
// overflow; TMR2 free-runs whenever T2CON.TMR2ON is set. The PIC16F876
// also defines a TMR2 postscaler/period-match interrupt (TMR2IF/PR2) that
// this firmware's source never touches, so it is left unimplemented here
// too (see "Open Question decisions" in SPEC_FULL.md).
package timer

import (
	"log/slog"

	"github.com/tgssim/tgssim/internal/regfile"
)

// Timer owns no register-file cells of its own; it only drives TMR0/TMR2
// forward on each Tick.
type Timer struct {
	rf  *regfile.File
	log *slog.Logger

	prescaleCount int
}

// New returns a Timer driving rf's TMR0/TMR2 registers.
func New(rf *regfile.File, log *slog.Logger) *Timer {
	return &Timer{rf: rf, log: log}
}

// Tick advances TMR0 by one prescaler step and TMR2 by one instruction
// cycle, as called once per CPU instruction from the orchestrator.
func (t *Timer) Tick() {
	t.tickTMR0()
	t.tickTMR2()
}

func (t *Timer) tickTMR0() {
	option := t.rf.DirectRead(1, regfile.OptionRegAddr)
	if option&regfile.OptionPSA != 0 {
		t.incrementTMR0()
		return
	}
	rate := 2 << (option & regfile.OptionPSMask)
	t.prescaleCount++
	if t.prescaleCount >= rate {
		t.prescaleCount = 0
		t.incrementTMR0()
	}
}

func (t *Timer) incrementTMR0() {
	tmr0 := t.rf.DirectRead(0, regfile.TMR0Addr)
	if tmr0 == 0xFF {
		t.rf.DirectWrite(0, regfile.TMR0Addr, 0x00)
		intcon := t.rf.DirectRead(0, regfile.INTCONAddr)
		t.rf.DirectWrite(0, regfile.INTCONAddr, intcon|regfile.IntconT0IF)
		return
	}
	t.rf.DirectWrite(0, regfile.TMR0Addr, tmr0+1)
}

func (t *Timer) tickTMR2() {
	t2con := t.rf.DirectRead(0, regfile.T2CONAddr)
	if t2con&regfile.T2conTMR2ON == 0 {
		return
	}
	tmr2 := t.rf.DirectRead(0, regfile.TMR2Addr)
	t.rf.DirectWrite(0, regfile.TMR2Addr, tmr2+1)
}
