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

// Package adc emulates the PIC16F876-class 10-bit analog-to-digital
// converter. There is no real analog input to sample in this emulator, so
// a conversion produces a uniformly random 10-bit reading the instant it
// is requested, split across ADRESH/ADRESL the way the real hardware does.
package adc

import (
	"log/slog"
	"math/rand/v2"

	"github.com/tgssim/tgssim/internal/regfile"
)

// ADC attaches ADCON0's write hook and nothing else; ADRESH/ADRESL stay
// plain register-file cells the conversion writes into directly.
type ADC struct {
	rf  *regfile.File
	log *slog.Logger
}

// New attaches the ADC's ADCON0 hook to rf.
func New(rf *regfile.File, log *slog.Logger) *ADC {
	a := &ADC{rf: rf, log: log}
	rf.AttachPeripheral(0, regfile.ADCON0Addr, nil, a.onWriteADCON0)
	return a
}

// onWriteADCON0 starts a conversion on the rising edge of GO while ADON is
// set, and completes it synchronously: there is no conversion clock to
// model, so the result lands before the write even returns and GO/DONE
// clears immediately.
func (a *ADC) onWriteADCON0(h regfile.Handle, bank, addr int, stored, data byte) byte {
	wasGo := stored&regfile.Adcon0GO != 0
	startingGo := data&regfile.Adcon0GO != 0 && data&regfile.Adcon0ADON != 0
	if startingGo && !wasGo {
		sample := rand.N[uint16](1024)
		h.DirectWrite(0, regfile.ADRESHAddr, byte(sample>>8))
		h.DirectWrite(1, regfile.ADRESLAddr, byte(sample))
		data &^= regfile.Adcon0GO
	}
	return data
}
