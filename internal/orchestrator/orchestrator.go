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

// Package orchestrator wires the CPU core, peripherals, and the console
// into one running system: it owns startup (load the program image, load
// the EEPROM image, enter raw mode), the two concurrent actors described
// in spec §5 (the CPU step loop and the console-input pump), and shutdown
// (restore the terminal, persist the EEPROM).
package orchestrator

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/tgssim/tgssim/internal/adc"
	"github.com/tgssim/tgssim/internal/cpu"
	"github.com/tgssim/tgssim/internal/eeprom"
	"github.com/tgssim/tgssim/internal/hexfile"
	"github.com/tgssim/tgssim/internal/progmem"
	"github.com/tgssim/tgssim/internal/regfile"
	"github.com/tgssim/tgssim/internal/terminal"
	"github.com/tgssim/tgssim/internal/timer"
	"github.com/tgssim/tgssim/internal/uart"
)

// System is one fully wired Text Games System: register file, program
// memory, every peripheral, the CPU core, and the console.
type System struct {
	log *slog.Logger

	rf   *regfile.File
	pm   *progmem.Memory
	cpu  *cpu.CPU
	tm   *timer.Timer
	ee   *eeprom.EEPROM
	uart *uart.UART

	term       *terminal.Terminal
	eepromPath string

	quit atomic.Bool
}

// New builds a System from a loaded HEX program and EEPROM image. Both
// file operations are fatal on error: a firmware image or save file that
// can't be read means there is nothing to run (spec §7).
func New(log *slog.Logger, hexPath, eepromPath string) (*System, error) {
	rf := regfile.New(log)
	pm := progmem.New(log)

	f, err := os.Open(hexPath)
	if err != nil {
		return nil, fmt.Errorf("opening program image: %w", err)
	}
	defer f.Close()
	if err := hexfile.Load(f, pm); err != nil {
		return nil, fmt.Errorf("loading program image: %w", err)
	}

	u := uart.New(rf, log, os.Stdout)
	ee := eeprom.New(rf, log)
	if err := ee.Load(eepromPath); err != nil {
		return nil, fmt.Errorf("loading eeprom image: %w", err)
	}
	adc.New(rf, log)

	c := cpu.New(rf, pm, log)
	tm := timer.New(rf, log)

	sys := &System{
		log:        log,
		rf:         rf,
		pm:         pm,
		cpu:        c,
		tm:         tm,
		ee:         ee,
		term:       terminal.New(log),
		eepromPath: eepromPath,
		uart:       u,
	}
	return sys, nil
}

// Run enters raw console mode, starts the console-input pump, and steps
// the CPU until Ctrl-C is seen on the console or stdin reaches EOF. It
// always restores the terminal and saves the EEPROM image before
// returning, even if the CPU loop panics on a FatalError.
func (s *System) Run() (err error) {
	if rerr := s.term.EnterRawMode(); rerr != nil {
		return fmt.Errorf("entering raw terminal mode: %w", rerr)
	}
	defer s.term.Restore()
	defer func() {
		if serr := s.ee.Save(s.eepromPath); serr != nil {
			s.log.Warn("failed to save eeprom image", "error", serr)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			if fe, ok := r.(*regfile.FatalError); ok {
				err = fe
				return
			}
			panic(r)
		}
	}()

	go s.consolePump()
	s.cpuLoop()
	return nil
}

func (s *System) cpuLoop() {
	for !s.quit.Load() {
		s.cpu.Step()
		s.tm.Tick()
	}
}

func (s *System) consolePump() {
	s.term.Pump(os.Stdin, s.uart.ReceiveByte, s.rf.Dump)
	s.quit.Store(true)
}
