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

package main

import (
	"fmt"
	"os"
	"strconv"

	getopt "github.com/pborman/getopt/v2"

	"github.com/tgssim/tgssim/internal/logging"
	"github.com/tgssim/tgssim/internal/orchestrator"
)

func main() {
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.SetParameters("LOG_FILE LOG_LEVEL PROGRAM_HEX_FILE EEPROM_FILE")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	args := getopt.Args()
	if len(args) != 4 {
		getopt.Usage()
		os.Exit(1)
	}
	logPath, levelArg, hexPath, eepromPath := args[0], args[1], args[2], args[3]

	levelNum, err := strconv.Atoi(levelArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tgssim: LOG_LEVEL must be an integer: %v\n", err)
		os.Exit(1)
	}
	level, err := logging.ParseLevel(levelNum)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tgssim: %v\n", err)
		os.Exit(1)
	}

	logFile, err := os.Create(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tgssim: creating log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	log := logging.New(logFile, level)

	sys, err := orchestrator.New(log, hexPath, eepromPath)
	if err != nil {
		log.Error("failed to initialize system", "error", err)
		fmt.Fprintf(os.Stderr, "tgssim: %v\n", err)
		os.Exit(1)
	}

	if err := sys.Run(); err != nil {
		log.Error("system halted", "error", err)
		fmt.Fprintf(os.Stderr, "tgssim: %v\n", err)
		os.Exit(1)
	}
}
