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

// Package hexfile decodes the Intel-HEX text format used to ship the
// Text Games System firmware image: each data record holds a run of
// little-endian 14-bit instruction words, indexed by word address.
package hexfile

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tgssim/tgssim/internal/progmem"
)

// RecordType distinguishes Intel-HEX record kinds. Only data and
// end-of-file records occur in this system's firmware images.
type RecordType int

const (
	RecordData  RecordType = 0
	RecordEOF   RecordType = 1
	RecordOther RecordType = -1
)

// ConfigWordAddress is the PIC configuration-word location. Records that
// target it are silently discarded (spec §6).
const ConfigWordAddress uint16 = 0x2007

// Record is one decoded line of an Intel-HEX file.
type Record struct {
	Type        RecordType
	WordAddress uint16   // first word address the record covers (RecordData only)
	Words       []uint16 // 14-bit instruction words (RecordData only)
}

// DecodeLine decodes a single Intel-HEX line (leading ':' included).
func DecodeLine(line string) (Record, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, ":") {
		return Record{}, fmt.Errorf("hex line %q: missing leading ':'", line)
	}

	raw, err := hex.DecodeString(line[1:])
	if err != nil {
		return Record{}, fmt.Errorf("hex line %q: %w", line, err)
	}
	if len(raw) < 4 {
		return Record{}, fmt.Errorf("hex line %q: too short to be a record", line)
	}

	count := int(raw[0])
	byteAddress := uint16(raw[1])<<8 | uint16(raw[2])
	recordType := raw[3]
	data := raw[4:]
	if len(data) < count {
		return Record{}, fmt.Errorf("hex line %q: declares %d data bytes, has %d", line, count, len(data))
	}
	data = data[:count]

	switch recordType {
	case 1:
		return Record{Type: RecordEOF}, nil
	case 0:
		words := make([]uint16, 0, (count+1)/2)
		for i := 0; i+1 < count; i += 2 {
			// Little-endian byte pair in the file becomes one 14-bit word.
			words = append(words, uint16(data[i])|uint16(data[i+1])<<8)
		}
		return Record{
			Type:        RecordData,
			WordAddress: byteAddress / 2,
			Words:       words,
		}, nil
	default:
		return Record{Type: RecordOther}, nil
	}
}

// Load reads an Intel-HEX program image from r and populates mem.
// Records targeting the configuration word are discarded; a record
// addressing beyond the program memory's last word, or a file lacking an
// EOF record, is a fatal Config/IO error (spec §7).
func Load(r io.Reader, mem *progmem.Memory) error {
	scanner := bufio.NewScanner(r)
	sawEOF := false

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		rec, err := DecodeLine(line)
		if err != nil {
			return err
		}

		switch rec.Type {
		case RecordEOF:
			sawEOF = true
		case RecordData:
			for i, word := range rec.Words {
				addr := rec.WordAddress + uint16(i)
				if addr == ConfigWordAddress {
					continue
				}
				if int(addr) >= progmem.Size {
					return fmt.Errorf("hex record addresses word %#04x beyond program memory (size %#04x)", addr, progmem.Size)
				}
				mem.Write(addr, word)
			}
		case RecordOther:
			// Record types other than data/EOF (e.g. extended linear
			// address) are not used by this firmware and are ignored.
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading hex file: %w", err)
	}
	if !sawEOF {
		return errors.New("hex file ended without an EOF record")
	}
	return nil
}
