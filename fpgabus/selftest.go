// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2026 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package fpgabus

import (
	"fmt"
	"strings"
)

// DefaultSelfTestPatterns exercise every data line in both states.
var DefaultSelfTestPatterns = []byte{0x55, 0xAA, 0x00, 0xFF}

// Mismatch is a value that did not read back as written.
type Mismatch struct {
	Wrote byte
	Read  byte
}

// SelfTestError lists the mismatches of a failed self test.
type SelfTestError struct {
	Address    uint
	Mismatches []Mismatch
}

func (e *SelfTestError) Error() string {
	details := make([]string, 0, len(e.Mismatches))
	for _, m := range e.Mismatches {
		details = append(details, fmt.Sprintf("wrote 0x%02x read 0x%02x", m.Wrote, m.Read))
	}
	return fmt.Sprintf("fpga bus self test failed at address 0x%x: %s", e.Address, strings.Join(details, ", "))
}

// SelfTest writes each pattern to addr and reads it back. The register
// at addr must be a read/write scratch register; its content is lost.
// With no patterns DefaultSelfTestPatterns are used. Each write and its
// read back run without other transactions in between.
func (b *Bus) SelfTest(addr uint, patterns []byte) error {
	if len(patterns) == 0 {
		patterns = DefaultSelfTestPatterns
	}
	var mismatches []Mismatch
	for _, p := range patterns {
		got, err := b.roundTrip(addr, p)
		if err != nil {
			return err
		}
		if got != p {
			mismatches = append(mismatches, Mismatch{Wrote: p, Read: got})
		}
	}
	if len(mismatches) > 0 {
		return &SelfTestError{Address: addr, Mismatches: mismatches}
	}
	return nil
}

func (b *Bus) roundTrip(addr uint, value byte) (byte, error) {
	unlock, err := b.lock()
	if err != nil {
		return 0, err
	}
	defer unlock()

	if err := b.checkAddress(addr); err != nil {
		return 0, err
	}
	if err := b.doWrite(addr, value); err != nil {
		return 0, err
	}
	return b.doRead(addr)
}
