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
	"time"

	"github.com/iomfpga/iomd/gpio"
)

// DataWidth is the width of the data bus.
const DataWidth = 8

// MaxAddressLines bounds the number of address lines a pin map may use.
const MaxAddressLines = 16

// PinMap assigns GPIO pins to the lines of the parallel bus.
//
// Address[i] carries bit i+1 of the physical bus address; bit 0 is held
// low by a pull-down on the board and is not driven. The control lines
// are active low.
type PinMap struct {
	Address      []gpio.Pin
	Data         []gpio.Pin
	WriteEnable  gpio.Pin
	OutputEnable gpio.Pin
	ChipSelect   gpio.Pin
}

// DefaultPinMap returns the wiring of the I/O board on the Raspberry Pi
// header.
func DefaultPinMap() PinMap {
	return PinMap{
		Address:      []gpio.Pin{11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21},
		Data:         []gpio.Pin{2, 3, 4, 5, 6, 7, 8, 9},
		WriteEnable:  22,
		OutputEnable: 23,
		ChipSelect:   25,
	}
}

// Control returns the control pins in the order nWE, nOE, nCS.
func (m PinMap) Control() []gpio.Pin {
	return []gpio.Pin{m.WriteEnable, m.OutputEnable, m.ChipSelect}
}

// MaxAddress returns the largest bus address the address lines can
// carry.
func (m PinMap) MaxAddress() uint {
	return 1<<uint(len(m.Address)) - 1
}

// Validate checks that the map has the right number of lines and uses
// every pin at most once.
func (m PinMap) Validate() error {
	if len(m.Data) != DataWidth {
		return fmt.Errorf("invalid pin map: need %d data pins, got %d", DataWidth, len(m.Data))
	}
	if len(m.Address) == 0 || len(m.Address) > MaxAddressLines {
		return fmt.Errorf("invalid pin map: need 1 to %d address pins, got %d", MaxAddressLines, len(m.Address))
	}

	seen := make(map[gpio.Pin]string)
	check := func(pin gpio.Pin, what string) error {
		if other, ok := seen[pin]; ok {
			return fmt.Errorf("invalid pin map: pin %d used for both %s and %s", pin, other, what)
		}
		seen[pin] = what
		return nil
	}
	for i, pin := range m.Address {
		if err := check(pin, fmt.Sprintf("address line %d", i+1)); err != nil {
			return err
		}
	}
	for i, pin := range m.Data {
		if err := check(pin, fmt.Sprintf("data line %d", i)); err != nil {
			return err
		}
	}
	for _, c := range []struct {
		pin  gpio.Pin
		name string
	}{
		{m.WriteEnable, "write-enable"},
		{m.OutputEnable, "output-enable"},
		{m.ChipSelect, "chip-select"},
	} {
		if err := check(c.pin, c.name); err != nil {
			return err
		}
	}
	return nil
}

// Timing holds the delays of a bus transaction.
type Timing struct {
	// Setup is the time address and data settle after chip select
	// is asserted.
	Setup time.Duration
	// WritePulse is how long write enable is held asserted.
	WritePulse time.Duration
	// ReadSettle is the time the peripheral gets to drive the data
	// bus after output enable is asserted.
	ReadSettle time.Duration
}

// DefaultTiming returns the timing the board is known to work with.
func DefaultTiming() Timing {
	return Timing{
		Setup:      time.Microsecond,
		WritePulse: 5 * time.Microsecond,
		ReadSettle: time.Microsecond,
	}
}

// Role is the direction currently assigned to a bus pin.
type Role int

const (
	RoleOutput Role = iota
	RoleInput
)

func (r Role) String() string {
	if r == RoleInput {
		return "input"
	}
	return "output"
}
