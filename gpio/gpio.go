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

// Package gpio drives the GPIO block of the Broadcom BCM283x/BCM2711
// system-on-chip through its memory-mapped registers.
package gpio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/iomfpga/iomd/mmio"
)

// Register offsets, in bytes, from the start of the GPIO block.
const (
	RegFuncSelect uint32 = 0x00
	RegSet        uint32 = 0x1C
	RegClear      uint32 = 0x28
	RegLevel      uint32 = 0x34

	// WindowSize covers everything up to and including the pull
	// control registers.
	WindowSize = 0xB4
)

const (
	NumPinsBCM2835 = 54
	NumPinsBCM2711 = 58
)

// ErrInvalidPin is returned for pin numbers the chip does not have.
var ErrInvalidPin = errors.New("invalid gpio pin")

// Pin is a BCM GPIO number (not a header position).
type Pin uint

// Direction of a pin.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Level of a pin.
type Level int

const (
	Low Level = iota
	High
)

func (l Level) String() string {
	if l == Low {
		return "low"
	}
	return "high"
}

// Function is the raw 3-bit function select value of a pin.
type Function uint32

const (
	FuncInput  Function = 0
	FuncOutput Function = 1
	FuncAlt5   Function = 2
	FuncAlt4   Function = 3
	FuncAlt0   Function = 4
	FuncAlt1   Function = 5
	FuncAlt2   Function = 6
	FuncAlt3   Function = 7

	funcMask uint32 = 7
)

var funcNames = [...]string{"input", "output", "alt5", "alt4", "alt0", "alt1", "alt2", "alt3"}

func (f Function) String() string {
	if int(f) < len(funcNames) {
		return funcNames[f]
	}
	return fmt.Sprintf("Function(%d)", uint32(f))
}

// FuncSelectLocation returns the byte offset of the function select
// register holding pin and the bit offset of its 3-bit field.
func FuncSelectLocation(pin Pin) (reg uint32, shift uint32) {
	return RegFuncSelect + uint32(pin/10)*4, uint32(pin%10) * 3
}

// BankLocation returns the register index (0 or 1) of the set, clear
// and level registers holding pin and its bit within them.
func BankLocation(pin Pin) (bank uint32, bit uint32) {
	return uint32(pin / 32), uint32(pin % 32)
}

// Controller manipulates pins through a register window.
type Controller struct {
	w       mmio.Window
	numPins uint

	// fselMu serializes the read-modify-write of function select
	// registers, which pack ten pins each.
	fselMu sync.Mutex
}

// NewController returns a controller for a chip with numPins pins whose
// GPIO block is mapped by w.
func NewController(w mmio.Window, numPins uint) *Controller {
	return &Controller{w: w, numPins: numPins}
}

// NumPins returns the number of pins of the chip.
func (c *Controller) NumPins() uint {
	return c.numPins
}

func (c *Controller) checkPin(pin Pin) error {
	if uint(pin) >= c.numPins {
		return fmt.Errorf("%w %d (chip has %d)", ErrInvalidPin, pin, c.numPins)
	}
	return nil
}

// SetFunction rewrites the function select field of pin, leaving the
// other pins sharing the register untouched.
func (c *Controller) SetFunction(pin Pin, f Function) error {
	if err := c.checkPin(pin); err != nil {
		return err
	}
	reg, shift := FuncSelectLocation(pin)

	c.fselMu.Lock()
	defer c.fselMu.Unlock()

	v := c.w.Read32(reg)
	v = (v &^ (funcMask << shift)) | ((uint32(f) & funcMask) << shift)
	c.w.Write32(reg, v)
	return nil
}

// Function returns the current function of pin.
func (c *Controller) Function(pin Pin) (Function, error) {
	if err := c.checkPin(pin); err != nil {
		return 0, err
	}
	reg, shift := FuncSelectLocation(pin)
	return Function((c.w.Read32(reg) >> shift) & funcMask), nil
}

// SetDirection configures pin as a plain input or output.
func (c *Controller) SetDirection(pin Pin, dir Direction) error {
	switch dir {
	case Input:
		return c.SetFunction(pin, FuncInput)
	case Output:
		return c.SetFunction(pin, FuncOutput)
	}
	return fmt.Errorf("internal error: unknown direction %d", int(dir))
}

// Set drives an output pin. It is a single write to the set or clear
// register, so pins sharing a bank never race each other.
func (c *Controller) Set(pin Pin, level Level) error {
	if err := c.checkPin(pin); err != nil {
		return err
	}
	bank, bit := BankLocation(pin)
	if level == Low {
		c.w.Write32(RegClear+bank*4, 1<<bit)
	} else {
		c.w.Write32(RegSet+bank*4, 1<<bit)
	}
	return nil
}

// Level samples pin.
func (c *Controller) Level(pin Pin) (Level, error) {
	if err := c.checkPin(pin); err != nil {
		return Low, err
	}
	bank, bit := BankLocation(pin)
	if (c.w.Read32(RegLevel+bank*4)>>bit)&1 == 0 {
		return Low, nil
	}
	return High, nil
}

// Close releases the register window.
func (c *Controller) Close() error {
	return c.w.Close()
}
