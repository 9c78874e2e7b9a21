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

package gpiosim

import (
	"sync"

	"github.com/iomfpga/iomd/fpgabus"
	"github.com/iomfpga/iomd/gpio"
)

// FPGA emulates the register file of the I/O board FPGA on the parallel
// bus described by a pin map.
type FPGA struct {
	mu   sync.Mutex
	pins fpgabus.PinMap
	regs map[uint]byte

	isAddress map[gpio.Pin]bool
	isData    map[gpio.Pin]bool

	writes     []Write
	violations []Event
}

// Write is a register write seen by the FPGA.
type Write struct {
	Address uint
	Value   byte
}

// NewFPGA returns an FPGA listening on the given pins. Attach it to a
// Chip to use it.
func NewFPGA(pins fpgabus.PinMap) *FPGA {
	f := &FPGA{
		pins:      pins,
		regs:      make(map[uint]byte),
		isAddress: make(map[gpio.Pin]bool),
		isData:    make(map[gpio.Pin]bool),
	}
	for _, pin := range pins.Address {
		f.isAddress[pin] = true
	}
	for _, pin := range pins.Data {
		f.isData[pin] = true
	}
	return f
}

// asserted tells whether an active low control line is driven low. The
// board pulls undriven control lines up.
func asserted(st State, pin gpio.Pin) bool {
	return st.Direction(pin) == gpio.Output && st.Level(pin) == gpio.Low
}

func (f *FPGA) address(st State) uint {
	var addr uint
	for i, pin := range f.pins.Address {
		if st.Level(pin) == gpio.High {
			addr |= 1 << i
		}
	}
	return addr
}

func (f *FPGA) data(st State) byte {
	var v byte
	for i, pin := range f.pins.Data {
		if st.Level(pin) == gpio.High {
			v |= 1 << i
		}
	}
	return v
}

func (f *FPGA) driveData(st State, v byte) {
	for i, pin := range f.pins.Data {
		level := gpio.Low
		if v&(1<<i) != 0 {
			level = gpio.High
		}
		st.Drive(pin, level)
	}
}

// PinChanged implements Device.
func (f *FPGA) PinChanged(ev Event, st State) {
	f.mu.Lock()
	defer f.mu.Unlock()

	selected := asserted(st, f.pins.ChipSelect)

	switch {
	case ev.Pin == f.pins.WriteEnable && ev.Kind == LevelChange:
		if ev.Level == gpio.High && selected {
			addr := f.address(st)
			v := f.data(st)
			f.regs[addr] = v
			f.writes = append(f.writes, Write{Address: addr, Value: v})
		}
	case ev.Pin == f.pins.OutputEnable || ev.Pin == f.pins.ChipSelect:
		// a read cycle may start or end
	case selected && f.isAddress[ev.Pin]:
		f.violations = append(f.violations, ev)
	case selected && f.isData[ev.Pin]:
		if ev.Kind == DirectionChange || st.Direction(ev.Pin) == gpio.Output {
			f.violations = append(f.violations, ev)
		}
	}

	if selected && asserted(st, f.pins.OutputEnable) {
		f.driveData(st, f.regs[f.address(st)])
	}
}

// Register returns the value of the register at addr.
func (f *FPGA) Register(addr uint) byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regs[addr]
}

// SetRegister sets the register at addr, as peripheral hardware like the
// push switches would.
func (f *FPGA) SetRegister(addr uint, v byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regs[addr] = v
}

// Writes returns all register writes seen so far.
func (f *FPGA) Writes() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Write(nil), f.writes...)
}

// Violations returns the changes of address or data lines that happened
// while chip select was asserted. Transactions that do not interleave
// never cause any.
func (f *FPGA) Violations() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Event(nil), f.violations...)
}
