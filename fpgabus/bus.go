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

// Package fpgabus implements the parallel bus between the Raspberry Pi
// and the FPGA of the I/O board by bit-banging GPIO pins.
//
// A write puts the address and data on the bus, asserts chip select and
// pulses write enable. A read puts the address on the bus, turns the
// data pins around to inputs, asserts chip select and output enable and
// samples the data pins. All control lines are active low.
package fpgabus

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/iomfpga/iomd/gpio"
	"github.com/iomfpga/iomd/logger"
	"github.com/iomfpga/iomd/osutil"
	"github.com/iomfpga/iomd/timeutil"
)

var (
	// ErrClosed is returned when the bus was closed.
	ErrClosed = errors.New("fpga bus is closed")
	// ErrAddressRange is returned for addresses the address lines
	// cannot carry.
	ErrAddressRange = errors.New("fpga bus address out of range")
)

// PinController is the GPIO capability the bus needs.
type PinController interface {
	SetDirection(pin gpio.Pin, dir gpio.Direction) error
	Set(pin gpio.Pin, level gpio.Level) error
	Level(pin gpio.Pin) (gpio.Level, error)
}

// Delayer waits for the given duration. It is called in the middle of
// a transaction and must not yield to the scheduler; see
// timeutil.BusyWaitLocked.
type Delayer func(time.Duration)

// Options for New.
type Options struct {
	Pins PinMap
	// Timing of transactions, DefaultTiming() if zero.
	Timing Timing
	// Delay implements the waits, timeutil.BusyWaitLocked if nil.
	Delay Delayer
	// LockFile, if set, is flock()ed around every transaction so that
	// several processes mapping the same GPIO block do not interleave
	// their transactions.
	LockFile string
}

// Stats counts completed transactions.
type Stats struct {
	Reads  uint64
	Writes uint64
}

// Bus is an initialized parallel bus. It is safe for concurrent use;
// transactions are serialized.
type Bus struct {
	// mu is held for the whole of a transaction
	mu     sync.Mutex
	ctrl   PinController
	pins   PinMap
	timing Timing
	delay  Delayer
	flock  *osutil.FileLock
	roles  map[gpio.Pin]Role
	stats  Stats
	closed bool
}

// New configures the bus pins and returns the bus. Address and data pins
// become outputs driven low, control pins outputs driven high (idle).
func New(ctrl PinController, opts *Options) (*Bus, error) {
	if ctrl == nil {
		return nil, fmt.Errorf("cannot initialize fpga bus: no gpio controller")
	}
	if opts == nil {
		opts = &Options{Pins: DefaultPinMap()}
	}
	if err := opts.Pins.Validate(); err != nil {
		return nil, fmt.Errorf("cannot initialize fpga bus: %v", err)
	}

	b := &Bus{
		ctrl:   ctrl,
		pins:   opts.Pins,
		timing: opts.Timing,
		delay:  opts.Delay,
		roles:  make(map[gpio.Pin]Role),
	}
	if b.timing == (Timing{}) {
		b.timing = DefaultTiming()
	}
	if b.delay == nil {
		b.delay = timeutil.BusyWaitLocked
	}

	if err := b.configure(); err != nil {
		return nil, fmt.Errorf("cannot initialize fpga bus: %w", err)
	}

	if opts.LockFile != "" {
		if err := os.MkdirAll(filepath.Dir(opts.LockFile), 0755); err != nil {
			return nil, fmt.Errorf("cannot initialize fpga bus: %v", err)
		}
		flock, err := osutil.NewFileLock(opts.LockFile)
		if err != nil {
			return nil, fmt.Errorf("cannot initialize fpga bus: %v", err)
		}
		b.flock = flock
	}

	logger.Noticef("fpga bus configured (%d address lines, %d data lines)", len(b.pins.Address), len(b.pins.Data))
	return b, nil
}

func (b *Bus) configure() error {
	for _, pins := range [][]gpio.Pin{b.pins.Address, b.pins.Data} {
		for _, pin := range pins {
			if err := b.ctrl.SetDirection(pin, gpio.Output); err != nil {
				return err
			}
			b.roles[pin] = RoleOutput
			if err := b.ctrl.Set(pin, gpio.Low); err != nil {
				return err
			}
		}
	}
	// latch the idle level before turning the driver on so that the
	// control lines never glitch low
	for _, pin := range b.pins.Control() {
		if err := b.ctrl.Set(pin, gpio.High); err != nil {
			return err
		}
		if err := b.ctrl.SetDirection(pin, gpio.Output); err != nil {
			return err
		}
		b.roles[pin] = RoleOutput
	}
	return nil
}

func (b *Bus) lock() (unlock func(), err error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	if b.flock != nil {
		if err := b.flock.Lock(); err != nil {
			b.mu.Unlock()
			return nil, fmt.Errorf("cannot lock fpga bus: %v", err)
		}
	}
	return func() {
		if b.flock != nil {
			b.flock.Unlock()
		}
		b.mu.Unlock()
	}, nil
}

func (b *Bus) checkAddress(addr uint) error {
	if addr > b.pins.MaxAddress() {
		return fmt.Errorf("%w: 0x%x does not fit %d address lines", ErrAddressRange, addr, len(b.pins.Address))
	}
	return nil
}

// Write performs a bus write of value at addr.
func (b *Bus) Write(addr uint, value byte) error {
	unlock, err := b.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if err := b.checkAddress(addr); err != nil {
		return err
	}
	return b.doWrite(addr, value)
}

// Read performs a bus read of addr. A missing or silent peripheral is
// not detected; whatever level the data lines float to is returned.
func (b *Bus) Read(addr uint) (byte, error) {
	unlock, err := b.lock()
	if err != nil {
		return 0, err
	}
	defer unlock()

	if err := b.checkAddress(addr); err != nil {
		return 0, err
	}
	return b.doRead(addr)
}

// doWrite runs a write transaction; the caller holds the bus lock.
func (b *Bus) doWrite(addr uint, value byte) error {
	logger.Debugf("fpga write: address=0x%x data=0x%x", addr, value)
	if err := b.write(addr, value); err != nil {
		b.recover()
		return fmt.Errorf("cannot write fpga address 0x%x: %w", addr, err)
	}
	b.stats.Writes++
	return nil
}

// doRead runs a read transaction; the caller holds the bus lock.
func (b *Bus) doRead(addr uint) (byte, error) {
	value, err := b.read(addr)
	if err != nil {
		b.recover()
		return 0, fmt.Errorf("cannot read fpga address 0x%x: %w", addr, err)
	}
	logger.Debugf("fpga read: address=0x%x data=0x%x", addr, value)
	b.stats.Reads++
	return value, nil
}

func level(bit uint) gpio.Level {
	if bit&1 == 0 {
		return gpio.Low
	}
	return gpio.High
}

func (b *Bus) setAddress(addr uint) error {
	// line A0 is pulled down on the board, the pins start at A1
	phys := addr << 1
	for i, pin := range b.pins.Address {
		if err := b.ctrl.Set(pin, level(phys>>(i+1))); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bus) setDataDirection(dir gpio.Direction) error {
	role := RoleOutput
	if dir == gpio.Input {
		role = RoleInput
	}
	for _, pin := range b.pins.Data {
		if err := b.ctrl.SetDirection(pin, dir); err != nil {
			return err
		}
		b.roles[pin] = role
	}
	return nil
}

func (b *Bus) write(addr uint, value byte) error {
	if err := b.setAddress(addr); err != nil {
		return err
	}
	for i, pin := range b.pins.Data {
		if err := b.ctrl.Set(pin, level(uint(value)>>i)); err != nil {
			return err
		}
	}

	if err := b.ctrl.Set(b.pins.ChipSelect, gpio.Low); err != nil {
		return err
	}
	b.delay(b.timing.Setup)
	if err := b.ctrl.Set(b.pins.WriteEnable, gpio.Low); err != nil {
		return err
	}
	b.delay(b.timing.WritePulse)
	if err := b.ctrl.Set(b.pins.WriteEnable, gpio.High); err != nil {
		return err
	}
	return b.ctrl.Set(b.pins.ChipSelect, gpio.High)
}

func (b *Bus) read(addr uint) (byte, error) {
	if err := b.setAddress(addr); err != nil {
		return 0, err
	}
	if err := b.setDataDirection(gpio.Input); err != nil {
		return 0, err
	}

	if err := b.ctrl.Set(b.pins.ChipSelect, gpio.Low); err != nil {
		return 0, err
	}
	b.delay(b.timing.Setup)
	if err := b.ctrl.Set(b.pins.OutputEnable, gpio.Low); err != nil {
		return 0, err
	}
	b.delay(b.timing.ReadSettle)

	var value byte
	for i, pin := range b.pins.Data {
		l, err := b.ctrl.Level(pin)
		if err != nil {
			return 0, err
		}
		if l == gpio.High {
			value |= 1 << i
		}
	}

	if err := b.ctrl.Set(b.pins.OutputEnable, gpio.High); err != nil {
		return 0, err
	}
	if err := b.ctrl.Set(b.pins.ChipSelect, gpio.High); err != nil {
		return 0, err
	}
	// the host drives the data bus when idle
	if err := b.setDataDirection(gpio.Output); err != nil {
		return 0, err
	}
	return value, nil
}

// recover brings the bus back to idle after a failed transaction, on a
// best-effort basis.
func (b *Bus) recover() {
	for _, pin := range b.pins.Control() {
		b.ctrl.Set(pin, gpio.High)
	}
	b.setDataDirection(gpio.Output)
}

// Pins returns the pin map of the bus.
func (b *Bus) Pins() PinMap {
	return b.pins
}

// Timing returns the transaction timing of the bus.
func (b *Bus) Timing() Timing {
	return b.timing
}

// Roles returns a snapshot of the direction of every bus pin. Outside of
// a read all pins are outputs.
func (b *Bus) Roles() map[gpio.Pin]Role {
	b.mu.Lock()
	defer b.mu.Unlock()

	roles := make(map[gpio.Pin]Role, len(b.roles))
	for pin, role := range b.roles {
		roles[pin] = role
	}
	return roles
}

// Stats returns the transaction counters.
func (b *Bus) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// Close returns the control lines to idle and releases the controller
// if it can be closed. Transactions after Close fail with ErrClosed.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var firstErr error
	for _, pin := range b.pins.Control() {
		if err := b.ctrl.Set(pin, gpio.High); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if b.flock != nil {
		if err := b.flock.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if closer, ok := b.ctrl.(io.Closer); ok {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
