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

// Package gpiosim simulates the GPIO register block of a BCM283x/BCM2711
// chip, so that code driving the registers can be exercised without
// hardware.
package gpiosim

import (
	"fmt"
	"sync"

	"github.com/iomfpga/iomd/gpio"
)

// EventKind tells what changed in an Event.
type EventKind int

const (
	// LevelChange is a change of the output latch of a pin.
	LevelChange EventKind = iota
	// DirectionChange is a change of a pin between input and output.
	DirectionChange
)

func (k EventKind) String() string {
	if k == LevelChange {
		return "level"
	}
	return "direction"
}

// Event records one effective change of the chip state.
type Event struct {
	Seq       int
	Kind      EventKind
	Pin       gpio.Pin
	Level     gpio.Level
	Direction gpio.Direction
}

func (e Event) String() string {
	if e.Kind == LevelChange {
		return fmt.Sprintf("#%d pin %d %s", e.Seq, e.Pin, e.Level)
	}
	return fmt.Sprintf("#%d pin %d %s", e.Seq, e.Pin, e.Direction)
}

// State is the view of the chip handed to attached devices. Its methods
// must only be used from within Device.PinChanged.
type State interface {
	Level(pin gpio.Pin) gpio.Level
	Direction(pin gpio.Pin) gpio.Direction
	Drive(pin gpio.Pin, level gpio.Level)
}

// Device is something wired to the pins of the chip.
type Device interface {
	// PinChanged is called after every effective change of the chip.
	PinChanged(ev Event, st State)
}

// Chip is a simulated GPIO block. It implements mmio.Window.
type Chip struct {
	mu      sync.Mutex
	numPins uint
	fsel    [6]uint32
	latch   uint64
	driven  uint64
	mirror  bool
	seq     int
	tracing bool
	trace   []Event
	devices []Device
}

// New returns a chip with numPins pins, all inputs and low.
func New(numPins uint) *Chip {
	if numPins == 0 {
		numPins = gpio.NumPinsBCM2711
	}
	return &Chip{numPins: numPins, tracing: true}
}

// SetTracing turns recording of events on or off. Attached devices are
// notified either way.
func (c *Chip) SetTracing(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracing = on
}

// SetMirror makes input pins read back the output latch instead of the
// externally driven level, as if every pin were looped back onto itself.
func (c *Chip) SetMirror(mirror bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mirror = mirror
}

// Attach wires dev to the chip.
func (c *Chip) Attach(dev Device) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.devices = append(c.devices, dev)
}

func (c *Chip) Len() int {
	return gpio.WindowSize
}

func (c *Chip) checkOffset(off uint32) {
	if off%4 != 0 || int(off)+4 > c.Len() {
		panic(fmt.Sprintf("internal error: invalid register offset 0x%x", off))
	}
}

func (c *Chip) Read32(off uint32) uint32 {
	c.checkOffset(off)
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case off < gpio.RegFuncSelect+6*4:
		return c.fsel[off/4]
	case off == gpio.RegLevel || off == gpio.RegLevel+4:
		bank := (off - gpio.RegLevel) / 4
		return uint32(c.levels() >> (32 * bank))
	}
	return 0
}

func (c *Chip) Write32(off uint32, v uint32) {
	c.checkOffset(off)
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case off < gpio.RegFuncSelect+6*4:
		c.writeFsel(off/4, v)
	case off == gpio.RegSet || off == gpio.RegSet+4:
		bank := (off - gpio.RegSet) / 4
		c.writeLatch(uint64(v)<<(32*bank), true)
	case off == gpio.RegClear || off == gpio.RegClear+4:
		bank := (off - gpio.RegClear) / 4
		c.writeLatch(uint64(v)<<(32*bank), false)
	}
}

func (c *Chip) Close() error {
	return nil
}

func (c *Chip) writeFsel(reg uint32, v uint32) {
	old := c.fsel[reg]
	c.fsel[reg] = v
	for i := uint32(0); i < 10; i++ {
		pin := gpio.Pin(reg*10 + i)
		if uint(pin) >= c.numPins {
			break
		}
		wasOut := (old>>(i*3))&7 == uint32(gpio.FuncOutput)
		isOut := (v>>(i*3))&7 == uint32(gpio.FuncOutput)
		if wasOut != isOut {
			dir := gpio.Input
			if isOut {
				dir = gpio.Output
			}
			c.emit(Event{Kind: DirectionChange, Pin: pin, Direction: dir})
		}
	}
}

func (c *Chip) writeLatch(mask uint64, set bool) {
	for pin := gpio.Pin(0); uint(pin) < c.numPins; pin++ {
		bit := uint64(1) << pin
		if mask&bit == 0 {
			continue
		}
		if set == (c.latch&bit != 0) {
			continue
		}
		level := gpio.Low
		if set {
			c.latch |= bit
			level = gpio.High
		} else {
			c.latch &^= bit
		}
		c.emit(Event{Kind: LevelChange, Pin: pin, Level: level})
	}
}

func (c *Chip) emit(ev Event) {
	c.seq++
	ev.Seq = c.seq
	if c.tracing {
		c.trace = append(c.trace, ev)
	}
	for _, dev := range c.devices {
		dev.PinChanged(ev, lockedState{c})
	}
}

func (c *Chip) direction(pin gpio.Pin) gpio.Direction {
	if (c.fsel[pin/10]>>((pin%10)*3))&7 == uint32(gpio.FuncOutput) {
		return gpio.Output
	}
	return gpio.Input
}

func (c *Chip) levels() uint64 {
	var v uint64
	for pin := gpio.Pin(0); uint(pin) < c.numPins; pin++ {
		if c.level(pin) == gpio.High {
			v |= 1 << pin
		}
	}
	return v
}

func (c *Chip) level(pin gpio.Pin) gpio.Level {
	src := c.driven
	if c.mirror || c.direction(pin) == gpio.Output {
		src = c.latch
	}
	if src&(1<<pin) != 0 {
		return gpio.High
	}
	return gpio.Low
}

func (c *Chip) drive(pin gpio.Pin, level gpio.Level) {
	if level == gpio.High {
		c.driven |= 1 << pin
	} else {
		c.driven &^= 1 << pin
	}
}

// lockedState is handed to devices while the chip lock is held.
type lockedState struct {
	c *Chip
}

func (s lockedState) Level(pin gpio.Pin) gpio.Level         { return s.c.level(pin) }
func (s lockedState) Direction(pin gpio.Pin) gpio.Direction { return s.c.direction(pin) }
func (s lockedState) Drive(pin gpio.Pin, level gpio.Level)  { s.c.drive(pin, level) }

// Level returns the level seen on pin.
func (c *Chip) Level(pin gpio.Pin) gpio.Level {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level(pin)
}

// Output returns the output latch of pin.
func (c *Chip) Output(pin gpio.Pin) gpio.Level {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latch&(1<<pin) != 0 {
		return gpio.High
	}
	return gpio.Low
}

// Direction returns whether pin is configured as an output.
func (c *Chip) Direction(pin gpio.Pin) gpio.Direction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.direction(pin)
}

// Drive sets the level an external circuit applies to pin. It is seen
// only while the pin is an input.
func (c *Chip) Drive(pin gpio.Pin, level gpio.Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drive(pin, level)
}

// DriveMask sets the externally applied level of all pins at once, bit n
// of mask being the level of pin n.
func (c *Chip) DriveMask(mask uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.driven = mask
}

// Trace returns a copy of all events so far.
func (c *Chip) Trace() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.trace...)
}

// ResetTrace forgets the recorded events.
func (c *Chip) ResetTrace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trace = nil
}
