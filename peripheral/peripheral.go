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

// Package peripheral implements the devices of the I/O board on top of
// the FPGA bus: LEDs, seven segment display, dot matrix, text LCD,
// buzzer, push switches and step motor.
package peripheral

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/iomfpga/iomd/logger"
	"github.com/iomfpga/iomd/shadow"
)

var (
	// ErrBusy is returned by Open when the peripheral is already open.
	ErrBusy = errors.New("peripheral is busy")
	// ErrNotOpen is returned when using a peripheral without opening it.
	ErrNotOpen = errors.New("peripheral is not open")
	// ErrUnknown is returned for names no peripheral has.
	ErrUnknown = errors.New("unknown peripheral")
	// ErrNotReadable is returned by Read for peripherals without a way to
	// report their state.
	ErrNotReadable = errors.New("peripheral cannot be read")
	// ErrNotWritable is returned by Write for input only peripherals.
	ErrNotWritable = errors.New("peripheral cannot be written")
)

// Bus is what peripherals need from the FPGA bus.
type Bus interface {
	Write(addr uint, value byte) error
	Read(addr uint) (byte, error)
}

// Peripheral is one device of the board. At most one user may have it
// open at a time.
type Peripheral struct {
	name  string
	bus   Bus
	store *shadow.Store
	kind  *kind

	mu     sync.Mutex
	isOpen bool
}

// kind describes how a peripheral maps onto bus registers.
type kind struct {
	// minSize and maxSize bound the length of a write
	minSize, maxSize int
	write            func(bus Bus, data []byte) ([]byte, error)
	read             func(bus Bus) ([]byte, error)
	// shadowed peripherals report the last write when read
	shadowed bool
}

func (p *Peripheral) Name() string {
	return p.name
}

// Readable tells whether Read can report the state of the peripheral.
func (p *Peripheral) Readable() bool {
	return p.kind.read != nil || p.kind.shadowed
}

// Writable tells whether the peripheral accepts writes.
func (p *Peripheral) Writable() bool {
	return p.kind.write != nil
}

// WriteSize returns the smallest and largest accepted write.
func (p *Peripheral) WriteSize() (min, max int) {
	return p.kind.minSize, p.kind.maxSize
}

// Open claims the peripheral. It fails with ErrBusy if it is already
// claimed.
func (p *Peripheral) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isOpen {
		return fmt.Errorf("cannot open %s: %w", p.name, ErrBusy)
	}
	p.isOpen = true
	return nil
}

// Release gives the peripheral back.
func (p *Peripheral) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isOpen = false
}

// IsOpen tells whether somebody holds the peripheral.
func (p *Peripheral) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isOpen
}

func (p *Peripheral) checkOpen() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.isOpen {
		return fmt.Errorf("cannot use %s: %w", p.name, ErrNotOpen)
	}
	return nil
}

// Write sends data to the peripheral. How data is laid out depends on
// the peripheral, see New.
func (p *Peripheral) Write(data []byte) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	if p.kind.write == nil {
		return fmt.Errorf("cannot write %s: %w", p.name, ErrNotWritable)
	}
	if len(data) < p.kind.minSize || len(data) > p.kind.maxSize {
		if p.kind.minSize == p.kind.maxSize {
			return fmt.Errorf("cannot write %s: need %d bytes, got %d", p.name, p.kind.minSize, len(data))
		}
		return fmt.Errorf("cannot write %s: need %d to %d bytes, got %d", p.name, p.kind.minSize, p.kind.maxSize, len(data))
	}
	written, err := p.kind.write(p.bus, data)
	if err != nil {
		return fmt.Errorf("cannot write %s: %w", p.name, err)
	}
	if p.kind.shadowed {
		if err := p.store.Put(p.name, written); err != nil {
			// the hardware has the value, only reporting suffers
			logger.Noticef("cannot remember state of %s: %v", p.name, err)
		}
	}
	return nil
}

// Read returns the state of the peripheral. Peripherals that cannot be
// read over the bus report what was last written to them.
func (p *Peripheral) Read() ([]byte, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	switch {
	case p.kind.read != nil:
		data, err := p.kind.read(p.bus)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", p.name, err)
		}
		return data, nil
	case p.kind.shadowed:
		data, err := p.store.Get(p.name)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", p.name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("cannot read %s: %w", p.name, ErrNotReadable)
}

// Registry holds all peripherals of one board.
type Registry struct {
	peripherals map[string]*Peripheral
}

// NewRegistry returns the peripherals of the board on bus. Write-only
// peripherals remember their state in store, which may be nil.
func NewRegistry(bus Bus, store *shadow.Store) *Registry {
	r := &Registry{peripherals: make(map[string]*Peripheral, len(kinds))}
	for name, k := range kinds {
		r.peripherals[name] = &Peripheral{
			name:  name,
			bus:   bus,
			store: store,
			kind:  k,
		}
	}
	return r
}

// Get returns the peripheral called name.
func (r *Registry) Get(name string) (*Peripheral, error) {
	p, ok := r.peripherals[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknown, name)
	}
	return p, nil
}

// Names returns the peripheral names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.peripherals))
	for name := range r.peripherals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TextLCD returns the text LCD.
func (r *Registry) TextLCD() *TextLCD {
	return &TextLCD{r.peripherals[NameTextLCD]}
}

// PushSwitch returns the push switches.
func (r *Registry) PushSwitch() *Peripheral {
	return r.peripherals[NamePushSwitch]
}
