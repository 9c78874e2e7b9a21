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

// Package boardconfig reads the description of the I/O board wiring
// from a YAML file.
package boardconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iomfpga/iomd/dirs"
	"github.com/iomfpga/iomd/fpgabus"
	"github.com/iomfpga/iomd/gpio"
	"github.com/iomfpga/iomd/logger"
)

// Duration is a time.Duration written as "5us", "1ms" and so on.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("cannot parse duration %q: %v", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// GPIO describes the register block.
type GPIO struct {
	Device  string `yaml:"device,omitempty"`
	Base    int64  `yaml:"base,omitempty"`
	Size    int    `yaml:"size,omitempty"`
	NumPins uint   `yaml:"pins,omitempty"`
}

// Bus describes the wiring of the parallel bus.
type Bus struct {
	AddressPins  []gpio.Pin `yaml:"address-pins"`
	DataPins     []gpio.Pin `yaml:"data-pins"`
	WriteEnable  gpio.Pin   `yaml:"write-enable"`
	OutputEnable gpio.Pin   `yaml:"output-enable"`
	ChipSelect   gpio.Pin   `yaml:"chip-select"`
	// LockFile is shared with other processes using the bus. Empty
	// disables cross-process locking.
	LockFile string `yaml:"lock-file,omitempty"`
	// SelfTestAddress is a read/write scratch register, if the FPGA
	// design has one.
	SelfTestAddress *uint `yaml:"self-test-address,omitempty"`
}

type Timing struct {
	Setup      Duration `yaml:"setup"`
	WritePulse Duration `yaml:"write-pulse"`
	ReadSettle Duration `yaml:"read-settle"`
}

// Board is the content of the board configuration file.
type Board struct {
	GPIO   GPIO   `yaml:"gpio"`
	Bus    Bus    `yaml:"bus"`
	Timing Timing `yaml:"timing"`
}

// Default returns the configuration of the stock board.
func Default() *Board {
	pins := fpgabus.DefaultPinMap()
	timing := fpgabus.DefaultTiming()
	return &Board{
		GPIO: GPIO{
			Size:    gpio.WindowSize,
			NumPins: gpio.NumPinsBCM2711,
		},
		Bus: Bus{
			AddressPins:  pins.Address,
			DataPins:     pins.Data,
			WriteEnable:  pins.WriteEnable,
			OutputEnable: pins.OutputEnable,
			ChipSelect:   pins.ChipSelect,
			LockFile:     dirs.BusLockFile,
		},
		Timing: Timing{
			Setup:      Duration(timing.Setup),
			WritePulse: Duration(timing.WritePulse),
			ReadSettle: Duration(timing.ReadSettle),
		},
	}
}

// Load reads the board configuration at path. Settings missing from the
// file keep their default value; a missing file yields Default().
func Load(path string) (*Board, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Debugf("no board configuration at %s, using defaults", path)
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read board configuration: %v", err)
	}
	return parse(path, data)
}

func parse(path string, data []byte) (*Board, error) {
	b := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(b); err != nil && err != io.EOF {
		return nil, fmt.Errorf("cannot parse board configuration %s: %v", path, err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid board configuration %s: %v", path, err)
	}
	return b, nil
}

// Validate checks the configuration for consistency.
func (b *Board) Validate() error {
	if b.GPIO.Size != 0 && b.GPIO.Size < gpio.WindowSize {
		return fmt.Errorf("gpio window size %d too small, need at least %d", b.GPIO.Size, gpio.WindowSize)
	}
	if b.GPIO.Base < 0 {
		return fmt.Errorf("negative gpio base 0x%x", b.GPIO.Base)
	}
	pins := b.PinMap()
	if err := pins.Validate(); err != nil {
		return err
	}
	numPins := b.GPIO.NumPins
	if numPins == 0 {
		numPins = gpio.NumPinsBCM2711
	}
	for _, pin := range append(append(append([]gpio.Pin(nil), pins.Address...), pins.Data...), pins.Control()...) {
		if uint(pin) >= numPins {
			return fmt.Errorf("bus pin %d not on a chip with %d pins", pin, numPins)
		}
	}
	for _, t := range []struct {
		name string
		d    Duration
	}{
		{"setup", b.Timing.Setup},
		{"write-pulse", b.Timing.WritePulse},
		{"read-settle", b.Timing.ReadSettle},
	} {
		if t.d < 0 {
			return fmt.Errorf("negative %s time %s", t.name, time.Duration(t.d))
		}
	}
	if b.Bus.SelfTestAddress != nil && *b.Bus.SelfTestAddress > pins.MaxAddress() {
		return fmt.Errorf("self-test-address 0x%x does not fit %d address lines", *b.Bus.SelfTestAddress, len(pins.Address))
	}
	return nil
}

// PinMap returns the bus wiring.
func (b *Board) PinMap() fpgabus.PinMap {
	return fpgabus.PinMap{
		Address:      b.Bus.AddressPins,
		Data:         b.Bus.DataPins,
		WriteEnable:  b.Bus.WriteEnable,
		OutputEnable: b.Bus.OutputEnable,
		ChipSelect:   b.Bus.ChipSelect,
	}
}

// BusOptions returns the options to bring up the bus with.
func (b *Board) BusOptions() *fpgabus.Options {
	return &fpgabus.Options{
		Pins: b.PinMap(),
		Timing: fpgabus.Timing{
			Setup:      time.Duration(b.Timing.Setup),
			WritePulse: time.Duration(b.Timing.WritePulse),
			ReadSettle: time.Duration(b.Timing.ReadSettle),
		},
		LockFile: b.Bus.LockFile,
	}
}

// OpenOptions returns the options to map the GPIO registers with.
func (b *Board) OpenOptions() *gpio.OpenOptions {
	return &gpio.OpenOptions{
		Device:  b.GPIO.Device,
		Base:    b.GPIO.Base,
		Size:    b.GPIO.Size,
		NumPins: b.GPIO.NumPins,
	}
}
