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

package testutil

import (
	"fmt"
	"reflect"
	"strings"

	"gopkg.in/check.v1"

	"github.com/iomfpga/iomd/fpgabus"
	"github.com/iomfpga/iomd/gpio"
	"github.com/iomfpga/iomd/gpio/gpiosim"
)

// Strobe is the state of the bus lines when a strobe was asserted.
type Strobe struct {
	// Address as seen on the address lines.
	Address uint
	// Physical is the address with line A0 included, as the FPGA
	// decodes it.
	Physical uint64
	// Data on the data lines.
	Data byte
	// DataDirections of the data lines.
	DataDirections []gpio.Direction
}

// BusMonitor is a simulated device recording the bus lines on every
// falling edge of write enable and output enable.
type BusMonitor struct {
	pins   fpgabus.PinMap
	Writes []Strobe
	Reads  []Strobe
}

// NewBusMonitor returns a monitor for a bus wired as pins.
func NewBusMonitor(pins fpgabus.PinMap) *BusMonitor {
	return &BusMonitor{pins: pins}
}

func (m *BusMonitor) PinChanged(ev gpiosim.Event, st gpiosim.State) {
	if ev.Kind != gpiosim.LevelChange || ev.Level != gpio.Low {
		return
	}
	switch ev.Pin {
	case m.pins.WriteEnable:
		m.Writes = append(m.Writes, m.sample(st))
	case m.pins.OutputEnable:
		m.Reads = append(m.Reads, m.sample(st))
	}
}

func (m *BusMonitor) sample(st gpiosim.State) Strobe {
	var s Strobe
	for i, pin := range m.pins.Address {
		if st.Level(pin) == gpio.High {
			s.Address |= 1 << i
			s.Physical |= 1 << (i + 1)
		}
	}
	for i, pin := range m.pins.Data {
		if st.Level(pin) == gpio.High {
			s.Data |= 1 << i
		}
		s.DataDirections = append(s.DataDirections, st.Direction(pin))
	}
	return s
}

// ControlTrace renders the level changes of the control lines in trace,
// e.g. "nCS low".
func ControlTrace(trace []gpiosim.Event, pins fpgabus.PinMap) []string {
	names := map[gpio.Pin]string{
		pins.WriteEnable:  "nWE",
		pins.OutputEnable: "nOE",
		pins.ChipSelect:   "nCS",
	}
	var out []string
	for _, ev := range trace {
		if name, ok := names[ev.Pin]; ok && ev.Kind == gpiosim.LevelChange {
			out = append(out, name+" "+ev.Level.String())
		}
	}
	return out
}

type controlTraceChecker struct {
	*check.CheckerInfo
}

// ControlTraceEquals checks that the control line changes of a chip
// trace, on the default pin map, are the expected ones.
//
//	c.Check(chip.Trace(), testutil.ControlTraceEquals, []string{"nCS low", "nCS high"})
var ControlTraceEquals check.Checker = &controlTraceChecker{
	&check.CheckerInfo{Name: "ControlTraceEquals", Params: []string{"trace", "expected"}},
}

func (*controlTraceChecker) Check(params []interface{}, names []string) (result bool, errMsg string) {
	trace, ok := params[0].([]gpiosim.Event)
	if !ok {
		return false, "first argument must be a []gpiosim.Event"
	}
	expected, ok := params[1].([]string)
	if !ok {
		return false, "second argument must be a []string"
	}
	got := ControlTrace(trace, fpgabus.DefaultPinMap())
	if len(got) == 0 && len(expected) == 0 {
		return true, ""
	}
	if reflect.DeepEqual(got, expected) {
		return true, ""
	}
	return false, fmt.Sprintf("control lines went %s", strings.Join(got, ", "))
}
