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
	"time"

	"gopkg.in/check.v1"

	"github.com/iomfpga/iomd/fpgabus"
	"github.com/iomfpga/iomd/gpio"
	"github.com/iomfpga/iomd/gpio/gpiosim"
)

type busTraceSuite struct {
	chip *gpiosim.Chip
	bus  *fpgabus.Bus
	mon  *BusMonitor
}

var _ = check.Suite(&busTraceSuite{})

func (s *busTraceSuite) SetUpTest(c *check.C) {
	s.chip = gpiosim.New(gpio.NumPinsBCM2711)
	s.chip.Attach(gpiosim.NewFPGA(fpgabus.DefaultPinMap()))
	s.mon = NewBusMonitor(fpgabus.DefaultPinMap())
	s.chip.Attach(s.mon)
	bus, err := fpgabus.New(gpio.NewController(s.chip, gpio.NumPinsBCM2711), &fpgabus.Options{
		Pins:  fpgabus.DefaultPinMap(),
		Delay: func(time.Duration) {},
	})
	c.Assert(err, check.IsNil)
	s.bus = bus
	s.chip.ResetTrace()
}

func (s *busTraceSuite) TestBusMonitor(c *check.C) {
	c.Assert(s.bus.Write(0x123, 0x5A), check.IsNil)
	v, err := s.bus.Read(0x123)
	c.Assert(err, check.IsNil)
	c.Check(v, check.Equals, byte(0x5A))

	c.Assert(s.mon.Writes, check.HasLen, 1)
	c.Check(s.mon.Writes[0].Address, check.Equals, uint(0x123))
	c.Check(s.mon.Writes[0].Physical, check.Equals, uint64(0x246))
	c.Check(s.mon.Writes[0].Data, check.Equals, byte(0x5A))
	c.Assert(s.mon.Reads, check.HasLen, 1)
	c.Check(s.mon.Reads[0].Address, check.Equals, uint(0x123))
	c.Check(s.mon.Reads[0].Data, check.Equals, byte(0x5A))
	c.Check(s.mon.Reads[0].DataDirections[0], check.Equals, gpio.Input)
}

func (s *busTraceSuite) TestControlTrace(c *check.C) {
	c.Assert(s.bus.Write(0x016, 1), check.IsNil)
	c.Check(ControlTrace(s.chip.Trace(), fpgabus.DefaultPinMap()), check.DeepEquals,
		[]string{"nCS low", "nWE low", "nWE high", "nCS high"})
}

func (s *busTraceSuite) TestControlTraceEquals(c *check.C) {
	testInfo(c, ControlTraceEquals, "ControlTraceEquals", []string{"trace", "expected"})

	c.Assert(s.bus.Write(0x016, 1), check.IsNil)
	trace := s.chip.Trace()
	testCheck(c, ControlTraceEquals, true, "", trace, []string{"nCS low", "nWE low", "nWE high", "nCS high"})
	testCheck(c, ControlTraceEquals, false, "control lines went nCS low, nWE low, nWE high, nCS high", trace, []string{"nCS low", "nCS high"})
	testCheck(c, ControlTraceEquals, true, "", []gpiosim.Event(nil), []string(nil))
	testCheck(c, ControlTraceEquals, false, "first argument must be a []gpiosim.Event", "potato", []string{})
	testCheck(c, ControlTraceEquals, false, "second argument must be a []string", trace, "potato")
}
