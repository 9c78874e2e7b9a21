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

package fpgabus_test

import (
	"sync"
	"time"

	. "gopkg.in/check.v1"

	"github.com/iomfpga/iomd/fpgabus"
	"github.com/iomfpga/iomd/gpio"
	"github.com/iomfpga/iomd/gpio/gpiosim"
)

func (s *busSuite) TestSelfTestPasses(c *C) {
	c.Assert(s.bus.SelfTest(0x7F0, nil), IsNil)

	var values []byte
	for _, w := range s.fpga.Writes() {
		c.Check(w.Address, Equals, uint(0x7F0))
		values = append(values, w.Value)
	}
	c.Check(values, DeepEquals, []byte{0x55, 0xAA, 0x00, 0xFF})
	c.Check(s.bus.Stats(), Equals, fpgabus.Stats{Reads: 4, Writes: 4})
}

func (s *busSuite) TestSelfTestCustomPatterns(c *C) {
	c.Assert(s.bus.SelfTest(0x001, []byte{0x01, 0x02}), IsNil)
	c.Check(s.fpga.Writes(), HasLen, 2)
}

func (s *busSuite) TestSelfTestNothingConnected(c *C) {
	chip := gpiosim.New(gpio.NumPinsBCM2711)
	bus, err := fpgabus.New(gpio.NewController(chip, gpio.NumPinsBCM2711), &fpgabus.Options{
		Pins:  fpgabus.DefaultPinMap(),
		Delay: func(time.Duration) {},
	})
	c.Assert(err, IsNil)

	err = bus.SelfTest(0x010, nil)
	c.Assert(err, FitsTypeOf, &fpgabus.SelfTestError{})
	stErr := err.(*fpgabus.SelfTestError)
	c.Check(stErr.Address, Equals, uint(0x010))
	c.Check(stErr.Mismatches, DeepEquals, []fpgabus.Mismatch{
		{Wrote: 0x55, Read: 0x00},
		{Wrote: 0xAA, Read: 0x00},
		{Wrote: 0xFF, Read: 0x00},
	})
	c.Check(err, ErrorMatches, `fpga bus self test failed at address 0x10: wrote 0x55 read 0x00, wrote 0xaa read 0x00, wrote 0xff read 0x00`)
}

func (s *busSuite) TestSelfTestAddressRange(c *C) {
	err := s.bus.SelfTest(0x800, nil)
	c.Check(err, ErrorMatches, `fpga bus address out of range: .*`)
}

func (s *busSuite) TestSelfTestNotDisturbedByOtherWriters(c *C) {
	s.chip.SetTracing(false)
	bus, err := fpgabus.New(s.ctrl, &fpgabus.Options{
		Pins: fpgabus.DefaultPinMap(),
		// yield between the strobes to let the writer in
		Delay: func(time.Duration) { time.Sleep(time.Microsecond) },
	})
	c.Assert(err, IsNil)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if err := bus.Write(0x7F0, 0x42); err != nil {
				c.Error(err)
				return
			}
		}
	}()

	for i := 0; i < 20; i++ {
		c.Check(bus.SelfTest(0x7F0, nil), IsNil)
	}
	close(stop)
	wg.Wait()
	c.Check(s.fpga.Violations(), HasLen, 0)
}
