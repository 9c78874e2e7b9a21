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

package gpio_test

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	. "gopkg.in/check.v1"
	"gopkg.in/retry.v1"

	"github.com/iomfpga/iomd/dirs"
	"github.com/iomfpga/iomd/gpio"
	"github.com/iomfpga/iomd/mmio"
)

type openSuite struct {
	root    string
	mapped  []string
	bases   []int64
	restore []func()
}

var _ = Suite(&openSuite{})

func (s *openSuite) SetUpTest(c *C) {
	s.root = c.MkDir()
	dirs.SetRootDir(s.root)
	s.mapped = nil
	s.bases = nil
	s.restore = []func(){
		func() { dirs.SetRootDir("") },
		gpio.MockMmioMap(func(path string, base int64, size int) (mmio.Window, error) {
			s.mapped = append(s.mapped, path)
			s.bases = append(s.bases, base)
			return mmio.NewMemory(size), nil
		}),
		gpio.MockDeviceRetryStrategy(retry.LimitCount(3, retry.Exponential{Initial: time.Microsecond, Factor: 1})),
	}
	c.Assert(os.MkdirAll(filepath.Join(s.root, "dev"), 0755), IsNil)
}

func (s *openSuite) TearDownTest(c *C) {
	for _, r := range s.restore {
		r()
	}
}

func (s *openSuite) writeRanges(c *C, data []byte) {
	dir := filepath.Dir(dirs.DeviceTreeRanges)
	c.Assert(os.MkdirAll(dir, 0755), IsNil)
	c.Assert(os.WriteFile(dirs.DeviceTreeRanges, data, 0644), IsNil)
}

func (s *openSuite) TestOpenPrefersGpiomem(c *C) {
	c.Assert(os.WriteFile(dirs.GpiomemDevice, nil, 0600), IsNil)

	ctrl, err := gpio.Open(nil)
	c.Assert(err, IsNil)
	c.Check(ctrl.NumPins(), Equals, uint(gpio.NumPinsBCM2711))
	c.Check(s.mapped, DeepEquals, []string{dirs.GpiomemDevice})
	c.Check(s.bases, DeepEquals, []int64{0})
}

func (s *openSuite) TestOpenFallsBackToMemPi4(c *C) {
	// soc ranges of a Pi 4: 0x7e000000 -> 0x0 0xfe000000
	s.writeRanges(c, []byte{
		0x7e, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0xfe, 0x00, 0x00, 0x00,
		0x01, 0x80, 0x00, 0x00,
	})

	_, err := gpio.Open(&gpio.OpenOptions{NumPins: gpio.NumPinsBCM2835})
	c.Assert(err, IsNil)
	c.Check(s.mapped, DeepEquals, []string{dirs.MemDevice})
	c.Check(s.bases, DeepEquals, []int64{0xfe200000})
}

func (s *openSuite) TestGPIOBase(c *C) {
	// no device tree
	c.Check(gpio.GPIOBase(), Equals, int64(0xfe200000))

	// Pi 2/3 style single cell parent address
	s.writeRanges(c, []byte{
		0x7e, 0x00, 0x00, 0x00,
		0x3f, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x00, 0x00,
	})
	c.Check(gpio.GPIOBase(), Equals, int64(0x3f200000))

	// garbage
	s.writeRanges(c, []byte{0x01})
	c.Check(gpio.GPIOBase(), Equals, int64(0xfe200000))
}

func (s *openSuite) TestOpenExplicitDeviceAndBase(c *C) {
	dev := filepath.Join(s.root, "dev", "fpga-gpio")
	c.Assert(os.WriteFile(dev, nil, 0600), IsNil)

	_, err := gpio.Open(&gpio.OpenOptions{Device: dev, Base: 0x1000, Size: 0x100})
	c.Assert(err, IsNil)
	c.Check(s.mapped, DeepEquals, []string{dev})
	c.Check(s.bases, DeepEquals, []int64{0x1000})
}

func (s *openSuite) TestOpenExplicitGpiomemIgnoresBase(c *C) {
	c.Assert(os.WriteFile(dirs.GpiomemDevice, nil, 0600), IsNil)

	_, err := gpio.Open(&gpio.OpenOptions{Device: dirs.GpiomemDevice, Base: 0xfe200000})
	c.Assert(err, IsNil)
	c.Check(s.mapped, DeepEquals, []string{dirs.GpiomemDevice})
	c.Check(s.bases, DeepEquals, []int64{0})
}

func (s *openSuite) TestOpenExplicitMemDefaultsBase(c *C) {
	c.Assert(os.WriteFile(dirs.MemDevice, nil, 0600), IsNil)

	// no device tree, the BCM2711 block is used
	_, err := gpio.Open(&gpio.OpenOptions{Device: dirs.MemDevice})
	c.Assert(err, IsNil)
	c.Check(s.mapped, DeepEquals, []string{dirs.MemDevice})
	c.Check(s.bases, DeepEquals, []int64{0xfe200000})
}

func (s *openSuite) TestOpenExplicitDeviceWaits(c *C) {
	dev := filepath.Join(s.root, "dev", "gpiomem")
	calls := 0
	restore := gpio.MockOsStat(func(name string) (os.FileInfo, error) {
		c.Check(name, Equals, dev)
		calls++
		if calls < 3 {
			return nil, os.ErrNotExist
		}
		return nil, nil
	})
	defer restore()

	_, err := gpio.Open(&gpio.OpenOptions{Device: dev})
	c.Assert(err, IsNil)
	c.Check(calls, Equals, 3)
	c.Check(s.mapped, DeepEquals, []string{dev})
}

func (s *openSuite) TestOpenExplicitDeviceNeverAppears(c *C) {
	dev := filepath.Join(s.root, "dev", "gpiomem")

	_, err := gpio.Open(&gpio.OpenOptions{Device: dev})
	c.Check(err, ErrorMatches, `cannot use gpio device: stat .*/dev/gpiomem: no such file or directory`)
	c.Check(s.mapped, HasLen, 0)
}

func (s *openSuite) TestOpenMapFails(c *C) {
	c.Assert(os.WriteFile(dirs.GpiomemDevice, nil, 0600), IsNil)
	restore := gpio.MockMmioMap(func(path string, base int64, size int) (mmio.Window, error) {
		return nil, errors.New("cannot map register window: boom")
	})
	defer restore()

	ctrl, err := gpio.Open(nil)
	c.Check(err, ErrorMatches, "cannot map register window: boom")
	c.Check(ctrl, IsNil)
}
