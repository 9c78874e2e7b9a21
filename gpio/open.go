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

package gpio

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"gopkg.in/retry.v1"

	"github.com/iomfpga/iomd/dirs"
	"github.com/iomfpga/iomd/logger"
	"github.com/iomfpga/iomd/mmio"
)

const (
	// offset of the GPIO block from the peripheral base
	gpioOffset = 0x200000
	// peripheral base of the BCM2711, used when the device tree cannot
	// tell
	defaultPeripheralBase = 0xfe000000
)

var (
	mmioMap = func(path string, base int64, size int) (mmio.Window, error) {
		return mmio.Map(path, base, size)
	}
	osStat = os.Stat

	deviceRetryStrategy retry.Strategy = retry.LimitTime(10*time.Second,
		retry.Exponential{
			Initial:  10 * time.Millisecond,
			Factor:   2,
			MaxDelay: time.Second,
		},
	)
)

// OpenOptions describe how to find the GPIO register block.
type OpenOptions struct {
	// Device is the node to map. When empty /dev/gpiomem is tried
	// first and /dev/mem is used as a fallback.
	Device string
	// Base is the offset into Device of the GPIO block. It is ignored
	// for /dev/gpiomem, which starts at the block. When zero and
	// /dev/mem is used it is derived from the device tree.
	Base int64
	// Size of the register window, WindowSize if zero.
	Size int
	// NumPins of the chip, NumPinsBCM2711 if zero.
	NumPins uint
}

// Open maps the GPIO register block and returns a controller for it.
func Open(opts *OpenOptions) (*Controller, error) {
	if opts == nil {
		opts = &OpenOptions{}
	}
	size := opts.Size
	if size == 0 {
		size = WindowSize
	}
	numPins := opts.NumPins
	if numPins == 0 {
		numPins = NumPinsBCM2711
	}

	path, base, err := locateDevice(opts)
	if err != nil {
		return nil, err
	}

	w, err := mmioMap(path, base, size)
	if err != nil {
		return nil, err
	}
	logger.Debugf("mapped %d bytes of gpio registers from %s at 0x%x", size, path, base)

	return NewController(w, numPins), nil
}

func locateDevice(opts *OpenOptions) (path string, base int64, err error) {
	if opts.Device != "" {
		if err := waitForDevice(opts.Device); err != nil {
			return "", 0, err
		}
		switch opts.Device {
		case dirs.GpiomemDevice:
			// gpiomem starts at the gpio block whatever the base says
			base = 0
		case dirs.MemDevice:
			base = opts.Base
			if base == 0 {
				base = GPIOBase()
			}
		default:
			base = opts.Base
		}
		return opts.Device, base, nil
	}

	if _, err := osStat(dirs.GpiomemDevice); err == nil {
		return dirs.GpiomemDevice, 0, nil
	}
	base = opts.Base
	if base == 0 {
		base = GPIOBase()
	}
	logger.Noticef("%s not available, falling back to %s", dirs.GpiomemDevice, dirs.MemDevice)
	return dirs.MemDevice, base, nil
}

// waitForDevice waits for a device node that udev may not have created
// yet.
func waitForDevice(path string) error {
	var err error
	for attempt := retry.Start(deviceRetryStrategy, nil); attempt.Next(); {
		_, err = osStat(path)
		if err == nil || !os.IsNotExist(err) {
			break
		}
		if attempt.More() {
			logger.Debugf("waiting for %s to appear", path)
		}
	}
	if err != nil {
		return fmt.Errorf("cannot use gpio device: %w", err)
	}
	return nil
}

// GPIOBase returns the physical address of the GPIO block, derived from
// the peripheral base in the device tree. The BCM2711 address is
// returned if the device tree cannot be read.
func GPIOBase() int64 {
	base := int64(defaultPeripheralBase + gpioOffset)
	data, err := os.ReadFile(dirs.DeviceTreeRanges)
	if err != nil || len(data) < 8 {
		return base
	}
	// <child-addr parent-addr size>; the parent address is a single
	// cell on older boards and two cells (high word first) on the Pi 4
	parent := binary.BigEndian.Uint32(data[4:8])
	if parent == 0 && len(data) >= 12 {
		parent = binary.BigEndian.Uint32(data[8:12])
	}
	if parent == 0 {
		return base
	}
	return int64(parent) + gpioOffset
}
