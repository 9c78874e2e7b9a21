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

package main

import (
	"os"

	"github.com/iomfpga/iomd/gpio"
	"github.com/iomfpga/iomd/testutil"
)

var (
	Run          = run
	ParseArgs    = parseArgs
	ReadSettings = readSettings
)

func (s *settings) Socket() string    { return s.socket }
func (s *settings) Debug() bool       { return s.debug }
func (s *settings) PollRate() float64 { return s.pollRate }

func MockSdNotify(f func(unsetEnv bool, state string) (bool, error)) (restore func()) {
	return testutil.Mock(&sdNotify, f)
}

func MockGpioOpen(f func(opts *gpio.OpenOptions) (*gpio.Controller, error)) (restore func()) {
	return testutil.Mock(&gpioOpen, f)
}

func MockSignalNotify(f func(c chan<- os.Signal, sig ...os.Signal)) (restore func()) {
	return testutil.Mock(&signalNotify, f)
}
