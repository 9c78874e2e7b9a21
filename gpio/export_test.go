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
	"os"

	"gopkg.in/retry.v1"

	"github.com/iomfpga/iomd/mmio"
)

func MockMmioMap(f func(path string, base int64, size int) (mmio.Window, error)) (restore func()) {
	old := mmioMap
	mmioMap = f
	return func() { mmioMap = old }
}

func MockOsStat(f func(name string) (os.FileInfo, error)) (restore func()) {
	old := osStat
	osStat = f
	return func() { osStat = old }
}

func MockDeviceRetryStrategy(s retry.Strategy) (restore func()) {
	old := deviceRetryStrategy
	deviceRetryStrategy = s
	return func() { deviceRetryStrategy = old }
}
