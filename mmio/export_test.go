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

package mmio

import (
	"os"
)

func MockOsOpenFile(f func(name string, flag int, perm os.FileMode) (*os.File, error)) (restore func()) {
	old := osOpenFile
	osOpenFile = f
	return func() { osOpenFile = old }
}

func MockUnixMmap(f func(fd int, offset int64, length int, prot int, flags int) ([]byte, error)) (restore func()) {
	old := unixMmap
	unixMmap = f
	return func() { unixMmap = old }
}

func MockUnixMunmap(f func(b []byte) error) (restore func()) {
	old := unixMunmap
	unixMunmap = f
	return func() { unixMunmap = old }
}
