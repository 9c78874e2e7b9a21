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

// Package mmio provides bounds-checked 32-bit views over blocks of
// hardware registers, either memory mapped from a device node or
// simulated in memory.
package mmio

import (
	"fmt"
)

// Window is a block of 32-bit registers addressed by byte offset.
//
// Offsets must be 4-byte aligned and lie within the window; violating
// that is a programming error and panics.
type Window interface {
	// Len returns the size of the window in bytes.
	Len() int
	Read32(off uint32) uint32
	Write32(off uint32, v uint32)
	Close() error
}

func checkOffset(w Window, off uint32) {
	if off%4 != 0 {
		panic(fmt.Sprintf("internal error: unaligned register offset 0x%x", off))
	}
	if int(off)+4 > w.Len() {
		panic(fmt.Sprintf("internal error: register offset 0x%x outside of %d byte window", off, w.Len()))
	}
}
