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
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

var (
	osOpenFile = os.OpenFile
	unixMmap   = unix.Mmap
	unixMunmap = unix.Munmap
)

// Mapping is a Window over physical memory mapped from a device node
// such as /dev/gpiomem.
type Mapping struct {
	mu    sync.Mutex
	mem8  []byte
	mem32 []uint32
}

// Map maps size bytes at offset base of the device node at path.
func Map(path string, base int64, size int) (*Mapping, error) {
	if size <= 0 || size%4 != 0 {
		return nil, fmt.Errorf("cannot map register window: invalid size %d", size)
	}

	f, err := osOpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("cannot map register window: %w", err)
	}
	// the mapping stays valid after the descriptor is closed
	defer f.Close()

	mem8, err := unixMmap(int(f.Fd()), base, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("cannot map register window of %s at 0x%x: %w", path, base, err)
	}

	return &Mapping{
		mem8:  mem8,
		mem32: unsafe.Slice((*uint32)(unsafe.Pointer(&mem8[0])), len(mem8)/4),
	}, nil
}

func (m *Mapping) Len() int {
	return len(m.mem32) * 4
}

func (m *Mapping) Read32(off uint32) uint32 {
	checkOffset(m, off)
	return atomic.LoadUint32(&m.mem32[off/4])
}

func (m *Mapping) Write32(off uint32, v uint32) {
	checkOffset(m, off)
	atomic.StoreUint32(&m.mem32[off/4], v)
}

// Close unmaps the window. Closing twice is a no-op.
func (m *Mapping) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mem8 == nil {
		return nil
	}
	err := unixMunmap(m.mem8)
	m.mem8 = nil
	m.mem32 = nil
	return err
}
