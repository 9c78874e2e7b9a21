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
	"sync"
)

// Memory is a Window backed by ordinary memory. Hooks let a simulation
// intercept register accesses.
type Memory struct {
	mu   sync.Mutex
	regs []uint32

	// OnRead, if set, is consulted before a register is read; when it
	// returns true its value is returned instead of the stored one.
	OnRead func(off uint32) (v uint32, ok bool)
	// OnWrite, if set, is called before a register is written; when it
	// returns true the value is not stored.
	OnWrite func(off uint32, v uint32) (handled bool)
}

// NewMemory returns a zeroed window of size bytes.
func NewMemory(size int) *Memory {
	return &Memory{regs: make([]uint32, size/4)}
}

func (m *Memory) Len() int {
	return len(m.regs) * 4
}

func (m *Memory) Read32(off uint32) uint32 {
	checkOffset(m, off)
	if m.OnRead != nil {
		if v, ok := m.OnRead(off); ok {
			return v
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[off/4]
}

func (m *Memory) Write32(off uint32, v uint32) {
	checkOffset(m, off)
	if m.OnWrite != nil && m.OnWrite(off, v) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[off/4] = v
}

// Peek returns the stored value of a register bypassing the hooks.
func (m *Memory) Peek(off uint32) uint32 {
	checkOffset(m, off)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[off/4]
}

// Poke stores a register value bypassing the hooks.
func (m *Memory) Poke(off uint32, v uint32) {
	checkOffset(m, off)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[off/4] = v
}

func (m *Memory) Close() error {
	return nil
}
