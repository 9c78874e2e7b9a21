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

package timeutil

import (
	"runtime"
	"time"
)

var timeNow = time.Now

// BusyWait spins on the monotonic clock until at least d has elapsed.
//
// It never yields to the scheduler, so it is suitable for the microsecond
// pulse widths of a bit-banged bus, which are far below the resolution of
// time.Sleep. Callers that need to wait longer than a few hundred
// microseconds should sleep instead.
func BusyWait(d time.Duration) {
	if d <= 0 {
		return
	}
	start := timeNow()
	for timeNow().Sub(start) < d {
	}
}

// BusyWaitLocked is BusyWait with the calling goroutine wired to its OS
// thread for the duration of the wait.
func BusyWaitLocked(d time.Duration) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	BusyWait(d)
}
