// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2014-2026 Canonical Ltd
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

package osutil

import (
	"os"
	"strings"
)

// IsTestBinary checks if the current process is a test binary built by
// "go test".
func IsTestBinary() bool {
	return strings.HasSuffix(os.Args[0], ".test")
}

// MustBeTestBinary checks if the current process is a test binary built by
// "go test" and panics otherwise.
func MustBeTestBinary(panicMsg string) {
	if !IsTestBinary() {
		panic(panicMsg)
	}
}
