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

package testutil

import (
	"github.com/iomfpga/iomd/osutil"
)

// Mock replaces the value pointed to by target with mock and returns a
// function that restores the previous value. It panics outside of test
// binaries.
func Mock[T any](target *T, mock T) (restore func()) {
	osutil.MustBeTestBinary("mocking can only be done from tests")
	old := *target
	*target = mock
	return func() {
		*target = old
	}
}
