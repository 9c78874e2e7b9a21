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

package dirs

import (
	"path/filepath"
)

// the various file paths
var (
	GlobalRootDir string

	GpiomemDevice    string
	MemDevice        string
	DeviceTreeRanges string

	RunDir      string
	IomdSocket  string
	BusLockFile string

	ConfigDir    string
	BoardConfig  string
	DaemonConfig string

	StateDir string
	ShadowDB string
)

func init() {
	// init the global directories at startup
	SetRootDir("/")
}

// SetRootDir allows settings a new global root directory, this is useful
// for e.g. chroot operations
func SetRootDir(rootdir string) {
	if rootdir == "" {
		rootdir = "/"
	}
	GlobalRootDir = rootdir

	GpiomemDevice = filepath.Join(rootdir, "/dev/gpiomem")
	MemDevice = filepath.Join(rootdir, "/dev/mem")
	DeviceTreeRanges = filepath.Join(rootdir, "/proc/device-tree/soc/ranges")

	RunDir = filepath.Join(rootdir, "/run/iomd")
	IomdSocket = filepath.Join(rootdir, "/run/iomd.socket")
	BusLockFile = filepath.Join(RunDir, "bus.lock")

	ConfigDir = filepath.Join(rootdir, "/etc/iomd")
	BoardConfig = filepath.Join(ConfigDir, "board.yaml")
	DaemonConfig = filepath.Join(ConfigDir, "iomd.conf")

	StateDir = filepath.Join(rootdir, "/var/lib/iomd")
	ShadowDB = filepath.Join(StateDir, "shadow.db")
}
