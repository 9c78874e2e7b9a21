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

package daemon

import (
	"net/http"

	"github.com/iomfpga/iomd/peripheral"
)

type deviceJSON struct {
	Name     string `json:"name"`
	Readable bool   `json:"readable"`
	Writable bool   `json:"writable"`
	Busy     bool   `json:"busy"`
	MinSize  int    `json:"min-size,omitempty"`
	MaxSize  int    `json:"max-size,omitempty"`
}

func deviceInfo(p *peripheral.Peripheral) deviceJSON {
	min, max := p.WriteSize()
	return deviceJSON{
		Name:     p.Name(),
		Readable: p.Readable(),
		Writable: p.Writable(),
		Busy:     p.IsOpen(),
		MinSize:  min,
		MaxSize:  max,
	}
}

func getDevices(c *Command, r *http.Request) Response {
	reg := c.d.registry
	names := reg.Names()
	devices := make([]deviceJSON, 0, len(names))
	for _, name := range names {
		p, err := reg.Get(name)
		if err != nil {
			return InternalError("%v", err)
		}
		devices = append(devices, deviceInfo(p))
	}
	return SyncResponse(devices)
}

type deviceStateJSON struct {
	Name string `json:"name"`
	Data []uint `json:"data"`
	Text string `json:"text,omitempty"`
}

func stateResponse(name string, data []byte) Response {
	state := deviceStateJSON{Name: name, Data: make([]uint, len(data))}
	for i, v := range data {
		state.Data[i] = uint(v)
	}
	if name == peripheral.NameTextLCD {
		state.Text = string(data)
	}
	return SyncResponse(state)
}

func getDevice(c *Command, r *http.Request) Response {
	name := muxVars(r)["name"]
	p, err := c.d.registry.Get(name)
	if err != nil {
		return peripheralErrorResponse(err)
	}

	if name == peripheral.NamePushSwitch && c.d.watcher != nil {
		// the watcher owns the switches, report what it saw last
		state := c.d.watcher.Last()
		if state == nil {
			state = make([]byte, peripheral.NumPushSwitches)
		}
		return stateResponse(name, state)
	}

	if err := p.Open(); err != nil {
		return peripheralErrorResponse(err)
	}
	defer p.Release()

	data, err := p.Read()
	if err != nil {
		return peripheralErrorResponse(err)
	}
	return stateResponse(name, data)
}

type deviceWrite struct {
	Data []uint  `json:"data"`
	Text *string `json:"text"`
}

func putDevice(c *Command, r *http.Request) Response {
	name := muxVars(r)["name"]
	p, err := c.d.registry.Get(name)
	if err != nil {
		return peripheralErrorResponse(err)
	}

	var req deviceWrite
	if rsp := decodeBody(r, &req); rsp != nil {
		return rsp
	}
	if (req.Text == nil) == (req.Data == nil) {
		return BadRequest("need exactly one of data or text")
	}
	if req.Text != nil && name != peripheral.NameTextLCD {
		return BadRequest("%s does not display text", name)
	}
	if !p.Writable() {
		return errorResponse(http.StatusBadRequest, ErrorKindNotWritable, nil, "cannot write %s: %v", name, peripheral.ErrNotWritable)
	}

	var data []byte
	if req.Data != nil {
		min, max := p.WriteSize()
		if len(req.Data) < min || len(req.Data) > max {
			return BadRequest("%s takes %d to %d bytes, got %d", name, min, max, len(req.Data))
		}
		data = make([]byte, len(req.Data))
		for i, v := range req.Data {
			b, rsp := toByte("data", v)
			if rsp != nil {
				return rsp
			}
			data[i] = b
		}
	}

	if err := p.Open(); err != nil {
		return peripheralErrorResponse(err)
	}
	defer p.Release()

	if req.Text != nil {
		err = c.d.registry.TextLCD().SetText(*req.Text)
	} else {
		err = p.Write(data)
	}
	if err != nil {
		return peripheralErrorResponse(err)
	}
	return SyncResponse(nil)
}
