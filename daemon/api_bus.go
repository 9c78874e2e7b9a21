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
	"strconv"

	"github.com/iomfpga/iomd/fpgabus"
)

type pinMapJSON struct {
	Address      []uint `json:"address"`
	Data         []uint `json:"data"`
	WriteEnable  uint   `json:"write-enable"`
	OutputEnable uint   `json:"output-enable"`
	ChipSelect   uint   `json:"chip-select"`
}

type timingJSON struct {
	Setup      string `json:"setup"`
	WritePulse string `json:"write-pulse"`
	ReadSettle string `json:"read-settle"`
}

type statsJSON struct {
	Reads  uint64 `json:"reads"`
	Writes uint64 `json:"writes"`
}

type busJSON struct {
	Pins       pinMapJSON        `json:"pins"`
	Timing     timingJSON        `json:"timing"`
	MaxAddress uint              `json:"max-address"`
	Roles      map[string]string `json:"roles"`
	Stats      statsJSON         `json:"stats"`
}

func getBus(c *Command, r *http.Request) Response {
	bus := c.d.bus
	pins := bus.Pins()
	timing := bus.Timing()
	stats := bus.Stats()

	info := busJSON{
		Pins: pinMapJSON{
			WriteEnable:  uint(pins.WriteEnable),
			OutputEnable: uint(pins.OutputEnable),
			ChipSelect:   uint(pins.ChipSelect),
		},
		Timing: timingJSON{
			Setup:      timing.Setup.String(),
			WritePulse: timing.WritePulse.String(),
			ReadSettle: timing.ReadSettle.String(),
		},
		MaxAddress: pins.MaxAddress(),
		Roles:      make(map[string]string),
		Stats:      statsJSON{Reads: stats.Reads, Writes: stats.Writes},
	}
	for _, pin := range pins.Address {
		info.Pins.Address = append(info.Pins.Address, uint(pin))
	}
	for _, pin := range pins.Data {
		info.Pins.Data = append(info.Pins.Data, uint(pin))
	}
	for pin, role := range bus.Roles() {
		info.Roles[strconv.FormatUint(uint64(pin), 10)] = role.String()
	}

	return SyncResponse(info)
}

type busAction struct {
	Action   string `json:"action"`
	Address  *uint  `json:"address"`
	Value    *uint  `json:"value"`
	Patterns []uint `json:"patterns"`
}

type transactionJSON struct {
	Address uint `json:"address"`
	Value   uint `json:"value"`
}

type selfTestJSON struct {
	Address  uint   `json:"address"`
	Patterns []uint `json:"patterns"`
}

func toByte(what string, v uint) (byte, Response) {
	if v > 0xFF {
		return 0, BadRequest("%s %d does not fit in a byte", what, v)
	}
	return byte(v), nil
}

func postBus(c *Command, r *http.Request) Response {
	var action busAction
	if rsp := decodeBody(r, &action); rsp != nil {
		return rsp
	}

	switch action.Action {
	case "read":
		return busRead(c.d.bus, &action)
	case "write":
		return busWrite(c.d.bus, &action)
	case "self-test":
		return busSelfTest(c.d, &action)
	case "":
		return BadRequest("missing action")
	}
	return BadRequest("unknown action %q", action.Action)
}

func busRead(bus *fpgabus.Bus, action *busAction) Response {
	if action.Address == nil {
		return BadRequest("read needs an address")
	}
	v, err := bus.Read(*action.Address)
	if err != nil {
		return busErrorResponse(err)
	}
	return SyncResponse(transactionJSON{Address: *action.Address, Value: uint(v)})
}

func busWrite(bus *fpgabus.Bus, action *busAction) Response {
	if action.Address == nil || action.Value == nil {
		return BadRequest("write needs an address and a value")
	}
	v, rsp := toByte("value", *action.Value)
	if rsp != nil {
		return rsp
	}
	if err := bus.Write(*action.Address, v); err != nil {
		return busErrorResponse(err)
	}
	return SyncResponse(transactionJSON{Address: *action.Address, Value: uint(v)})
}

func busSelfTest(d *Daemon, action *busAction) Response {
	addr := action.Address
	if addr == nil {
		addr = d.opts.SelfTestAddress
	}
	if addr == nil {
		return BadRequest("self-test needs an address, none is configured for the board")
	}
	patterns := make([]byte, 0, len(action.Patterns))
	for _, p := range action.Patterns {
		v, rsp := toByte("pattern", p)
		if rsp != nil {
			return rsp
		}
		patterns = append(patterns, v)
	}
	if len(patterns) == 0 {
		patterns = fpgabus.DefaultSelfTestPatterns
	}
	if err := d.bus.SelfTest(*addr, patterns); err != nil {
		return busErrorResponse(err)
	}

	result := selfTestJSON{Address: *addr}
	for _, p := range patterns {
		result.Patterns = append(result.Patterns, uint(p))
	}
	return SyncResponse(result)
}
