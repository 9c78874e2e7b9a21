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
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iomfpga/iomd/fpgabus"
	"github.com/iomfpga/iomd/peripheral"
	"github.com/iomfpga/iomd/shadow"
)

var api = []*Command{
	rootCmd,
	v1Cmd,
	busCmd,
	devicesCmd,
	deviceCmd,
}

var (
	rootCmd = &Command{
		Path: "/",
		GET:  SyncResponse([]string{"/v1"}).Self,
	}

	v1Cmd = &Command{
		Path: "/v1",
		GET:  SyncResponse([]string{"/v1/bus", "/v1/devices"}).Self,
	}

	busCmd = &Command{
		Path:    "/v1/bus",
		GET:     getBus,
		POST:    postBus,
		UsesBus: true,
	}

	devicesCmd = &Command{
		Path: "/v1/devices",
		GET:  getDevices,
	}

	deviceCmd = &Command{
		Path:    "/v1/devices/{name}",
		GET:     getDevice,
		PUT:     putDevice,
		UsesBus: true,
	}
)

var muxVars = mux.Vars

func decodeBody(r *http.Request, v interface{}) Response {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return BadRequest("cannot decode request body: %v", err)
	}
	return nil
}

type mismatchJSON struct {
	Wrote uint `json:"wrote"`
	Read  uint `json:"read"`
}

// busErrorResponse maps errors of bus transactions to responses.
func busErrorResponse(err error) Response {
	var stErr *fpgabus.SelfTestError
	switch {
	case errors.Is(err, fpgabus.ErrAddressRange):
		return errorResponse(http.StatusBadRequest, ErrorKindAddressRange, nil, "%v", err)
	case errors.Is(err, fpgabus.ErrClosed):
		return Unavailable("%v", err)
	case errors.As(err, &stErr):
		mismatches := make([]mismatchJSON, len(stErr.Mismatches))
		for i, m := range stErr.Mismatches {
			mismatches[i] = mismatchJSON{Wrote: uint(m.Wrote), Read: uint(m.Read)}
		}
		return errorResponse(http.StatusInternalServerError, ErrorKindSelfTestFailed, mismatches, "%v", err)
	}
	return InternalError("%v", err)
}

// peripheralErrorResponse maps errors of peripherals to responses.
func peripheralErrorResponse(err error) Response {
	switch {
	case errors.Is(err, peripheral.ErrUnknown):
		return NotFound("%v", err)
	case errors.Is(err, peripheral.ErrBusy):
		return errorResponse(http.StatusConflict, ErrorKindBusy, nil, "%v", err)
	case errors.Is(err, peripheral.ErrNotReadable):
		return errorResponse(http.StatusBadRequest, ErrorKindNotReadable, nil, "%v", err)
	case errors.Is(err, peripheral.ErrNotWritable):
		return errorResponse(http.StatusBadRequest, ErrorKindNotWritable, nil, "%v", err)
	case errors.Is(err, shadow.ErrNoShadow):
		return errorResponse(http.StatusNotFound, ErrorKindNoState, nil, "%v", err)
	}
	return busErrorResponse(err)
}
