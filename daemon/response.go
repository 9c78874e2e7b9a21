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

package daemon

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/iomfpga/iomd/logger"
)

// ResponseType is the response type
type ResponseType string

const (
	ResponseTypeSync  ResponseType = "sync"
	ResponseTypeError ResponseType = "error"
)

// Response knows how to serve itself, and how to find itself
type Response interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request)
	Self(*Command, *http.Request) Response // has the same arity as ResponseFunc for convenience
}

type resp struct {
	Type   ResponseType
	Status int
	Result interface{}
}

type respJSON struct {
	Type       ResponseType `json:"type"`
	Status     int          `json:"status-code"`
	StatusText string       `json:"status"`
	Result     interface{}  `json:"result"`
}

func (r *resp) MarshalJSON() ([]byte, error) {
	return json.Marshal(respJSON{
		Type:       r.Type,
		Status:     r.Status,
		StatusText: http.StatusText(r.Status),
		Result:     r.Result,
	})
}

func (r *resp) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	status := r.Status
	bs, err := r.MarshalJSON()
	if err != nil {
		logger.Noticef("cannot marshal %#v to JSON: %v", *r, err)
		bs = nil
		status = http.StatusInternalServerError
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(bs)
}

func (r *resp) Self(*Command, *http.Request) Response {
	return r
}

type errorResult struct {
	Message string `json:"message"`
	// Kind lets clients tell errors apart without parsing the message
	Kind  ErrorKind   `json:"kind,omitempty"`
	Value interface{} `json:"value,omitempty"`
}

// ErrorKind distinguishes the errors a client may want to react to.
type ErrorKind string

const (
	ErrorKindBusy           ErrorKind = "peripheral-busy"
	ErrorKindAddressRange   ErrorKind = "address-out-of-range"
	ErrorKindNotReadable    ErrorKind = "not-readable"
	ErrorKindNotWritable    ErrorKind = "not-writable"
	ErrorKindNoState        ErrorKind = "no-state"
	ErrorKindSelfTestFailed ErrorKind = "self-test-failed"
)

// SyncResponse builds a "sync" response from the given result.
func SyncResponse(result interface{}) Response {
	if err, ok := result.(error); ok {
		return InternalError("%v", err)
	}

	if rsp, ok := result.(Response); ok {
		return rsp
	}

	return &resp{
		Type:   ResponseTypeSync,
		Status: http.StatusOK,
		Result: result,
	}
}

// errorResponse builds an "error" response with the given status and
// kind.
func errorResponse(status int, kind ErrorKind, value interface{}, format string, v ...interface{}) Response {
	msg := fmt.Sprintf(format, v...)
	if status >= 500 {
		logger.Noticef("%s", msg)
	}
	return &resp{
		Type:   ResponseTypeError,
		Status: status,
		Result: &errorResult{
			Message: msg,
			Kind:    kind,
			Value:   value,
		},
	}
}

// ErrorResponseFunc builds an error Response from a message.
type ErrorResponseFunc func(string, ...interface{}) Response

// ErrorResponse builds an "error" response from the given error status.
func ErrorResponse(status int) ErrorResponseFunc {
	return func(format string, v ...interface{}) Response {
		return errorResponse(status, "", nil, format, v...)
	}
}

// standard error responses
var (
	BadRequest      = ErrorResponse(http.StatusBadRequest)
	NotFound        = ErrorResponse(http.StatusNotFound)
	BadMethod       = ErrorResponse(http.StatusMethodNotAllowed)
	Conflict        = ErrorResponse(http.StatusConflict)
	TooManyRequests = ErrorResponse(http.StatusTooManyRequests)
	InternalError   = ErrorResponse(http.StatusInternalServerError)
	Unavailable     = ErrorResponse(http.StatusServiceUnavailable)
)
