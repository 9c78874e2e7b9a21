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
	"errors"
	"net/http/httptest"

	"gopkg.in/check.v1"
)

type responseSuite struct{}

var _ = check.Suite(&responseSuite{})

// Due to how the protocol was defined the result must be sent, even if it is
// null.
func (s *responseSuite) TestRespJSONWithNullResult(c *check.C) {
	rj := &respJSON{Result: nil}
	data, err := json.Marshal(rj)
	c.Assert(err, check.IsNil)
	c.Check(string(data), check.Equals, `{"type":"","status-code":0,"status":"","result":null}`)
}

func (s *responseSuite) TestSyncResponse(c *check.C) {
	rec := httptest.NewRecorder()
	SyncResponse(map[string]int{"answer": 42}).ServeHTTP(rec, nil)
	c.Check(rec.Code, check.Equals, 200)
	c.Check(rec.Header().Get("Content-Type"), check.Equals, "application/json")
	c.Check(rec.Body.String(), check.Equals, `{"type":"sync","status-code":200,"status":"OK","result":{"answer":42}}`)
}

func (s *responseSuite) TestSyncResponseWithError(c *check.C) {
	rec := httptest.NewRecorder()
	SyncResponse(errors.New("boom")).ServeHTTP(rec, nil)
	c.Check(rec.Code, check.Equals, 500)
	c.Check(rec.Body.String(), check.Equals, `{"type":"error","status-code":500,"status":"Internal Server Error","result":{"message":"boom"}}`)
}

func (s *responseSuite) TestErrorResponse(c *check.C) {
	rec := httptest.NewRecorder()
	errorResponse(409, ErrorKindBusy, nil, "cannot open %s: busy", "led").ServeHTTP(rec, nil)
	c.Check(rec.Code, check.Equals, 409)
	c.Check(rec.Body.String(), check.Equals, `{"type":"error","status-code":409,"status":"Conflict","result":{"message":"cannot open led: busy","kind":"peripheral-busy"}}`)
}

func (s *responseSuite) TestSelf(c *check.C) {
	rsp := SyncResponse([]string{"/v1"})
	c.Check(rsp.Self(nil, nil), check.Equals, rsp)
}
