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
	"gopkg.in/check.v1"
)

func (s *daemonSuite) TestGetDevices(c *check.C) {
	p, err := s.d.registry.Get("buzzer")
	c.Assert(err, check.IsNil)
	c.Assert(p.Open(), check.IsNil)
	defer p.Release()

	rec, env := s.req(c, s.d, "GET", "/v1/devices", nil)
	c.Assert(rec.Code, check.Equals, 200)
	var devices []deviceJSON
	s.result(c, env, &devices)
	c.Check(devices, check.DeepEquals, []deviceJSON{
		{Name: "buzzer", Readable: true, Writable: true, Busy: true, MinSize: 1, MaxSize: 1},
		{Name: "dot", Readable: true, Writable: true, MinSize: 1, MaxSize: 10},
		{Name: "fnd", Readable: true, Writable: true, MinSize: 4, MaxSize: 4},
		{Name: "led", Readable: true, Writable: true, MinSize: 1, MaxSize: 1},
		{Name: "push-switch", Readable: true},
		{Name: "step-motor", Readable: true, Writable: true, MinSize: 3, MaxSize: 3},
		{Name: "text-lcd", Readable: true, Writable: true, MinSize: 1, MaxSize: 32},
	})
}

func (s *daemonSuite) TestPutGetLED(c *check.C) {
	rec, env := s.req(c, s.d, "PUT", "/v1/devices/led", map[string]interface{}{"data": []int{0xB0}})
	c.Assert(rec.Code, check.Equals, 200)
	c.Check(string(env.Result), check.Equals, "null")
	c.Check(s.fpga.Register(0x016), check.Equals, byte(0xB0))

	rec, env = s.req(c, s.d, "GET", "/v1/devices/led", nil)
	c.Assert(rec.Code, check.Equals, 200)
	var state deviceStateJSON
	s.result(c, env, &state)
	c.Check(state, check.DeepEquals, deviceStateJSON{Name: "led", Data: []uint{0xB0}})

	// released after each request
	p, err := s.d.registry.Get("led")
	c.Assert(err, check.IsNil)
	c.Check(p.IsOpen(), check.Equals, false)
}

func (s *daemonSuite) TestPutFND(c *check.C) {
	rec, _ := s.req(c, s.d, "PUT", "/v1/devices/fnd", map[string]interface{}{"data": []int{1, 2, 3, 4}})
	c.Assert(rec.Code, check.Equals, 200)
	c.Check(s.fpga.Register(0x003), check.Equals, byte(0x12))
	c.Check(s.fpga.Register(0x004), check.Equals, byte(0x34))
}

func (s *daemonSuite) TestPutTextLCD(c *check.C) {
	rec, _ := s.req(c, s.d, "PUT", "/v1/devices/text-lcd", map[string]interface{}{"text": "hello\nworld"})
	c.Assert(rec.Code, check.Equals, 200)
	c.Check(s.fpga.Register(0x090), check.Equals, byte('h'))
	c.Check(s.fpga.Register(0x090+16), check.Equals, byte('w'))

	rec, env := s.req(c, s.d, "GET", "/v1/devices/text-lcd", nil)
	c.Assert(rec.Code, check.Equals, 200)
	var state deviceStateJSON
	s.result(c, env, &state)
	c.Check(state.Text, check.Equals, "hello           world           ")
	c.Check(state.Data, check.HasLen, 32)
}

func (s *daemonSuite) TestGetShadowed(c *check.C) {
	rec, env := s.req(c, s.d, "GET", "/v1/devices/dot", nil)
	c.Check(rec.Code, check.Equals, 404)
	res := s.errorResult(c, env)
	c.Check(res.Kind, check.Equals, ErrorKindNoState)
	c.Check(res.Message, check.Equals, "cannot read dot: no shadow stored")

	rec, _ = s.req(c, s.d, "PUT", "/v1/devices/dot", map[string]interface{}{"data": []int{0xFF, 0x01}})
	c.Assert(rec.Code, check.Equals, 200)
	c.Check(s.fpga.Register(0x210), check.Equals, byte(0x7F))

	// a restarted daemon still knows
	d := New(s.bus, s.store, nil)
	d.addRoutes()
	rec, env = s.req(c, d, "GET", "/v1/devices/dot", nil)
	c.Assert(rec.Code, check.Equals, 200)
	var state deviceStateJSON
	s.result(c, env, &state)
	c.Check(state.Data, check.DeepEquals, []uint{0x7F, 0x01})
}

func (s *daemonSuite) TestGetPushSwitch(c *check.C) {
	s.fpga.SetRegister(0x058, 1)
	rec, env := s.req(c, s.d, "GET", "/v1/devices/push-switch", nil)
	c.Assert(rec.Code, check.Equals, 200)
	var state deviceStateJSON
	s.result(c, env, &state)
	c.Check(state.Data, check.DeepEquals, []uint{0, 0, 0, 0, 0, 0, 0, 0, 1})
}

func (s *daemonSuite) TestDeviceBusy(c *check.C) {
	p, err := s.d.registry.Get("led")
	c.Assert(err, check.IsNil)
	c.Assert(p.Open(), check.IsNil)
	defer p.Release()

	rec, env := s.req(c, s.d, "PUT", "/v1/devices/led", map[string]interface{}{"data": []int{1}})
	c.Check(rec.Code, check.Equals, 409)
	res := s.errorResult(c, env)
	c.Check(res.Kind, check.Equals, ErrorKindBusy)
	c.Check(res.Message, check.Equals, "cannot open led: peripheral is busy")

	rec, _ = s.req(c, s.d, "GET", "/v1/devices/led", nil)
	c.Check(rec.Code, check.Equals, 409)
	c.Check(s.fpga.Register(0x016), check.Equals, byte(0))
}

func (s *daemonSuite) TestDeviceErrors(c *check.C) {
	for _, t := range []struct {
		method, path string
		body         interface{}
		status       int
		msg          string
	}{
		{"GET", "/v1/devices/lamp", nil, 404, `unknown peripheral "lamp"`},
		{"PUT", "/v1/devices/lamp", map[string]interface{}{"data": []int{1}}, 404, `unknown peripheral "lamp"`},
		{"PUT", "/v1/devices/led", `[`, 400, `cannot decode request body: unexpected EOF`},
		{"PUT", "/v1/devices/led", map[string]interface{}{}, 400, `need exactly one of data or text`},
		{"PUT", "/v1/devices/led", map[string]interface{}{"data": []int{1}, "text": "x"}, 400, `need exactly one of data or text`},
		{"PUT", "/v1/devices/led", map[string]interface{}{"text": "x"}, 400, `led does not display text`},
		{"PUT", "/v1/devices/led", map[string]interface{}{"data": []int{1, 2}}, 400, `led takes 1 to 1 bytes, got 2`},
		{"PUT", "/v1/devices/led", map[string]interface{}{"data": []int{256}}, 400, `data 256 does not fit in a byte`},
		{"PUT", "/v1/devices/push-switch", map[string]interface{}{"data": []int{1}}, 400, `cannot write push-switch: peripheral cannot be written`},
	} {
		rec, env := s.req(c, s.d, t.method, t.path, t.body)
		c.Check(rec.Code, check.Equals, t.status, check.Commentf("%s %s", t.method, t.path))
		c.Check(s.errorResult(c, env).Message, check.Equals, t.msg)
	}
}
