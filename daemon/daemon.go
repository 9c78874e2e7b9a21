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

// Package daemon serves the FPGA bus and the peripherals of the I/O
// board over a REST API on a unix socket.
package daemon

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/coreos/go-systemd/activation"
	"github.com/gorilla/mux"
	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"
	"gopkg.in/tomb.v2"

	"github.com/iomfpga/iomd/dirs"
	"github.com/iomfpga/iomd/fpgabus"
	"github.com/iomfpga/iomd/logger"
	"github.com/iomfpga/iomd/peripheral"
	"github.com/iomfpga/iomd/shadow"
)

const (
	defaultRequestRate  = 1000
	defaultRequestBurst = 100
)

// Options tune the daemon.
type Options struct {
	// SocketPath is where to listen, dirs.IomdSocket if empty.
	SocketPath string
	// SelfTestAddress is used by self tests that do not name an
	// address.
	SelfTestAddress *uint
	// PollRate is how many times a second the push switches are
	// polled. Zero disables polling.
	PollRate float64
	// RequestRate and RequestBurst limit the bus requests served.
	RequestRate  rate.Limit
	RequestBurst int
}

// A Daemon listens for requests and routes them to the right command
type Daemon struct {
	bus      *fpgabus.Bus
	registry *peripheral.Registry
	store    *shadow.Store
	opts     Options
	limiter  *rate.Limiter

	listener net.Listener
	watcher  *peripheral.SwitchWatcher
	tomb     tomb.Tomb
	router   *mux.Router
}

// A ResponseFunc handles one of the individual verbs for a method
type ResponseFunc func(*Command, *http.Request) Response

// A Command routes a request to an individual per-verb ResponseFunc
type Command struct {
	Path string
	//
	GET  ResponseFunc
	PUT  ResponseFunc
	POST ResponseFunc
	// does the command drive the bus?
	UsesBus bool

	d *Daemon
}

func (c *Command) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var rspf ResponseFunc
	var rsp = BadMethod("method %q not allowed", r.Method)

	switch r.Method {
	case "GET":
		rspf = c.GET
	case "PUT":
		rspf = c.PUT
	case "POST":
		rspf = c.POST
	}

	if rspf != nil {
		if c.UsesBus && !c.d.limiter.Allow() {
			rsp = TooManyRequests("too many bus requests, try again later")
		} else {
			rsp = rspf(c, r)
		}
	}

	rsp.ServeHTTP(w, r)
}

type wrappedWriter struct {
	w http.ResponseWriter
	s int
}

func (w *wrappedWriter) Header() http.Header {
	return w.w.Header()
}

func (w *wrappedWriter) Write(bs []byte) (int, error) {
	return w.w.Write(bs)
}

func (w *wrappedWriter) WriteHeader(s int) {
	w.w.WriteHeader(s)
	w.s = s
}

func logit(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := &wrappedWriter{w: w}
		t0 := time.Now()
		handler.ServeHTTP(ww, r)
		t := time.Since(t0)
		logger.Debugf("%s %s %s %s %d", r.RemoteAddr, r.Method, r.URL, t, ww.s)
	})
}

var activationListeners = activation.Listeners

// getListener tries to get a listener for the given socket path from
// the listener map, and if it fails it tries to set it up directly.
func getListener(socketPath string, listenerMap map[string]net.Listener) (net.Listener, error) {
	if listener, ok := listenerMap[socketPath]; ok {
		return listener, nil
	}

	if c, err := net.Dial("unix", socketPath); err == nil {
		c.Close()
		return nil, fmt.Errorf("socket %q already in use", socketPath)
	}

	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	address, err := net.ResolveUnixAddr("unix", socketPath)
	if err != nil {
		return nil, err
	}

	runtime.LockOSThread()
	oldmask := unix.Umask(0111)
	listener, err := net.ListenUnix("unix", address)
	unix.Umask(oldmask)
	runtime.UnlockOSThread()
	if err != nil {
		return nil, err
	}

	logger.Debugf("socket %q was not activated; listening", socketPath)

	return listener, nil
}

// Init sets up the Daemon's internal workings.
// Don't call more than once.
func (d *Daemon) Init() error {
	listeners, err := activationListeners()
	if err != nil {
		return err
	}

	listenerMap := make(map[string]net.Listener, len(listeners))
	for _, listener := range listeners {
		listenerMap[listener.Addr().String()] = listener
	}

	socketPath := d.opts.SocketPath
	if socketPath == "" {
		socketPath = dirs.IomdSocket
	}
	listener, err := getListener(socketPath, listenerMap)
	if err != nil {
		return fmt.Errorf("when trying to listen on %s: %v", socketPath, err)
	}
	d.listener = listener

	d.addRoutes()
	return nil
}

func (d *Daemon) addRoutes() {
	d.router = mux.NewRouter()

	for _, c := range api {
		// the commands are package globals, bind a copy
		cmd := *c
		cmd.d = d
		d.router.Handle(c.Path, &cmd).Name(c.Path)
	}

	d.router.NotFoundHandler = NotFound("not found")
}

// Start the Daemon
func (d *Daemon) Start() error {
	if d.opts.PollRate > 0 {
		w, err := peripheral.WatchSwitches(d.registry.PushSwitch(), d.opts.PollRate)
		if err != nil {
			return err
		}
		d.watcher = w
		d.tomb.Go(d.followSwitches)
	}

	d.tomb.Go(func() error {
		if err := http.Serve(d.listener, logit(d.router)); err != nil && d.tomb.Err() == tomb.ErrStillAlive {
			return err
		}

		return nil
	})
	logger.Noticef("serving %d peripherals on %s", len(d.registry.Names()), d.listener.Addr())
	return nil
}

func (d *Daemon) followSwitches() error {
	for {
		select {
		case state, ok := <-d.watcher.Events():
			if !ok {
				// polling failed, the bus is unusable
				return d.watcher.Err()
			}
			logger.Noticef("push switches: %v", state)
		case <-d.tomb.Dying():
			return nil
		}
	}
}

// Stop shuts down the Daemon
func (d *Daemon) Stop() error {
	d.tomb.Kill(nil)
	if d.listener != nil {
		d.listener.Close()
	}
	err := d.tomb.Wait()
	if d.watcher != nil {
		if werr := d.watcher.Stop(); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

// Dying is a tomb-ish thing
func (d *Daemon) Dying() <-chan struct{} {
	return d.tomb.Dying()
}

// New returns a daemon serving the peripherals on bus. The state of
// write-only peripherals is kept in store, which may be nil.
func New(bus *fpgabus.Bus, store *shadow.Store, opts *Options) *Daemon {
	if opts == nil {
		opts = &Options{}
	}
	limit, burst := opts.RequestRate, opts.RequestBurst
	if limit == 0 {
		limit = defaultRequestRate
	}
	if burst == 0 {
		burst = defaultRequestBurst
	}
	return &Daemon{
		bus:      bus,
		registry: peripheral.NewRegistry(bus, store),
		store:    store,
		opts:     *opts,
		limiter:  rate.NewLimiter(limit, burst),
	}
}
