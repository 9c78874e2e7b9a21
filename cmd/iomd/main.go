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

package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	sddaemon "github.com/coreos/go-systemd/daemon"
	"github.com/jessevdk/go-flags"
	"github.com/mvo5/goconfigparser"

	"github.com/iomfpga/iomd/boardconfig"
	"github.com/iomfpga/iomd/daemon"
	"github.com/iomfpga/iomd/dirs"
	"github.com/iomfpga/iomd/fpgabus"
	"github.com/iomfpga/iomd/gpio"
	"github.com/iomfpga/iomd/gpio/gpiosim"
	"github.com/iomfpga/iomd/logger"
	"github.com/iomfpga/iomd/osutil"
	"github.com/iomfpga/iomd/shadow"
)

var (
	sdNotify     = sddaemon.SdNotify
	gpioOpen     = gpio.Open
	signalNotify = signal.Notify
)

type options struct {
	Config   string `long:"config" value-name:"FILE" description:"Daemon settings (default /etc/iomd/iomd.conf)"`
	Board    string `long:"board" value-name:"FILE" description:"Board description (default /etc/iomd/board.yaml)"`
	Socket   string `long:"socket" value-name:"PATH" description:"Socket to serve the API on"`
	Simulate bool   `long:"simulate" description:"Drive a simulated board instead of the GPIO registers"`
	Debug    bool   `long:"debug" description:"Log every bus transaction"`
}

// settings from the daemon configuration file
type settings struct {
	socket   string
	debug    bool
	pollRate float64
}

func init() {
	err := logger.SimpleSetup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: failed to activate logging: %s\n", err)
	}
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseArgs(args []string) (*options, error) {
	var opts options
	p := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	p.ShortDescription = "I/O board daemon"
	p.LongDescription = "iomd drives the FPGA of the I/O board over GPIO and serves its peripherals on a unix socket."
	rest, err := p.ParseArgs(args)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("too many arguments: %q", rest)
	}
	return &opts, nil
}

func readSettings(path string) (*settings, error) {
	s := &settings{}
	cfg := goconfigparser.New()
	if err := cfg.ReadFile(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("cannot read daemon settings: %v", err)
	}

	// missing options keep their defaults
	s.socket, _ = cfg.Get("daemon", "socket")
	if v, err := cfg.Get("daemon", "debug"); err == nil {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("cannot parse debug setting %q: %v", v, err)
		}
		s.debug = debug
	}
	if v, err := cfg.Get("daemon", "poll-rate"); err == nil {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil || rate < 0 {
			return nil, fmt.Errorf("cannot parse poll-rate setting %q", v)
		}
		s.pollRate = rate
	}
	return s, nil
}

func openSimulatedBus(board *boardconfig.Board) (*fpgabus.Bus, error) {
	numPins := board.GPIO.NumPins
	if numPins == 0 {
		numPins = gpio.NumPinsBCM2711
	}
	chip := gpiosim.New(numPins)
	chip.SetTracing(false)
	chip.Attach(gpiosim.NewFPGA(board.PinMap()))

	opts := board.BusOptions()
	// nobody else shares a simulated board
	opts.LockFile = ""
	return fpgabus.New(gpio.NewController(chip, numPins), opts)
}

func openBus(board *boardconfig.Board, simulate bool) (*fpgabus.Bus, error) {
	if simulate {
		logger.Noticef("driving a simulated board")
		return openSimulatedBus(board)
	}

	ctrl, err := gpioOpen(board.OpenOptions())
	if err != nil {
		return nil, err
	}
	bus, err := fpgabus.New(ctrl, board.BusOptions())
	if err != nil {
		ctrl.Close()
		return nil, err
	}
	return bus, nil
}

func runWatchdog(d *daemon.Daemon) (*time.Ticker, error) {
	// not running under systemd
	if os.Getenv("WATCHDOG_USEC") == "" {
		return nil, nil
	}
	usec := osutil.GetenvInt64("WATCHDOG_USEC")
	if usec <= 0 {
		return nil, fmt.Errorf("cannot parse WATCHDOG_USEC: %q", os.Getenv("WATCHDOG_USEC"))
	}
	dur := time.Duration(usec/2) * time.Microsecond
	logger.Debugf("Setting up sd_notify() watchdog timer every %s", dur)
	wt := time.NewTicker(dur)

	go func() {
		for {
			select {
			case <-wt.C:
				sdNotify(false, sddaemon.SdNotifyWatchdog)
			case <-d.Dying():
				return
			}
		}
	}()

	return wt, nil
}

func run(args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			return nil
		}
		return err
	}

	configPath := opts.Config
	if configPath == "" {
		configPath = dirs.DaemonConfig
	}
	st, err := readSettings(configPath)
	if err != nil {
		return err
	}
	if opts.Debug || st.debug {
		logger.EnableDebug()
	}

	boardPath := opts.Board
	if boardPath == "" {
		boardPath = dirs.BoardConfig
	}
	board, err := boardconfig.Load(boardPath)
	if err != nil {
		return err
	}

	bus, err := openBus(board, opts.Simulate)
	if err != nil {
		return err
	}
	defer bus.Close()

	if addr := board.Bus.SelfTestAddress; addr != nil {
		if err := bus.SelfTest(*addr, nil); err != nil {
			// keep serving, the peripherals may still work
			logger.Noticef("%v", err)
		} else {
			logger.Noticef("fpga bus self test passed")
		}
	}

	store, err := shadow.Open(dirs.ShadowDB)
	if err != nil {
		logger.Noticef("%v, state of write-only peripherals will not be kept", err)
		store = nil
	}
	defer store.Close()
	if names, err := store.Names(); err == nil && len(names) > 0 {
		logger.Debugf("remembered state of %s", strings.Join(names, ", "))
	}

	socket := opts.Socket
	if socket == "" {
		socket = st.socket
	}

	ch := make(chan os.Signal, 2)
	signalNotify(ch, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(ch)

	d := daemon.New(bus, store, &daemon.Options{
		SocketPath:      socket,
		SelfTestAddress: board.Bus.SelfTestAddress,
		PollRate:        st.pollRate,
	})
	if err := d.Init(); err != nil {
		return err
	}
	if err := d.Start(); err != nil {
		return err
	}

	watchdog, err := runWatchdog(d)
	if err != nil {
		d.Stop()
		return fmt.Errorf("cannot run software watchdog: %v", err)
	}
	if watchdog != nil {
		defer watchdog.Stop()
	}

	sdNotify(false, sddaemon.SdNotifyReady)

	select {
	case sig := <-ch:
		logger.Noticef("Exiting on %s signal.", sig)
	case <-d.Dying():
		// something called Stop() or the daemon failed
	}

	sdNotify(false, sddaemon.SdNotifyStopping)
	return d.Stop()
}
