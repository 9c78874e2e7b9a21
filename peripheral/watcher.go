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

package peripheral

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/juju/ratelimit"
	"gopkg.in/tomb.v2"

	"github.com/iomfpga/iomd/logger"
)

// SwitchWatcher polls the push switches and reports every change of
// their state.
type SwitchWatcher struct {
	tomb   tomb.Tomb
	sw     *Peripheral
	bucket *ratelimit.Bucket
	events chan []byte

	mu   sync.Mutex
	last []byte
}

// WatchSwitches claims the push switches sw and polls them rate times a
// second until Stop is called.
func WatchSwitches(sw *Peripheral, rate float64) (*SwitchWatcher, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("cannot watch %s: invalid poll rate %v", sw.Name(), rate)
	}
	if err := sw.Open(); err != nil {
		return nil, err
	}
	w := &SwitchWatcher{
		sw:     sw,
		bucket: ratelimit.NewBucketWithRate(rate, 1),
		events: make(chan []byte, 16),
	}
	w.tomb.Go(w.loop)
	return w, nil
}

func (w *SwitchWatcher) loop() error {
	defer close(w.events)
	for {
		if d := w.bucket.Take(1); d > 0 {
			select {
			case <-time.After(d):
			case <-w.tomb.Dying():
				return nil
			}
		}
		select {
		case <-w.tomb.Dying():
			return nil
		default:
		}

		state, err := w.sw.Read()
		if err != nil {
			return err
		}

		w.mu.Lock()
		changed := !bytes.Equal(state, w.last)
		w.last = state
		w.mu.Unlock()
		if !changed {
			continue
		}
		logger.Debugf("push switches changed: %v", state)

		select {
		case w.events <- append([]byte(nil), state...):
		case <-w.tomb.Dying():
			return nil
		}
	}
}

// Events delivers the state of all switches after each change, starting
// with the first poll. The channel is closed when the watcher stops.
func (w *SwitchWatcher) Events() <-chan []byte {
	return w.events
}

// Last returns the most recently polled state, nil before the first
// poll.
func (w *SwitchWatcher) Last() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]byte(nil), w.last...)
}

// Dead is closed once the watcher stopped, see Err.
func (w *SwitchWatcher) Dead() <-chan struct{} {
	return w.tomb.Dead()
}

// Err returns why the watcher stopped.
func (w *SwitchWatcher) Err() error {
	return w.tomb.Err()
}

// Stop stops polling and releases the switches.
func (w *SwitchWatcher) Stop() error {
	w.tomb.Kill(nil)
	err := w.tomb.Wait()
	w.sw.Release()
	return err
}
