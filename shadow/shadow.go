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

// Package shadow remembers the last bytes written to peripherals that
// cannot be read back over the bus.
package shadow

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// ErrNoShadow is returned by Get when nothing was stored for a name.
var ErrNoShadow = errors.New("no shadow stored")

var bucketName = []byte("shadow")

// Store is a persistent name to bytes map. A nil *Store is valid: it
// stores nothing and has nothing stored.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("cannot open shadow store: %v", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot open shadow store: %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot open shadow store: %v", err)
	}
	return &Store{db: db}, nil
}

// Put stores data under name, replacing what was there.
func (s *Store) Put(name string, data []byte) error {
	if s == nil {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(name), data)
	})
}

// Get returns a copy of the data stored under name.
func (s *Store) Get(name string) ([]byte, error) {
	if s == nil {
		return nil, ErrNoShadow
	}
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(name))
		if v == nil {
			return ErrNoShadow
		}
		// v is only valid for the life of the transaction
		data = append([]byte{}, v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Names returns the names with stored data, in order.
func (s *Store) Names() ([]string, error) {
	if s == nil {
		return nil, nil
	}
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}
