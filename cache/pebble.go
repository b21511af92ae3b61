//
// Copyright 2016 Gregory Trubetskoy. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"github.com/cockroachdb/pebble"
)

// pebbleStore persists entries in a local pebble database, surviving
// process restarts. Useful on gateways where the dashboard host and
// the data live on the same box.
type pebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore opens (or creates) a pebble-backed store at dir.
func NewPebbleStore(dir string) (Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &pebbleStore{db: db}, nil
}

func (p *pebbleStore) Get(key string) (*Entry, error) {
	data, closer, err := p.db.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return decodeEntry(data)
}

func (p *pebbleStore) Put(key string, e *Entry) error {
	data, err := e.encode()
	if err != nil {
		return err
	}
	return p.db.Set([]byte(key), data, pebble.Sync)
}

func (p *pebbleStore) Purge() error {
	iter, err := p.db.NewIter(nil)
	if err != nil {
		return err
	}
	b := p.db.NewBatch()
	for iter.First(); iter.Valid(); iter.Next() {
		if err := b.Delete(iter.Key(), nil); err != nil {
			iter.Close()
			return err
		}
	}
	if err := iter.Close(); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

func (p *pebbleStore) Close() error { return p.db.Close() }
