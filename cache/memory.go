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
	lru "github.com/hashicorp/golang-lru"
)

// memStore is an in-process LRU store. Entries are kept decoded;
// eviction is by entry count.
type memStore struct {
	lru *lru.Cache
}

// NewMemoryStore returns a Store holding up to size entries in
// process memory.
func NewMemoryStore(size int) (Store, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &memStore{lru: c}, nil
}

func (m *memStore) Get(key string) (*Entry, error) {
	v, ok := m.lru.Get(key)
	if !ok {
		return nil, nil
	}
	return v.(*Entry), nil
}

func (m *memStore) Put(key string, e *Entry) error {
	m.lru.Add(key, e)
	return nil
}

func (m *memStore) Purge() error {
	m.lru.Purge()
	return nil
}

func (m *memStore) Close() error { return nil }
