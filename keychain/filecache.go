// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 The LLL-TAO Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"os"

	lru "github.com/hashicorp/golang-lru"
)

// defaultLRUCapacity bounds the number of simultaneously open streams per
// fileCache (there is one instance for hashmap files and one for bloom
// files, so the keychain holds at most 2*capacity open descriptors).
const defaultLRUCapacity = 8

// fileCache is a bounded map from file index to an open read/write stream.
// Insertion past capacity evicts the least-recently-used entry, flushing
// and closing it before it is dropped. The cache is single-owner: callers
// must not retain a *os.File beyond the point they release the cache's lock.
type fileCache struct {
	cache *lru.Cache
}

func newFileCache(capacity int) *fileCache {
	fc := &fileCache{}
	c, err := lru.NewWithEvict(capacity, fc.onEvict)
	if err != nil {
		// only returns an error for capacity <= 0, which is a programmer error
		panic(err)
	}
	fc.cache = c
	return fc
}

func (fc *fileCache) onEvict(key interface{}, value interface{}) {
	if stream, ok := value.(*os.File); ok && stream != nil {
		stream.Sync()
		stream.Close()
	}
}

// Get returns the open stream for fileIndex, if present.
func (fc *fileCache) Get(fileIndex uint16) (*os.File, bool) {
	value, ok := fc.cache.Get(fileIndex)
	if !ok {
		return nil, false
	}
	return value.(*os.File), true
}

// Put inserts stream under fileIndex, possibly evicting the
// least-recently-used entry.
func (fc *fileCache) Put(fileIndex uint16, stream *os.File) {
	fc.cache.Add(fileIndex, stream)
}

// CloseAll flushes and closes every open stream, emptying the cache.
func (fc *fileCache) CloseAll() {
	for _, key := range fc.cache.Keys() {
		fc.cache.Remove(key) // triggers onEvict
	}
}
