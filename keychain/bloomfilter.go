// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 The LLL-TAO Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"math"

	"github.com/zeebo/xxh3"
)

// bloomHashCount is k, the number of independent hash functions per key.
const bloomHashCount = 3

// BloomFilter is a probabilistic set over binary keys, keyed by the full
// uncompressed key so that key-compression collisions never affect it. It
// wraps bitArray for storage and partial-flush tracking.
type BloomFilter struct {
	bits        *bitArray
	totalBits   uint64
	nTotalKeys  uint64 // capacity this filter was sized for (HASHMAP_TOTAL_BUCKETS)
}

// NewBloomFilter creates a bloom filter sized for nBuckets expected keys,
// with internal bit capacity m = ceil(n*k/ln2).
func NewBloomFilter(nBuckets uint64) *BloomFilter {
	m := uint64(math.Ceil(float64(nBuckets) * float64(bloomHashCount) / math.Ln2))
	return &BloomFilter{
		bits:       newBitArray(m),
		totalBits:  m,
		nTotalKeys: nBuckets,
	}
}

func (f *BloomFilter) bucketFor(key []byte, hashIndex uint64) uint64 {
	h := xxh3.HashSeed(key, hashIndex)
	return h % f.totalBits
}

// Insert adds key to the filter, operating over the original uncompressed
// key bytes.
func (f *BloomFilter) Insert(key []byte) {
	for k := uint64(0); k < bloomHashCount; k++ {
		f.bits.setBit(f.bucketFor(key, k))
	}
}

// MaybeContains reports whether key may be present. A false result is
// definitive; a true result may be a false positive.
func (f *BloomFilter) MaybeContains(key []byte) bool {
	for k := uint64(0); k < bloomHashCount; k++ {
		if !f.bits.isSet(f.bucketFor(key, k)) {
			return false
		}
	}
	return true
}

// Bytes returns the on-disk image of the filter's bit registers.
func (f *BloomFilter) Bytes() []byte { return f.bits.bytes() }

// Size returns the size in bytes of the on-disk image.
func (f *BloomFilter) Size() uint64 { return f.bits.size() }

// LoadBytes restores the filter's bit registers from a previously persisted
// image.
func (f *BloomFilter) LoadBytes(data []byte) { f.bits.loadBytes(data) }

// ModifiedBytes returns the dirty byte range since the last flush, and
// whether anything was modified at all.
func (f *BloomFilter) ModifiedBytes() (data []byte, offset uint64, ok bool) {
	return f.bits.modifiedBytes()
}

// ResetModified clears the dirty range after a successful flush.
func (f *BloomFilter) ResetModified() { f.bits.resetModified() }
