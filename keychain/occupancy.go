// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 The LLL-TAO Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

// OccupancyMap is an exact bitmap marking which bucket slots within a single
// hashmap file are currently occupied by a READY record. Unlike BloomFilter
// it never produces false positives; it wraps the same bitArray storage for
// partial-flush tracking.
type OccupancyMap struct {
	bits *bitArray
}

// NewOccupancyMap creates an occupancy map sized for nBuckets slots.
func NewOccupancyMap(nBuckets uint64) *OccupancyMap {
	return &OccupancyMap{bits: newBitArray(nBuckets)}
}

// Has reports whether bucket is marked occupied.
func (o *OccupancyMap) Has(bucket uint64) bool {
	return o.bits.isSet(bucket)
}

// Insert marks bucket as occupied.
func (o *OccupancyMap) Insert(bucket uint64) {
	o.bits.setBit(bucket)
}

// Erase clears the occupied marking for bucket.
func (o *OccupancyMap) Erase(bucket uint64) {
	o.bits.clearBit(bucket)
}

// Bytes returns the on-disk image of the occupancy bitmap.
func (o *OccupancyMap) Bytes() []byte { return o.bits.bytes() }

// Size returns the size in bytes of the on-disk image.
func (o *OccupancyMap) Size() uint64 { return o.bits.size() }

// LoadBytes restores the bitmap from a previously persisted image.
func (o *OccupancyMap) LoadBytes(data []byte) { o.bits.loadBytes(data) }

// ModifiedBytes returns the dirty byte range since the last flush.
func (o *OccupancyMap) ModifiedBytes() (data []byte, offset uint64, ok bool) {
	return o.bits.modifiedBytes()
}

// ResetModified clears the dirty range after a successful flush.
func (o *OccupancyMap) ResetModified() { o.bits.resetModified() }
