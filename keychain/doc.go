// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 The LLL-TAO Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package keychain implements the Binary Hash Map Keychain: a disk-backed
// index mapping opaque binary keys to fixed-size SectorKey records that
// describe where an associated value payload lives in an external sector
// file.
//
// The index is a linked sequence of flat hashmap files. Each file is an
// array of TOTAL_BUCKETS fixed-size slots addressed by bucket index, with
// collisions resolved by linear probing within a file and by falling
// through to older/newer files across the chain. A per-file Bloom filter
// and an exact per-file occupancy bitmap are held in memory to avoid
// touching disk for keys that were never written to a given file.
package keychain
