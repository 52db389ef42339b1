// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 The LLL-TAO Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import "github.com/cespare/xxhash/v2"

// bucketHash is the 64-bit hash feeding getBucket. It is a package variable,
// rather than a hardwired call, so white-box tests can substitute a stub
// hash to force deterministic bucket collisions (see the linear-probing
// test in hashmap_test.go).
var bucketHash = xxhash.Sum64

// getBucket computes the stable, uniform-enough bucket index for key. The
// divide-by-seven is historical; the only contract is a stable mapping into
// [0, totalBuckets).
func getBucket(key []byte, totalBuckets uint64) uint64 {
	h := bucketHash(key)
	return (h / 7) % totalBuckets
}

// compressKey folds key down to at most maxKeySize bytes. Each round XORs
// buf[i] with buf[2*i] for i in the first half of the buffer, then truncates
// to the larger of half the length or maxKeySize; this repeats until the
// buffer is no longer than maxKeySize. Keys already within the limit are
// returned unchanged (compression is the identity for short keys).
func compressKey(key []byte, maxKeySize int) []byte {
	buf := make([]byte, len(key))
	copy(buf, key)

	for len(buf) > maxKeySize {
		half := len(buf) / 2
		for i := 0; i < half; i++ {
			buf[i] ^= buf[i*2]
		}
		newLen := half
		if newLen < maxKeySize {
			newLen = maxKeySize
		}
		buf = buf[:newLen]
	}
	return buf
}
