// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 The LLL-TAO Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package securebuf provides a byte container for sensitive material (for
// example private keys) that is page-locked against swap for its whole
// lifetime and zeroed before release. It is a standalone allocator: the
// keychain does not use it for its own records, which are not secret.
package securebuf

import (
	"golang.org/x/sys/unix"
)

// Buffer is a page-locked, zero-on-release byte container.
type Buffer struct {
	data   []byte
	locked bool
}

// New allocates a Buffer of size bytes and locks its pages against swap.
// If the platform denies the mlock call (commonly due to missing
// privilege), the buffer is still usable but unlocked; Locked reports which
// outcome occurred.
func New(size int) *Buffer {
	b := &Buffer{data: make([]byte, size)}
	if size > 0 {
		b.locked = unix.Mlock(b.data) == nil
	}
	return b
}

// Bytes exposes the underlying storage. Callers must not retain the slice
// past a call to Free.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the buffer size in bytes.
func (b *Buffer) Len() int { return len(b.data) }

// Locked reports whether the pages are currently locked against swap.
func (b *Buffer) Locked() bool { return b.locked }

// Free zeroes the buffer, unlocks its pages, and releases the backing array.
func (b *Buffer) Free() {
	for i := range b.data {
		b.data[i] = 0
	}
	if b.locked {
		unix.Munlock(b.data)
		b.locked = false
	}
	b.data = nil
}
