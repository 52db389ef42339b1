// Copyright (c) 2014-2024 The LLL-TAO Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package securebuf_test

import (
	"testing"

	"github.com/mercuryminer/LLL-TAO/securebuf"
)

func TestWriteAndFree(t *testing.T) {
	b := securebuf.New(32)
	defer b.Free()

	if b.Len() != 32 {
		t.Fatalf("expected length 32, got %d", b.Len())
	}

	copy(b.Bytes(), []byte("supersecretprivatekeymaterial!!"))

	if b.Bytes()[0] != 's' {
		t.Fatalf("expected write to be visible through Bytes()")
	}
}

func TestFreeZeroes(t *testing.T) {
	b := securebuf.New(16)
	copy(b.Bytes(), []byte("0123456789abcdef"))
	data := b.Bytes()
	b.Free()

	// data is held past Free only to inspect the released storage.
	for i, v := range data {
		if v != 0 {
			t.Fatalf("byte %d = %#x after Free, want 0", i, v)
		}
	}

	// Free nils the backing slice, so the length collapses to zero.
	if b.Len() != 0 {
		t.Fatalf("expected buffer to be released after Free, got length %d", b.Len())
	}
}
