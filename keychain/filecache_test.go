// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 The LLL-TAO Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func openTempFiles(t *testing.T, n int) []*os.File {
	t.Helper()
	dir := t.TempDir()
	files := make([]*os.File, 0, n)
	for i := 0; i < n; i++ {
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("f%d", i)))
		if err != nil {
			t.Fatalf("create temp file: %s", err)
		}
		files = append(files, f)
	}
	return files
}

func TestFileCacheGetPut(t *testing.T) {
	fc := newFileCache(2)
	files := openTempFiles(t, 2)

	fc.Put(0, files[0])
	fc.Put(1, files[1])

	if got, ok := fc.Get(0); !ok || got != files[0] {
		t.Fatalf("expected Get(0) to return the stored file")
	}
	if got, ok := fc.Get(1); !ok || got != files[1] {
		t.Fatalf("expected Get(1) to return the stored file")
	}
}

func TestFileCacheEvictsLeastRecentlyUsed(t *testing.T) {
	fc := newFileCache(2)
	files := openTempFiles(t, 3)

	fc.Put(0, files[0])
	fc.Put(1, files[1])
	fc.Get(0) // touch 0, making 1 the least-recently-used entry
	fc.Put(2, files[2])

	if _, ok := fc.Get(1); ok {
		t.Fatalf("expected fileIndex 1 to have been evicted")
	}
	if _, ok := fc.Get(0); !ok {
		t.Fatalf("expected fileIndex 0 to survive eviction")
	}
	if _, ok := fc.Get(2); !ok {
		t.Fatalf("expected fileIndex 2 to be present")
	}
}

func TestFileCacheCloseAll(t *testing.T) {
	fc := newFileCache(4)
	files := openTempFiles(t, 2)
	fc.Put(0, files[0])
	fc.Put(1, files[1])

	fc.CloseAll()

	if _, ok := fc.Get(0); ok {
		t.Fatalf("expected cache to be empty after CloseAll")
	}
	// A closed file rejects writes.
	if _, err := files[0].WriteString("x"); err == nil {
		t.Fatalf("expected write to a closed file to fail")
	}
}
