// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 The LLL-TAO Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"bytes"
	"testing"

	"github.com/mercuryminer/LLL-TAO/internal/faults"
)

func openTestKeychain(t *testing.T, totalBuckets uint64, flags Flag) *Keychain {
	t.Helper()
	k, err := Open(Config{
		BasePath:    t.TempDir(),
		TotalBuckets: totalBuckets,
		Flags:       flags,
	})
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	t.Cleanup(func() { k.Close() })
	return k
}

// S1 — single key round trip.
func TestKeychainSingleKeyRoundTrip(t *testing.T) {
	k := openTestKeychain(t, 16, FlagAppend)

	key := []byte{0x01}
	want := SectorKey{SectorFile: 5, SectorStart: 100, SectorSize: 42}

	if err := k.Put(key, want); err != nil {
		t.Fatalf("Put: %s", err)
	}

	got, err := k.Get(key)
	if err != nil {
		t.Fatalf("Get: %s", err)
	}
	if got.SectorFile != want.SectorFile || got.SectorStart != want.SectorStart || got.SectorSize != want.SectorSize || got.State != StateReady {
		t.Fatalf("Get(k) = %+v, want matching SectorFile/Start/Size and READY state", got)
	}
}

// S2 — linear probing across a file boundary, using a stubbed bucket hash
// so that 17 distinct keys all land in bucket 0.
func TestKeychainLinearProbingAcrossFileBoundary(t *testing.T) {
	prev := bucketHash
	bucketHash = func(b []byte) uint64 { return 0 }
	defer func() { bucketHash = prev }()

	k := openTestKeychain(t, 32, FlagAppend)

	var keys [][]byte
	for i := 0; i < 17; i++ {
		keys = append(keys, []byte{byte(i + 1)})
	}

	for i, key := range keys {
		if err := k.Put(key, SectorKey{SectorStart: uint32(i)}); err != nil {
			t.Fatalf("Put(%d): %s", i, err)
		}
	}

	if got := len(k.sidecars); got != 2 {
		t.Fatalf("expected a second file to have been created, sidecar count = %d", got)
	}

	got, err := k.Get(keys[16])
	if err != nil {
		t.Fatalf("Get(17th key): %s", err)
	}
	if got.SectorStart != 16 {
		t.Fatalf("Get(17th key).SectorStart = %d, want 16", got.SectorStart)
	}
}

// S3 — long key compression.
func TestKeychainLongKeyCompression(t *testing.T) {
	k := openTestKeychain(t, 1024, FlagAppend)

	key := bytes.Repeat([]byte{0xAB}, 40)
	want := SectorKey{SectorStart: 7}

	if err := k.Put(key, want); err != nil {
		t.Fatalf("Put: %s", err)
	}

	got, err := k.Get(key)
	if err != nil {
		t.Fatalf("Get: %s", err)
	}
	if got.SectorStart != want.SectorStart {
		t.Fatalf("Get(long key).SectorStart = %d, want %d", got.SectorStart, want.SectorStart)
	}
	if int(got.Length) != 32 {
		t.Fatalf("stored Length = %d, want 32 (compressed)", got.Length)
	}

	wantCompressed := compressKey(key, 32)
	if !bytes.Equal(got.KeyBytes[:len(wantCompressed)], wantCompressed) {
		t.Fatalf("stored key_bytes does not match the XOR-fold of the original key")
	}
}

// S4 — erase then reuse of a vacated slot.
func TestKeychainEraseThenReuse(t *testing.T) {
	prev := bucketHash
	bucketHash = func(b []byte) uint64 { return 0 }
	defer func() { bucketHash = prev }()

	k := openTestKeychain(t, 32, FlagAppend)

	k1 := []byte{0x01}
	k2 := []byte{0x02}
	k3 := []byte{0x03}

	if err := k.Put(k1, SectorKey{SectorStart: 1}); err != nil {
		t.Fatalf("Put(k1): %s", err)
	}
	if err := k.Put(k2, SectorKey{SectorStart: 2}); err != nil {
		t.Fatalf("Put(k2): %s", err)
	}

	erased, err := k.Erase(k1)
	if err != nil || !erased {
		t.Fatalf("Erase(k1) = (%v, %s), want (true, nil)", erased, err)
	}

	if err := k.Put(k3, SectorKey{SectorStart: 3}); err != nil {
		t.Fatalf("Put(k3): %s", err)
	}

	if got, err := k.Get(k3); err != nil || got.SectorStart != 3 {
		t.Fatalf("Get(k3) = (%+v, %s)", got, err)
	}
	if _, _, bucketSlot, found, err := k.scan(k3); err != nil || !found || bucketSlot != 0 {
		t.Fatalf("k3 landed at slot %d, want slot 0 (vacated by k1)", bucketSlot)
	}

	if got, err := k.Get(k2); err != nil || got.SectorStart != 2 {
		t.Fatalf("Get(k2) = (%+v, %s), want it to still be retrievable", got, err)
	}

	if _, err := k.Get(k1); !faults.IsNotFound(err) {
		t.Fatalf("Get(k1) error = %v, want a NotFound error", err)
	}
}

// Newest wins under APPEND when a key is put twice via non-overwrite Puts
// landing in different slots is not directly applicable (append never
// overwrites); instead verify the overwrite-mode newest-wins contract.
func TestKeychainOverwriteModeNewestWins(t *testing.T) {
	k := openTestKeychain(t, 64, 0) // FlagAppend unset: overwrite mode

	key := []byte{0x42}
	if err := k.Put(key, SectorKey{SectorStart: 1}); err != nil {
		t.Fatalf("Put #1: %s", err)
	}
	if err := k.Put(key, SectorKey{SectorStart: 2}); err != nil {
		t.Fatalf("Put #2: %s", err)
	}

	got, err := k.Get(key)
	if err != nil {
		t.Fatalf("Get: %s", err)
	}
	if got.SectorStart != 2 {
		t.Fatalf("Get(k).SectorStart = %d, want 2 (the latest write)", got.SectorStart)
	}
}

func TestKeychainGetAbsentKeyReturnsNotFound(t *testing.T) {
	k := openTestKeychain(t, 64, FlagAppend)

	_, err := k.Get([]byte{0x99})
	if !faults.IsNotFound(err) {
		t.Fatalf("Get(absent) error = %v, want a NotFound error", err)
	}
}

func TestKeychainRejectsEmptyKey(t *testing.T) {
	k := openTestKeychain(t, 64, FlagAppend)

	if err := k.Put([]byte{}, SectorKey{}); !faults.IsInvalid(err) {
		t.Fatalf("Put(empty key) error = %v, want an Invalid error", err)
	}
	if _, err := k.Get([]byte{}); !faults.IsInvalid(err) {
		t.Fatalf("Get(empty key) error = %v, want an Invalid error", err)
	}
}

// Reopening a keychain directory restores the bloom/occupancy state from
// disk well enough that previously written keys are still retrievable.
func TestKeychainReopenRestoresState(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{BasePath: dir, TotalBuckets: 64, Flags: FlagAppend}

	k1, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open #1: %s", err)
	}
	key := []byte{0x07}
	if err := k1.Put(key, SectorKey{SectorStart: 9}); err != nil {
		t.Fatalf("Put: %s", err)
	}
	if err := k1.Close(); err != nil {
		t.Fatalf("Close: %s", err)
	}

	k2, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open #2: %s", err)
	}
	defer k2.Close()

	got, err := k2.Get(key)
	if err != nil {
		t.Fatalf("Get after reopen: %s", err)
	}
	if got.SectorStart != 9 {
		t.Fatalf("Get(k).SectorStart = %d, want 9", got.SectorStart)
	}
}
