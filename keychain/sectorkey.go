// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 The LLL-TAO Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import "encoding/binary"

// Slot states for a SectorKey record. An EMPTY slot is both a tombstone and
// an unused-from-birth slot; the two are indistinguishable on disk.
const (
	StateEmpty uint8 = 0
	StateReady uint8 = 1
)

// sectorKeyHeaderSize is the fixed part of a SectorKey record in bytes:
// 1 (state) + 2 (sector_file) + 4 (sector_start) + 4 (sector_size) +
// 1 (length) + 1 (unused, written as zero). The variable part, key_bytes, is MaxKeySize bytes, so the
// total on-disk allocation for a given keychain is sectorKeyHeaderSize +
// MaxKeySize.
const sectorKeyHeaderSize = 13

// SectorKey is the fixed-size index record persisted by the keychain,
// pointing into an external sector payload file. KeyBytes is always
// zero-padded to the owning keychain's MaxKeySize.
type SectorKey struct {
	State       uint8
	SectorFile  uint16
	SectorStart uint32
	SectorSize  uint32
	Length      uint8
	KeyBytes    []byte
}

// encodeSectorKey serializes r into a freshly allocated keyAllocation-byte
// little-endian record, where keyAllocation = sectorKeyHeaderSize + maxKeySize.
func encodeSectorKey(r SectorKey, maxKeySize int) []byte {
	out := make([]byte, sectorKeyHeaderSize+maxKeySize)
	out[0] = r.State
	binary.LittleEndian.PutUint16(out[1:3], r.SectorFile)
	binary.LittleEndian.PutUint32(out[3:7], r.SectorStart)
	binary.LittleEndian.PutUint32(out[7:11], r.SectorSize)
	out[11] = r.Length
	copy(out[sectorKeyHeaderSize:], r.KeyBytes)
	return out
}

// decodeSectorKey deserializes a keyAllocation-byte record. Callers must
// tolerate trailing zero padding; data shorter than the expected allocation
// yields the zero-valued record.
func decodeSectorKey(data []byte, maxKeySize int) SectorKey {
	var r SectorKey
	if len(data) < sectorKeyHeaderSize+maxKeySize {
		return r
	}
	r.State = data[0]
	r.SectorFile = binary.LittleEndian.Uint16(data[1:3])
	r.SectorStart = binary.LittleEndian.Uint32(data[3:7])
	r.SectorSize = binary.LittleEndian.Uint32(data[7:11])
	r.Length = data[11]
	r.KeyBytes = make([]byte, maxKeySize)
	copy(r.KeyBytes, data[sectorKeyHeaderSize:sectorKeyHeaderSize+maxKeySize])
	return r
}

// compressedKeyEqual reports whether the stored key_bytes field matches
// compressedKey, comparing only the declared Length bytes.
func (r SectorKey) compressedKeyEqual(compressedKey []byte) bool {
	if int(r.Length) != len(compressedKey) {
		return false
	}
	for i, b := range compressedKey {
		if r.KeyBytes[i] != b {
			return false
		}
	}
	return true
}
