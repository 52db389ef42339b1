// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 The LLL-TAO Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/mercuryminer/LLL-TAO/internal/faults"
)

// sidecar pairs the in-memory BloomFilter and OccupancyMap for one hashmap
// file. Index i of keychain.sidecars describes P/_hashmap.NNNNN for i==NNNNN.
type sidecar struct {
	bloom     *BloomFilter
	occupancy *OccupancyMap
}

// Keychain is the disk-backed Binary Hash Map Keychain (BHK): a linked
// sequence of flat hashmap files addressed by bucket, with a per-file
// in-memory Bloom filter and occupancy bitmap.
//
// A single coarse mutex serializes every public operation; the in-memory
// bloom/occupancy sidecars and the two file-handle LRUs are shielded by it.
type Keychain struct {
	mutex sync.Mutex

	config Config
	log    *logger.L

	sidecars   []sidecar
	hashmaps   *fileCache
	bloomfiles *fileCache
}

// Open initializes a Keychain rooted at cfg.BasePath, creating the directory
// and the first hashmap/bloom pair if they do not already exist, or loading
// the existing chain of bloom+occupancy sidecars otherwise.
func Open(cfg Config) (*Keychain, error) {
	cfg = cfg.withDefaults()

	k := &Keychain{
		config:     cfg,
		log:        logger.New("keychain"),
		hashmaps:   newFileCache(cfg.LRUCapacity),
		bloomfiles: newFileCache(cfg.LRUCapacity),
	}

	if err := os.MkdirAll(cfg.BasePath, 0o755); err != nil {
		k.log.Errorf("mkdir %s: %s", cfg.BasePath, err)
		return nil, faults.ErrBaseDirectory
	}

	if _, err := os.Stat(k.bloomPath(0)); os.IsNotExist(err) {
		if err := k.createFilePair(0); err != nil {
			return nil, err
		}
	} else {
		for i := uint16(0); ; i++ {
			if _, err := os.Stat(k.bloomPath(i)); os.IsNotExist(err) {
				break
			}
			sc, err := k.loadSidecar(i)
			if err != nil {
				return nil, err
			}
			k.sidecars = append(k.sidecars, sc)
		}
	}

	if _, err := k.hashmapStream(0); err != nil {
		return nil, err
	}

	return k, nil
}

func (k *Keychain) hashmapPath(fileIndex uint16) string {
	return filepath.Join(k.config.BasePath, fmt.Sprintf("_hashmap.%05d", fileIndex))
}

func (k *Keychain) bloomPath(fileIndex uint16) string {
	return filepath.Join(k.config.BasePath, fmt.Sprintf("_bloom.%05d", fileIndex))
}

// createFilePair creates a zero-filled hashmap file and its companion bloom
// and occupancy sidecar, appending the sidecar at index fileIndex.
func (k *Keychain) createFilePair(fileIndex uint16) error {
	hm, err := os.OpenFile(k.hashmapPath(fileIndex), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		k.log.Errorf("create hashmap %d: %s", fileIndex, err)
		return faults.ErrHashmapCreate
	}
	size := int64(k.config.TotalBuckets) * int64(sectorKeyHeaderSize+k.config.MaxKeySize)
	if err := hm.Truncate(size); err != nil {
		hm.Close()
		k.log.Errorf("truncate hashmap %d: %s", fileIndex, err)
		return faults.ErrHashmapCreate
	}
	k.hashmaps.Put(fileIndex, hm)

	sc := sidecar{
		bloom:     NewBloomFilter(k.config.TotalBuckets),
		occupancy: NewOccupancyMap(k.config.TotalBuckets),
	}
	if int(fileIndex) == len(k.sidecars) {
		k.sidecars = append(k.sidecars, sc)
	} else {
		for len(k.sidecars) <= int(fileIndex) {
			k.sidecars = append(k.sidecars, sidecar{})
		}
		k.sidecars[fileIndex] = sc
	}

	bf, err := k.bloomStream(fileIndex)
	if err != nil {
		return err
	}
	if _, err := bf.WriteAt(sc.bloom.Bytes(), 0); err != nil {
		k.log.Errorf("write bloom %d: %s", fileIndex, err)
		return faults.ErrBloomCreate
	}
	if _, err := bf.WriteAt(sc.occupancy.Bytes(), int64(sc.bloom.Size())); err != nil {
		k.log.Errorf("write occupancy %d: %s", fileIndex, err)
		return faults.ErrBloomCreate
	}
	sc.bloom.ResetModified()
	sc.occupancy.ResetModified()
	return nil
}

// loadSidecar reads a previously persisted bloom+occupancy pair for
// fileIndex from disk into memory.
func (k *Keychain) loadSidecar(fileIndex uint16) (sidecar, error) {
	f, err := os.Open(k.bloomPath(fileIndex))
	if err != nil {
		k.log.Errorf("open bloom %d: %s", fileIndex, err)
		return sidecar{}, faults.ErrBloomOpen
	}
	defer f.Close()

	sc := sidecar{
		bloom:     NewBloomFilter(k.config.TotalBuckets),
		occupancy: NewOccupancyMap(k.config.TotalBuckets),
	}

	bloomSize := sc.bloom.Size()
	occSize := sc.occupancy.Size()
	data := make([]byte, bloomSize+occSize)
	if _, err := f.Read(data); err != nil {
		k.log.Errorf("read bloom %d: %s", fileIndex, err)
		return sidecar{}, faults.ErrBloomRead
	}
	sc.bloom.LoadBytes(data[:bloomSize])
	sc.occupancy.LoadBytes(data[bloomSize:])
	return sc, nil
}

// persistSidecar writes the dirty byte ranges of sidecars[fileIndex]'s
// bloom and occupancy to P/_bloom.NNNNN, which stores bloom bytes followed
// by occupancy bytes.
func (k *Keychain) persistSidecar(fileIndex uint16) error {
	sc := k.sidecars[fileIndex]

	f, err := k.bloomStream(fileIndex)
	if err != nil {
		return err
	}

	if data, offset, ok := sc.bloom.ModifiedBytes(); ok {
		if _, err := f.WriteAt(data, int64(offset)); err != nil {
			k.log.Errorf("write bloom %d: %s", fileIndex, err)
			return faults.ErrBloomWrite
		}
		sc.bloom.ResetModified()
	}
	if data, offset, ok := sc.occupancy.ModifiedBytes(); ok {
		if _, err := f.WriteAt(data, int64(sc.bloom.Size())+int64(offset)); err != nil {
			k.log.Errorf("write occupancy %d: %s", fileIndex, err)
			return faults.ErrBloomWrite
		}
		sc.occupancy.ResetModified()
	}
	return nil
}

func (k *Keychain) hashmapStream(fileIndex uint16) (*os.File, error) {
	if f, ok := k.hashmaps.Get(fileIndex); ok {
		return f, nil
	}
	f, err := os.OpenFile(k.hashmapPath(fileIndex), os.O_RDWR, 0o644)
	if err != nil {
		k.log.Errorf("open hashmap %d: %s", fileIndex, err)
		return nil, faults.ErrHashmapOpen
	}
	k.hashmaps.Put(fileIndex, f)
	return f, nil
}

func (k *Keychain) bloomStream(fileIndex uint16) (*os.File, error) {
	if f, ok := k.bloomfiles.Get(fileIndex); ok {
		return f, nil
	}
	f, err := os.OpenFile(k.bloomPath(fileIndex), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		k.log.Errorf("open bloom %d: %s", fileIndex, err)
		return nil, faults.ErrBloomOpen
	}
	k.bloomfiles.Put(fileIndex, f)
	return f, nil
}

func (k *Keychain) probeWindow(bucket uint64) uint64 {
	window := uint64(maxLinearProbe)
	if bucket+window > k.config.TotalBuckets {
		window = k.config.TotalBuckets - bucket
	}
	return window
}

func (k *Keychain) recordSize() int64 {
	return int64(sectorKeyHeaderSize + k.config.MaxKeySize)
}

// readWindow reads the probe window for bucket from file fileIndex into a
// single contiguous buffer of window records.
func (k *Keychain) readWindow(fileIndex uint16, bucket, window uint64) ([]byte, error) {
	f, err := k.hashmapStream(fileIndex)
	if err != nil {
		return nil, err
	}
	recSize := k.recordSize()
	buf := make([]byte, int64(window)*recSize)
	if _, err := f.ReadAt(buf, int64(bucket)*recSize); err != nil {
		k.log.Errorf("read window file %d bucket %d: %s", fileIndex, bucket, err)
		return nil, faults.ErrHashmapRead
	}
	return buf, nil
}

// Get looks up key and returns the first READY match in scan order: files
// are searched newest first, and within a file the earliest slot of the
// probe window wins, so when one file holds two records for the same key
// the one in the earlier slot is returned. It returns faults.ErrKeyNotFound
// if no match exists.
func (k *Keychain) Get(key []byte) (SectorKey, error) {
	k.mutex.Lock()
	defer k.mutex.Unlock()

	record, _, _, found, err := k.scan(key)
	if err != nil {
		return SectorKey{}, err
	}
	if !found {
		if k.config.Verbose {
			k.log.Debugf("get miss bucket=%d", getBucket(key, k.config.TotalBuckets))
		}
		return SectorKey{}, faults.ErrKeyNotFound
	}
	if k.config.Verbose {
		k.log.Debugf("get hit state=%d file=%d start=%d size=%d", record.State, record.SectorFile, record.SectorStart, record.SectorSize)
	}
	return record, nil
}

// scan performs the Get-style lookup shared by Get, the overwrite branch of
// Put, and Erase: newest file wins, earliest slot within a file wins.
func (k *Keychain) scan(key []byte) (record SectorKey, fileIndex uint16, bucket uint64, found bool, err error) {
	if len(key) == 0 {
		return SectorKey{}, 0, 0, false, faults.ErrInvalidKeySize
	}

	compressed := compressKey(key, k.config.MaxKeySize)
	b := getBucket(key, k.config.TotalBuckets)
	window := k.probeWindow(b)

	for f := len(k.sidecars) - 1; f >= 0; f-- {
		sc := k.sidecars[f]
		if !sc.bloom.MaybeContains(key) {
			continue
		}

		buf, rerr := k.readWindow(uint16(f), b, window)
		if rerr != nil {
			return SectorKey{}, 0, 0, false, rerr
		}

		recSize := int(k.recordSize())
		for s := uint64(0); s < window; s++ {
			if !sc.occupancy.Has(b + s) {
				continue
			}
			rec := decodeSectorKey(buf[int(s)*recSize:(int(s)+1)*recSize], k.config.MaxKeySize)
			if !rec.compressedKeyEqual(compressed) {
				continue
			}
			if rec.State == StateReady {
				return rec, uint16(f), b + s, true, nil
			}
		}
	}
	return SectorKey{}, 0, 0, false, nil
}

// Put writes record under key. In append mode (Config.Flags&FlagAppend) the
// first free slot in the probe window across any file, oldest first,
// receives the record; overflowing every existing file's window creates a
// new file. Outside append mode Put first searches for a slot already
// holding the same compressed key, newest file first (skipping files whose
// bloom filter rules the key out), and overwrites it in place; only if there
// is none does it claim the first unoccupied slot in the probe window,
// oldest file first, or a new file. A matching slot is therefore preferred
// even when an unoccupied slot comes earlier in scan order; the two
// conditions are not checked in a single combined scan.
func (k *Keychain) Put(key []byte, record SectorKey) error {
	k.mutex.Lock()
	defer k.mutex.Unlock()

	if len(key) == 0 {
		return faults.ErrInvalidKeySize
	}

	compressed := compressKey(key, k.config.MaxKeySize)
	b := getBucket(key, k.config.TotalBuckets)
	record.Length = uint8(len(compressed))
	record.KeyBytes = make([]byte, k.config.MaxKeySize)
	copy(record.KeyBytes, compressed)
	record.State = StateReady

	if k.config.Verbose {
		k.log.Debugf("put bucket=%d file=%d start=%d size=%d append=%v", b, record.SectorFile, record.SectorStart, record.SectorSize, k.config.appendMode())
	}

	if !k.config.appendMode() {
		return k.putOverwrite(key, compressed, b, record)
	}
	return k.putAppend(key, b, record)
}

func (k *Keychain) putOverwrite(key, compressed []byte, b uint64, record SectorKey) error {
	window := k.probeWindow(b)
	recSize := int(k.recordSize())

	for f := len(k.sidecars) - 1; f >= 0; f-- {
		sc := k.sidecars[f]
		if !sc.bloom.MaybeContains(key) {
			continue
		}
		buf, err := k.readWindow(uint16(f), b, window)
		if err != nil {
			return err
		}
		for s := uint64(0); s < window; s++ {
			if !sc.occupancy.Has(b + s) {
				continue
			}
			rec := decodeSectorKey(buf[int(s)*recSize:(int(s)+1)*recSize], k.config.MaxKeySize)
			if rec.compressedKeyEqual(compressed) {
				return k.writeSlot(uint16(f), b+s, record, key)
			}
		}
	}

	// No existing match: fall back to the first EMPTY slot, oldest file first.
	for f := 0; f < len(k.sidecars); f++ {
		sc := k.sidecars[f]
		for s := uint64(0); s < window; s++ {
			if !sc.occupancy.Has(b + s) {
				return k.writeSlot(uint16(f), b+s, record, key)
			}
		}
	}

	return k.putInNewFile(b, record, key)
}

func (k *Keychain) putAppend(key []byte, b uint64, record SectorKey) error {
	window := k.probeWindow(b)

	for f := 0; f < len(k.sidecars); f++ {
		sc := k.sidecars[f]
		for s := uint64(0); s < window; s++ {
			if !sc.occupancy.Has(b + s) {
				return k.writeSlot(uint16(f), b+s, record, key)
			}
		}
	}

	return k.putInNewFile(b, record, key)
}

func (k *Keychain) putInNewFile(b uint64, record SectorKey, key []byte) error {
	newFile := uint16(len(k.sidecars))
	if err := k.createFilePair(newFile); err != nil {
		return err
	}
	return k.writeSlot(newFile, b, record, key)
}

// writeSlot claims bucketSlot in file fileIndex: marks it occupied, inserts
// key into the file's bloom filter, writes the serialized record, and
// persists the sidecar's dirty bytes.
func (k *Keychain) writeSlot(fileIndex uint16, bucketSlot uint64, record SectorKey, key []byte) error {
	f, err := k.hashmapStream(fileIndex)
	if err != nil {
		return err
	}

	data := encodeSectorKey(record, k.config.MaxKeySize)
	if _, err := f.WriteAt(data, int64(bucketSlot)*k.recordSize()); err != nil {
		k.log.Errorf("write slot file %d bucket %d: %s", fileIndex, bucketSlot, err)
		return faults.ErrHashmapWrite
	}

	sc := k.sidecars[fileIndex]
	sc.bloom.Insert(key)
	sc.occupancy.Insert(bucketSlot)

	return k.persistSidecar(fileIndex)
}

// Erase removes key, zero-filling its on-disk record and clearing its
// occupancy bit. Bloom bits are never cleared, so future lookups may still
// pay for a disk read on this file as a false positive. Reports whether a
// matching record was found.
func (k *Keychain) Erase(key []byte) (bool, error) {
	k.mutex.Lock()
	defer k.mutex.Unlock()

	_, fileIndex, bucketSlot, found, err := k.scan(key)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	f, err := k.hashmapStream(fileIndex)
	if err != nil {
		return false, err
	}
	zero := make([]byte, k.recordSize())
	if _, err := f.WriteAt(zero, int64(bucketSlot)*k.recordSize()); err != nil {
		k.log.Errorf("erase file %d bucket %d: %s", fileIndex, bucketSlot, err)
		return false, faults.ErrHashmapWrite
	}

	sc := k.sidecars[fileIndex]
	sc.occupancy.Erase(bucketSlot)

	if k.config.Verbose {
		k.log.Debugf("erase file=%d bucket=%d", fileIndex, bucketSlot)
	}

	if err := k.persistSidecar(fileIndex); err != nil {
		return false, err
	}
	return true, nil
}

// Flush persists the dirty byte ranges of every in-memory bloom and
// occupancy sidecar. Hashmap files are written synchronously on each
// Put/Erase, so there is no per-file buffer to flush beyond the OS.
func (k *Keychain) Flush() error {
	k.mutex.Lock()
	defer k.mutex.Unlock()

	for i := range k.sidecars {
		if err := k.persistSidecar(uint16(i)); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and releases every open file handle held by the keychain.
func (k *Keychain) Close() error {
	k.mutex.Lock()
	defer k.mutex.Unlock()

	for i := range k.sidecars {
		if err := k.persistSidecar(uint16(i)); err != nil {
			k.hashmaps.CloseAll()
			k.bloomfiles.CloseAll()
			return err
		}
	}
	k.hashmaps.CloseAll()
	k.bloomfiles.CloseAll()
	return nil
}
