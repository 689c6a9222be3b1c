// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package piol

import (
	"io"
	"os"
	"sort"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/exseisdat/piol/log"
)

// Mode is the access mode a BinaryFile is opened with, per §4.2.
type Mode int

// Modes.
const (
	ReadOnly Mode = iota
	WriteOnly
	ReadWrite
)

// maxTransportBytes caps a single underlying write call, mirroring the
// "per-transport maximum (INT_MAX bytes or similar)" ceiling of §4.2; writes
// larger than this are split deterministically so every rank splits the
// same way. Reads are not split.
const maxTransportBytes = 1 << 30

// BinaryFile is a handle over one path, collective over a Communicator per
// §4.2: every rank must call each method, with matching size/count even
// when zero, in the same order. It is built on mmap-go for read-mode
// access (the teacher's own technique in file.go) and ordinary pwrite for
// writes, since mmap-go does not expose a writable growable mapping this
// module can safely extend mid-run.
type BinaryFile struct {
	comm   Communicator
	errlog *Log
	logger *log.Helper
	path   string
	mode   Mode
	f      *os.File
	data   mmap.MMap
}

// OpenBinaryFile opens path in the given mode. Every rank in comm's group
// must call this for the same path; the call is collective only in the
// sense that every rank must reach it, not in requiring synchronised
// completion, since each rank maps/opens the same file independently.
func OpenBinaryFile(comm Communicator, errlog *Log, path string, mode Mode) (*BinaryFile, error) {
	bf := &BinaryFile{comm: comm, errlog: errlog, logger: log.Default(), path: path, mode: mode}

	switch mode {
	case ReadOnly:
		f, err := os.Open(path)
		if err != nil {
			errlog.Record(KindIO, "open %s: %v", path, err)
			return nil, err
		}
		bf.f = f
		if fi, statErr := f.Stat(); statErr == nil && fi.Size() > 0 {
			data, mmapErr := mmap.Map(f, mmap.RDONLY, 0)
			if mmapErr != nil {
				errlog.Record(KindIO, "mmap %s: %v", path, mmapErr)
				f.Close()
				return nil, mmapErr
			}
			bf.data = data
		}
	case WriteOnly:
		f, err := os.Create(path)
		if err != nil {
			errlog.Record(KindIO, "create %s: %v", path, err)
			return nil, err
		}
		bf.f = f
	case ReadWrite:
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			errlog.Record(KindIO, "open %s: %v", path, err)
			return nil, err
		}
		bf.f = f
	}
	return bf, nil
}

// Close releases the handle. It must be called by every rank.
func (bf *BinaryFile) Close() error {
	if bf.data != nil {
		_ = bf.data.Unmap()
		bf.data = nil
	}
	if bf.f != nil {
		return bf.f.Close()
	}
	return nil
}

// GetFileSize returns the current file size in bytes. Collective.
func (bf *BinaryFile) GetFileSize() int64 {
	fi, err := bf.f.Stat()
	if err != nil {
		bf.errlog.Record(KindIO, "stat %s: %v", bf.path, err)
		return 0
	}
	return fi.Size()
}

// SetFileSize truncates or extends the file to exactly size bytes.
// Collective.
func (bf *BinaryFile) SetFileSize(size int64) {
	if bf.data != nil {
		_ = bf.data.Unmap()
		bf.data = nil
	}
	if err := bf.f.Truncate(size); err != nil {
		bf.errlog.Record(KindIO, "truncate %s: %v", bf.path, err)
		return
	}
	if bf.mode == ReadOnly || bf.mode == ReadWrite {
		if size > 0 {
			data, err := mmap.Map(bf.f, mmap.RDONLY, 0)
			if err == nil {
				bf.data = data
			}
		}
	}
}

// Read performs a contiguous read of size bytes starting at offset into
// buf. Collective; size may be 0.
func (bf *BinaryFile) Read(offset int64, size int64, buf []byte) {
	if size == 0 {
		return
	}
	if bf.data != nil {
		end := offset + size
		if end > int64(len(bf.data)) {
			bf.errlog.Record(KindOutOfRange, "read past end of %s: offset=%d size=%d filesize=%d", bf.path, offset, size, len(bf.data))
			end = int64(len(bf.data))
		}
		if end > offset {
			copy(buf, bf.data[offset:end])
		}
		return
	}
	n, err := bf.f.ReadAt(buf[:size], offset)
	if err != nil && err != io.EOF {
		bf.errlog.Record(KindIO, "read %s at %d: %v", bf.path, offset, err)
	}
	_ = n
}

// Write performs a contiguous write of size bytes from buf at offset.
// Collective; size may be 0.
func (bf *BinaryFile) Write(offset int64, size int64, buf []byte) {
	if size == 0 {
		return
	}
	for written := int64(0); written < size; {
		chunk := size - written
		if chunk > maxTransportBytes {
			chunk = maxTransportBytes
		}
		if _, err := bf.f.WriteAt(buf[written:written+chunk], offset+written); err != nil {
			bf.errlog.Record(KindIO, "write %s at %d: %v", bf.path, offset+written, err)
			return
		}
		written += chunk
	}
}

// ReadNoncontiguous reads count blocks of block bytes each, with
// consecutive block starts stride bytes apart, starting at offset. buf
// receives count*block bytes packed contiguously. Collective; count may be
// 0.
func (bf *BinaryFile) ReadNoncontiguous(offset, block, stride int64, count int, buf []byte) {
	for i := 0; i < count; i++ {
		bf.Read(offset+int64(i)*stride, block, buf[int64(i)*block:int64(i+1)*block])
	}
}

// WriteNoncontiguous is the symmetric write.
func (bf *BinaryFile) WriteNoncontiguous(offset, block, stride int64, count int, buf []byte) {
	for i := 0; i < count; i++ {
		bf.Write(offset+int64(i)*stride, block, buf[int64(i)*block:int64(i+1)*block])
	}
}

// ReadNoncontiguousIrregular gathers count blocks of block bytes from
// explicit offsets into buf, packed contiguously. Collective; count may be
// 0.
func (bf *BinaryFile) ReadNoncontiguousIrregular(block int64, offsets []int64, buf []byte) {
	for i, off := range offsets {
		bf.Read(off, block, buf[int64(i)*block:int64(i+1)*block])
	}
}

// WriteNoncontiguousIrregular is the symmetric scatter write.
func (bf *BinaryFile) WriteNoncontiguousIrregular(block int64, offsets []int64, buf []byte) {
	for i, off := range offsets {
		bf.Write(off, block, buf[int64(i)*block:int64(i+1)*block])
	}
}

// dedupeSortIndices sorts a copy of idx and returns it along with the
// permutation that maps sorted position back to the caller's original
// request order (including any duplicates), implementing the
// read_non_monotonic contract of §4.5/§9: duplicate offsets copy the same
// decoded payload into every requested slot.
func dedupeSortIndices(idx []int64) (sorted []int64, order []int) {
	order = make([]int, len(idx))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return idx[order[a]] < idx[order[b]] })
	sorted = make([]int64, len(idx))
	for i, o := range order {
		sorted[i] = idx[o]
	}
	return sorted, order
}
