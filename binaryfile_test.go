// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package piol

import (
	"bytes"
	"path/filepath"
	"testing"
)

func newTempBinaryFile(t *testing.T, mode Mode) *BinaryFile {
	t.Helper()
	comm, errlog := SingleRankContext()
	bf, err := OpenBinaryFile(comm, errlog, filepath.Join(t.TempDir(), "data.bin"), mode)
	if err != nil {
		t.Fatalf("OpenBinaryFile: %v", err)
	}
	t.Cleanup(func() { bf.Close() })
	return bf
}

func TestBinaryFileWriteReadContiguous(t *testing.T) {
	bf := newTempBinaryFile(t, ReadWrite)

	payload := []byte("seismic bytes")
	bf.Write(5, int64(len(payload)), payload)

	got := make([]byte, len(payload))
	bf.Read(5, int64(len(payload)), got)
	if !bytes.Equal(got, payload) {
		t.Errorf("Read() = %q, want %q", got, payload)
	}
}

func TestBinaryFileZeroSizeCallsAreNullOps(t *testing.T) {
	bf := newTempBinaryFile(t, ReadWrite)
	bf.Write(0, 0, nil)
	bf.Read(0, 0, nil)
	bf.ReadNoncontiguous(0, 4, 8, 0, nil)
	bf.WriteNoncontiguous(0, 4, 8, 0, nil)
	bf.ReadNoncontiguousIrregular(4, nil, nil)
	bf.WriteNoncontiguousIrregular(4, nil, nil)
	if got := bf.GetFileSize(); got != 0 {
		t.Errorf("file size after null ops = %d, want 0", got)
	}
}

func TestBinaryFileSetFileSize(t *testing.T) {
	bf := newTempBinaryFile(t, ReadWrite)
	bf.SetFileSize(1024)
	if got := bf.GetFileSize(); got != 1024 {
		t.Errorf("GetFileSize() after SetFileSize(1024) = %d", got)
	}
	bf.SetFileSize(10)
	if got := bf.GetFileSize(); got != 10 {
		t.Errorf("GetFileSize() after truncate = %d", got)
	}
}

func TestBinaryFileStridedRoundTrip(t *testing.T) {
	bf := newTempBinaryFile(t, ReadWrite)

	// Three 4-byte blocks, block starts 10 bytes apart.
	in := []byte("aaaabbbbcccc")
	bf.WriteNoncontiguous(2, 4, 10, 3, in)

	out := make([]byte, 12)
	bf.ReadNoncontiguous(2, 4, 10, 3, out)
	if !bytes.Equal(out, in) {
		t.Errorf("strided round trip = %q, want %q", out, in)
	}

	// The gap bytes between blocks stay zero.
	gap := make([]byte, 2)
	bf.Read(6, 2, gap)
	if gap[0] != 0 || gap[1] != 0 {
		t.Errorf("gap bytes = %v, want zeros", gap)
	}
}

func TestBinaryFileIrregularRoundTrip(t *testing.T) {
	bf := newTempBinaryFile(t, ReadWrite)

	in := []byte("xxyyzz")
	offsets := []int64{20, 0, 40}
	bf.WriteNoncontiguousIrregular(2, offsets, in)

	out := make([]byte, 6)
	bf.ReadNoncontiguousIrregular(2, offsets, out)
	if !bytes.Equal(out, in) {
		t.Errorf("irregular round trip = %q, want %q", out, in)
	}
}

func TestDedupeSortIndices(t *testing.T) {
	sorted, order := dedupeSortIndices([]int64{7, 2, 7, 0})
	wantSorted := []int64{0, 2, 7, 7}
	for i, v := range wantSorted {
		if sorted[i] != v {
			t.Fatalf("sorted = %v, want %v", sorted, wantSorted)
		}
	}
	// order maps each sorted position back to its requested slot.
	req := []int64{7, 2, 7, 0}
	for i, o := range order {
		if req[o] != sorted[i] {
			t.Errorf("order[%d]=%d points at %d, want %d", i, o, req[o], sorted[i])
		}
	}
}
