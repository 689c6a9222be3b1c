// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package piol

import "testing"

func TestBlockDecompositionCoversWhole(t *testing.T) {
	tests := []struct{ n int64; r int }{
		{100, 4}, {101, 4}, {1, 4}, {0, 4}, {7, 3},
	}
	for _, tt := range tests {
		var total int64
		for rank := 0; rank < tt.r; rank++ {
			d := BlockDecomposition(tt.n, tt.r, rank)
			total += d.Size
		}
		if total != tt.n {
			t.Errorf("BlockDecomposition(%d,%d,*) sizes summed to %d, want %d", tt.n, tt.r, total, tt.n)
		}
	}
}

func TestBlockDecompositionContiguous(t *testing.T) {
	n, r := int64(23), 5
	var offset int64
	for rank := 0; rank < r; rank++ {
		d := BlockDecomposition(n, r, rank)
		if d.Offset != offset {
			t.Errorf("rank %d offset = %d, want %d", rank, d.Offset, offset)
		}
		offset += d.Size
	}
	if offset != n {
		t.Errorf("decomposition did not cover [0,%d): ended at %d", n, offset)
	}
}

func TestBlockDecompositionLocationInverse(t *testing.T) {
	n, r := int64(37), 6
	for i := int64(0); i < n; i++ {
		rank, local := BlockDecompositionLocation(n, r, i)
		d := BlockDecomposition(n, r, rank)
		if d.Offset+local != i {
			t.Errorf("BlockDecompositionLocation(%d) -> rank=%d local=%d, but rank's offset=%d does not recover i", i, rank, local, d.Offset)
		}
	}
}

func TestBlockDecompCoversWhole(t *testing.T) {
	sz, bsz, r := int64(1000), int64(64), 4
	var total int64
	for rank := 0; rank < r; rank++ {
		d := BlockDecomp(sz, bsz, r, rank, 0)
		total += d.Size
	}
	if total != sz {
		t.Errorf("BlockDecomp sizes summed to %d, want %d", total, sz)
	}
}

func TestBlockDecompContiguous(t *testing.T) {
	sz, bsz, r := int64(777), int64(32), 3
	var offset int64
	for rank := 0; rank < r; rank++ {
		d := BlockDecomp(sz, bsz, r, rank, 0)
		if d.Offset != offset {
			t.Errorf("rank %d offset = %d, want %d", rank, d.Offset, offset)
		}
		offset += d.Size
	}
	if offset != sz {
		t.Errorf("BlockDecomp did not cover [0,%d): ended at %d", sz, offset)
	}
}
