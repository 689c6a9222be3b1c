// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package piol

// Decomposition describes one rank's contiguous slice of [0,N), per
// spec.md §3/§4.7.
type Decomposition struct {
	Offset int64
	Size   int64
}

// BlockDecomposition computes the block decomposition of N elements across
// R ranks for rank r: size = N/R + (r < N%R ? 1 : 0), offset =
// r*(N/R) + min(r, N%R). The invariant Σ size_r = N holds for every N, R.
func BlockDecomposition(n int64, r, rank int) Decomposition {
	if r <= 0 {
		return Decomposition{}
	}
	base := n / int64(r)
	rem := n % int64(r)
	size := base
	if int64(rank) < rem {
		size++
	}
	extra := int64(rank)
	if extra > rem {
		extra = rem
	}
	offset := int64(rank)*base + extra
	return Decomposition{Offset: offset, Size: size}
}

// BlockDecompositionLocation is the inverse of BlockDecomposition: given a
// global index i, it returns the owning rank and the local index within
// that rank's slice.
func BlockDecompositionLocation(n int64, r int, i int64) (rank int, local int64) {
	if r <= 0 {
		return 0, i
	}
	base := n / int64(r)
	rem := n % int64(r)
	// Every rank below `rem` carries one extra element, so the boundary
	// between "has an extra" and "doesn't" sits at rem*(base+1).
	boundary := rem * (base + 1)
	if base+1 > 0 && i < boundary {
		rank = int(i / (base + 1))
		local = i % (base + 1)
		return rank, local
	}
	remaining := i - boundary
	if base == 0 {
		// N < R: every rank beyond rem has size 0, so any index here is
		// out of range; report it at the last rank as a sentinel location.
		return r - 1, 0
	}
	rank = int(rem) + int(remaining/base)
	local = remaining % base
	return rank, local
}

// BlockDecomp is the block-aligned byte-copy variant of §4.7: it groups sz
// bytes into blocks of size bsz aligned to off, decomposes the blocks
// across R ranks, then compensates the first and last partial blocks so
// the returned Decomposition is still a byte-accurate, non-overlapping
// slice of [0, sz).
func BlockDecomp(sz, bsz int64, r, rank int, off int64) Decomposition {
	if bsz <= 0 {
		return Decomposition{Offset: 0, Size: 0}
	}
	// The byte range effectively starts `off` bytes into the first block.
	totalBytes := sz
	firstBlockBytes := bsz - off%bsz
	if firstBlockBytes > totalBytes {
		firstBlockBytes = totalBytes
	}
	remainderBytes := totalBytes - firstBlockBytes
	fullBlocks := remainderBytes / bsz
	tailBytes := remainderBytes % bsz

	blockDecomp := BlockDecomposition(fullBlocks, r, rank)
	byteOffset := firstBlockBytes + blockDecomp.Offset*bsz
	byteSize := blockDecomp.Size * bsz

	if rank == 0 {
		byteOffset = 0
		byteSize += firstBlockBytes
	}
	if rank == r-1 {
		byteSize += tailBytes
	}
	return Decomposition{Offset: byteOffset, Size: byteSize}
}
