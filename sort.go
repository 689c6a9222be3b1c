// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package piol

import (
	"sort"
)

// rowsPayload is a detached, wire-independent snapshot of a contiguous
// run of TraceMetadata rows, used only to move rows between ranks during
// the neighbour-exchange sort of §4.8. It deliberately does not reuse the
// 240-byte on-disk codec (InsertTraceMetadata/ExtractTraceMetadata): that
// format is fixed by the SEG-Y wire layout, whereas this is a transient,
// in-memory transfer with no on-disk counterpart.
type rowsPayload struct {
	n       int
	floats  map[MetadataKey][]float64
	ints    map[MetadataKey][]int64
	copyBuf [][240]byte
}

func extractRows(tm *TraceMetadata, start, n int) rowsPayload {
	p := rowsPayload{n: n, floats: map[MetadataKey][]float64{}, ints: map[MetadataKey][]int64{}}
	for _, k := range tm.Rules.Keys() {
		r, _ := tm.Rules.Rule(k)
		switch r.valueKind() {
		case KindFloat:
			col := make([]float64, n)
			for i := 0; i < n; i++ {
				col[i] = tm.GetFloatingPoint(start+i, k)
			}
			p.floats[k] = col
		case KindInt:
			col := make([]int64, n)
			for i := 0; i < n; i++ {
				col[i] = tm.GetInteger(start+i, k)
			}
			p.ints[k] = col
		case KindBytes:
			buf := make([][240]byte, n)
			copy(buf, tm.copyBuf[start:start+n])
			p.copyBuf = buf
		}
	}
	return p
}

// newTableFromPayloads builds a fresh TraceMetadata holding the
// concatenation of several rowsPayloads, in order, used to assemble the
// "augmented table of up to 2m rows" of §4.8 step 2.
func newTableFromPayloads(rules *RuleSet, payloads ...rowsPayload) *TraceMetadata {
	total := 0
	for _, p := range payloads {
		total += p.n
	}
	tm := NewTraceMetadata(rules, total)
	pos := 0
	for _, p := range payloads {
		for k, col := range p.floats {
			dst := tm.floats[k]
			if dst != nil {
				copy(dst[pos:pos+p.n], col)
			}
		}
		for k, col := range p.ints {
			dst := tm.ints[k]
			if dst != nil {
				copy(dst[pos:pos+p.n], col)
			}
		}
		if p.copyBuf != nil && tm.copyBuf != nil {
			copy(tm.copyBuf[pos:pos+p.n], p.copyBuf)
		}
		pos += p.n
	}
	return tm
}

// stableSortTable sorts rows [0,n) of tm in place according to less.
func stableSortTable(tm *TraceMetadata, n int, less Less) {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return less(Row{Table: tm, Index: idx[a]}, Row{Table: tm, Index: idx[b]})
	})
	sorted := extractRows(tm, 0, n)
	reordered := rowsPayload{n: n, floats: map[MetadataKey][]float64{}, ints: map[MetadataKey][]int64{}}
	for k, col := range sorted.floats {
		out := make([]float64, n)
		for i, src := range idx {
			out[i] = col[src]
		}
		reordered.floats[k] = out
	}
	for k, col := range sorted.ints {
		out := make([]int64, n)
		for i, src := range idx {
			out[i] = col[src]
		}
		reordered.ints[k] = out
	}
	if sorted.copyBuf != nil {
		out := make([][240]byte, n)
		for i, src := range idx {
			out[i] = sorted.copyBuf[src]
		}
		reordered.copyBuf = out
	}
	writeRowsInto(tm, 0, reordered)
}

func writeRowsInto(tm *TraceMetadata, start int, p rowsPayload) {
	for k, col := range p.floats {
		if dst, ok := tm.floats[k]; ok {
			copy(dst[start:start+p.n], col)
		}
	}
	for k, col := range p.ints {
		if dst, ok := tm.ints[k]; ok {
			copy(dst[start:start+p.n], col)
		}
	}
	if p.copyBuf != nil && tm.copyBuf != nil {
		copy(tm.copyBuf[start:start+p.n], p.copyBuf)
	}
}

// Send transmits v to rank `to` on channel `tag`. Point-to-point exchange
// is not part of the Communicator interface of §4.1 (which names only
// collective primitives); the neighbour-exchange algorithm of §4.8 needs
// it regardless, so Local additionally exposes it directly, the way a
// real MPI binding would via MPI_Send/MPI_Recv alongside the collective
// calls spec.md enumerates.
func (l *Local) Send(to, tag int, v interface{}) {
	ch := l.group.link(l.rank, to, tag)
	ch <- v
}

// Recv receives a value sent by rank `from` on channel `tag`.
func (l *Local) Recv(from, tag int) interface{} {
	ch := l.group.link(from, l.rank, tag)
	return <-ch
}

// link returns the unbuffered channel for the directed (from, to, tag)
// edge, creating it on first use. An unbuffered channel means Send blocks
// until the matching Recv runs, mirroring a blocking MPI send/recv pair;
// a mismatched call sequence between ranks deadlocks here exactly as
// §7 says a protocol error manifests.
func (g *localGroup) link(from, to, tag int) chan interface{} {
	g.linkMu.Lock()
	defer g.linkMu.Unlock()
	if g.links == nil {
		g.links = map[[3]int]chan interface{}{}
	}
	key := [3]int{from, to, tag}
	if ch, ok := g.links[key]; ok {
		return ch
	}
	ch := make(chan interface{})
	g.links[key] = ch
	return ch
}

// exchangeTag namespaces Send/Recv calls by sort round so stale channels
// from a previous pass can never be read by the next one.
func exchangeTag(round int) int { return 1000 + round }

// gtnSequence returns the GTN column of rows [0,n) of tm, used as a cheap
// fingerprint for the "did my local contents change" check of §4.8 step 3.
func gtnSequence(tm *TraceMetadata, n int) []int64 {
	out := make([]int64, n)
	for i := 0; i < n; i++ {
		out[i] = tm.GetInteger(i, GTN)
	}
	return out
}

func sameSequence(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Sort globally reorders a local TraceMetadata table of m rows (N_r
// globally) by less, using the neighbour-exchange algorithm of §4.8. Every
// row of table must already carry its own global trace number in the GTN
// column (e.g. set from a Decomposition's offset before calling).
// fileOrder selects the two output conventions of §4.8: if true, the
// returned []int64 gives, for each local row k, the global position
// p_k such that placing row k there produces a globally sorted sequence;
// if false, it gives the global indices of the rows that, after sorting,
// now reside in this rank's local slice, in local order.
func Sort(comm *Local, table *TraceMetadata, less Less, fileOrder bool) []int64 {
	rank, numRanks := comm.Rank(), comm.NumRanks()
	m := table.Size()

	local := NewTraceMetadata(table.Rules, m)
	writeRowsInto(local, 0, extractRows(table, 0, m))
	stableSortTable(local, m, less)

	if numRanks > 1 {
		round := 0
		for {
			changed := neighbourPass(comm, &local, less, round, rank%2 == 0)
			comm.Barrier()
			round++
			changed2 := neighbourPass(comm, &local, less, round, rank%2 == 1)
			comm.Barrier()
			round++
			if !comm.Or(changed || changed2) {
				break
			}
		}
	}

	originalGTN := gtnSequence(table, m)
	sortedGTN := gtnSequence(local, local.Size())

	if fileOrder {
		// perm[k] is the global position that the k-th original local row
		// (by its original GTN) now occupies in the globally sorted order.
		posOf := make(map[int64]int64, len(sortedGTN))
		globalBase := comm.Offset(int64(local.Size()))
		for i, g := range sortedGTN {
			posOf[g] = globalBase + int64(i)
		}
		perm := make([]int64, len(originalGTN))
		for i, g := range originalGTN {
			perm[i] = posOf[g]
		}
		return perm
	}

	out := make([]int64, len(sortedGTN))
	copy(out, sortedGTN)
	return out
}

// neighbourPass runs one half-step of §4.8's down-phase/up-phase: ranks
// are paired (r, r+1) by parity; the lower-ranked partner sends first
// (breaking the send/recv symmetry so the pair never deadlocks), both
// sides merge the combined range and split it back to their original
// sizes, lower half staying with the lower-ranked partner.
func neighbourPass(comm *Local, localTable **TraceMetadata, less Less, round int, isLeader bool) bool {
	rank, numRanks := comm.Rank(), comm.NumRanks()
	var partner int
	var haveParter bool
	if isLeader {
		partner = rank + 1
		haveParter = partner < numRanks
	} else {
		partner = rank - 1
		haveParter = partner >= 0
	}
	if !haveParter {
		return false
	}

	tm := *localTable
	m := tm.Size()
	mine := extractRows(tm, 0, m)
	tag := exchangeTag(round)

	var theirs rowsPayload
	if rank < partner {
		comm.Send(partner, tag, mine)
		theirs = comm.Recv(partner, tag).(rowsPayload)
	} else {
		theirs = comm.Recv(partner, tag).(rowsPayload)
		comm.Send(partner, tag, mine)
	}

	var combined *TraceMetadata
	if rank < partner {
		combined = newTableFromPayloads(tm.Rules, mine, theirs)
	} else {
		combined = newTableFromPayloads(tm.Rules, theirs, mine)
	}
	stableSortTable(combined, combined.Size(), less)

	var keep rowsPayload
	if rank < partner {
		keep = extractRows(combined, 0, m)
	} else {
		keep = extractRows(combined, combined.Size()-m, m)
	}

	before := gtnSequence(tm, m)
	newTable := NewTraceMetadata(tm.Rules, m)
	writeRowsInto(newTable, 0, keep)
	after := gtnSequence(newTable, m)

	*localTable = newTable
	return !sameSequence(before, after)
}

// CheckOrder streams the metadata in decomp's range from in and verifies
// that consecutive rows, including across the rank boundary with the next
// rank, satisfy less, per §4.8.
func CheckOrder(comm *Local, in *InputFile, decomp Decomposition, less Less) bool {
	rules := NewRuleSet(SourceX, SourceY, ReceiverX, ReceiverY, Offset, Inline, Crossline, GTN)
	n := int(decomp.Size)
	if n == 0 {
		return true
	}
	table := NewTraceMetadata(rules, n)
	in.ReadMetadata(decomp.Offset, n, table, 0)
	for i := range table.ints[GTN] {
		table.SetInteger(i, GTN, decomp.Offset+int64(i))
	}

	ok := true
	for i := 0; i+1 < n; i++ {
		if less(Row{Table: table, Index: i + 1}, Row{Table: table, Index: i}) {
			ok = false
			break
		}
	}

	rank, numRanks := comm.Rank(), comm.NumRanks()
	if numRanks > 1 {
		lastRow := extractRows(table, n-1, 1)
		tag := exchangeTag(0)
		if rank+1 < numRanks {
			comm.Send(rank+1, tag, lastRow)
		}
		if rank > 0 {
			prevLast := comm.Recv(rank-1, tag).(rowsPayload)
			boundaryTable := newTableFromPayloads(rules, prevLast, extractRows(table, 0, 1))
			if less(Row{Table: boundaryTable, Index: 1}, Row{Table: boundaryTable, Index: 0}) {
				ok = false
			}
		}
	}
	return !comm.Or(!ok)
}
