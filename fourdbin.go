// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package piol

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/google/uuid"
)

// dsr computes the dissimilarity metric of §4.10 between pair A
// (xsA, ysA, xrA, yrA) and pair B (xsB, ysB, xrB, yrB): the smaller of the
// "same boat direction" and "opposite boat direction" sums of source- and
// receiver-side Euclidean distances.
func dsr(xsA, ysA, xrA, yrA, xsB, ysB, xrB, yrB float64) float64 {
	forward := math.Hypot(xsA-xsB, ysA-ysB) + math.Hypot(xrA-xrB, yrA-yrB)
	reverse := math.Hypot(xsA-xrB, ysA-yrB) + math.Hypot(xrA-xsB, yrA-ysB)
	if forward < reverse {
		return forward
	}
	return reverse
}

// MatchResult is one rank's output of §4.10: for each row of the local A
// Coords, the best-matching global trace number in B and the dsr achieved.
type MatchResult struct {
	Min   []int64
	MinRs []float64
}

// PublishCoordsWindows builds the one-sided RMA-emulating window of §4.10
// step 2: one DistVector slot per rank, each holding that rank's entire
// local B Coords, exposed so any rank can RMA-Get any other's via
// DistVector.GetRemoteSlice, per the design note on GetRemoteSlice.
func PublishCoordsWindows(comms []*Local, localB []*Coords) []*DistVector[*Coords] {
	group := NewDistVectorGroup[*Coords](comms, int64(len(comms)))
	for r, dv := range group {
		dv.LocalSlice()[0] = localB[r]
	}
	return group
}

// Match runs §4.10's algorithm for the calling rank: local seed, active-set
// selection over window, then a round-robin RMA-Get + range-prune + inner
// kernel pass over every active peer's B.
func Match(comm *Local, window []*DistVector[*Coords], localA, localB *Coords, dsrMax float64) MatchResult {
	rank := comm.Rank()
	window[rank].Sync()

	res := MatchResult{Min: make([]int64, localA.Sz), MinRs: make([]float64, localA.Sz)}
	seedTn := int64(-1)
	seedRs := math.Inf(1)
	if localB.Sz > 0 {
		seedTn = localB.Tn[0]
	}
	for i := 0; i < localA.Sz; i++ {
		rs := seedRs
		if localB.Sz > 0 {
			rs = dsr(localA.XSrc[i], localA.YSrc[i], localA.XRcv[i], localA.YRcv[i],
				localB.XSrc[0], localB.YSrc[0], localB.XRcv[0], localB.YRcv[0])
		}
		res.Min[i] = seedTn
		res.MinRs[i] = rs
	}

	aMin, aMax := localA.MinMaxXSrc()
	myMin, myMax := localB.MinMaxXSrc()
	allMin := comm.Gather(myMin)
	allMax := comm.Gather(myMax)

	active := make([]int, 0, comm.NumRanks())
	for q := 0; q < comm.NumRanks(); q++ {
		if allMin[q] <= aMax+dsrMax && allMax[q] >= aMin-dsrMax {
			active = append(active, q)
		}
	}

	for _, q := range active {
		peer := window[rank].GetRemoteSlice(q)[0]
		runInnerKernel(localA, peer, dsrMax, res)
	}

	comm.Barrier()
	return res
}

// runInnerKernel applies the range-prune and vectorisable inner loop of
// §4.10 steps 4b/4c for one peer B against localA, updating res in place.
func runInnerKernel(a, b *Coords, dsrMax float64, res MatchResult) {
	if a.Sz == 0 || b.Sz == 0 {
		return
	}
	lo := a.XSrc[0] - dsrMax
	hi := a.XSrc[a.Sz-1] + dsrMax
	bStart := sort.Search(b.Sz, func(i int) bool { return b.XSrc[i] >= lo })
	bEnd := sort.Search(b.Sz, func(i int) bool { return b.XSrc[i] > hi })
	if bStart >= bEnd {
		return
	}

	blo := b.XSrc[bStart] - dsrMax
	bhi := b.XSrc[bEnd-1] + dsrMax
	aStart := sort.Search(a.Sz, func(i int) bool { return a.XSrc[i] >= blo })
	aStart -= aStart % simdAlignment // snap down to SIMD alignment, per §4.10 step 4b
	if aStart < 0 {
		aStart = 0
	}
	aEnd := sort.Search(a.Sz, func(i int) bool { return a.XSrc[i] > bhi })
	if aStart >= aEnd {
		return
	}

	for i := aStart; i < aEnd; i++ {
		best := res.MinRs[i]
		bestTn := res.Min[i]
		for j := bStart; j < bEnd; j++ {
			d := dsr(a.XSrc[i], a.YSrc[i], a.XRcv[i], a.YRcv[i], b.XSrc[j], b.YSrc[j], b.XRcv[j], b.YRcv[j])
			// strict <: ties keep the existing (first-win) value, per
			// §4.10's tie policy.
			if d < best {
				best = d
				bestTn = b.Tn[j]
			}
		}
		res.MinRs[i] = best
		res.Min[i] = bestTn
	}
}

// RestartState is the partial-match state persisted by SaveRestart/LoadRestart,
// the format named but left unwired by the original 4D matcher's restart
// file (util/fourdbinRestart.cc): a row count followed by two parallel
// uint64 trace-number lists and a float32 dsr-achieved list.
type RestartState struct {
	List1 []int64
	List2 []int64
	MinRs []float32
}

// RestartPath names a restart file the way §6 "Persisted state" describes:
// tmp/restart<rank>-<run-id>, with run-id a uuid so concurrent runs against
// the same tmp directory never collide.
func RestartPath(tmpDir string, rank int, runID uuid.UUID) string {
	return fmt.Sprintf("%s/restart%d-%s", tmpDir, rank, runID.String())
}

// SaveRestart writes state to path in the on-disk format named by §6:
// uint64 size; size×uint64 list1; size×uint64 list2; size×float32 minrs.
func SaveRestart(path string, state RestartState) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	size := uint64(len(state.List1))
	if err := binary.Write(f, binary.BigEndian, size); err != nil {
		return err
	}
	for _, v := range state.List1 {
		if err := binary.Write(f, binary.BigEndian, uint64(v)); err != nil {
			return err
		}
	}
	for _, v := range state.List2 {
		if err := binary.Write(f, binary.BigEndian, uint64(v)); err != nil {
			return err
		}
	}
	for _, v := range state.MinRs {
		if err := binary.Write(f, binary.BigEndian, v); err != nil {
			return err
		}
	}
	return nil
}

// LoadRestart reads back a RestartState written by SaveRestart.
func LoadRestart(path string) (RestartState, error) {
	f, err := os.Open(path)
	if err != nil {
		return RestartState{}, err
	}
	defer f.Close()

	var size uint64
	if err := binary.Read(f, binary.BigEndian, &size); err != nil {
		return RestartState{}, err
	}
	state := RestartState{List1: make([]int64, size), List2: make([]int64, size), MinRs: make([]float32, size)}
	for i := range state.List1 {
		var v uint64
		if err := binary.Read(f, binary.BigEndian, &v); err != nil {
			return RestartState{}, err
		}
		state.List1[i] = int64(v)
	}
	for i := range state.List2 {
		var v uint64
		if err := binary.Read(f, binary.BigEndian, &v); err != nil {
			return RestartState{}, err
		}
		state.List2[i] = int64(v)
	}
	for i := range state.MinRs {
		if err := binary.Read(f, binary.BigEndian, &state.MinRs[i]); err != nil {
			return RestartState{}, err
		}
	}
	return state, nil
}
