// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package piol

import (
	"sync"
	"testing"
)

func buildLineTable(pairs [][2]int64) *TraceMetadata {
	rules := NewRuleSet(Inline, Crossline)
	tm := NewTraceMetadata(rules, len(pairs))
	for i, p := range pairs {
		tm.SetInteger(i, Inline, p[0])
		tm.SetInteger(i, Crossline, p[1])
	}
	return tm
}

func TestGetGathersSingleRankRunLengths(t *testing.T) {
	comm, _ := SingleRankContext()
	tm := buildLineTable([][2]int64{{1, 1}, {1, 1}, {1, 2}, {2, 2}, {2, 2}, {2, 2}})

	got := GetGathers(comm, tm)
	want := []GatherInfo{
		{NumTraces: 2, Inline: 1, Crossline: 1},
		{NumTraces: 1, Inline: 1, Crossline: 2},
		{NumTraces: 3, Inline: 2, Crossline: 2},
	}
	if len(got) != len(want) {
		t.Fatalf("GetGathers() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("gather %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestGetGathersMergesAcrossRankBoundary(t *testing.T) {
	comms := NewLocalGroup(2)
	// The (5,5) gather starts on rank 0 and continues onto rank 1.
	perRank := [][][2]int64{
		{{4, 4}, {5, 5}},
		{{5, 5}, {5, 5}, {6, 6}},
	}

	results := make([][]GatherInfo, 2)
	var wg sync.WaitGroup
	for r, c := range comms {
		wg.Add(1)
		go func(r int, c *Local) {
			defer wg.Done()
			results[r] = GetGathers(c, buildLineTable(perRank[r]))
		}(r, c)
	}
	wg.Wait()

	if len(results[0]) != 2 {
		t.Fatalf("rank 0 gathers = %v, want 2 entries", results[0])
	}
	if got := results[0][1]; got.NumTraces != 3 || got.Inline != 5 {
		t.Errorf("rank 0's boundary gather = %v, want 3 traces of inline 5", got)
	}
	if len(results[1]) != 1 || results[1][0].Inline != 6 {
		t.Errorf("rank 1 gathers = %v, want only the (6,6) gather", results[1])
	}
}

func TestGetGathersEmptyRankParticipates(t *testing.T) {
	comms := NewLocalGroup(2)
	perRank := [][][2]int64{
		{{1, 1}, {1, 1}},
		{},
	}

	results := make([][]GatherInfo, 2)
	var wg sync.WaitGroup
	for r, c := range comms {
		wg.Add(1)
		go func(r int, c *Local) {
			defer wg.Done()
			results[r] = GetGathers(c, buildLineTable(perRank[r]))
		}(r, c)
	}
	wg.Wait()

	if len(results[0]) != 1 || results[0][0].NumTraces != 2 {
		t.Errorf("rank 0 gathers = %v, want one 2-trace gather", results[0])
	}
	if len(results[1]) != 0 {
		t.Errorf("empty rank returned gathers: %v", results[1])
	}
}
