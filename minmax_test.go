// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package piol

import (
	"sync"
	"testing"
)

func TestGetMinMaxSingleRank(t *testing.T) {
	comm, _ := SingleRankContext()
	xs := []float64{3, -1, 7, 2}
	ys := []float64{10, 20, 5, 30}

	res := GetMinMax(comm, 0, len(xs),
		func(row int) float64 { return xs[row] },
		func(row int) float64 { return ys[row] })

	if res.MinX.Value != -1 || res.MinX.Index != 1 {
		t.Errorf("MinX = %v, want {-1, 1}", res.MinX)
	}
	if res.MaxX.Value != 7 || res.MaxX.Index != 2 {
		t.Errorf("MaxX = %v, want {7, 2}", res.MaxX)
	}
	if res.MinY.Value != 5 || res.MinY.Index != 2 {
		t.Errorf("MinY = %v, want {5, 2}", res.MinY)
	}
	if res.MaxY.Value != 30 || res.MaxY.Index != 3 {
		t.Errorf("MaxY = %v, want {30, 3}", res.MaxY)
	}
}

func TestGetMinMaxAcrossRanks(t *testing.T) {
	comms := NewLocalGroup(2)
	perRankX := [][]float64{{5, 1}, {9, -4}}
	perRankOffset := []int64{0, 2}

	results := make([]MinMaxResult, 2)
	var wg sync.WaitGroup
	for r, c := range comms {
		wg.Add(1)
		go func(r int, c *Local) {
			defer wg.Done()
			xs := perRankX[r]
			results[r] = GetMinMax(c, perRankOffset[r], len(xs),
				func(row int) float64 { return xs[row] },
				func(row int) float64 { return 0 })
		}(r, c)
	}
	wg.Wait()

	for _, res := range results {
		if res.MinX.Value != -4 || res.MinX.Index != 3 {
			t.Errorf("MinX = %v, want {-4, 3}", res.MinX)
		}
		if res.MaxX.Value != 9 || res.MaxX.Index != 2 {
			t.Errorf("MaxX = %v, want {9, 2}", res.MaxX)
		}
	}
}

func TestGetMinMaxEmptyRankDoesNotWin(t *testing.T) {
	comms := NewLocalGroup(2)
	results := make([]MinMaxResult, 2)
	var wg sync.WaitGroup
	for r, c := range comms {
		wg.Add(1)
		go func(r int, c *Local) {
			defer wg.Done()
			if r == 0 {
				results[r] = GetMinMax(c, 0, 0, func(int) float64 { return 0 }, func(int) float64 { return 0 })
			} else {
				xs := []float64{42}
				results[r] = GetMinMax(c, 5, 1, func(row int) float64 { return xs[row] }, func(int) float64 { return 0 })
			}
		}(r, c)
	}
	wg.Wait()

	for _, res := range results {
		if res.MaxX.Value != 42 || res.MaxX.Index != 5 {
			t.Errorf("MaxX = %v, want {42, 5}", res.MaxX)
		}
	}
}
