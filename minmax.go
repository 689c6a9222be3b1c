// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package piol

import "math"

// Extreme is a (value, global trace index) pair, the unit of §4.9's
// get_min_max output.
type Extreme struct {
	Value float64
	Index int64
}

// MinMaxResult holds the four extremes §4.9 computes: min/max of the x
// projection and min/max of the y projection.
type MinMaxResult struct {
	MinX, MaxX, MinY, MaxY Extreme
}

// GetMinMax computes (min_x, argmin_x), (max_x, argmax_x), (min_y,
// argmin_y), (max_y, argmax_y) for the rows [offset, offset+count) of
// metadata, projecting x via xOf and y via yOf, per §4.9. Ties are broken
// by the smaller global trace index. Each rank performs a linear local
// pass; the Communicator gathers every rank's four-tuple via
// Communicator.Gather, and every rank reduces the gathered tuples
// identically, so all ranks observe the same result.
func GetMinMax(comm Communicator, offset int64, count int, xOf, yOf func(row int) float64) MinMaxResult {
	local := localExtremes(offset, count, xOf, yOf)

	minXs := comm.Gather(local.MinX.Value)
	minXIdx := comm.GatherInt(local.MinX.Index)
	maxXs := comm.Gather(local.MaxX.Value)
	maxXIdx := comm.GatherInt(local.MaxX.Index)
	minYs := comm.Gather(local.MinY.Value)
	minYIdx := comm.GatherInt(local.MinY.Index)
	maxYs := comm.Gather(local.MaxY.Value)
	maxYIdx := comm.GatherInt(local.MaxY.Index)

	return MinMaxResult{
		MinX: reduceExtreme(minXs, minXIdx, true),
		MaxX: reduceExtreme(maxXs, maxXIdx, false),
		MinY: reduceExtreme(minYs, minYIdx, true),
		MaxY: reduceExtreme(maxYs, maxYIdx, false),
	}
}

// localExtremes performs the single-rank linear pass of §4.9's
// implementation note.
func localExtremes(offset int64, count int, xOf, yOf func(row int) float64) MinMaxResult {
	if count == 0 {
		return MinMaxResult{
			MinX: Extreme{Value: math.Inf(1), Index: -1},
			MaxX: Extreme{Value: math.Inf(-1), Index: -1},
			MinY: Extreme{Value: math.Inf(1), Index: -1},
			MaxY: Extreme{Value: math.Inf(-1), Index: -1},
		}
	}
	res := MinMaxResult{
		MinX: Extreme{Value: xOf(0), Index: offset},
		MaxX: Extreme{Value: xOf(0), Index: offset},
		MinY: Extreme{Value: yOf(0), Index: offset},
		MaxY: Extreme{Value: yOf(0), Index: offset},
	}
	for i := 1; i < count; i++ {
		x, y := xOf(i), yOf(i)
		gtn := offset + int64(i)
		if x < res.MinX.Value {
			res.MinX = Extreme{Value: x, Index: gtn}
		}
		if x > res.MaxX.Value {
			res.MaxX = Extreme{Value: x, Index: gtn}
		}
		if y < res.MinY.Value {
			res.MinY = Extreme{Value: y, Index: gtn}
		}
		if y > res.MaxY.Value {
			res.MaxY = Extreme{Value: y, Index: gtn}
		}
	}
	return res
}

// reduceExtreme picks the global min (wantMin=true) or max across every
// rank's contributed (value, index) pairs, breaking ties by the smaller
// index, per §4.9.
func reduceExtreme(values []float64, indices []int64, wantMin bool) Extreme {
	best := Extreme{Value: values[0], Index: indices[0]}
	for i := 1; i < len(values); i++ {
		v, idx := values[i], indices[i]
		better := false
		switch {
		case wantMin && v < best.Value:
			better = true
		case !wantMin && v > best.Value:
			better = true
		case v == best.Value && idx < best.Index:
			better = true
		}
		if better {
			best = Extreme{Value: v, Index: idx}
		}
	}
	return best
}

