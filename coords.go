// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package piol

import (
	"math"
	"sort"
)

// simdAlignment is the padding granularity Coords pads its arrays to, per
// §3's "Coords (4D)": allocations are sized to a multiple of this many
// elements so the inner dsr kernel of §4.10 can assume aligned, full-width
// vector loads without a scalar remainder loop.
const simdAlignment = 8

// Coords is the 4D-bin matcher's per-rank working set, per §3: five
// (optionally seven) aligned parallel arrays of length Sz on each rank.
// Padding elements beyond Sz, up to the next multiple of simdAlignment,
// are initialised so they never win a min comparison: +Inf for the
// coordinate arrays, the largest representable trace number for Tn.
type Coords struct {
	Sz         int // logical length; len(XSrc) etc. may be larger (padding)
	XSrc, YSrc []float64
	XRcv, YRcv []float64
	Tn         []int64
	Il, Xl     []int64 // only populated when built with ixline
}

func paddedLen(sz int) int {
	if sz%simdAlignment == 0 {
		return sz
	}
	return (sz/simdAlignment + 1) * simdAlignment
}

// NewCoords allocates a Coords of logical length sz, padded per
// simdAlignment, with every padding slot set to a value that can never win
// a min() comparison against a real row.
func NewCoords(sz int, ixline bool) *Coords {
	cap := paddedLen(sz)
	c := &Coords{
		Sz:   sz,
		XSrc: make([]float64, cap), YSrc: make([]float64, cap),
		XRcv: make([]float64, cap), YRcv: make([]float64, cap),
		Tn: make([]int64, cap),
	}
	for i := sz; i < cap; i++ {
		c.XSrc[i], c.YSrc[i] = math.Inf(1), math.Inf(1)
		c.XRcv[i], c.YRcv[i] = math.Inf(1), math.Inf(1)
		c.Tn[i] = math.MaxInt64
	}
	if ixline {
		c.Il, c.Xl = make([]int64, cap), make([]int64, cap)
		for i := sz; i < cap; i++ {
			c.Il[i], c.Xl[i] = math.MaxInt64, math.MaxInt64
		}
	}
	return c
}

// BuildCoords performs the single pass over an input file's decomposed
// range described in §3's Coords lifecycle: read each batch's metadata,
// project into the five (or seven) Coords columns, then locally sort by
// x_src with ties broken by gtn, per §4.10's precondition that both inputs
// arrive already sorted this way.
func BuildCoords(in *InputFile, decomp Decomposition, memoryBudget int64, ixline bool) *Coords {
	keys := []MetadataKey{SourceX, SourceY, ReceiverX, ReceiverY}
	if ixline {
		keys = append(keys, Inline, Crossline)
	}
	rules := NewRuleSet(keys...)

	c := NewCoords(int(decomp.Size), ixline)
	pos := 0
	in.ReadMetadataBalanced(decomp, rules, memoryBudget, func(table *TraceMetadata, globalOffset int64, count int) {
		for i := 0; i < count; i++ {
			c.XSrc[pos] = table.GetFloatingPoint(i, SourceX)
			c.YSrc[pos] = table.GetFloatingPoint(i, SourceY)
			c.XRcv[pos] = table.GetFloatingPoint(i, ReceiverX)
			c.YRcv[pos] = table.GetFloatingPoint(i, ReceiverY)
			// tn is the trace's position in the file, not a header field.
			c.Tn[pos] = globalOffset + int64(i)
			if ixline {
				c.Il[pos] = table.GetInteger(i, Inline)
				c.Xl[pos] = table.GetInteger(i, Crossline)
			}
			pos++
		}
	})
	c.sortByXSrc()
	return c
}

// sortByXSrc reorders the logical (non-padding) rows in place by x_src,
// ties broken by tn, per §3's Coords lifecycle note.
func (c *Coords) sortByXSrc() {
	idx := make([]int, c.Sz)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		if c.XSrc[ia] != c.XSrc[ib] {
			return c.XSrc[ia] < c.XSrc[ib]
		}
		return c.Tn[ia] < c.Tn[ib]
	})
	xsrc := make([]float64, c.Sz)
	ysrc := make([]float64, c.Sz)
	xrcv := make([]float64, c.Sz)
	yrcv := make([]float64, c.Sz)
	tn := make([]int64, c.Sz)
	var il, xl []int64
	if c.Il != nil {
		il, xl = make([]int64, c.Sz), make([]int64, c.Sz)
	}
	for i, src := range idx {
		xsrc[i], ysrc[i] = c.XSrc[src], c.YSrc[src]
		xrcv[i], yrcv[i] = c.XRcv[src], c.YRcv[src]
		tn[i] = c.Tn[src]
		if il != nil {
			il[i], xl[i] = c.Il[src], c.Xl[src]
		}
	}
	copy(c.XSrc, xsrc)
	copy(c.YSrc, ysrc)
	copy(c.XRcv, xrcv)
	copy(c.YRcv, yrcv)
	copy(c.Tn, tn)
	if il != nil {
		copy(c.Il, il)
		copy(c.Xl, xl)
	}
}

// MinMaxXSrc returns the logical min/max of XSrc[0:Sz], used by §4.10
// step 3's active-set selection.
func (c *Coords) MinMaxXSrc() (min, max float64) {
	if c.Sz == 0 {
		return math.Inf(1), math.Inf(-1)
	}
	min, max = c.XSrc[0], c.XSrc[0]
	for i := 1; i < c.Sz; i++ {
		if c.XSrc[i] < min {
			min = c.XSrc[i]
		}
		if c.XSrc[i] > max {
			max = c.XSrc[i]
		}
	}
	return min, max
}
