// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package piol

import (
	"math"
	"path/filepath"
	"testing"
)

func TestPaddedLen(t *testing.T) {
	tests := []struct{ sz, want int }{
		{0, 0}, {1, 8}, {7, 8}, {8, 8}, {9, 16}, {16, 16},
	}
	for _, tt := range tests {
		if got := paddedLen(tt.sz); got != tt.want {
			t.Errorf("paddedLen(%d) = %d, want %d", tt.sz, got, tt.want)
		}
	}
}

func TestNewCoordsPaddingNeverWinsMin(t *testing.T) {
	c := NewCoords(3, false)
	if len(c.XSrc) != 8 {
		t.Fatalf("len(XSrc) = %d, want 8 (padded)", len(c.XSrc))
	}
	for i := 3; i < 8; i++ {
		if !math.IsInf(c.XSrc[i], 1) || !math.IsInf(c.YSrc[i], 1) {
			t.Errorf("padding slot %d not +Inf: XSrc=%v YSrc=%v", i, c.XSrc[i], c.YSrc[i])
		}
		if c.Tn[i] != math.MaxInt64 {
			t.Errorf("padding slot %d Tn = %d, want MaxInt64", i, c.Tn[i])
		}
	}
}

func TestSortByXSrcOrdersLogicalRows(t *testing.T) {
	c := NewCoords(4, false)
	xs := []float64{5, 1, 3, 2}
	for i, x := range xs {
		c.XSrc[i] = x
		c.Tn[i] = int64(i)
	}
	c.sortByXSrc()

	want := []float64{1, 2, 3, 5}
	for i, w := range want {
		if c.XSrc[i] != w {
			t.Errorf("XSrc[%d] = %v, want %v", i, c.XSrc[i], w)
		}
	}
}

func TestMinMaxXSrcIgnoresPadding(t *testing.T) {
	c := NewCoords(3, false)
	c.XSrc[0], c.XSrc[1], c.XSrc[2] = 10, -5, 7
	min, max := c.MinMaxXSrc()
	if min != -5 || max != 10 {
		t.Errorf("MinMaxXSrc() = (%v,%v), want (-5,10)", min, max)
	}
}

func TestBuildCoordsFromFile(t *testing.T) {
	comm, errlog := SingleRankContext()
	path := filepath.Join(t.TempDir(), "coords.sgy")

	out, _ := OpenOutputFile(comm, errlog, path)
	out.SetNS(1)
	rules := NewRuleSet(SourceX, SourceY, ReceiverX, ReceiverY)
	n := 5
	table := NewTraceMetadata(rules, n)
	xs := []float64{40, 10, 30, 20, 0}
	for i, x := range xs {
		table.SetFloatingPoint(i, SourceX, x)
		table.SetFloatingPoint(i, SourceY, x)
		table.SetFloatingPoint(i, ReceiverX, x)
		table.SetFloatingPoint(i, ReceiverY, x)
	}
	out.WriteTrace(0, n, make([]float32, n), table, 0)
	out.Close()

	in, _ := OpenInputFile(comm, errlog, path)
	defer in.Close()

	c := BuildCoords(in, Decomposition{Offset: 0, Size: int64(n)}, 1024, false)
	if c.Sz != n {
		t.Fatalf("Sz = %d, want %d", c.Sz, n)
	}
	for i := 1; i < c.Sz; i++ {
		if c.XSrc[i] < c.XSrc[i-1] {
			t.Errorf("BuildCoords did not leave XSrc sorted: %v", c.XSrc[:c.Sz])
			break
		}
	}
}
