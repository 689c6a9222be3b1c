// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package piol

import (
	"math"
	"testing"
)

func TestTaperShapesAtEndpoints(t *testing.T) {
	tests := []struct {
		name string
		f    TaperFunc
	}{
		{"linear", LinearTaper},
		{"cosine", CosineTaper},
		{"cosine-squared", CosineSquaredTaper},
	}
	for _, tt := range tests {
		if got := tt.f(0, 10); math.Abs(got) > 1e-9 {
			t.Errorf("%s(0, 10) = %v, want ~0 at the edge", tt.name, got)
		}
		if got := tt.f(9, 10); math.Abs(got-1) > 1e-9 {
			t.Errorf("%s(9, 10) = %v, want ~1 at the interior end", tt.name, got)
		}
	}
}

func TestTaperLeavesMiddleUnchanged(t *testing.T) {
	signal := []float32{1, 1, 1, 1, 1, 1, 1, 1}
	Taper(signal, 8, LinearTaper, 2, 2)
	if signal[0] != 0 {
		t.Errorf("signal[0] = %v, want 0 at the fully-tapered edge", signal[0])
	}
	for i := 2; i < 6; i++ {
		if signal[i] != 1 {
			t.Errorf("signal[%d] = %v, want untouched 1", i, signal[i])
		}
	}
	if signal[7] != 0 {
		t.Errorf("signal[7] = %v, want 0 at the fully-tapered edge", signal[7])
	}
}

func TestMuteZeroesAndTapersRegions(t *testing.T) {
	signal := make([]float32, 10)
	for i := range signal {
		signal[i] = 1
	}
	Mute(signal, 10, LinearTaper, 2, 2, 2, 2)
	for i := 0; i < 2; i++ {
		if signal[i] != 0 {
			t.Errorf("signal[%d] = %v, want 0 (muted)", i, signal[i])
		}
	}
	for i := 8; i < 10; i++ {
		if signal[i] != 0 {
			t.Errorf("signal[%d] = %v, want 0 (muted)", i, signal[i])
		}
	}
	if signal[4] != 1 || signal[5] != 1 {
		t.Errorf("middle region altered: signal[4]=%v signal[5]=%v", signal[4], signal[5])
	}
}

func TestRectangularRMSGainExcludesZeros(t *testing.T) {
	window := []float32{0, 0, 4, 0}
	gain := RectangularRMSGain(window, 4)
	if gain != 1 {
		t.Errorf("RectangularRMSGain() = %v, want 1 (target/rms(4)=4/4=1)", gain)
	}
}

func TestRectangularRMSGainAllZero(t *testing.T) {
	window := []float32{0, 0, 0}
	if got := RectangularRMSGain(window, 5); got != 1 {
		t.Errorf("RectangularRMSGain(all zero) = %v, want 1 (neutral gain)", got)
	}
}

func TestMeanAbsoluteValueGain(t *testing.T) {
	window := []float32{2, -2, 0, 2}
	got := MeanAbsoluteValueGain(window, 4)
	want := 4.0 / 2.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("MeanAbsoluteValueGain() = %v, want %v", got, want)
	}
}

func TestMedianGainOddAndEvenCounts(t *testing.T) {
	odd := []float32{1, 5, 3}
	if got := MedianGain(odd, 3); math.Abs(got-1) > 1e-9 {
		t.Errorf("MedianGain(odd) = %v, want 1 (target/median(3)=3/3)", got)
	}

	even := []float32{1, 2, 3, 4}
	got := MedianGain(even, 5)
	want := 5.0 / 2.5
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("MedianGain(even) = %v, want %v", got, want)
	}
}

func TestTriangularRMSGainWeightsCenterMost(t *testing.T) {
	centerHeavy := []float32{0, 0, 10, 0, 0}
	edgeHeavy := []float32{10, 0, 0, 0, 0}
	gCenter := TriangularRMSGain(centerHeavy, 10)
	gEdge := TriangularRMSGain(edgeHeavy, 10)
	if gCenter >= gEdge {
		t.Errorf("a centre-weighted sample should produce a larger RMS (smaller gain) than an edge sample: gCenter=%v gEdge=%v", gCenter, gEdge)
	}
}

func TestAGCScalesTowardTarget(t *testing.T) {
	signal := []float32{10, 10, 10, 10}
	AGC(signal, 4, RectangularRMSGain, 4, 1)
	for i, v := range signal {
		if math.Abs(float64(v)-1) > 1e-3 {
			t.Errorf("signal[%d] = %v, want ~1 after AGC to target 1", i, v)
		}
	}
}
