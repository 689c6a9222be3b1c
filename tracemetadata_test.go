// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package piol

import "testing"

func TestTraceMetadataGetSet(t *testing.T) {
	rules := NewRuleSet(SourceX, Inline)
	tm := NewTraceMetadata(rules, 3)

	tm.SetFloatingPoint(1, SourceX, 123.5)
	tm.SetInteger(1, Inline, 42)

	if got := tm.GetFloatingPoint(1, SourceX); got != 123.5 {
		t.Errorf("GetFloatingPoint = %v, want 123.5", got)
	}
	if got := tm.GetInteger(1, Inline); got != 42 {
		t.Errorf("GetInteger = %v, want 42", got)
	}
}

func TestTraceMetadataGetAsFloat(t *testing.T) {
	rules := NewRuleSet(SourceX, Inline)
	tm := NewTraceMetadata(rules, 1)
	tm.SetFloatingPoint(0, SourceX, 7.5)
	tm.SetInteger(0, Inline, 9)

	if got := tm.GetAsFloat(0, SourceX); got != 7.5 {
		t.Errorf("GetAsFloat(float key) = %v, want 7.5", got)
	}
	if got := tm.GetAsFloat(0, Inline); got != 9 {
		t.Errorf("GetAsFloat(int key) = %v, want 9", got)
	}
}

func TestTraceMetadataCopyEntries(t *testing.T) {
	rules := NewRuleSet(SourceX, Inline)
	src := NewTraceMetadata(rules, 2)
	src.SetFloatingPoint(0, SourceX, 1.5)
	src.SetInteger(0, Inline, 11)

	dst := NewTraceMetadata(rules, 2)
	dst.CopyEntries(1, src, 0)

	if got := dst.GetFloatingPoint(1, SourceX); got != 1.5 {
		t.Errorf("CopyEntries did not copy SourceX: got %v", got)
	}
	if got := dst.GetInteger(1, Inline); got != 11 {
		t.Errorf("CopyEntries did not copy Inline: got %v", got)
	}
}

func TestInsertExtractTraceMetadataRoundTrip(t *testing.T) {
	rules := NewRuleSet(SourceX, SourceY, Inline, Crossline)
	tm := NewTraceMetadata(rules, 2)
	tm.SetFloatingPoint(0, SourceX, 1000.25)
	tm.SetFloatingPoint(0, SourceY, -500.5)
	tm.SetInteger(0, Inline, 100)
	tm.SetInteger(0, Crossline, 200)
	tm.SetFloatingPoint(1, SourceX, 7.0)
	tm.SetFloatingPoint(1, SourceY, 8.0)
	tm.SetInteger(1, Inline, 101)
	tm.SetInteger(1, Crossline, 201)

	buf := make([]byte, 2*TraceHeaderSize)
	InsertTraceMetadata(2, tm, buf, TraceHeaderSize, 0)

	got := NewTraceMetadata(rules, 2)
	ExtractTraceMetadata(2, buf, got, TraceHeaderSize, 0)

	if got.GetFloatingPoint(0, SourceX) != 1000.25 {
		t.Errorf("round trip SourceX[0] = %v, want 1000.25", got.GetFloatingPoint(0, SourceX))
	}
	if got.GetFloatingPoint(0, SourceY) != -500.5 {
		t.Errorf("round trip SourceY[0] = %v, want -500.5", got.GetFloatingPoint(0, SourceY))
	}
	if got.GetInteger(0, Inline) != 100 || got.GetInteger(0, Crossline) != 200 {
		t.Errorf("round trip integer fields[0] wrong: inline=%d crossline=%d", got.GetInteger(0, Inline), got.GetInteger(0, Crossline))
	}
	if got.GetFloatingPoint(1, SourceX) != 7.0 || got.GetFloatingPoint(1, SourceY) != 8.0 {
		t.Errorf("round trip row 1 floats wrong: x=%v y=%v", got.GetFloatingPoint(1, SourceX), got.GetFloatingPoint(1, SourceY))
	}
}

func TestChooseScalarFitsInt32(t *testing.T) {
	s := chooseScalar([]float64{1.5, 2.5, -3.25})
	mantissa := mantissaFor(1.5, s)
	if mantissa > 1<<31-1 || mantissa < -(1<<31) {
		t.Errorf("chooseScalar produced a mantissa outside int32 range: %d", mantissa)
	}
}

func TestInsertTraceMetadataSkipAndStride(t *testing.T) {
	rules := NewRuleSet(SourceX, Inline)
	tm := NewTraceMetadata(rules, 3)
	for i := 0; i < 3; i++ {
		tm.SetFloatingPoint(i, SourceX, float64(100+i))
		tm.SetInteger(i, Inline, int64(10+i))
	}

	// Encode rows [1,3) into interleaved slots 250 bytes apart.
	stride := 250
	buf := make([]byte, 2*stride)
	InsertTraceMetadata(2, tm, buf, stride, 1)

	got := NewTraceMetadata(rules, 2)
	ExtractTraceMetadata(2, buf, got, stride, 0)
	for i := 0; i < 2; i++ {
		if v := got.GetFloatingPoint(i, SourceX); v != float64(101+i) {
			t.Errorf("SourceX[%d] = %v, want %v", i, v, float64(101+i))
		}
		if v := got.GetInteger(i, Inline); v != int64(11+i) {
			t.Errorf("Inline[%d] = %v, want %v", i, v, int64(11+i))
		}
	}
}

func TestInsertTraceMetadataFieldsOverrideCopyBlit(t *testing.T) {
	rules := NewRuleSet(CopyKey, Inline)
	tm := NewTraceMetadata(rules, 1)
	for i := range tm.copyBuf[0] {
		tm.copyBuf[0][i] = 0xff
	}
	tm.SetInteger(0, Inline, 77)

	buf := make([]byte, TraceHeaderSize)
	InsertTraceMetadata(1, tm, buf, TraceHeaderSize, 0)

	got := NewTraceMetadata(rules, 1)
	ExtractTraceMetadata(1, buf, got, TraceHeaderSize, 0)
	if v := got.GetInteger(0, Inline); v != 77 {
		t.Errorf("Inline after Copy blit = %d, want 77 (field packs over the blit)", v)
	}
	if got.copyBuf[0][0] != 0xff {
		t.Errorf("bytes outside any field rule did not survive the blit")
	}
}

func TestSharedScalarSlotUsesOneScalarAcrossKeys(t *testing.T) {
	// SourceX and SourceY share the coordinate-scalar slot; wildly
	// different magnitudes must still decode consistently.
	rules := NewRuleSet(SourceX, SourceY)
	tm := NewTraceMetadata(rules, 1)
	tm.SetFloatingPoint(0, SourceX, 500000)
	tm.SetFloatingPoint(0, SourceY, 0.5)

	buf := make([]byte, TraceHeaderSize)
	InsertTraceMetadata(1, tm, buf, TraceHeaderSize, 0)

	got := NewTraceMetadata(rules, 1)
	ExtractTraceMetadata(1, buf, got, TraceHeaderSize, 0)
	if v := got.GetFloatingPoint(0, SourceX); v != 500000 {
		t.Errorf("SourceX = %v, want 500000", v)
	}
	if v := got.GetFloatingPoint(0, SourceY); v != 0.5 {
		t.Errorf("SourceY = %v, want 0.5", v)
	}
}
