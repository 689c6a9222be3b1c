// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package piol

import "testing"

func TestReelEncodeParseRoundTrip(t *testing.T) {
	r := &Reel{NS: 1500, SampleInterval: 0.002}
	image := r.Encode("test reel header\n")

	log := NewLog(nil)
	got := ParseReel(image, log)
	if !log.Ok() {
		t.Fatalf("ParseReel reported errors on a well-formed reel: %v", log.Entries())
	}
	if got.NS != r.NS {
		t.Errorf("NS = %d, want %d", got.NS, r.NS)
	}
	if diff := got.SampleInterval - r.SampleInterval; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("SampleInterval = %v, want %v", got.SampleInterval, r.SampleInterval)
	}
	if !equalPrintable(got.Text[:len("test reel header")], []byte("test reel header")) {
		t.Errorf("Text = %q, want it to start with %q", got.Text, "test reel header")
	}
}

func TestReelTraceSize(t *testing.T) {
	r := &Reel{NS: 100}
	if got, want := r.TraceSize(), int64(240+400); got != want {
		t.Errorf("TraceSize() = %d, want %d", got, want)
	}
}

func TestNTFromFileSize(t *testing.T) {
	r := &Reel{NS: 10}
	traceSize := r.TraceSize()
	fileSize := ReelSize + 3*traceSize
	if got := r.NTFromFileSize(fileSize); got != 3 {
		t.Errorf("NTFromFileSize(%d) = %d, want 3", fileSize, got)
	}
}

func TestNTFromFileSizeTruncatedTrailer(t *testing.T) {
	r := &Reel{NS: 10}
	traceSize := r.TraceSize()
	fileSize := ReelSize + 3*traceSize + traceSize/2
	if got := r.NTFromFileSize(fileSize); got != 3 {
		t.Errorf("NTFromFileSize with a partial trailing trace = %d, want 3", got)
	}
}

func TestParseReelTooShort(t *testing.T) {
	log := NewLog(nil)
	got := ParseReel(make([]byte, 10), log)
	if log.Ok() {
		t.Errorf("ParseReel on a too-short image did not record a fatal error")
	}
	if got == nil {
		t.Fatalf("ParseReel returned nil")
	}
}
