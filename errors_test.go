// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package piol

import "testing"

func TestLogOkInitially(t *testing.T) {
	l := NewLog(nil)
	if !l.Ok() {
		t.Errorf("new Log reports not Ok")
	}
}

func TestLogRecordFatalSticks(t *testing.T) {
	l := NewLog(nil)
	l.Record(KindDiagnostic, "just a note")
	if !l.Ok() {
		t.Errorf("a diagnostic entry made the log not Ok")
	}
	l.Record(KindIO, "disk on fire")
	if l.Ok() {
		t.Errorf("a fatal entry did not stick")
	}
}

func TestLogEntriesSnapshot(t *testing.T) {
	l := NewLog(nil)
	l.Record(KindCaller, "missing %s", "write_ns")
	entries := l.Entries()
	if len(entries) != 1 || entries[0].Kind != KindCaller {
		t.Fatalf("Entries() = %v", entries)
	}
	if entries[0].Msg != "missing write_ns" {
		t.Errorf("Entries()[0].Msg = %q, want %q", entries[0].Msg, "missing write_ns")
	}
}

func TestKindFatalPolicy(t *testing.T) {
	tests := []struct {
		kind  Kind
		fatal bool
	}{
		{KindIO, true},
		{KindFormat, true},
		{KindProtocol, true},
		{KindOutOfRange, false},
		{KindCaller, false},
		{KindDiagnostic, false},
	}
	for _, tt := range tests {
		if got := tt.kind.fatal(); got != tt.fatal {
			t.Errorf("%v.fatal() = %v, want %v", tt.kind, got, tt.fatal)
		}
	}
}

func TestSingleRankContextIsOneRank(t *testing.T) {
	comm, log := SingleRankContext()
	if comm.NumRanks() != 1 {
		t.Errorf("SingleRankContext() built a %d-rank group, want 1", comm.NumRanks())
	}
	if !log.Ok() {
		t.Errorf("SingleRankContext() returned a Log already not Ok")
	}
}
