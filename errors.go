// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package piol

import (
	"fmt"
	"os"
	"sync"

	"github.com/exseisdat/piol/log"
)

// Kind classifies a logged failure per spec.md §7's error-kind table.
type Kind int

// Error kinds, in the order they appear in spec.md §7.
const (
	KindIO         Kind = iota // underlying I/O failure, e.g. a failed read/write
	KindFormat                 // ill-formed SEG-Y (ns out of range, non-finite sample_interval, ...)
	KindProtocol               // mismatched collective call sequence across ranks
	KindOutOfRange             // read beyond nt; clamped, not fatal
	KindCaller                 // caller misuse (e.g. missing write_ns before a trace write)
	KindDiagnostic             // informational only
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindFormat:
		return "format"
	case KindProtocol:
		return "protocol"
	case KindOutOfRange:
		return "out-of-range"
	case KindCaller:
		return "caller"
	case KindDiagnostic:
		return "diagnostic"
	default:
		return "unknown"
	}
}

// fatal reports whether a Kind is always fatal per §7's policy table.
func (k Kind) fatal() bool {
	switch k {
	case KindIO, KindFormat, KindProtocol:
		return true
	default:
		return false
	}
}

// Entry is one record appended to a Log.
type Entry struct {
	Kind Kind
	Msg  string
}

// Log is the per-process sticky error log described in spec.md §7: every
// subsystem appends to it, a fatal entry sets a sticky flag, and AssertOk
// is the one place that acts on it. It is safe for concurrent use by the
// goroutines standing in for ranks in the Local communicator.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	sticky  bool
	helper  *log.Helper
}

// NewLog returns an empty Log that also mirrors entries to helper, or to
// log.Default() if helper is nil.
func NewLog(helper *log.Helper) *Log {
	if helper == nil {
		helper = log.Default()
	}
	return &Log{helper: helper}
}

// Record appends an entry. A fatal Kind sets the sticky flag; it does not
// itself abort the process — that is AssertOk's job, per §7's "surfaced at
// the next assert_ok boundary" propagation rule.
func (l *Log) Record(kind Kind, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.mu.Lock()
	l.entries = append(l.entries, Entry{Kind: kind, Msg: msg})
	if kind.fatal() {
		l.sticky = true
	}
	l.mu.Unlock()

	switch {
	case kind.fatal():
		l.helper.Errorf("%s: %s", kind, msg)
	case kind == KindDiagnostic:
		l.helper.Infof("%s: %s", kind, msg)
	default:
		l.helper.Warnf("%s: %s", kind, msg)
	}
}

// Ok reports whether no fatal entry has been recorded.
func (l *Log) Ok() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.sticky
}

// Entries returns a snapshot of all recorded entries.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// SingleRankContext builds the Local communicator and Log every §6 CLI
// tool runs under: a one-rank group, since each tool is a single-process
// driver over the core rather than an MPI job launched with mpirun.
func SingleRankContext() (*Local, *Log) {
	comms := NewLocalGroup(1)
	return comms[0], NewLog(nil)
}

// AssertOk is the designated polling point of §7: if a fatal entry has been
// recorded, it dumps the log to stderr and aborts the process. There is no
// non-local recovery; this is the only path that exits.
func (l *Log) AssertOk() {
	if l.Ok() {
		return
	}
	for _, e := range l.Entries() {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", e.Kind, e.Msg)
	}
	os.Exit(1)
}
