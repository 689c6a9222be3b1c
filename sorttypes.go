// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package piol

import "math"

// Row is the minimal view a sort comparator needs into one trace's
// metadata: its table and row index. Keeping this as a tiny struct (rather
// than passing the table and index separately everywhere) keeps the
// SortType comparator signatures in this file uniform.
type Row struct {
	Table *TraceMetadata
	Index int
}

// Less compares two Rows under one of §4.8's provided comparator kinds.
// NaN is always treated as greater than every finite value, per §4.8.
type Less func(a, b Row) bool

func ltNanSinks(a, b float64) (less bool, decided bool) {
	aNan, bNan := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNan && bNan:
		return false, true
	case aNan:
		return false, true // a (NaN) sinks after any finite b
	case bNan:
		return true, true // b (NaN) sinks after finite a
	case a < b:
		return true, true
	case a > b:
		return false, true
	default:
		return false, false // equal; caller breaks the tie
	}
}

func gtn(r Row) int64 { return r.Table.GetInteger(r.Index, GTN) }

func derivedOffset(src Row, srcX, srcY, rcvX, rcvY MetadataKey) float64 {
	dx := src.Table.GetFloatingPoint(src.Index, srcX) - src.Table.GetFloatingPoint(src.Index, rcvX)
	dy := src.Table.GetFloatingPoint(src.Index, srcY) - src.Table.GetFloatingPoint(src.Index, rcvY)
	return dx*dx + dy*dy
}

// lexLess builds a Less from an ordered list of float64 projections,
// falling back to global trace number on a full tie, per §4.8's
// SortType definitions.
func lexLess(projections ...func(Row) float64) Less {
	return func(a, b Row) bool {
		for _, proj := range projections {
			av, bv := proj(a), proj(b)
			if less, decided := ltNanSinks(av, bv); decided {
				return less
			}
		}
		return gtn(a) < gtn(b)
	}
}

// SortType selects one of §4.8's provided comparator kinds.
type SortType int

// Sort types.
const (
	SrcRcv SortType = iota
	SrcOff
	SrcROff
	RcvOff
	RcvROff
	LineOff
	LineROff
	OffLine
	ROffLine
)

// LessFor returns the Less comparator for a SortType, per §4.8.
func LessFor(t SortType) Less {
	srcOffset := func(r Row) float64 { return derivedOffset(r, SourceX, SourceY, ReceiverX, ReceiverY) }
	// GetAsFloat, not GetFloatingPoint: Inline/Crossline/Offset live in
	// integer columns under their default rules.
	x := func(k MetadataKey) func(Row) float64 {
		return func(r Row) float64 { return r.Table.GetAsFloat(r.Index, k) }
	}
	readOffset := x(Offset)

	switch t {
	case SrcRcv:
		return lexLess(x(SourceX), x(SourceY), x(ReceiverX), x(ReceiverY))
	case SrcOff:
		return lexLess(x(SourceX), x(SourceY), srcOffset)
	case SrcROff:
		return lexLess(x(SourceX), x(SourceY), readOffset)
	case RcvOff:
		return lexLess(x(ReceiverX), x(ReceiverY), srcOffset)
	case RcvROff:
		return lexLess(x(ReceiverX), x(ReceiverY), readOffset)
	case LineOff:
		return lexLess(x(Inline), x(Crossline), srcOffset)
	case LineROff:
		return lexLess(x(Inline), x(Crossline), readOffset)
	case OffLine:
		return lexLess(srcOffset, x(Inline), x(Crossline))
	case ROffLine:
		return lexLess(readOffset, x(Inline), x(Crossline))
	default:
		return lexLess(x(SourceX), x(SourceY), x(ReceiverX), x(ReceiverY))
	}
}
