// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package piol

import "math"

// TraceMetadata is a columnar table with N rows and one logical column per
// key enabled in its RuleSet, per §3. Columns are typed (f64, i64, or
// opaque 240-byte Copy rows); all columns share length N. The layout
// mirrors the materialised, O(1)-random-access columnar storage the
// arloliu/mebo blob package uses for its decoded metric arrays, adapted
// here to a fixed-width, rule-driven schema instead of a variable-length
// time series.
type TraceMetadata struct {
	Rules   *RuleSet
	n       int
	floats  map[MetadataKey][]float64
	ints    map[MetadataKey][]int64
	copyBuf [][240]byte
}

// NewTraceMetadata allocates a table of n rows for the given rule set, per
// §4.4's "Trace_metadata(rule_set, N) allocates N rows". Once allocated the
// table never reallocates its columns.
func NewTraceMetadata(rules *RuleSet, n int) *TraceMetadata {
	tm := &TraceMetadata{Rules: rules, n: n, floats: map[MetadataKey][]float64{}, ints: map[MetadataKey][]int64{}}
	for _, k := range rules.Keys() {
		r, _ := rules.Rule(k)
		switch r.valueKind() {
		case KindFloat:
			tm.floats[k] = make([]float64, n)
		case KindInt:
			tm.ints[k] = make([]int64, n)
		case KindBytes:
			tm.copyBuf = make([][240]byte, n)
		}
	}
	return tm
}

// Size returns the row count N.
func (tm *TraceMetadata) Size() int { return tm.n }

// GetFloatingPoint returns the value stored at (row, key).
func (tm *TraceMetadata) GetFloatingPoint(row int, key MetadataKey) float64 {
	return tm.floats[key][row]
}

// SetFloatingPoint stores v at (row, key).
func (tm *TraceMetadata) SetFloatingPoint(row int, key MetadataKey, v float64) {
	tm.floats[key][row] = v
}

// GetInteger returns the value stored at (row, key).
func (tm *TraceMetadata) GetInteger(row int, key MetadataKey) int64 {
	return tm.ints[key][row]
}

// SetInteger stores v at (row, key).
func (tm *TraceMetadata) SetInteger(row int, key MetadataKey, v int64) {
	tm.ints[key][row] = v
}

// GetAsFloat returns the value at (row, key) as a float64 regardless of
// whether key's rule stores it as a float or an integer column, for
// callers (e.g. CSV export) that render a heterogeneous set of keys
// uniformly.
func (tm *TraceMetadata) GetAsFloat(row int, key MetadataKey) float64 {
	rule, _ := tm.Rules.Rule(key)
	if rule.valueKind() == KindInt {
		return float64(tm.GetInteger(row, key))
	}
	return tm.GetFloatingPoint(row, key)
}

// CopyEntries copies every column's value at srcRow of src into dstRow of
// tm, per §3's copy_entries.
func (tm *TraceMetadata) CopyEntries(dstRow int, src *TraceMetadata, srcRow int) {
	for k, col := range src.floats {
		if dstCol, ok := tm.floats[k]; ok {
			dstCol[dstRow] = col[srcRow]
		}
	}
	for k, col := range src.ints {
		if dstCol, ok := tm.ints[k]; ok {
			dstCol[dstRow] = col[srcRow]
		}
	}
	if tm.copyBuf != nil && src.copyBuf != nil {
		tm.copyBuf[dstRow] = src.copyBuf[srcRow]
	}
}

// allowedScalars is the candidate set for SegyFloat batch-write scalar
// selection, ordered from most precision preserved (multiply the value by
// 10^4 before rounding) to least (divide by 10^4). A negative scalar means
// the stored mantissa is the value multiplied by its magnitude.
var allowedScalars = []int16{-10000, -1000, -100, -10, 1, 10, 100, 1000, 10000}

// applyScalar returns mantissa*scale where scale = scalar if scalar > 0,
// else 1/|scalar|, per §3's SegyFloat semantics.
func applyScalar(mantissa int32, scalar int16) float64 {
	if scalar >= 0 {
		s := scalar
		if s == 0 {
			s = 1
		}
		return float64(mantissa) * float64(s)
	}
	return float64(mantissa) / float64(-scalar)
}

// chooseScalar picks the first scalar from allowedScalars, walking from
// most to least precision, whose scaled mantissa fits in int32 for every v
// in values, per §3's per-batch shared-scalar policy. It returns the last
// (least precise) candidate if none fit exactly, so encoding always
// produces a usable, if lossy, result rather than failing.
func chooseScalar(values []float64) int16 {
	best := allowedScalars[0]
	for _, s := range allowedScalars {
		fits := true
		for _, v := range values {
			scaled := scaledMantissa(v, s)
			if scaled > math.MaxInt32 || scaled < math.MinInt32 {
				fits = false
				break
			}
		}
		if fits {
			return s
		}
		best = s
	}
	return best
}

func scaledMantissa(v float64, scalar int16) float64 {
	if scalar >= 0 {
		s := scalar
		if s == 0 {
			s = 1
		}
		return v / float64(s)
	}
	return v * float64(-scalar)
}

func mantissaFor(v float64, scalar int16) int32 {
	return int32(math.Round(scaledMantissa(v, scalar)))
}

// InsertTraceMetadata encodes rows [skip,skip+n) of tm into out, a buffer
// holding n 240-byte header slots every rowStride bytes, per §4.4. Copy
// rules are blitted first, then each SegyFloat rule's batch-shared scalar
// is derived and written, then every Long/Short/SegyFloat field is packed
// big-endian. SegyFloat rules sharing one scalar slot share one scalar,
// chosen over every value of every rule bound to that slot.
func InsertTraceMetadata(n int, tm *TraceMetadata, out []byte, rowStride int, skip int) {
	if tm.copyBuf != nil {
		for r := 0; r < n; r++ {
			copy(out[r*rowStride:r*rowStride+240], tm.copyBuf[r+skip][:])
		}
	}

	scalarKeys := map[int][]MetadataKey{}
	for _, k := range tm.Rules.Keys() {
		rule, _ := tm.Rules.Rule(k)
		if rule.Kind == RuleSegyFloat {
			scalarKeys[rule.ScalarOffset] = append(scalarKeys[rule.ScalarOffset], k)
		}
	}
	for scalarOffset, keys := range scalarKeys {
		values := make([]float64, 0, n*len(keys))
		for _, k := range keys {
			for r := 0; r < n; r++ {
				values = append(values, tm.GetFloatingPoint(r+skip, k))
			}
		}
		scalar := chooseScalar(values)
		for r := 0; r < n; r++ {
			slot := out[r*rowStride : r*rowStride+240]
			PutBE16(slot[scalarOffset:], scalar)
			for _, k := range keys {
				rule, _ := tm.Rules.Rule(k)
				PutBE32(slot[rule.Offset:], mantissaFor(tm.GetFloatingPoint(r+skip, k), scalar))
			}
		}
	}

	for r := 0; r < n; r++ {
		slot := out[r*rowStride : r*rowStride+240]
		for _, k := range tm.Rules.Keys() {
			rule, _ := tm.Rules.Rule(k)
			switch rule.Kind {
			case RuleLong:
				PutBE32(slot[rule.Offset:], int32(tm.GetInteger(r+skip, k)))
			case RuleShort:
				PutBE16(slot[rule.Offset:], int16(tm.GetInteger(r+skip, k)))
			}
		}
	}
}

// ExtractTraceMetadata decodes rows [skip,skip+n) of tm from in, the
// inverse of InsertTraceMetadata per §4.4. The shared scalar for each
// SegyFloat rule is read before its dependent field, per row.
func ExtractTraceMetadata(n int, in []byte, tm *TraceMetadata, rowStride int, skip int) {
	for r := 0; r < n; r++ {
		slot := in[r*rowStride : r*rowStride+240]
		if tm.copyBuf != nil {
			copy(tm.copyBuf[r+skip][:], slot)
		}
		for _, k := range tm.Rules.Keys() {
			rule, _ := tm.Rules.Rule(k)
			switch rule.Kind {
			case RuleLong:
				tm.SetInteger(r+skip, k, int64(BE32(slot[rule.Offset:])))
			case RuleShort:
				tm.SetInteger(r+skip, k, int64(BE16(slot[rule.Offset:])))
			case RuleSegyFloat:
				scalar := BE16(slot[rule.ScalarOffset:])
				mantissa := BE32(slot[rule.Offset:])
				tm.SetFloatingPoint(r+skip, k, applyScalar(mantissa, scalar))
			}
		}
	}
}
