// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package piol

// MetadataKey is a semantic trace-metadata key a RuleSet may bind to a
// header byte offset, per §3 "Rule".
type MetadataKey int

// Standard metadata keys. Offsets for the non-virtual keys follow SEG-Y
// rev1 byte positions, per §6.
const (
	SourceX MetadataKey = iota
	SourceY
	ReceiverX
	ReceiverY
	CDPX
	CDPY
	Inline
	Crossline
	Offset
	CoordinateScalar
	TraceSequenceNumberFile
	SampleIntervalKey
	NumSamplesKey
	DSDR // dissimilarity metric persisted by the 4D-bin matcher, §4.10
	GTN  // global trace number (virtual, Index rule)
	LTN  // local trace number (virtual, Index rule)
	CopyKey
)

// ValueKind is the in-memory representation a RuleKind decodes to.
type ValueKind int

// Value kinds.
const (
	KindFloat ValueKind = iota
	KindInt
	KindBytes
)

// RuleKind tags the variant of one Rule, per §3.
type RuleKind int

// Rule variants.
const (
	RuleLong      RuleKind = iota // int32 at Offset
	RuleShort                     // int16 at Offset
	RuleSegyFloat                 // int32 mantissa at Offset, shared int16 scalar at ScalarOffset
	RuleIndex                     // virtual; not on disk
	RuleCopy                      // opaque passthrough of the full 240 bytes
)

// Rule is a declarative directive for reading/writing one field of a
// 240-byte trace header, per §3.
type Rule struct {
	Kind         RuleKind
	Offset       int // byte offset within the 240-byte header
	ScalarOffset int // only meaningful for RuleSegyFloat
}

// valueKind reports the in-memory storage kind this rule decodes to.
func (r Rule) valueKind() ValueKind {
	switch r.Kind {
	case RuleLong, RuleShort, RuleIndex:
		return KindInt
	case RuleSegyFloat:
		return KindFloat
	case RuleCopy:
		return KindBytes
	default:
		return KindInt
	}
}

// metadataKeyNames is the §6 CSV/CLI spelling of each recognised key,
// shared by extract-metadata's -p flag and the CSV header it writes.
var metadataKeyNames = map[string]MetadataKey{
	"source_x":                    SourceX,
	"source_y":                    SourceY,
	"receiver_x":                  ReceiverX,
	"receiver_y":                  ReceiverY,
	"cdp_x":                       CDPX,
	"cdp_y":                       CDPY,
	"inline":                      Inline,
	"crossline":                   Crossline,
	"offset":                      Offset,
	"coordinate_scalar":           CoordinateScalar,
	"trace_sequence_number_file":  TraceSequenceNumberFile,
	"sample_interval":             SampleIntervalKey,
	"num_samples":                 NumSamplesKey,
	"dsdr":                        DSDR,
	"gtn":                         GTN,
	"ltn":                         LTN,
}

// MetadataKeyByName resolves a §6 CSV/CLI key name to its MetadataKey.
func MetadataKeyByName(name string) (MetadataKey, bool) {
	k, ok := metadataKeyNames[name]
	return k, ok
}

// MetadataKeyName is the inverse of MetadataKeyByName.
func MetadataKeyName(k MetadataKey) string {
	for name, v := range metadataKeyNames {
		if v == k {
			return name
		}
	}
	return "unknown"
}

// defaultOffset is the SEG-Y rev1 byte position of each recognised
// non-virtual key, per §6. The standard numbers its trace-header bytes
// from 1, so each position carries a -1 to index the 240-byte slot.
var defaultOffset = map[MetadataKey]int{
	SourceX:                 73 - 1,
	SourceY:                 77 - 1,
	ReceiverX:               81 - 1,
	ReceiverY:               85 - 1,
	CDPX:                    181 - 1,
	CDPY:                    185 - 1,
	Inline:                  189 - 1,
	Crossline:               193 - 1,
	Offset:                  37 - 1,
	CoordinateScalar:        71 - 1,
	TraceSequenceNumberFile: 5 - 1,
	SampleIntervalKey:       117 - 1,
	NumSamplesKey:           115 - 1,
	DSDR:                    225 - 1,
}

// timeScalarOffset is the SEG-Y rev1 time-scalar slot (bytes 215-216) the
// DSDR SegyFloat rule pairs with its source-measurement-mantissa field,
// keeping it independent of the coordinate scalar.
const timeScalarOffset = 215 - 1

// defaultRule builds the rule this module uses by default for key k,
// per §4.4's "every recognised key has a default offset and width".
func defaultRule(k MetadataKey) Rule {
	switch k {
	case GTN, LTN:
		return Rule{Kind: RuleIndex}
	case CopyKey:
		return Rule{Kind: RuleCopy}
	case SourceX, SourceY, ReceiverX, ReceiverY, CDPX, CDPY:
		return Rule{Kind: RuleSegyFloat, Offset: defaultOffset[k], ScalarOffset: defaultOffset[CoordinateScalar]}
	case DSDR:
		return Rule{Kind: RuleSegyFloat, Offset: defaultOffset[k], ScalarOffset: timeScalarOffset}
	case Inline, Crossline, TraceSequenceNumberFile, Offset:
		return Rule{Kind: RuleLong, Offset: defaultOffset[k]}
	case SampleIntervalKey, NumSamplesKey:
		return Rule{Kind: RuleShort, Offset: defaultOffset[k]}
	default:
		return Rule{Kind: RuleLong, Offset: defaultOffset[k]}
	}
}

// RuleSet is the same-for-every-row mapping from metadata key to Rule,
// per §3. It is constructed once, from an ordered list of keys, and is
// immutable afterwards; Trace_metadata tables are sized from it without
// reallocation.
type RuleSet struct {
	order []MetadataKey
	rules map[MetadataKey]Rule
}

// NewRuleSet builds a rule set from an ordered list of keys, walking them
// in the given order and assigning each its default rule, per §4.4.
func NewRuleSet(keys ...MetadataKey) *RuleSet {
	rs := &RuleSet{order: append([]MetadataKey(nil), keys...), rules: make(map[MetadataKey]Rule, len(keys))}
	for _, k := range keys {
		rs.rules[k] = defaultRule(k)
	}
	return rs
}

// SetRule overrides the rule bound to k, e.g. to bind DSDR to a different
// SegyFloat offset than the default.
func (rs *RuleSet) SetRule(k MetadataKey, r Rule) {
	if _, ok := rs.rules[k]; !ok {
		rs.order = append(rs.order, k)
	}
	rs.rules[k] = r
}

// Keys returns the keys in the stable construction order.
func (rs *RuleSet) Keys() []MetadataKey {
	return append([]MetadataKey(nil), rs.order...)
}

// Rule returns the rule bound to k and whether k is enabled.
func (rs *RuleSet) Rule(k MetadataKey) (Rule, bool) {
	r, ok := rs.rules[k]
	return r, ok
}

// HasCopy reports whether a RuleCopy rule is enabled in this set.
func (rs *RuleSet) HasCopy() bool {
	for _, k := range rs.order {
		if rs.rules[k].Kind == RuleCopy {
			return true
		}
	}
	return false
}

// MemoryUsagePerHeader is the sum of in-memory column widths this rule set
// implies: 8 bytes for each float/int column, plus 240 bytes if a Copy
// rule is enabled, per §4.4.
func (rs *RuleSet) MemoryUsagePerHeader() int {
	usage := 0
	for _, k := range rs.order {
		switch rs.rules[k].valueKind() {
		case KindFloat, KindInt:
			usage += 8
		case KindBytes:
			usage += 240
		}
	}
	return usage
}

// ByteExtent returns the tight [start, end) envelope of every active
// rule's on-disk bytes; if a Copy rule is enabled the extent is the full
// 240-byte header, per §4.4.
func (rs *RuleSet) ByteExtent() (start, end int) {
	if rs.HasCopy() {
		return 0, 240
	}
	start, end = 240, 0
	for _, k := range rs.order {
		r := rs.rules[k]
		var lo, hi int
		switch r.Kind {
		case RuleLong:
			lo, hi = r.Offset, r.Offset+4
		case RuleShort:
			lo, hi = r.Offset, r.Offset+2
		case RuleSegyFloat:
			lo = r.Offset
			hi = r.Offset + 4
			if r.ScalarOffset < lo {
				lo = r.ScalarOffset
			}
			if r.ScalarOffset+2 > hi {
				hi = r.ScalarOffset + 2
			}
		default:
			continue
		}
		if lo < start {
			start = lo
		}
		if hi > end {
			end = hi
		}
	}
	if end < start {
		return 0, 0
	}
	return start, end
}
