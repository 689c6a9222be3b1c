// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package piol

import (
	"bytes"
	"math"
)

// Reel byte layout constants, per §3/§6.
const (
	ReelSize        = 3600
	TextHeaderSize  = 3200
	BinaryHeaderLen = 400
	TraceHeaderSize = 240

	offNS             = 3221 - 1 // spec.md offsets are 1-based byte positions
	offSampleInterval = 3217 - 1
	offNumberFormat   = 3225 - 1
	offLengthUnits    = 3255 - 1
	offSegyRevision   = 3500 - 1
	offFixedLength    = 3503 - 1
	offTextExtensions = 3504 - 1
)

// NumberFormat identifies the on-disk sample encoding, per §3.
type NumberFormat int16

// Number formats.
const (
	IBMFloatFormat  NumberFormat = 1
	IEEEFloatFormat NumberFormat = 5
)

// Reel is the cached reel-header state of a File_view, per §3: ns, nt,
// sample_interval, number_format and the 3200-byte text header are held
// per-handle and mutated only by the owning rank's calls. Path and mode are
// held by the underlying BinaryFile.
type Reel struct {
	Text           []byte // 3200 bytes, already normalised to ASCII
	NS             int
	NT             int64
	SampleInterval float64 // seconds
	NumberFormat   NumberFormat
}

// ParseReel decodes a 3600-byte reel image, per §4.5's open() contract.
// Ill-formed reels (ns > int16 max, non-finite sample_interval) are
// reported fatally via errlog but still return a best-effort Reel so
// callers can inspect what was read.
func ParseReel(raw []byte, errlog *Log) *Reel {
	if len(raw) < ReelSize {
		errlog.Record(KindFormat, "reel image too short: %d bytes", len(raw))
		return &Reel{}
	}

	text := DetectReelText(raw[:TextHeaderSize])
	ns := BE16(raw[offNS:])
	intervalUnits := BE16(raw[offSampleInterval:])
	numberFormat := BE16(raw[offNumberFormat:])

	if ns < 0 {
		errlog.Record(KindFormat, "ns out of range: %d", ns)
	}
	interval := float64(intervalUnits) * 1e-6
	if math.IsNaN(interval) || math.IsInf(interval, 0) {
		errlog.Record(KindFormat, "non-finite sample_interval: %v", interval)
		interval = 0
	}

	return &Reel{
		Text:           text,
		NS:             int(ns),
		SampleInterval: interval,
		NumberFormat:   NumberFormat(numberFormat),
	}
}

// Encode renders the 3600-byte reel image for writing, per §6: the text
// header is writeText right-padded with spaces (or truncated) to 3200
// bytes, always ASCII on write; the binary header sets ns, sample_interval
// (converted back to the on-disk microsecond unit, per the Open Questions
// note to keep the factor fixed at 1e-6), number_format (always
// IEEEFloatFormat on write, per §6), length-units, SEG-Y rev1 markers and
// fixed-length-trace markers. Remaining bytes are zeroed.
func (r *Reel) Encode(writeText string) []byte {
	out := make([]byte, ReelSize)

	text := []byte(writeText)
	if len(text) > TextHeaderSize {
		text = text[:TextHeaderSize]
	}
	copy(out[:TextHeaderSize], text)
	for i := len(text); i < TextHeaderSize; i++ {
		out[i] = ' '
	}

	binHeader := out[TextHeaderSize:]
	PutBE16(binHeader[offNS-TextHeaderSize:], int16(r.NS))
	PutBE16(binHeader[offSampleInterval-TextHeaderSize:], int16(math.Round(r.SampleInterval*1e6)))
	PutBE16(binHeader[offNumberFormat-TextHeaderSize:], int16(IEEEFloatFormat))
	binHeader[offLengthUnits-TextHeaderSize] = 1
	PutBE16(binHeader[offSegyRevision-TextHeaderSize:], 0x0100)
	binHeader[offFixedLength-TextHeaderSize] = 1
	PutBE16(binHeader[offTextExtensions-TextHeaderSize:], 0)

	return out
}

// TraceSize returns the on-disk size of one trace: 240 + 4*ns, per §3.
func (r *Reel) TraceSize() int64 {
	return int64(TraceHeaderSize) + 4*int64(r.NS)
}

// NTFromFileSize computes nt = floor((file_size - 3600) / (240 + 4*ns)),
// per §4.5's open() contract.
func (r *Reel) NTFromFileSize(fileSize int64) int64 {
	traceSize := r.TraceSize()
	if traceSize <= 0 || fileSize < ReelSize {
		return 0
	}
	return (fileSize - ReelSize) / traceSize
}

// equalPrintable reports whether two byte slices are equal once trailing
// whitespace padding is ignored, used by tests that round-trip reel text.
func equalPrintable(a, b []byte) bool {
	return bytes.Equal(bytes.TrimRight(a, " "), bytes.TrimRight(b, " "))
}
