// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package piol

import (
	"encoding/binary"
	"math"

	"golang.org/x/text/encoding/charmap"
)

// BE16 decodes a big-endian int16 from the first 2 bytes of b, per §4.3.
func BE16(b []byte) int16 {
	return int16(binary.BigEndian.Uint16(b))
}

// PutBE16 encodes v as big-endian int16 into the first 2 bytes of b.
func PutBE16(b []byte, v int16) {
	binary.BigEndian.PutUint16(b, uint16(v))
}

// BE32 decodes a big-endian int32 from the first 4 bytes of b.
func BE32(b []byte) int32 {
	return int32(binary.BigEndian.Uint32(b))
}

// PutBE32 encodes v as big-endian int32 into the first 4 bytes of b.
func PutBE32(b []byte, v int32) {
	binary.BigEndian.PutUint32(b, uint32(v))
}

// BEFloat32 decodes a big-endian IEEE-754 float32 from the first 4 bytes
// of b.
func BEFloat32(b []byte) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(b))
}

// PutBEFloat32 encodes v as a big-endian IEEE-754 float32 into the first 4
// bytes of b.
func PutBEFloat32(b []byte, v float32) {
	binary.BigEndian.PutUint32(b, math.Float32bits(v))
}

// IBMToIEEE decodes a 4-byte big-endian IBM-370 single-precision float
// (sign 1 bit, exponent 7 bits biased by 64, mantissa 24 bits base-16) into
// an IEEE float32, per §4.3. Results in the IEEE float32 denormal range and
// an all-zero mantissa map to +0/-0; magnitudes beyond IEEE float32 range
// saturate to +-Inf.
func IBMToIEEE(be4 []byte) float32 {
	bits := binary.BigEndian.Uint32(be4)
	sign := bits >> 31
	exponent := int32((bits>>24)&0x7f) - 64
	mantissa := bits & 0x00ffffff

	if mantissa == 0 {
		if sign == 1 {
			return math.Float32frombits(1 << 31)
		}
		return 0
	}

	// IBM float value = mantissa/2^24 * 16^exponent, as a fraction in
	// [1/16, 1). Normalise to the IEEE convention (mantissa in [1,2)) by
	// shifting the base-16 exponent into base-2 and renormalising.
	frac := float64(mantissa) / float64(1<<24)
	value := frac * math.Pow(16, float64(exponent))
	if sign == 1 {
		value = -value
	}

	if math.IsInf(value, 0) || math.Abs(value) > math.MaxFloat32 {
		if value < 0 {
			return float32(math.Inf(-1))
		}
		return float32(math.Inf(1))
	}
	if math.Abs(value) < 0x1p-126 {
		if sign == 1 {
			return math.Float32frombits(1 << 31)
		}
		return 0
	}
	return float32(value)
}

// IEEEToIBM is the inverse of IBMToIEEE: it encodes f as a 4-byte
// big-endian IBM-370 float, rounding toward zero on mantissa truncation.
func IEEEToIBM(f float32) []byte {
	out := make([]byte, 4)
	if f == 0 {
		if math.Signbit(float64(f)) {
			out[0] = 0x80
		}
		return out
	}

	value := float64(f)
	sign := uint32(0)
	if value < 0 {
		sign = 1
		value = -value
	}

	// Find the smallest base-16 exponent e such that value/16^e < 1, i.e.
	// the IBM mantissa fits in [1/16, 1).
	exponent := int32(math.Ceil(math.Log(value) / math.Log(16)))
	frac := value / math.Pow(16, float64(exponent))
	for frac >= 1 {
		exponent++
		frac = value / math.Pow(16, float64(exponent))
	}
	for frac < 1.0/16.0 && frac != 0 {
		exponent--
		frac = value / math.Pow(16, float64(exponent))
	}

	mantissa := uint32(math.Trunc(frac * float64(1<<24)))
	biased := exponent + 64
	if biased < 0 {
		biased = 0
		mantissa = 0
	}
	if biased > 127 {
		biased = 127
		mantissa = 0x00ffffff
	}

	bits := (sign << 31) | (uint32(biased) << 24) | (mantissa & 0x00ffffff)
	binary.BigEndian.PutUint32(out, bits)
	return out
}

// ebcdicCodec decodes/encodes IBM code page 037, the EBCDIC variant drawn
// from the same golang.org/x/text/encoding charmap family the teacher
// already imports (helper.go's UTF-16 decoding uses a sibling package).
var ebcdicCodec = charmap.CodePage037

// AsciiToEbcdic transcodes an ASCII byte string to EBCDIC (IBM-037).
func AsciiToEbcdic(ascii []byte) []byte {
	out := make([]byte, len(ascii))
	enc := ebcdicCodec.NewEncoder()
	for i, c := range ascii {
		b, err := enc.Bytes([]byte{c})
		if err != nil || len(b) == 0 {
			out[i] = c
			continue
		}
		out[i] = b[0]
	}
	return out
}

// EbcdicToAscii transcodes an EBCDIC (IBM-037) byte string to ASCII.
func EbcdicToAscii(ebcdic []byte) []byte {
	out := make([]byte, len(ebcdic))
	dec := ebcdicCodec.NewDecoder()
	for i, c := range ebcdic {
		b, err := dec.Bytes([]byte{c})
		if err != nil || len(b) == 0 {
			out[i] = c
			continue
		}
		out[i] = b[0]
	}
	return out
}

// isPrintableAscii reports whether b is a printable ASCII code point
// (space through tilde, plus common whitespace), used by DetectReelText.
func isPrintableAscii(b byte) bool {
	return (b >= 0x20 && b <= 0x7e) || b == '\n' || b == '\r' || b == '\t'
}

// DetectReelText decides the text encoding of a 3200-byte reel header per
// §4.3: count printable ASCII vs. printable EBCDIC code points and return
// whichever reading is larger, already transcoded to ASCII.
func DetectReelText(raw []byte) []byte {
	asciiCount := 0
	for _, b := range raw {
		if isPrintableAscii(b) {
			asciiCount++
		}
	}

	ebcdicAscii := EbcdicToAscii(raw)
	ebcdicCount := 0
	for _, b := range ebcdicAscii {
		if isPrintableAscii(b) {
			ebcdicCount++
		}
	}

	if ebcdicCount > asciiCount {
		return ebcdicAscii
	}
	return append([]byte(nil), raw...)
}
