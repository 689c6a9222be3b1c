// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package piol

import (
	"math"
	"sort"
)

// TaperFunc is one of §4.11's three taper shapes, evaluated at position i
// of a region of length n (0 ≤ i < n); f(0, n) is the edge (fully
// attenuated) end and f(n-1, n) approaches the unattenuated interior.
type TaperFunc func(i, n int) float64

// LinearTaper, CosineTaper and CosineSquaredTaper are the taper functions
// named by §4.11.
func LinearTaper(i, n int) float64 {
	if n <= 1 {
		return 1
	}
	return float64(i) / float64(n-1)
}

func CosineTaper(i, n int) float64 {
	if n <= 1 {
		return 1
	}
	return 0.5 * (1 - math.Cos(math.Pi*float64(i)/float64(n-1)))
}

func CosineSquaredTaper(i, n int) float64 {
	c := CosineTaper(i, n)
	return c * c
}

// Taper scales signal[0:nBegin) by f(i, nBegin) and signal[ns-nEnd:ns) by
// f(ns-1-i, nEnd), leaving the middle region unchanged, per §4.11.
func Taper(signal []float32, ns int, f TaperFunc, nBegin, nEnd int) {
	for i := 0; i < nBegin && i < ns; i++ {
		signal[i] = float32(float64(signal[i]) * f(i, nBegin))
	}
	for i := 0; i < nEnd && i < ns; i++ {
		idx := ns - 1 - i
		signal[idx] = float32(float64(signal[idx]) * f(i, nEnd))
	}
}

// Mute zeroes [0, muteBegin), tapers [muteBegin, muteBegin+taperBegin),
// passes the middle through unchanged, tapers
// [ns-muteEnd-taperEnd, ns-muteEnd), and zeroes [ns-muteEnd, ns), per
// §4.11. The caller is responsible for muteBegin+taperBegin+muteEnd+taperEnd
// <= ns.
func Mute(signal []float32, ns int, f TaperFunc, muteBegin, taperBegin, muteEnd, taperEnd int) {
	for i := 0; i < muteBegin && i < ns; i++ {
		signal[i] = 0
	}
	for i := 0; i < taperBegin; i++ {
		idx := muteBegin + i
		if idx >= ns {
			break
		}
		signal[idx] = float32(float64(signal[idx]) * f(i, taperBegin))
	}
	for i := 0; i < muteEnd && i < ns; i++ {
		signal[ns-1-i] = 0
	}
	for i := 0; i < taperEnd; i++ {
		idx := ns - muteEnd - 1 - i
		if idx < 0 {
			break
		}
		signal[idx] = float32(float64(signal[idx]) * f(i, taperEnd))
	}
}

// GainFunc is one of §4.11's AGC gain functions: given the (already
// clipped-to-signal-range) window of w samples centred on the target
// sample and a target amplitude, it returns the multiplicative scale to
// apply.
type GainFunc func(window []float32, target float64) float64

// RectangularRMSGain, TriangularRMSGain, MeanAbsoluteValueGain and
// MedianGain are the four gain functions named by §4.11. Zero-amplitude
// samples are excluded from each denominator's count, per §4.11.
func RectangularRMSGain(window []float32, target float64) float64 {
	var sumSq float64
	n := 0
	for _, v := range window {
		if v == 0 {
			continue
		}
		sumSq += float64(v) * float64(v)
		n++
	}
	if n == 0 {
		return 1
	}
	rms := math.Sqrt(sumSq / float64(n))
	if rms == 0 {
		return 1
	}
	return target / rms
}

// TriangularRMSGain is RectangularRMSGain with a linear taper applied
// across the window before the RMS sum: weight peaks at 1 at the window
// centre c = (n-1)/2 and falls linearly by 1/(c+1) per sample, so the edge
// samples keep a weight of 1/(c+1), per §4.11.
func TriangularRMSGain(window []float32, target float64) float64 {
	n := len(window)
	center := float64(n-1) / 2
	var sumSq float64
	count := 0
	for i, v := range window {
		if v == 0 {
			continue
		}
		weight := 1 - math.Abs(float64(i)-center)/(center+1)
		weighted := float64(v) * weight
		sumSq += weighted * weighted
		count++
	}
	if count == 0 {
		return 1
	}
	rms := math.Sqrt(sumSq / float64(count))
	if rms == 0 {
		return 1
	}
	return target / rms
}

func MeanAbsoluteValueGain(window []float32, target float64) float64 {
	var sum float64
	n := 0
	for _, v := range window {
		if v == 0 {
			continue
		}
		sum += math.Abs(float64(v))
		n++
	}
	if n == 0 {
		return 1
	}
	mean := sum / float64(n)
	if mean == 0 {
		return 1
	}
	return target / mean
}

func MedianGain(window []float32, target float64) float64 {
	vals := make([]float64, 0, len(window))
	for _, v := range window {
		if v == 0 {
			continue
		}
		vals = append(vals, math.Abs(float64(v)))
	}
	if len(vals) == 0 {
		return 1
	}
	sort.Float64s(vals)
	med := vals[len(vals)/2]
	if len(vals)%2 == 0 {
		med = (vals[len(vals)/2-1] + vals[len(vals)/2]) / 2
	}
	if med == 0 {
		return 1
	}
	return target / med
}

// AGC applies automatic gain control to signal in place, per §4.11: for
// each sample j, the window [j-w/2, j-w/2+w) is clipped to [0, ns), g is
// computed over the clipped (possibly narrower) window, and signal[j] is
// scaled by g.
func AGC(signal []float32, ns int, g GainFunc, window int, target float64) {
	out := make([]float32, ns)
	half := window / 2
	for j := 0; j < ns; j++ {
		lo := j - half
		hi := lo + window
		if lo < 0 {
			lo = 0
		}
		if hi > ns {
			hi = ns
		}
		scale := g(signal[lo:hi], target)
		out[j] = float32(float64(signal[j]) * scale)
	}
	copy(signal, out)
}
