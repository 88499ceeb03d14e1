// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package ecog

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"
)

// FilterOrder is the Butterworth prototype order of every band-pass filter.
const FilterOrder = 4

// Section is one second-order IIR section: b0, b1, b2, a0, a1, a2 with a0 = 1.
type Section [6]float64

// ButterBandpass designs a digital Butterworth band-pass filter as a cascade
// of second-order sections. low and high are normalized to the Nyquist
// frequency and must satisfy 0 < low < high < 1.
func ButterBandpass(order int, low, high float64) ([]Section, error) {
	if order <= 0 {
		return nil, fmt.Errorf("%w: filter order must be positive", ErrConfig)
	}
	if low <= 0 || high >= 1 || low >= high {
		return nil, fmt.Errorf("%w: normalized band [%g, %g] outside (0, 1)", ErrConfig, low, high)
	}

	// Pre-warp the edges for the bilinear transform (sampling rate 2).
	const fs = 2.0
	warpedLow := 2 * fs * math.Tan(math.Pi*low/fs)
	warpedHigh := 2 * fs * math.Tan(math.Pi*high/fs)
	bw := warpedHigh - warpedLow
	wo := math.Sqrt(warpedLow * warpedHigh)

	// Analog low-pass prototype poles on the left half of the unit circle,
	// each turned into a pair of band-pass poles.
	poles := make([]complex128, 0, 2*order)
	for m := -order + 1; m < order; m += 2 {
		p := -cmplx.Exp(complex(0, math.Pi*float64(m)/float64(2*order)))
		p *= complex(bw/2, 0)
		d := cmplx.Sqrt(p*p - complex(wo*wo, 0))
		poles = append(poles, p+d, p-d)
	}

	// The band-pass transform leaves order zeros at s = 0. Bilinear maps them
	// to z = 1 and adds order zeros at z = -1 for the excess poles.
	const fs2 = 2 * fs
	gain := complex(math.Pow(bw, float64(order))*math.Pow(fs2, float64(order)), 0)
	for i, p := range poles {
		gain /= complex(fs2, 0) - p
		poles[i] = (complex(fs2, 0) + p) / (complex(fs2, 0) - p)
	}

	sections := pairPoles(poles)
	sections[0][0] *= real(gain)
	sections[0][1] *= real(gain)
	sections[0][2] *= real(gain)

	return sections, nil
}

// pairPoles groups conjugate poles into sections, each with one zero at
// z = 1 and one at z = -1. Sections are ordered by increasing pole radius.
func pairPoles(poles []complex128) []Section {
	const eps = 1e-12

	var complexPoles, realPoles []complex128
	for _, p := range poles {
		switch {
		case imag(p) > eps:
			complexPoles = append(complexPoles, p)
		case math.Abs(imag(p)) <= eps:
			realPoles = append(realPoles, complex(real(p), 0))
		}
	}

	var sections []Section
	for _, p := range complexPoles {
		sections = append(sections, Section{1, 0, -1, 1, -2 * real(p), real(p)*real(p) + imag(p)*imag(p)})
	}
	for i := 0; i+1 < len(realPoles); i += 2 {
		p1, p2 := real(realPoles[i]), real(realPoles[i+1])
		sections = append(sections, Section{1, 0, -1, 1, -(p1 + p2), p1 * p2})
	}

	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i][5] < sections[j][5]
	})

	return sections
}

// SOSFilter runs x through the cascade of sections (transposed direct form
// II, zero initial state) and returns the filtered signal.
func SOSFilter(sections []Section, x []float64) []float64 {
	y := append([]float64(nil), x...)
	for _, s := range sections {
		var z1, z2 float64
		for i, in := range y {
			out := s[0]*in + z1
			z1 = s[1]*in - s[4]*out + z2
			z2 = s[2]*in - s[5]*out
			y[i] = out
		}
	}
	return y
}

// FilterBank applies one band-pass filter per configured band.
type FilterBank struct {
	bands    []Band
	sections [][]Section
}

// NewFilterBank designs the band filters for recordings sampled at fs Hz.
func NewFilterBank(bands []Band, fs float64) (*FilterBank, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("%w: empty band list", ErrConfig)
	}
	if fs <= 0 {
		return nil, fmt.Errorf("%w: sampling rate must be positive", ErrConfig)
	}

	nyquist := fs / 2
	fb := &FilterBank{bands: bands}
	for i, band := range bands {
		sections, err := ButterBandpass(FilterOrder, band.Low/nyquist, band.High/nyquist)
		if err != nil {
			return nil, fmt.Errorf("band %d: %w", i, err)
		}
		fb.sections = append(fb.sections, sections)
	}

	return fb, nil
}

// Bands returns the configured bands in output order.
func (fb *FilterBank) Bands() []Band {
	return fb.bands
}

// Apply filters every row independently, once per band. The result is indexed
// [band][row][sample].
func (fb *FilterBank) Apply(rows [][]float64) [][][]float64 {
	out := make([][][]float64, len(fb.sections))
	for b, sections := range fb.sections {
		out[b] = make([][]float64, len(rows))
		for r, row := range rows {
			out[b][r] = SOSFilter(sections, row)
		}
	}
	return out
}
