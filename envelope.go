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
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// Envelope returns the instantaneous amplitude of x, the magnitude of its
// analytic signal.
func Envelope(x []float64) []float64 {
	n := len(x)
	if n == 0 {
		return []float64{}
	}

	spectrum := fft.FFTReal(x)

	// Keep DC (and Nyquist for even n), double the positive frequencies and
	// drop the negative ones.
	half := (n + 1) / 2
	for k := 1; k < half; k++ {
		spectrum[k] *= 2
	}
	start := half
	if n%2 == 0 {
		start = n/2 + 1
	}
	for k := start; k < n; k++ {
		spectrum[k] = 0
	}

	analytic := fft.IFFT(spectrum)
	env := make([]float64, n)
	for i, v := range analytic {
		env[i] = cmplx.Abs(v)
	}
	return env
}

// Resample resamples x to num points with the Fourier method: the spectrum
// is truncated or zero padded and transformed back, so x is treated as
// periodic.
func Resample(x []float64, num int) []float64 {
	nx := len(x)
	if num <= 0 {
		return []float64{}
	}
	if nx == 0 {
		return make([]float64, num)
	}

	spectrum := fft.FFTReal(x)

	// Positive frequencies up to and including Nyquist of the shorter length.
	n := min(num, nx)
	nyq := n/2 + 1
	half := make([]complex128, num/2+1)
	copy(half, spectrum[:min(nyq, len(half))])

	// Split or join the Nyquist bin when it is present.
	if n%2 == 0 {
		switch {
		case num < nx:
			half[n/2] *= 2
		case nx < num:
			half[n/2] *= 0.5
		}
	}

	// Rebuild the full Hermitian spectrum. The real part of the inverse
	// ignores the imaginary parts of the DC and Nyquist bins.
	full := make([]complex128, num)
	copy(full, half)
	for k := 1; k < (num+1)/2; k++ {
		full[num-k] = cmplx.Conj(half[k])
	}

	inverse := fft.IFFT(full)
	scale := float64(num) / float64(nx)
	y := make([]float64, num)
	for i, v := range inverse {
		y[i] = real(v) * scale
	}
	return y
}
