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
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// ChannelStats holds a mean and population standard deviation per grid position.
type ChannelStats struct {
	Mean [GridChannels]float64
	Std  [GridChannels]float64
}

// Normalizer rescales grid chunks in place.
//
// Both statistics modes compute value - mean/std, not (value-mean)/std.
// Existing checkpoints were trained on exactly this arithmetic.
type Normalizer struct {
	mode  NormMode
	stats *ChannelStats
}

// NewNormalizer returns a Normalizer for mode. Hour mode needs the recording
// statistics from RecordingStats.
func NewNormalizer(mode NormMode, stats *ChannelStats) (*Normalizer, error) {
	if mode == NormHour && stats == nil {
		return nil, fmt.Errorf("%w: hour normalization needs recording statistics", ErrConfig)
	}
	return &Normalizer{mode: mode, stats: stats}, nil
}

// Apply normalizes every row of g. A row that is flat within the chunk is
// left unmodified in both modes, as is a row whose recording deviation is
// zero in hour mode.
func (n *Normalizer) Apply(g *Grid) {
	switch n.mode {
	case NormSample:
		for _, row := range g.Rows {
			mean, std := stat.PopMeanStdDev(row, nil)
			shiftRow(row, mean, std)
		}
	case NormHour:
		for k, row := range g.Rows {
			if stat.PopStdDev(row, nil) == 0 {
				continue
			}
			shiftRow(row, n.stats.Mean[k], n.stats.Std[k])
		}
	}
}

func shiftRow(row []float64, mean, std float64) {
	if std == 0 {
		return
	}
	shift := mean / std
	for i := range row {
		row[i] -= shift
	}
}

// statsBlock is the number of samples RecordingStats holds per channel.
const statsBlock = 1 << 16

// RecordingStats computes per-position statistics over the whole recording,
// streaming one channel at a time in blocks of statsBlock samples. Dead and
// absent positions get mean = std = 0, which leaves them unmodified by hour
// normalization.
func RecordingStats(src Source, m *GridMapper, dead []int) (*ChannelStats, error) {
	stats := &ChannelStats{}
	buf := make([]float64, statsBlock)

	for k, idx := range m.index {
		if idx < 0 || slices.Contains(dead, k) {
			continue
		}

		r, err := channelReader(src, idx)
		if err != nil {
			return nil, err
		}

		var acc moments
		for {
			n, err := r.Read(buf)
			if n > 0 {
				acc.add(buf[:n])
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, err
			}
		}
		stats.Mean[k], stats.Std[k] = acc.mean, acc.std()
	}

	return stats, nil
}

// moments merges block means and variances (Chan et al.) into running
// population statistics.
type moments struct {
	n    float64
	mean float64
	m2   float64
}

func (a *moments) add(block []float64) {
	mean, std := stat.PopMeanStdDev(block, nil)
	nb := float64(len(block))

	n := a.n + nb
	delta := mean - a.mean
	a.m2 += std*std*nb + delta*delta*a.n*nb/n
	a.mean += delta * nb / n
	a.n = n
}

func (a *moments) std() float64 {
	if a.n == 0 {
		return 0
	}
	return math.Sqrt(a.m2 / a.n)
}
