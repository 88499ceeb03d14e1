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

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// Sample is one processed chunk with shape (bands, time, 1, 8, 8), stored
// row-major.
type Sample struct {
	Bands int
	Time  int
	Data  []float32
}

// Shape returns the tensor dimensions (bands, time, depth, height, width).
func (s *Sample) Shape() []int {
	return []int{s.Bands, s.Time, 1, GridRows, GridCols}
}

// SqueezedShape returns the shape without the depth axis.
func (s *Sample) SqueezedShape() []int {
	return []int{s.Bands, s.Time, GridRows, GridCols}
}

// At returns the value for band b, time point t and grid cell (row, col).
func (s *Sample) At(b, t, row, col int) float32 {
	return s.Data[((b*s.Time+t)*GridRows+row)*GridCols+col]
}

// Tensor converts the sample into a gomlx tensor of shape Shape().
func (s *Sample) Tensor() *tensors.Tensor {
	return tensors.FromFlatDataAndDimensions(s.Data, s.Shape()...)
}

// Assemble lays out a [band][channel][time] array as a Sample: channel k
// lands on grid row k/8, column k%8, and time moves in front of the grid.
// Values are cast to float32, nothing is recomputed.
func Assemble(x [][][]float64) (*Sample, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("no bands to assemble")
	}
	t := -1
	for b, band := range x {
		if len(band) != GridChannels {
			return nil, fmt.Errorf("band %d has %d channels, expected %d", b, len(band), GridChannels)
		}
		for k, row := range band {
			if t < 0 {
				t = len(row)
			}
			if len(row) != t {
				return nil, fmt.Errorf("band %d channel %d has %d time points, expected %d", b, k, len(row), t)
			}
		}
	}

	s := &Sample{Bands: len(x), Time: t, Data: make([]float32, len(x)*t*GridChannels)}
	for b, band := range x {
		for k, row := range band {
			for i, v := range row {
				s.Data[(b*t+i)*GridChannels+k] = float32(v)
			}
		}
	}
	return s, nil
}

// Disassemble is the inverse of Assemble, returning [band][channel][time].
func Disassemble(s *Sample) [][][]float32 {
	out := make([][][]float32, s.Bands)
	for b := range out {
		out[b] = make([][]float32, GridChannels)
		for k := range out[b] {
			row := make([]float32, s.Time)
			for i := range row {
				row[i] = s.Data[(b*s.Time+i)*GridChannels+k]
			}
			out[b][k] = row
		}
	}
	return out
}
