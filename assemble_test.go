// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package ecog_test

import (
	"testing"

	"github.com/OpenPSG/ecog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// indexedBands returns a [band][channel][time] array where every value
// encodes its own position.
func indexedBands(bands, time int) [][][]float64 {
	x := make([][][]float64, bands)
	for b := range x {
		x[b] = make([][]float64, ecog.GridChannels)
		for k := range x[b] {
			x[b][k] = make([]float64, time)
			for i := range x[b][k] {
				x[b][k][i] = float64(b*100000 + k*100 + i)
			}
		}
	}
	return x
}

func TestAssembleLayout(t *testing.T) {
	x := indexedBands(3, 5)
	s, err := ecog.Assemble(x)
	require.NoError(t, err)

	assert.Equal(t, []int{3, 5, 1, 8, 8}, s.Shape())
	assert.Equal(t, []int{3, 5, 8, 8}, s.SqueezedShape())
	require.Len(t, s.Data, 3*5*64)

	for b := 0; b < 3; b++ {
		for i := 0; i < 5; i++ {
			for k := 0; k < ecog.GridChannels; k++ {
				require.Equal(t, float32(x[b][k][i]), s.At(b, i, k/8, k%8))
			}
		}
	}
}

func TestAssembleRoundTrip(t *testing.T) {
	x := indexedBands(4, 40)
	s, err := ecog.Assemble(x)
	require.NoError(t, err)

	back := ecog.Disassemble(s)
	require.Len(t, back, len(x))
	for b := range x {
		require.Len(t, back[b], ecog.GridChannels)
		for k := range x[b] {
			for i, v := range x[b][k] {
				require.Equal(t, float32(v), back[b][k][i])
			}
		}
	}
}

func TestAssembleRejectsBadShapes(t *testing.T) {
	_, err := ecog.Assemble(nil)
	require.Error(t, err)

	x := indexedBands(2, 4)
	x[1] = x[1][:63]
	_, err = ecog.Assemble(x)
	require.Error(t, err)

	x = indexedBands(2, 4)
	x[0][17] = x[0][17][:3]
	_, err = ecog.Assemble(x)
	require.Error(t, err)
}

func TestSampleTensor(t *testing.T) {
	s, err := ecog.Assemble(indexedBands(2, 6))
	require.NoError(t, err)

	tensor := s.Tensor()
	assert.Equal(t, []int{2, 6, 1, 8, 8}, tensor.Shape().Dimensions)
}
