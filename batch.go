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
	"slices"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// Batcher stacks the samples of a Stream into gomlx tensors of shape
// (batch, bands, time, 1, 8, 8). It has the method set of gomlx's
// train.Dataset: Name, Yield and Reset. The final batch of a pass may be
// smaller than the batch size. There are no labels.
type Batcher struct {
	name      string
	stream    Stream
	size      int
	exhausted bool
}

// NewBatcher batches stream into groups of size samples.
func NewBatcher(name string, stream Stream, size int) (*Batcher, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", ErrConfig, size)
	}
	return &Batcher{name: name, stream: stream, size: size}, nil
}

// Name identifies the dataset in training logs.
func (b *Batcher) Name() string {
	return b.name
}

// Yield returns the next batch as the single input tensor. It returns io.EOF
// once the pass is over, until Reset is called.
func (b *Batcher) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	if b.exhausted {
		return nil, nil, nil, io.EOF
	}

	var (
		shape []int
		data  []float32
		n     int
	)
	for n < b.size {
		s, err := b.stream.Next()
		if errors.Is(err, io.EOF) {
			b.exhausted = true
			break
		}
		if err != nil {
			return nil, nil, nil, err
		}

		if shape == nil {
			shape = s.Shape()
			data = make([]float32, 0, b.size*len(s.Data))
		} else if !slices.Equal(shape, s.Shape()) {
			return nil, nil, nil, fmt.Errorf("sample shape %v does not match batch shape %v", s.Shape(), shape)
		}
		data = append(data, s.Data...)
		n++
	}

	if n == 0 {
		return nil, nil, nil, io.EOF
	}

	dims := append([]int{n}, shape...)
	return nil, []*tensors.Tensor{tensors.FromFlatDataAndDimensions(data, dims...)}, nil, nil
}

// Reset restarts the underlying stream from its first sample.
func (b *Batcher) Reset() {
	b.stream.Reset()
	b.exhausted = false
}
