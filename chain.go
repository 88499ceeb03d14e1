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
	"io"
	"iter"
)

// Stream is a restartable sequence of samples. Next returns io.EOF at the end
// of every pass.
type Stream interface {
	Next() (*Sample, error)
	Reset()
}

// Chain concatenates datasets into one stream. Members are consumed in order,
// each through one full pass of its own before the next starts. Every member
// keeps its own cursor.
type Chain struct {
	members []*Dataset
	current int
}

// NewChain chains the given datasets in order.
func NewChain(members ...*Dataset) *Chain {
	return &Chain{members: members}
}

// Members returns the chained datasets.
func (c *Chain) Members() []*Dataset {
	return c.members
}

// Len returns the number of samples in one pass over every member.
func (c *Chain) Len() int {
	n := 0
	for _, d := range c.members {
		n += d.Len()
	}
	return n
}

// Next returns the next sample of the current member, moving on to the next
// member when it reports io.EOF. After the last member it returns io.EOF and
// starts over at the first.
func (c *Chain) Next() (*Sample, error) {
	for c.current < len(c.members) {
		s, err := c.members[c.current].Next()
		if errors.Is(err, io.EOF) {
			c.current++
			continue
		}
		return s, err
	}

	c.current = 0
	return nil, io.EOF
}

// Reset rewinds the chain and every member to their first chunk.
func (c *Chain) Reset() {
	c.current = 0
	for _, d := range c.members {
		d.Reset()
	}
}

// All returns one pass over the chain, from the current position.
func (c *Chain) All() iter.Seq2[*Sample, error] {
	return func(yield func(*Sample, error) bool) {
		for {
			s, err := c.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(s, err) || err != nil {
				return
			}
		}
	}
}

// Close closes every member and joins their errors.
func (c *Chain) Close() error {
	var errs []error
	for _, d := range c.members {
		if err := d.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
