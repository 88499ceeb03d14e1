// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package ecog

import "math"

const (
	// GridRows and GridCols give the electrode grid layout.
	GridRows = 8
	GridCols = 8
	// GridChannels is the number of canonical channels, G1..G64.
	GridChannels = GridRows * GridCols
)

// Grid is a chunk laid out on the canonical channel grid. Row k holds the
// samples of channel G{k+1}.
type Grid struct {
	Rows    [GridChannels][]float64
	Present [GridChannels]bool
}

// GridMapper places source channels at their canonical grid position by name.
// Channels outside G1..G64 are ignored.
type GridMapper struct {
	fill    float64
	index   [GridChannels]int // Source channel index per position, -1 if absent
	present [GridChannels]bool
	picks   []int // Source indices of the present positions, in grid order
}

// NewGridMapper builds the lookup from canonical names to indices in labels.
func NewGridMapper(labels []string, fill Fill) *GridMapper {
	m := &GridMapper{}
	if fill == FillNaN {
		m.fill = math.NaN()
	}

	byName := make(map[string]int, len(labels))
	for i, label := range labels {
		if _, dup := byName[label]; !dup {
			byName[label] = i
		}
	}

	for k, name := range CanonicalLabels(GridChannels) {
		idx, ok := byName[name]
		if !ok {
			m.index[k] = -1
			continue
		}
		m.index[k] = idx
		m.present[k] = true
		m.picks = append(m.picks, idx)
	}

	return m
}

// Present reports which grid positions are backed by a source channel.
func (m *GridMapper) Present() [GridChannels]bool {
	return m.present
}

// Missing returns the canonical names absent from the source.
func (m *GridMapper) Missing() []string {
	var missing []string
	names := CanonicalLabels(GridChannels)
	for k, ok := range m.present {
		if !ok {
			missing = append(missing, names[k])
		}
	}
	return missing
}

// Map reads samples [start, stop) of every present channel and lays them out
// on the grid. Short reads are zero padded to stop-start samples, absent
// positions are filled with the configured sentinel.
func (m *GridMapper) Map(src Source, start, stop int) (*Grid, error) {
	n := stop - start
	rows, err := src.Read(m.picks, start, stop)
	if err != nil {
		return nil, err
	}

	g := &Grid{Present: m.present}
	next := 0
	for k := range g.Rows {
		row := make([]float64, n)
		if m.present[k] {
			copy(row, rows[next])
			next++
		} else {
			for i := range row {
				row[i] = m.fill
			}
		}
		g.Rows[k] = row
	}

	return g, nil
}
