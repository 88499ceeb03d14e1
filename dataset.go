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
	"io"
	"iter"
	"math"
	"time"

	"k8s.io/klog/v2"
)

// Dataset produces the processed samples of one recording, one fixed-length
// chunk at a time. A trailing chunk shorter than SampleLength is never
// produced.
//
// The cursor starts at 0 and advances once per sample produced by Next. When
// the last chunk has been produced the cursor wraps to 0 and the following
// Next reports io.EOF, so the same Dataset can be iterated pass after pass. A
// pass abandoned midway resumes where it stopped unless Reset is called.
//
// A Dataset is not safe for concurrent use.
type Dataset struct {
	name   string
	cfg    Config
	src    Source
	closer io.Closer

	mapper *GridMapper
	norm   *Normalizer
	bank   *FilterBank

	count      int
	index      int
	pendingEOF bool
}

// Open validates cfg, opens the EDF recording at path and builds its Dataset.
func Open(path string, cfg Config) (*Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	src, err := OpenEDF(path)
	if err != nil {
		return nil, err
	}

	d, err := NewDataset(src, cfg)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	d.closer = src

	return d, nil
}

// NewDataset builds a Dataset over src. Sources reporting per-channel rates
// must sample every grid channel at native_fs.
func NewDataset(src Source, cfg Config) (*Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rate := src.SampleRate(); rate != float64(cfg.NativeFS) {
		return nil, fmt.Errorf("%w: source sampled at %g Hz, native_fs is %d", ErrConfig, rate, cfg.NativeFS)
	}

	bank, err := NewFilterBank(cfg.Bands, float64(cfg.NativeFS))
	if err != nil {
		return nil, err
	}

	d := &Dataset{
		name:   "memory",
		cfg:    cfg,
		src:    src,
		mapper: NewGridMapper(src.Labels(), cfg.MissingChannelFill),
		bank:   bank,
		count:  ChunkCount(src.Duration(), cfg.SampleLength),
	}
	if named, ok := src.(interface{ Path() string }); ok {
		d.name = named.Path()
	}

	// Every grid channel is chunked on the same sample clock.
	if rates, ok := src.(interface{ ChannelSampleRate(ch int) float64 }); ok {
		labels := src.Labels()
		for _, idx := range d.mapper.picks {
			if rate := rates.ChannelSampleRate(idx); rate != float64(cfg.NativeFS) {
				return nil, fmt.Errorf("%w: %s: channel %s sampled at %g Hz, native_fs is %d", ErrConfig, d.name, labels[idx], rate, cfg.NativeFS)
			}
		}
	}

	if missing := d.mapper.Missing(); len(missing) > 0 {
		klog.V(1).Infof("%s: %d grid channels missing, filling with %s: %v", d.name, len(missing), cfg.MissingChannelFill, missing)
	}

	var stats *ChannelStats
	if cfg.Norm == NormHour {
		start := time.Now()
		if stats, err = RecordingStats(src, d.mapper, cfg.DeadChannels); err != nil {
			return nil, err
		}
		klog.Infof("%s: computed recording statistics in %s", d.name, time.Since(start))
	}
	if d.norm, err = NewNormalizer(cfg.Norm, stats); err != nil {
		return nil, err
	}

	klog.Infof("%s: %.1fs recording, %d chunks of %ds", d.name, src.Duration(), d.count, cfg.SampleLength)

	return d, nil
}

// ChunkCount returns how many whole chunks of sampleLength seconds fit in a
// recording of duration seconds.
func ChunkCount(duration float64, sampleLength int) int {
	if sampleLength <= 0 || duration <= 0 {
		return 0
	}
	// The epsilon absorbs rounding in durations derived from sample counts.
	return int(math.Floor(duration/float64(sampleLength) + 1e-9))
}

// Name identifies the recording.
func (d *Dataset) Name() string {
	return d.name
}

// Len returns the number of samples in one pass.
func (d *Dataset) Len() int {
	return d.count
}

// Index returns the cursor, the chunk the next call to Next produces.
func (d *Dataset) Index() int {
	return d.index
}

// Present reports which grid positions are backed by a recorded channel.
func (d *Dataset) Present() [GridChannels]bool {
	return d.mapper.Present()
}

// Reset moves the cursor back to the first chunk.
func (d *Dataset) Reset() {
	d.index = 0
	d.pendingEOF = false
}

// Next returns the sample at the cursor and advances it. At the end of a
// pass it returns io.EOF once, the cursor already being back at 0.
func (d *Dataset) Next() (*Sample, error) {
	if d.pendingEOF || d.count == 0 {
		d.pendingEOF = false
		return nil, io.EOF
	}

	s, err := d.Sample(d.index)
	if err != nil {
		return nil, err
	}

	d.index++
	if d.index == d.count {
		d.index = 0
		d.pendingEOF = true
	}

	return s, nil
}

// All returns one pass over the dataset starting at the cursor. Iteration
// stops after the first error.
func (d *Dataset) All() iter.Seq2[*Sample, error] {
	return func(yield func(*Sample, error) bool) {
		// A new pass, whether or not the previous one saw its io.EOF.
		d.pendingEOF = false
		for {
			s, err := d.Next()
			if err == io.EOF {
				return
			}
			if !yield(s, err) || err != nil {
				return
			}
		}
	}
}

// Sample processes chunk i without touching the cursor.
func (d *Dataset) Sample(i int) (*Sample, error) {
	if i < 0 || i >= d.count {
		return nil, fmt.Errorf("chunk %d out of range [0, %d)", i, d.count)
	}

	start := time.Now()
	n := d.cfg.ChunkSamples()

	g, err := d.mapper.Map(d.src, i*n, (i+1)*n)
	if err != nil {
		return nil, err
	}

	d.norm.Apply(g)

	bands := d.bank.Apply(g.Rows[:])

	num := d.cfg.ResampledSamples()
	for _, rows := range bands {
		for k, row := range rows {
			if d.cfg.Env {
				row = Envelope(row)
			}
			rows[k] = Resample(row, num)
		}
	}

	s, err := Assemble(bands)
	if err != nil {
		return nil, err
	}

	klog.V(2).Infof("%s: chunk %d processed in %s", d.name, i, time.Since(start))

	return s, nil
}

// LoadGrid returns the whole recording laid out on the channel grid as
// float32 rows, without normalization or filtering, along with the presence
// mask.
func (d *Dataset) LoadGrid() ([][]float32, [GridChannels]bool, error) {
	total := int(math.Round(d.src.Duration() * d.src.SampleRate()))

	g, err := d.mapper.Map(d.src, 0, total)
	if err != nil {
		return nil, d.mapper.Present(), err
	}

	rows := make([][]float32, GridChannels)
	for k, row := range g.Rows {
		rows[k] = make([]float32, len(row))
		for i, v := range row {
			rows[k][i] = float32(v)
		}
	}

	return rows, g.Present, nil
}

// Close releases the recording if the Dataset opened it.
func (d *Dataset) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}
