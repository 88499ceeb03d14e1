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
	"os"

	"github.com/OpenPSG/ecog/edf"
)

// Source gives sample-indexed random access to a multi-channel recording.
// A Source is read-only, the pipeline never mutates it.
type Source interface {
	// Labels returns the channel names in source order.
	Labels() []string
	// SampleRate returns the native sampling rate in Hz.
	SampleRate() float64
	// Duration returns the recording length in seconds, from metadata.
	Duration() float64
	// Read returns samples [start, stop) of the given channels (indices into
	// Labels). Reading past the end returns shorter rows without error.
	Read(channels []int, start, stop int) ([][]float64, error)
}

// SampleReader reads one channel sequentially. Read returns io.EOF once the
// channel is exhausted.
type SampleReader interface {
	Read(data []float64) (int, error)
}

// channelReader returns a sequential reader over channel ch of src, using
// the source's own streaming reader when it has one.
func channelReader(src Source, ch int) (SampleReader, error) {
	if s, ok := src.(interface {
		Channel(ch int) (SampleReader, error)
	}); ok {
		return s.Channel(ch)
	}
	return &rangeReader{src: src, ch: ch}, nil
}

// rangeReader streams a channel through Source.Read.
type rangeReader struct {
	src Source
	ch  int
	pos int
}

func (r *rangeReader) Read(data []float64) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	rows, err := r.src.Read([]int{r.ch}, r.pos, r.pos+len(data))
	if err != nil {
		return 0, err
	}
	n := copy(data, rows[0])
	r.pos += n
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// MemorySource is a Source backed by in-memory traces.
type MemorySource struct {
	labels []string
	data   [][]float64
	rate   float64
}

// NewMemorySource wraps data (one row per label) sampled at rate Hz. The rows
// are not copied.
func NewMemorySource(labels []string, data [][]float64, rate float64) (*MemorySource, error) {
	if len(labels) != len(data) {
		return nil, fmt.Errorf("%w: %d labels for %d channels", ErrSourceUnavailable, len(labels), len(data))
	}
	if rate <= 0 {
		return nil, fmt.Errorf("%w: sampling rate must be positive", ErrSourceUnavailable)
	}
	for i, row := range data {
		if len(row) != len(data[0]) {
			return nil, fmt.Errorf("%w: channel %d has %d samples, expected %d", ErrSourceUnavailable, i, len(row), len(data[0]))
		}
	}

	return &MemorySource{labels: labels, data: data, rate: rate}, nil
}

// CanonicalLabels returns G1..Gn.
func CanonicalLabels(n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("G%d", i+1)
	}
	return labels
}

func (m *MemorySource) Labels() []string {
	return m.labels
}

func (m *MemorySource) SampleRate() float64 {
	return m.rate
}

func (m *MemorySource) Duration() float64 {
	if len(m.data) == 0 {
		return 0
	}
	return float64(len(m.data[0])) / m.rate
}

func (m *MemorySource) Read(channels []int, start, stop int) ([][]float64, error) {
	if start < 0 || stop < start {
		return nil, fmt.Errorf("invalid sample range [%d, %d)", start, stop)
	}

	out := make([][]float64, len(channels))
	for i, ch := range channels {
		if ch < 0 || ch >= len(m.data) {
			return nil, fmt.Errorf("channel index %d out of range", ch)
		}
		row := m.data[ch]
		lo, hi := min(start, len(row)), min(stop, len(row))
		out[i] = append([]float64(nil), row[lo:hi]...)
	}

	return out, nil
}

// EDFSource is a Source reading an EDF/EDF+ file.
type EDFSource struct {
	path string
	f    *os.File
	r    *edf.Reader
}

// OpenEDF opens the EDF file at path. Only the header is read.
func OpenEDF(path string) (*EDFSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	r, err := edf.Open(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, path, err)
	}

	return &EDFSource{path: path, f: f, r: r}, nil
}

// Path returns the file the source was opened from.
func (s *EDFSource) Path() string {
	return s.path
}

// Close releases the underlying file.
func (s *EDFSource) Close() error {
	return s.f.Close()
}

func (s *EDFSource) Labels() []string {
	return s.r.Labels()
}

// SampleRate returns the rate of the first signal that is not an EDF+
// annotation channel. ChannelSampleRate gives the rate of any other signal.
func (s *EDFSource) SampleRate() float64 {
	hdr := s.r.Header()
	for i, sig := range hdr.Signals {
		if sig.Label != edf.AnnotationsLabel {
			return hdr.SampleRate(i)
		}
	}
	return 0
}

// ChannelSampleRate returns the rate of signal ch in Hz.
func (s *EDFSource) ChannelSampleRate(ch int) float64 {
	return s.r.Header().SampleRate(ch)
}

// Channel returns a sequential reader over signal ch.
func (s *EDFSource) Channel(ch int) (SampleReader, error) {
	sr, err := s.r.Signal(ch)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, s.path, err)
	}
	return &edfChannel{sr: sr, path: s.path}, nil
}

// edfChannel tags read errors of an edf.SignalReader with the source.
type edfChannel struct {
	sr   *edf.SignalReader
	path string
}

func (c *edfChannel) Read(data []float64) (int, error) {
	n, err := c.sr.Read(data)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, c.path, err)
	}
	return n, err
}

func (s *EDFSource) Duration() float64 {
	return s.r.Duration()
}

func (s *EDFSource) Read(channels []int, start, stop int) ([][]float64, error) {
	out := make([][]float64, len(channels))
	for i, ch := range channels {
		samples, err := s.r.ReadRange(ch, start, stop)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, s.path, err)
		}
		out[i] = samples
	}

	return out, nil
}
