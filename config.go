// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package ecog turns multi-channel ECoG recordings into fixed-shape
// (bands, time, 1, 8, 8) float32 samples for self-supervised pretraining.
package ecog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NormMode selects how chunks are normalized.
type NormMode string

const (
	// NormSample normalizes each chunk with its own per-channel statistics.
	NormSample NormMode = "sample"
	// NormHour normalizes with per-channel statistics of the whole recording.
	NormHour NormMode = "hour"
	// NormBatch leaves chunks untouched, normalization is up to the consumer.
	NormBatch NormMode = "batch"
)

// Fill is the sentinel written into grid positions whose channel is absent.
type Fill string

const (
	FillZero Fill = "zero"
	FillNaN  Fill = "nan"
)

// Band is a band-pass frequency range in Hz.
type Band struct {
	Low  float64
	High float64
}

// UnmarshalYAML decodes a band from a two element sequence, e.g. [4, 8].
func (b *Band) UnmarshalYAML(node *yaml.Node) error {
	var edges []float64
	if err := node.Decode(&edges); err != nil {
		return err
	}
	if len(edges) != 2 {
		return fmt.Errorf("line %d: band must have exactly two edges, got %d", node.Line, len(edges))
	}
	b.Low, b.High = edges[0], edges[1]
	return nil
}

// MarshalYAML encodes a band as a two element sequence.
func (b Band) MarshalYAML() (any, error) {
	return []float64{b.Low, b.High}, nil
}

// Config holds the pipeline settings shared by every Dataset built from it.
type Config struct {
	BatchSize          int      `yaml:"batch_size"`
	Bands              []Band   `yaml:"bands"`
	NewFS              int      `yaml:"new_fs"`        // Target sampling rate in Hz
	SampleLength       int      `yaml:"sample_length"` // Chunk duration in seconds
	Norm               NormMode `yaml:"norm"`
	Env                bool     `yaml:"env"` // Extract the amplitude envelope of every band
	Shuffle            bool     `yaml:"shuffle"`
	NativeFS           int      `yaml:"native_fs"` // Sampling rate of the recordings in Hz
	MissingChannelFill Fill     `yaml:"missing_channel_fill"`
	DeadChannels       []int    `yaml:"dead_channels"` // Grid positions excluded from hour statistics
}

// DefaultConfig returns a configuration with the documented defaults. Bands
// and NewFS have no sensible default and must be set by the caller.
func DefaultConfig() Config {
	return Config{
		SampleLength:       2,
		Norm:               NormBatch,
		NativeFS:           512,
		MissingChannelFill: FillZero,
		DeadChannels:       []int{58, 59, 60},
	}
}

// LoadConfig reads a YAML configuration file on top of DefaultConfig and
// validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("error reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration. All failures wrap ErrConfig.
func (c Config) Validate() error {
	if len(c.Bands) == 0 {
		return fmt.Errorf("%w: empty band list", ErrConfig)
	}
	if c.NativeFS <= 0 {
		return fmt.Errorf("%w: native_fs must be positive, got %d", ErrConfig, c.NativeFS)
	}
	if c.NewFS <= 0 {
		return fmt.Errorf("%w: new_fs must be positive, got %d", ErrConfig, c.NewFS)
	}
	if c.SampleLength <= 0 {
		return fmt.Errorf("%w: sample_length must be positive, got %d", ErrConfig, c.SampleLength)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("%w: batch_size must not be negative, got %d", ErrConfig, c.BatchSize)
	}

	nyquist := float64(c.NativeFS) / 2
	for i, band := range c.Bands {
		if band.Low <= 0 || band.High >= nyquist || band.Low >= band.High {
			return fmt.Errorf("%w: band %d [%g, %g] must satisfy 0 < low < high < %g", ErrConfig, i, band.Low, band.High, nyquist)
		}
	}

	switch c.Norm {
	case NormSample, NormHour, NormBatch:
	default:
		return fmt.Errorf("%w: unknown norm %q", ErrConfig, c.Norm)
	}

	switch c.MissingChannelFill {
	case FillZero, FillNaN:
	default:
		return fmt.Errorf("%w: unknown missing_channel_fill %q", ErrConfig, c.MissingChannelFill)
	}

	for _, ch := range c.DeadChannels {
		if ch < 0 || ch >= GridChannels {
			return fmt.Errorf("%w: dead channel %d outside the %d channel grid", ErrConfig, ch, GridChannels)
		}
	}

	return nil
}

// ChunkSamples is the number of native samples in one chunk.
func (c Config) ChunkSamples() int {
	return c.SampleLength * c.NativeFS
}

// ResampledSamples is the number of time points in one processed sample.
func (c Config) ResampledSamples() int {
	return c.SampleLength * c.NewFS
}
