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
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenPSG/ecog"
	"github.com/OpenPSG/ecog/edf"
	"github.com/stretchr/testify/require"
)

const (
	numChannels = 64
	nativeFS    = 512
)

func testConfig() ecog.Config {
	cfg := ecog.DefaultConfig()
	cfg.BatchSize = 32
	cfg.Bands = []ecog.Band{{Low: 4, High: 8}, {Low: 8, High: 13}, {Low: 13, High: 30}, {Low: 30, High: 55}}
	cfg.NewFS = 20
	return cfg
}

// sineData returns 65 channels of (i+1) * sin(pi * t) over seconds of signal,
// with t spaced like numpy.linspace(0, seconds, seconds*fs).
func sineData(seconds int) [][]float64 {
	n := seconds * nativeFS
	data := make([][]float64, numChannels+1)
	for ch := range data {
		data[ch] = make([]float64, n)
		for i := range data[ch] {
			t := float64(i) * float64(seconds) / float64(n-1)
			data[ch][i] = float64(ch+1) * math.Sin(math.Pi*t)
		}
	}
	return data
}

func constantData(channels, samples int, v float64) [][]float64 {
	data := make([][]float64, channels)
	for ch := range data {
		data[ch] = make([]float64, samples)
		for i := range data[ch] {
			data[ch][i] = v
		}
	}
	return data
}

func newDataset(t *testing.T, cfg ecog.Config, labels []string, data [][]float64) *ecog.Dataset {
	t.Helper()

	if labels == nil {
		labels = ecog.CanonicalLabels(len(data))
	}
	src, err := ecog.NewMemorySource(labels, data, nativeFS)
	require.NoError(t, err)

	d, err := ecog.NewDataset(src, cfg)
	require.NoError(t, err)
	return d
}

// writeEDF stores data as an EDF file with half-second records and returns
// its path.
func writeEDF(t *testing.T, labels []string, data [][]float64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sub-01_task-part001chunk01_desc-preproc_ieeg.edf")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, f.Close())
	}()

	const spr = nativeFS / 2
	hdr := edf.Header{
		Version:            edf.Version0,
		PatientID:          "sub-01",
		RecordingID:        "task-part001chunk01",
		StartTime:          time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		DataRecordDuration: 500 * time.Millisecond,
		SignalCount:        len(labels),
	}
	for _, label := range labels {
		hdr.Signals = append(hdr.Signals, edf.Signal{
			Label:             label,
			PhysicalDimension: "uV",
			PhysicalMin:       -1000,
			PhysicalMax:       1000,
			DigitalMin:        -32768,
			DigitalMax:        32767,
			SamplesPerRecord:  spr,
		})
	}

	ew, err := edf.Create(f, hdr)
	require.NoError(t, err)

	for start := 0; start+spr <= len(data[0]); start += spr {
		record := make([][]float64, len(data))
		for ch := range data {
			record[ch] = data[ch][start : start+spr]
		}
		require.NoError(t, ew.WriteRecord(record))
	}
	require.NoError(t, ew.Close())

	return path
}
