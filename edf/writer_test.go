// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenPSG/ecog/edf"
	"github.com/stretchr/testify/require"
)

func TestWriterFractionalRecords(t *testing.T) {
	f, err := os.OpenFile(filepath.Join(t.TempDir(), "grid.edf"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, f.Close())
	})

	start := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	signals := make([]edf.Signal, 3)
	for i, label := range []string{"G1", "G2", "EKG"} {
		signals[i] = edf.Signal{
			Label:             label,
			TransducerType:    "ECoG grid electrode",
			PhysicalDimension: "uV",
			PhysicalMin:       -1000,
			PhysicalMax:       1000,
			DigitalMin:        -2048,
			DigitalMax:        2047,
			SamplesPerRecord:  256,
		}
	}

	ew, err := edf.Create(f, edf.Header{
		Version:            edf.Version0,
		PatientID:          "sub-01",
		RecordingID:        "task-part001chunk01",
		StartTime:          start,
		DataRecordDuration: 500 * time.Millisecond,
		SignalCount:        len(signals),
		Signals:            signals,
	})
	require.NoError(t, err)

	// Signal s holds s*300 + its sample index, the EKG channel goes negative.
	for r := 0; r < 4; r++ {
		record := make([][]float64, len(signals))
		for s := range record {
			record[s] = make([]float64, 256)
			for i := range record[s] {
				v := float64(s*300 + r*256 + i)
				if s == 2 {
					v = -v
				}
				record[s][i] = min(v, 999)
			}
		}
		require.NoError(t, ew.WriteRecord(record))
	}
	require.NoError(t, ew.Close())

	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)

	er, err := edf.Open(f)
	require.NoError(t, err)

	hdr := er.Header()
	require.Equal(t, 4, hdr.DataRecords)
	require.Equal(t, 500*time.Millisecond, hdr.DataRecordDuration)
	require.Equal(t, 2.0, er.Duration())
	require.Equal(t, 512.0, hdr.SampleRate(0))
	require.Equal(t, start, hdr.StartTime)
	require.Equal(t, []string{"G1", "G2", "EKG"}, er.Labels())

	// Quantization step is 2000/4095.
	samples, err := er.ReadRange(1, 200, 300)
	require.NoError(t, err)
	require.Len(t, samples, 100)
	for i, v := range samples {
		require.InDelta(t, float64(300+200+i), v, 0.5)
	}

	samples, err = er.ReadRange(2, 1000, 1100)
	require.NoError(t, err)
	require.Len(t, samples, 24)
	// Clamped to the physical minimum.
	for _, v := range samples {
		require.Equal(t, -1000.0, v)
	}

	sr, err := er.Signal(0)
	require.NoError(t, err)

	all := make([]float64, 1024)
	n, err := sr.Read(all)
	require.NoError(t, err)
	require.Equal(t, 1024, n)
	require.InDelta(t, 999, all[1023], 0.5)

	_, err = sr.Read(all)
	require.Equal(t, io.EOF, err)
}

func TestWriterRejectsWrongSampleCount(t *testing.T) {
	f, err := os.OpenFile(filepath.Join(t.TempDir(), "test.edf"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, f.Close())
	})

	ew, err := edf.Create(f, edf.Header{
		Version:            edf.Version0,
		StartTime:          time.Now(),
		DataRecordDuration: time.Second,
		SignalCount:        1,
		Signals:            []edf.Signal{{Label: "G1", PhysicalMin: -1, PhysicalMax: 1, DigitalMin: -32768, DigitalMax: 32767, SamplesPerRecord: 4}},
	})
	require.NoError(t, err)

	require.Error(t, ew.WriteRecord([][]float64{{0, 0, 0}}))
	require.Error(t, ew.WriteRecord([][]float64{{0, 0, 0, 0}, {0, 0, 0, 0}}))
}

func TestWriterRejectsOversizedRecords(t *testing.T) {
	f, err := os.OpenFile(filepath.Join(t.TempDir(), "test.edf"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, f.Close())
	})

	signals := make([]edf.Signal, 64)
	for i := range signals {
		signals[i] = edf.Signal{Label: "G1", SamplesPerRecord: 512}
	}

	_, err = edf.Create(f, edf.Header{
		Version:            edf.Version0,
		StartTime:          time.Now(),
		DataRecordDuration: time.Second,
		SignalCount:        len(signals),
		Signals:            signals,
	})
	require.Error(t, err)
}
