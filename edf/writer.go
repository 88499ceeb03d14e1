// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
)

// MaxRecordBytes is the data record size limit recommended by the EDF standard.
const MaxRecordBytes = 61440

// Writer writes EDF files.
type Writer struct {
	w           io.WriteSeeker
	hdr         *Header
	dataRecords int // Number of data records written so far.
}

// Create creates a new EDF writer that writes to the given writer.
func Create(w io.WriteSeeker, hdr Header) (*Writer, error) {
	if hdr.SignalCount != len(hdr.Signals) {
		return nil, fmt.Errorf("signal count %d does not match %d signal definitions", hdr.SignalCount, len(hdr.Signals))
	}
	if hdr.DataRecordDuration <= 0 {
		return nil, fmt.Errorf("data record duration must be positive")
	}
	if size := hdr.recordSize(); size > MaxRecordBytes {
		return nil, fmt.Errorf("data record too large: %d bytes, max is %d bytes", size, MaxRecordBytes)
	}

	hdr.DataRecords = -1 // Unknown number of data records (at this time).
	hdr.Signals = append([]Signal(nil), hdr.Signals...)

	ew := &Writer{w: w, hdr: &hdr}

	if err := ew.writeHeader(); err != nil {
		return nil, fmt.Errorf("error writing header: %w", err)
	}

	return ew, nil
}

// Close finalizes the EDF file by updating the header with the total number of data records.
func (ew *Writer) Close() error {
	ew.hdr.DataRecords = ew.dataRecords
	if err := ew.writeHeader(); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	return nil
}

// WriteRecord writes a single data record to the EDF file. Every signal must
// carry exactly its SamplesPerRecord physical values.
func (ew *Writer) WriteRecord(signals [][]float64) error {
	if len(signals) != ew.hdr.SignalCount {
		return fmt.Errorf("expected %d signals, got %d", ew.hdr.SignalCount, len(signals))
	}
	for i, signal := range signals {
		if want := ew.hdr.Signals[i].SamplesPerRecord; len(signal) != want {
			return fmt.Errorf("signal %d: expected %d samples, got %d", i, want, len(signal))
		}
	}

	// Records are appended after whatever was written last (the header
	// rewrite in Close seeks back to the start).
	offset := int64(ew.hdr.HeaderBytes) + int64(ew.dataRecords)*int64(ew.hdr.recordSize())
	if _, err := ew.w.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	writer := bufio.NewWriter(ew.w)

	buf := make([]byte, 2)
	for i, signal := range ew.hdr.Signals {
		for _, sample := range signals[i] {
			digitalValue := convertPhysicalToDigital(sample, signal.PhysicalMin, signal.PhysicalMax, signal.DigitalMin, signal.DigitalMax)
			binary.LittleEndian.PutUint16(buf, uint16(digitalValue))
			if _, err := writer.Write(buf); err != nil {
				return err
			}
		}
	}

	if err := writer.Flush(); err != nil {
		return err
	}

	ew.dataRecords++
	return nil
}

// writeHeader writes the EDF header at the start of the underlying writer.
func (ew *Writer) writeHeader() error {
	if _, err := ew.w.Seek(0, io.SeekStart); err != nil {
		return err
	}

	writer := bufio.NewWriter(ew.w)
	ew.hdr.HeaderBytes = 256 + (ew.hdr.SignalCount * 256)

	fixed := []string{
		fmt.Sprintf("%-8s", ew.hdr.Version),
		fmt.Sprintf("%-80s", ew.hdr.PatientID),
		fmt.Sprintf("%-80s", ew.hdr.RecordingID),
		fmt.Sprintf("%-8s", ew.hdr.StartTime.Format("02.01.06")),
		fmt.Sprintf("%-8s", ew.hdr.StartTime.Format("15.04.05")),
		fmt.Sprintf("%-8d", ew.hdr.HeaderBytes),
		fmt.Sprintf("%-44s", ""), // Reserved
		fmt.Sprintf("%-8d", ew.hdr.DataRecords),
		formatDuration(ew.hdr.DataRecordDuration.Seconds()),
		fmt.Sprintf("%-4d", ew.hdr.SignalCount),
	}
	for _, s := range fixed {
		if _, err := writer.WriteString(s); err != nil {
			return err
		}
	}

	fields := []func(sig Signal) string{
		func(sig Signal) string { return fmt.Sprintf("%-16s", sig.Label) },
		func(sig Signal) string { return fmt.Sprintf("%-80s", sig.TransducerType) },
		func(sig Signal) string { return fmt.Sprintf("%-8s", sig.PhysicalDimension) },
		func(sig Signal) string { return formatPhysicalValue(sig.PhysicalMin) },
		func(sig Signal) string { return formatPhysicalValue(sig.PhysicalMax) },
		func(sig Signal) string { return fmt.Sprintf("%-8d", sig.DigitalMin) },
		func(sig Signal) string { return fmt.Sprintf("%-8d", sig.DigitalMax) },
		func(sig Signal) string { return fmt.Sprintf("%-80s", sig.Prefiltering) },
		func(sig Signal) string { return fmt.Sprintf("%-8d", sig.SamplesPerRecord) },
		func(Signal) string { return fmt.Sprintf("%-32s", "") }, // Reserved
	}
	for _, field := range fields {
		for _, signal := range ew.hdr.Signals {
			if _, err := writer.WriteString(field(signal)); err != nil {
				return err
			}
		}
	}

	return writer.Flush()
}

// convertPhysicalToDigital converts a physical value to a digital value using the calibration factors.
func convertPhysicalToDigital(physical float64, pmin, pmax float64, dmin, dmax int) int16 {
	if pmax == pmin {
		return 0 // Avoid division by zero
	}
	digital := math.Round(((physical - pmin) * (float64(dmax - dmin)) / (pmax - pmin)) + float64(dmin))
	digital = math.Max(float64(dmin), math.Min(float64(dmax), digital))
	return int16(digital)
}

func formatPhysicalValue(val float64) string {
	// Try with 2 decimal places
	s := fmt.Sprintf("%.2f", val)
	if len(s) > 8 {
		// Fall back to no decimal
		s = fmt.Sprintf("%.0f", val)
	}
	return fmt.Sprintf("%-8s", s)
}

// formatDuration renders a record duration in seconds within the 8 byte field,
// keeping fractional durations such as 0.5.
func formatDuration(secs float64) string {
	s := strconv.FormatFloat(secs, 'f', -1, 64)
	if len(s) > 8 {
		s = s[:8]
	}
	return fmt.Sprintf("%-8s", s)
}
