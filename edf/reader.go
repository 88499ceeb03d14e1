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
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Reader reads EDF/EDF+ files.
type Reader struct {
	r   io.ReadSeeker
	hdr *Header
}

// Open opens an EDF/EDF+ file for reading. Only the header is parsed, the
// data records are read on demand.
func Open(r io.ReadSeeker) (*Reader, error) {
	reader := bufio.NewReader(r)

	b := make([]byte, 256)
	if _, err := io.ReadFull(reader, b); err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	hdr := &Header{}
	hdr.Version = Version(strings.TrimSpace(string(b[0:8])))
	hdr.PatientID = strings.TrimSpace(string(b[8:88]))
	hdr.RecordingID = strings.TrimSpace(string(b[88:168]))
	dateStr := strings.TrimSpace(string(b[168:176]))
	timeStr := strings.TrimSpace(string(b[176:184]))

	startDate, err := time.Parse("02.01.06", dateStr)
	if err != nil {
		return nil, fmt.Errorf("error parsing start date: %w", err)
	}
	startTime, err := time.Parse("15.04.05", timeStr)
	if err != nil {
		return nil, fmt.Errorf("error parsing start time: %w", err)
	}
	hdr.StartTime = time.Date(startDate.Year(), startDate.Month(), startDate.Day(),
		startTime.Hour(), startTime.Minute(), startTime.Second(), 0, time.UTC)

	if hdr.HeaderBytes, err = strconv.Atoi(strings.TrimSpace(string(b[184:192]))); err != nil {
		return nil, fmt.Errorf("error parsing header bytes: %w", err)
	}

	if hdr.DataRecords, err = strconv.Atoi(strings.TrimSpace(string(b[236:244]))); err != nil {
		return nil, fmt.Errorf("error parsing number of data records: %w", err)
	}

	hdr.DataRecordDuration, err = time.ParseDuration(strings.TrimSpace(string(b[244:252])) + "s")
	if err != nil {
		return nil, fmt.Errorf("error parsing data record duration: %w", err)
	}

	if hdr.SignalCount, err = strconv.Atoi(strings.TrimSpace(string(b[252:256]))); err != nil {
		return nil, fmt.Errorf("error parsing signal count: %w", err)
	}
	if hdr.SignalCount < 0 {
		return nil, fmt.Errorf("invalid signal count %d", hdr.SignalCount)
	}

	hdr.Signals = make([]Signal, hdr.SignalCount)

	// Signal headers are stored field by field, each field repeated for
	// every signal before the next field starts.
	fields := []struct {
		width int
		set   func(sig *Signal, v string)
	}{
		{16, func(sig *Signal, v string) { sig.Label = v }},
		{80, func(sig *Signal, v string) { sig.TransducerType = v }},
		{8, func(sig *Signal, v string) { sig.PhysicalDimension = v }},
		{8, func(sig *Signal, v string) { sig.PhysicalMin = parseFloat(v) }},
		{8, func(sig *Signal, v string) { sig.PhysicalMax = parseFloat(v) }},
		{8, func(sig *Signal, v string) { sig.DigitalMin = parseInt(v) }},
		{8, func(sig *Signal, v string) { sig.DigitalMax = parseInt(v) }},
		{80, func(sig *Signal, v string) { sig.Prefiltering = v }},
		{8, func(sig *Signal, v string) { sig.SamplesPerRecord = parseInt(v) }},
		{32, func(sig *Signal, v string) { sig.Reserved = v }},
	}

	for _, field := range fields {
		b := make([]byte, field.width)
		for i := range hdr.Signals {
			if _, err := io.ReadFull(reader, b); err != nil {
				return nil, fmt.Errorf("error reading signal headers: %w", err)
			}
			field.set(&hdr.Signals[i], strings.TrimSpace(string(b)))
		}
	}

	return &Reader{
		r:   r,
		hdr: hdr,
	}, nil
}

// Header returns the parsed file header.
func (er *Reader) Header() *Header {
	return er.hdr
}

// Labels returns the signal labels in file order.
func (er *Reader) Labels() []string {
	labels := make([]string, len(er.hdr.Signals))
	for i, sig := range er.hdr.Signals {
		labels[i] = sig.Label
	}
	return labels
}

// Duration returns the recording duration in seconds, derived from the header.
func (er *Reader) Duration() float64 {
	return er.hdr.Duration()
}

// ReadRange returns the physical values of samples [start, stop) of a signal.
// Reading past the end of the recording returns fewer samples than requested
// and no error.
func (er *Reader) ReadRange(signalIndex, start, stop int) ([]float64, error) {
	if signalIndex < 0 || signalIndex >= len(er.hdr.Signals) {
		return nil, fmt.Errorf("signal index %d out of range", signalIndex)
	}
	if start < 0 || stop < start {
		return nil, fmt.Errorf("invalid sample range [%d, %d)", start, stop)
	}

	signal := er.hdr.Signals[signalIndex]
	spr := signal.SamplesPerRecord
	if spr <= 0 || er.hdr.DataRecords <= 0 {
		return []float64{}, nil
	}

	total := er.hdr.DataRecords * spr
	if stop > total {
		stop = total
	}
	if start >= stop {
		return []float64{}, nil
	}

	recordSize := er.hdr.recordSize()
	signalOffset := 0
	for _, sig := range er.hdr.Signals[:signalIndex] {
		signalOffset += sig.SamplesPerRecord * 2
	}

	data := make([]float64, 0, stop-start)
	buf := make([]byte, spr*2)
	for pos := start; pos < stop; {
		record, offset := pos/spr, pos%spr
		n := min(spr-offset, stop-pos)

		at := int64(er.hdr.HeaderBytes) + int64(record)*int64(recordSize) + int64(signalOffset) + int64(offset*2)
		if _, err := er.r.Seek(at, io.SeekStart); err != nil {
			return data, fmt.Errorf("error seeking to position: %w", err)
		}

		read, err := io.ReadFull(er.r, buf[:n*2])
		for i := 0; i+1 < read; i += 2 {
			digital := int16(binary.LittleEndian.Uint16(buf[i:]))
			data = append(data, convertDigitalToPhysical(digital, signal.DigitalMin, signal.DigitalMax, signal.PhysicalMin, signal.PhysicalMax))
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			// Truncated file, the header promised more records than exist.
			return data, nil
		}
		if err != nil {
			return data, fmt.Errorf("error reading sample data: %w", err)
		}

		pos += n
	}

	return data, nil
}

// SignalReader reads continuous signal data from an EDF/EDF+ file.
type SignalReader struct {
	er          *Reader
	signalIndex int // Index of the signal to read
	position    int // Next sample to be read
}

// Signal creates a new SignalReader for a specified signal index.
func (er *Reader) Signal(signalIndex int) (*SignalReader, error) {
	if signalIndex < 0 || signalIndex >= len(er.hdr.Signals) {
		return nil, fmt.Errorf("signal index out of range")
	}

	return &SignalReader{
		er:          er,
		signalIndex: signalIndex,
	}, nil
}

// Seek positions the reader at the given sample index.
func (sr *SignalReader) Seek(sample int) error {
	if sample < 0 {
		return fmt.Errorf("invalid sample index %d", sample)
	}
	sr.position = sample
	return nil
}

// Read fills the provided float64 slice with the physical values from the signal.
func (sr *SignalReader) Read(data []float64) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}

	samples, err := sr.er.ReadRange(sr.signalIndex, sr.position, sr.position+len(data))
	n := copy(data, samples)
	sr.position += n
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF // End of data records
	}

	return n, nil
}

// convertDigitalToPhysical converts a digital value from the data record to a physical value using the calibration factors.
func convertDigitalToPhysical(digital int16, dmin, dmax int, pmin, pmax float64) float64 {
	if dmax == dmin {
		return 0 // Avoid division by zero
	}
	return pmin + (float64(digital)-float64(dmin))*(pmax-pmin)/float64(dmax-dmin)
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0.0
	}
	return f
}

func parseInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}
