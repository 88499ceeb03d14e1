// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package manifest lists the recordings of a dataset and resolves them to
// files in a BIDS derivatives tree.
package manifest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrManifest is returned for unreadable or malformed manifests.
var ErrManifest = errors.New("invalid manifest")

// Entry identifies one recording chunk.
type Entry struct {
	Subject int
	Task    int
	Chunk   int
}

// Path resolves the preprocessed EDF of the entry below root, e.g.
// root/sub-01/car/sub-01_task-part003chunk02_desc-preproc_ieeg.edf.
func (e Entry) Path(root string) string {
	subject := fmt.Sprintf("sub-%02d", e.Subject)
	name := fmt.Sprintf("%s_task-part%03dchunk%02d_desc-preproc_ieeg.edf", subject, e.Task, e.Chunk)
	return filepath.Join(root, subject, "car", name)
}

// Manifest is an ordered list of recordings.
type Manifest []Entry

// Load reads the manifest CSV at path.
func Load(path string) (Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifest, err)
	}
	defer f.Close()

	return Read(f)
}

// Read parses a CSV with subject, task and chunk columns. Column order does
// not matter and other columns are ignored.
func Read(r io.Reader) (Manifest, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: error reading header: %w", ErrManifest, err)
	}

	cols := make(map[string]int)
	for i, col := range header {
		cols[strings.TrimSpace(strings.ToLower(col))] = i
	}
	for _, col := range []string{"subject", "task", "chunk"} {
		if _, ok := cols[col]; !ok {
			return nil, fmt.Errorf("%w: required column %q not found", ErrManifest, col)
		}
	}

	var m Manifest
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrManifest, err)
		}

		var e Entry
		for col, dst := range map[string]*int{"subject": &e.Subject, "task": &e.Task, "chunk": &e.Chunk} {
			v, err := strconv.Atoi(strings.TrimSpace(record[cols[col]]))
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %s: %w", ErrManifest, line, col, err)
			}
			*dst = v
		}
		m = append(m, e)
	}

	return m, nil
}

// Select keeps the leading fraction of the manifest.
func (m Manifest) Select(fraction float64) Manifest {
	fraction = max(0, min(1, fraction))
	return m[:int(fraction*float64(len(m)))]
}

// Split divides the manifest into a first part holding int(ratio*len) entries
// and a second part with the rest. With shuffle set the entries are first
// permuted using seed. The receiver is not modified.
func (m Manifest) Split(ratio float64, shuffle bool, seed int64) (Manifest, Manifest) {
	entries := append(Manifest(nil), m...)
	if shuffle {
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(len(entries), func(i, j int) {
			entries[i], entries[j] = entries[j], entries[i]
		})
	}

	ratio = max(0, min(1, ratio))
	cut := int(ratio * float64(len(entries)))
	return entries[:cut], entries[cut:]
}

// Paths resolves every entry below root.
func (m Manifest) Paths(root string) []string {
	paths := make([]string, len(m))
	for i, e := range m {
		paths[i] = e.Path(root)
	}
	return paths
}
