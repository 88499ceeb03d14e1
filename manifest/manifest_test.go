// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package manifest_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OpenPSG/ecog/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `Subject, Task ,chunk,notes
1,3,2,first
1,3,3,
2,1,1,long recording
3,7,10,
`

func TestRead(t *testing.T) {
	m, err := manifest.Read(strings.NewReader(testManifest))
	require.NoError(t, err)

	assert.Equal(t, manifest.Manifest{
		{Subject: 1, Task: 3, Chunk: 2},
		{Subject: 1, Task: 3, Chunk: 3},
		{Subject: 2, Task: 1, Chunk: 1},
		{Subject: 3, Task: 7, Chunk: 10},
	}, m)
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"empty", ""},
		{"missing column", "subject,task\n1,2\n"},
		{"not a number", "subject,task,chunk\n1,two,3\n"},
		{"ragged", "subject,task,chunk\n1,2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manifest.Read(strings.NewReader(tt.csv))
			require.ErrorIs(t, err, manifest.ErrManifest)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.csv")
	require.NoError(t, os.WriteFile(path, []byte(testManifest), 0o644))

	m, err := manifest.Load(path)
	require.NoError(t, err)
	assert.Len(t, m, 4)

	_, err = manifest.Load(filepath.Join(t.TempDir(), "missing.csv"))
	require.ErrorIs(t, err, manifest.ErrManifest)
}

func TestEntryPath(t *testing.T) {
	e := manifest.Entry{Subject: 1, Task: 3, Chunk: 2}
	assert.Equal(t,
		filepath.Join("data", "sub-01", "car", "sub-01_task-part003chunk02_desc-preproc_ieeg.edf"),
		e.Path("data"))

	m := manifest.Manifest{e, {Subject: 12, Task: 100, Chunk: 11}}
	assert.Equal(t, []string{
		e.Path("data"),
		filepath.Join("data", "sub-12", "car", "sub-12_task-part100chunk11_desc-preproc_ieeg.edf"),
	}, m.Paths("data"))
}

func TestSelect(t *testing.T) {
	m := make(manifest.Manifest, 10)
	for i := range m {
		m[i] = manifest.Entry{Subject: i}
	}

	assert.Len(t, m.Select(1), 10)
	assert.Len(t, m.Select(0.55), 5)
	assert.Empty(t, m.Select(0))
	assert.Len(t, m.Select(2), 10)
	assert.Equal(t, m[:3], m.Select(0.3))
}

func TestSplit(t *testing.T) {
	m := make(manifest.Manifest, 10)
	for i := range m {
		m[i] = manifest.Entry{Subject: i}
	}
	original := append(manifest.Manifest(nil), m...)

	t.Run("ordered", func(t *testing.T) {
		train, test := m.Split(0.8, false, 1)
		assert.Equal(t, m[:8], train)
		assert.Equal(t, m[8:], test)
	})

	t.Run("shuffled", func(t *testing.T) {
		train, test := m.Split(0.8, true, 42)
		require.Len(t, train, 8)
		require.Len(t, test, 2)
		assert.ElementsMatch(t, m, append(append(manifest.Manifest(nil), train...), test...))

		again, _ := m.Split(0.8, true, 42)
		assert.Equal(t, train, again)
		assert.Equal(t, original, m)
	})

	t.Run("bounds", func(t *testing.T) {
		train, test := m.Split(1, false, 0)
		assert.Len(t, train, 10)
		assert.Empty(t, test)

		train, test = m.Split(-1, false, 0)
		assert.Empty(t, train)
		assert.Len(t, test, 10)
	})
}
