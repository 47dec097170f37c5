// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuroscan-labs/scanqa/services/audit/param"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	ds := New("study", "/data/study")
	rec := run(t, "sub-01", "ses-01", "T1w", "1", 2.0)
	rec.EchoTime = "0.03"
	rec.Path = "/data/study/sub-01/T1w"
	rec.Params["ShimSetting"] = param.Tuple(param.Number(1), param.Number(2), param.Number(3))
	rec.Params["MultibandFactor"] = param.Unspecified()
	require.NoError(t, ds.Add(rec))
	require.NoError(t, ds.Add(run(t, "sub-02", "ses-01", "T1w", "1", 2.0)))

	path := filepath.Join(t.TempDir(), "study"+SnapshotExt)
	require.NoError(t, Save(ds, path))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "study", back.Name())
	assert.Equal(t, "/data/study", back.Source())
	assert.True(t, Equal(ds, back))

	got, ok := back.Get(Identity{"sub-01", "ses-01", "T1w", "1"})
	require.True(t, ok)
	assert.Equal(t, "0.03", got.EchoTime)
	assert.Equal(t, "/data/study/sub-01/T1w", got.Path)
	assert.True(t, got.Params["MultibandFactor"].IsUnspecified())
}

func TestSave_RejectsWrongExtension(t *testing.T) {
	ds := New("study", "")
	err := Save(ds, filepath.Join(t.TempDir(), "study.json"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSave_CreatesParentDirs(t *testing.T) {
	ds := New("study", "")
	path := filepath.Join(t.TempDir(), "nested", "dir", "study"+SnapshotExt)
	require.NoError(t, Save(ds, path))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad"+SnapshotExt)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0640))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrBadSnapshot)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing"+SnapshotExt))
	assert.Error(t, err)
}
