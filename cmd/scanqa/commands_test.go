// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuroscan-labs/scanqa/services/audit/dataset"
	"github.com/neuroscan-labs/scanqa/services/audit/param"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(append([]string{"--quiet"}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

func saveSnapshot(t *testing.T, dir, name string, firstSubject, count int, tr float64) string {
	t.Helper()
	ds := dataset.New(name, "/data/"+name)
	for i := 0; i < count; i++ {
		require.NoError(t, ds.Add(&dataset.RunRecord{
			Subject:  fmt.Sprintf("sub-%02d", firstSubject+i),
			Session:  "ses-01",
			Sequence: "T1w",
			Run:      "run-01",
			Params:   map[string]param.Value{"RepetitionTime": param.Number(tr)},
		}))
	}
	path := filepath.Join(dir, name+dataset.SnapshotExt)
	require.NoError(t, dataset.Save(ds, path))
	return path
}

func TestMergeCommand(t *testing.T) {
	dir := t.TempDir()
	left := saveSnapshot(t, dir, "left", 1, 3, 2.0)
	right := saveSnapshot(t, dir, "right", 4, 3, 2.0)
	out := filepath.Join(dir, "merged"+dataset.SnapshotExt)

	stdout, err := execute(t, "merge", "--out", out, left, right)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Merged 2 snapshots (6 runs)")

	merged, err := dataset.Load(out)
	require.NoError(t, err)
	assert.Equal(t, 6, merged.Len())
}

func TestAuditCommand(t *testing.T) {
	dir := t.TempDir()
	snapshot := saveSnapshot(t, dir, "clean", 1, 4, 2.0)
	outDir := filepath.Join(dir, "out")

	stdout, err := execute(t, "audit", "--output", outDir, snapshot)
	require.NoError(t, err)
	assert.Contains(t, stdout, "100.0% clean (4/4 subjects)")
	assert.FileExists(t, filepath.Join(outDir, "clean_non_compliance_log.json"))
	assert.FileExists(t, filepath.Join(outDir, "audit_history.log"))
}

func TestParallelCommand(t *testing.T) {
	dir := t.TempDir()
	snapshot := saveSnapshot(t, dir, "study", 1, 8, 2.0)
	outDir := filepath.Join(dir, "out")
	staging := filepath.Join(dir, "staging")

	stdout, err := execute(t, "parallel", "--batches", "3",
		"--staging", staging, "--output", outDir, snapshot)
	require.NoError(t, err)
	assert.Contains(t, stdout, "100.0% clean (8/8 subjects)")

	partials, err := filepath.Glob(filepath.Join(staging, "*"+dataset.SnapshotExt))
	require.NoError(t, err)
	assert.Len(t, partials, 3)
}

func TestAuditCommand_MissingSnapshot(t *testing.T) {
	_, err := execute(t, "audit", "--output", t.TempDir(),
		filepath.Join(t.TempDir(), "missing"+dataset.SnapshotExt))
	assert.Error(t, err)
}
