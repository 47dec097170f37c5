// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuroscan-labs/scanqa/services/audit/param"
)

// run builds a RunRecord with a minimal parameter set.
func run(t *testing.T, subject, session, sequence, runID string, tr float64) *RunRecord {
	t.Helper()
	return &RunRecord{
		Subject:  subject,
		Session:  session,
		Sequence: sequence,
		Run:      runID,
		Params: map[string]param.Value{
			"RepetitionTime": param.Number(tr),
			"Manufacturer":   param.String_("SIEMENS"),
		},
	}
}

func TestDataset_AddAndQuery(t *testing.T) {
	ds := New("study", "/data/study")

	require.NoError(t, ds.Add(run(t, "sub-02", "ses-01", "T1w", "1", 2.0)))
	require.NoError(t, ds.Add(run(t, "sub-01", "ses-01", "T1w", "1", 2.0)))
	require.NoError(t, ds.Add(run(t, "sub-01", "ses-01", "rs-fMRI", "1", 0.8)))

	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, []string{"T1w", "rs-fMRI"}, ds.SequenceIDs())
	assert.Equal(t, []string{"sub-01", "sub-02"}, ds.SubjectIDs("T1w"))
	assert.Equal(t, []string{"sub-01"}, ds.SubjectIDs("rs-fMRI"))
	assert.Equal(t, []string{"sub-01", "sub-02"}, ds.AllSubjectIDs())
}

func TestDataset_AddRejectsIncompleteIdentity(t *testing.T) {
	ds := New("study", "")
	err := ds.Add(&RunRecord{Subject: "sub-01", Sequence: "T1w", Run: "1"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, ds.Add(nil), ErrInvalidInput)
}

func TestDataset_AddDuplicate(t *testing.T) {
	ds := New("study", "")
	rec := run(t, "sub-01", "ses-01", "T1w", "1", 2.0)
	require.NoError(t, ds.Add(rec))

	// Identical content is a no-op.
	require.NoError(t, ds.Add(run(t, "sub-01", "ses-01", "T1w", "1", 2.0)))
	assert.Equal(t, 1, ds.Len())

	// Same identity, different content is rejected.
	err := ds.Add(run(t, "sub-01", "ses-01", "T1w", "1", 1.5))
	assert.ErrorIs(t, err, ErrDuplicateRun)
}

func TestDataset_TraverseHorizontalDeterministic(t *testing.T) {
	ds := New("study", "")
	// Insert out of order on purpose.
	require.NoError(t, ds.Add(run(t, "sub-03", "ses-01", "T1w", "1", 2.0)))
	require.NoError(t, ds.Add(run(t, "sub-01", "ses-02", "T1w", "1", 2.0)))
	require.NoError(t, ds.Add(run(t, "sub-01", "ses-01", "T1w", "2", 2.0)))
	require.NoError(t, ds.Add(run(t, "sub-01", "ses-01", "T1w", "1", 2.0)))
	require.NoError(t, ds.Add(run(t, "sub-02", "ses-01", "rs-fMRI", "1", 0.8)))

	recs := ds.TraverseHorizontal("T1w")
	require.Len(t, recs, 4)
	var order []Identity
	for _, rec := range recs {
		order = append(order, rec.Identity())
	}
	assert.Equal(t, []Identity{
		{"sub-01", "ses-01", "T1w", "1"},
		{"sub-01", "ses-01", "T1w", "2"},
		{"sub-01", "ses-02", "T1w", "1"},
		{"sub-03", "ses-01", "T1w", "1"},
	}, order)

	assert.Empty(t, ds.TraverseHorizontal("dwi"))
}

func TestDataset_TraverseVerticalPair(t *testing.T) {
	ds := New("study", "")
	require.NoError(t, ds.Add(run(t, "sub-01", "ses-01", "rs-fMRI", "1", 0.8)))
	require.NoError(t, ds.Add(run(t, "sub-01", "ses-01", "fmap", "1", 0.5)))
	require.NoError(t, ds.Add(run(t, "sub-02", "ses-01", "rs-fMRI", "1", 0.8)))
	// sub-02 has no fmap: no pair.
	require.NoError(t, ds.Add(run(t, "sub-03", "ses-01", "fmap", "1", 0.5)))
	// sub-03 has no rs-fMRI: no pair.

	visits := ds.TraverseVerticalPair("rs-fMRI", "fmap")
	require.Len(t, visits, 1)
	assert.Equal(t, "sub-01", visits[0].Subject)
	assert.Equal(t, "rs-fMRI", visits[0].A.Sequence)
	assert.Equal(t, "fmap", visits[0].B.Sequence)
}

func TestDataset_TraverseVerticalPairPicksFirstRun(t *testing.T) {
	ds := New("study", "")
	require.NoError(t, ds.Add(run(t, "sub-01", "ses-01", "rs-fMRI", "2", 0.8)))
	require.NoError(t, ds.Add(run(t, "sub-01", "ses-01", "rs-fMRI", "1", 0.8)))
	require.NoError(t, ds.Add(run(t, "sub-01", "ses-01", "fmap", "1", 0.5)))

	visits := ds.TraverseVerticalPair("rs-fMRI", "fmap")
	require.Len(t, visits, 1)
	assert.Equal(t, "1", visits[0].A.Run)
}

func TestDataset_Subset(t *testing.T) {
	ds := New("study", "/data")
	require.NoError(t, ds.Add(run(t, "sub-01", "ses-01", "T1w", "1", 2.0)))
	require.NoError(t, ds.Add(run(t, "sub-02", "ses-01", "T1w", "1", 2.0)))
	require.NoError(t, ds.Add(run(t, "sub-03", "ses-01", "T1w", "1", 2.0)))

	sub := ds.Subset("study_batch0", []string{"sub-01", "sub-03"})
	assert.Equal(t, 2, sub.Len())
	assert.Equal(t, []string{"sub-01", "sub-03"}, sub.AllSubjectIDs())
	assert.Equal(t, "study_batch0", sub.Name())
	// Original untouched.
	assert.Equal(t, 3, ds.Len())
}
