// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/neuroscan-labs/scanqa/services/audit/dataset"
	"github.com/neuroscan-labs/scanqa/services/audit/param"
)

// =============================================================================
// SUMMARY
// =============================================================================

// Summary condenses a horizontal audit for CLI output and history
// records.
type Summary struct {
	AuditID        string
	DatasetName    string
	Complete       bool
	TotalSubjects  int
	CleanSubjects  int
	NonCompliant   []string
	Undetermined   []string
	FlaggedEntries int
}

// Summarize builds a Summary from a horizontal result.
func Summarize(src *dataset.Dataset, result *HorizontalResult) Summary {
	total := len(src.AllSubjectIDs())
	// A subject is clean when none of its runs were flagged or left
	// unjudged; belonging to a dirty sequence alone does not count.
	flagged := map[string]struct{}{}
	for _, entry := range result.Index.Entries() {
		flagged[entry.Key.Subject] = struct{}{}
	}
	for _, subject := range result.Undetermined.AllSubjectIDs() {
		flagged[subject] = struct{}{}
	}
	return Summary{
		AuditID:        result.AuditID,
		DatasetName:    result.DatasetName,
		Complete:       result.Complete(),
		TotalSubjects:  total,
		CleanSubjects:  total - len(flagged),
		NonCompliant:   result.NonCompliant.SequenceIDs(),
		Undetermined:   result.Undetermined.SequenceIDs(),
		FlaggedEntries: result.Index.Len(),
	}
}

// String renders the one-line report printed after an audit.
func (s Summary) String() string {
	percent := 100.0
	if s.TotalSubjects > 0 {
		percent = 100 * float64(s.CleanSubjects) / float64(s.TotalSubjects)
	}
	return fmt.Sprintf(
		"%s: %.1f%% clean (%d/%d subjects), %d non-compliant sequences, %d undetermined sequences, %d flagged parameters",
		s.DatasetName, percent, s.CleanSubjects, s.TotalSubjects,
		len(s.NonCompliant), len(s.Undetermined), s.FlaggedEntries)
}

// =============================================================================
// NON-COMPLIANCE LOG
// =============================================================================

// ncLogEntry is one serialized non-compliance observation.
type ncLogEntry struct {
	Subject     string      `json:"subject"`
	Session     string      `json:"session"`
	Sequence    string      `json:"sequence"`
	RefSequence string      `json:"ref_sequence"`
	Run         string      `json:"run"`
	Value       param.Value `json:"value"`
	Path        string      `json:"path,omitempty"`
}

// ncLog is the on-disk non-compliance log, grouped by parameter.
type ncLog struct {
	AuditID     string                  `json:"audit_id"`
	Dataset     string                  `json:"dataset"`
	GeneratedAt time.Time               `json:"generated_at"`
	Parameters  map[string][]ncLogEntry `json:"parameters"`
}

// GenerateNCLog writes the result's non-compliance index as a JSON
// log named after the dataset, and returns the written path.
func GenerateNCLog(result *HorizontalResult, dir string) (string, error) {
	if result == nil {
		return "", fmt.Errorf("%w: nil result", ErrInvalidInput)
	}
	out := ncLog{
		AuditID:     result.AuditID,
		Dataset:     result.DatasetName,
		GeneratedAt: time.Now().UTC(),
		Parameters:  map[string][]ncLogEntry{},
	}
	for _, entry := range result.Index.Entries() {
		key := entry.Key
		out.Parameters[key.Parameter] = append(out.Parameters[key.Parameter], ncLogEntry{
			Subject:     key.Subject,
			Session:     key.Session,
			Sequence:    key.Sequence,
			RefSequence: key.RefSequence.Label(),
			Run:         key.Run,
			Value:       entry.Value,
			Path:        entry.Path,
		})
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating log directory: %w", err)
	}
	path := filepath.Join(dir, result.DatasetName+"_non_compliance_log.json")
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding non-compliance log: %w", err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("writing non-compliance log: %w", err)
	}
	return path, nil
}

// =============================================================================
// SUBJECT LISTS
// =============================================================================

// slug reduces a sequence id to a filename-safe ascii token.
func slug(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r - 'A' + 'a')
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// ExportSubjectLists writes one text file per flagged sequence
// listing its non-compliant subject ids, and returns the written
// paths sorted by sequence.
func ExportSubjectLists(result *HorizontalResult, dir string) ([]string, error) {
	if result == nil {
		return nil, fmt.Errorf("%w: nil result", ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating subject list directory: %w", err)
	}

	flagged := map[string]struct{}{}
	for _, entry := range result.Index.Entries() {
		flagged[entry.Key.Sequence] = struct{}{}
	}
	sequences := make([]string, 0, len(flagged))
	for seqID := range flagged {
		sequences = append(sequences, seqID)
	}
	sort.Strings(sequences)

	var paths []string
	for _, seqID := range sequences {
		subjects := result.Index.Subjects(seqID)
		path := filepath.Join(dir, slug(seqID)+"_subjects.txt")
		content := strings.Join(subjects, "\n") + "\n"
		if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
			return nil, fmt.Errorf("writing subject list: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// =============================================================================
// AUDIT HISTORY
// =============================================================================

// historyFileName is the per-output-directory audit history log.
const historyFileName = "audit_history.log"

// appendHistory records one audit invocation in the output
// directory's history file.
func appendHistory(dir, auditID, snapshotPath string, at time.Time) error {
	f, err := os.OpenFile(filepath.Join(dir, historyFileName),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("opening audit history: %w", err)
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "%s\t%s\t%s\n",
		at.Format(time.RFC3339), auditID, snapshotPath)
	if err != nil {
		return fmt.Errorf("appending audit history: %w", err)
	}
	return nil
}

// =============================================================================
// FULL COMPLIANCE CHECK
// =============================================================================

// Report bundles everything one CheckCompliance call produced.
type Report struct {
	Horizontal   *HorizontalResult
	Vertical     *VerticalResult
	Summary      Summary
	SnapshotPath string
	NCLogPath    string
}

// CheckCompliance runs the full audit pipeline: snapshot the dataset,
// run the horizontal audit, run the vertical audit when configured,
// export the non-compliance log and record the invocation in the
// output directory's history.
func (a *Auditor) CheckCompliance(ds *dataset.Dataset, outputDir string) (*Report, error) {
	if err := validateDataset(ds); err != nil {
		return nil, err
	}
	if outputDir == "" {
		return nil, fmt.Errorf("%w: empty output directory", ErrInvalidInput)
	}
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	snapshotPath := filepath.Join(outputDir, ds.Name()+dataset.SnapshotExt)
	if err := dataset.Save(ds, snapshotPath); err != nil {
		return nil, fmt.Errorf("saving dataset snapshot: %w", err)
	}

	horizontal, err := a.HorizontalAudit(ds)
	if err != nil {
		return nil, err
	}

	var vertical *VerticalResult
	if a.cfg.Vertical != nil {
		vertical, err = a.VerticalAudit(ds)
		if err != nil {
			return nil, err
		}
	}

	ncLogPath, err := GenerateNCLog(horizontal, outputDir)
	if err != nil {
		return nil, err
	}
	if err := appendHistory(outputDir, horizontal.AuditID, snapshotPath, horizontal.CompletedAt); err != nil {
		return nil, err
	}

	summary := Summarize(ds, horizontal)
	a.log.Info("compliance check finished", "summary", summary.String())

	return &Report{
		Horizontal:   horizontal,
		Vertical:     vertical,
		Summary:      summary,
		SnapshotPath: snapshotPath,
		NCLogPath:    ncLogPath,
	}, nil
}
