// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package dataset holds the hierarchical container of scan runs that
// the compliance audit operates on.
//
// # Description
//
// A Dataset owns immutable RunRecords addressed by the identity tuple
// (subject, session, sequence, run). It exposes deterministic
// traversals (stable sort by identifier) so that audits and reports
// are reproducible regardless of insertion order, plus the pure merge
// used to reconcile independently processed batches and the JSON
// snapshot format those batches are persisted in.
//
// # Thread Safety
//
// A Dataset is not safe for concurrent mutation. The audit engine
// gives each orchestrator invocation exclusive ownership of its
// datasets; concurrent use is safe once no more records are added.
package dataset

import (
	"fmt"
	"sort"

	"github.com/neuroscan-labs/scanqa/services/audit/param"
)

// Identity uniquely addresses one scan run within a dataset.
type Identity struct {
	Subject  string `json:"subject"`
	Session  string `json:"session"`
	Sequence string `json:"sequence"`
	Run      string `json:"run"`
}

// String renders the identity for error messages and log lines.
func (id Identity) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", id.Subject, id.Session, id.Sequence, id.Run)
}

// RunRecord is one scan acquisition: the parameter mapping extracted
// from its headers plus its position in the dataset hierarchy.
//
// Records are immutable once added to a Dataset. Callers must not
// modify Params after Add.
type RunRecord struct {
	Subject  string
	Session  string
	Sequence string
	Run      string

	// EchoTime is an optional stratification key carried from
	// extraction, e.g. for multi-echo sequences.
	EchoTime string

	// Path is the source location of the acquisition, carried through
	// for reporting.
	Path string

	Params map[string]param.Value
}

// Identity returns the record's address tuple.
func (r *RunRecord) Identity() Identity {
	return Identity{Subject: r.Subject, Session: r.Session, Sequence: r.Sequence, Run: r.Run}
}

// equalContent reports structural equality of two records: same
// identity, same parameter mapping. Used by merge collision checks.
func equalContent(a, b *RunRecord) bool {
	if a.Identity() != b.Identity() || a.EchoTime != b.EchoTime {
		return false
	}
	if len(a.Params) != len(b.Params) {
		return false
	}
	for name, av := range a.Params {
		bv, ok := b.Params[name]
		if !ok || !av.Equal(bv) {
			return false
		}
	}
	return true
}

// Dataset is the tree of RunRecords for one named acquisition batch.
type Dataset struct {
	name    string
	source  string
	records map[Identity]*RunRecord
}

// New creates an empty Dataset.
//
// name identifies the batch in reports and snapshot filenames; source
// records where the data came from (a directory, an export id) and is
// informational only.
func New(name, source string) *Dataset {
	return &Dataset{
		name:    name,
		source:  source,
		records: make(map[Identity]*RunRecord),
	}
}

// Name returns the dataset name.
func (d *Dataset) Name() string { return d.name }

// Source returns the informational data-source string.
func (d *Dataset) Source() string { return d.source }

// Len returns the number of runs in the dataset.
func (d *Dataset) Len() int { return len(d.records) }

// IsEmpty reports whether the dataset holds no runs.
func (d *Dataset) IsEmpty() bool { return len(d.records) == 0 }

// Add inserts a record.
//
// Identifiers must be non-empty. Re-adding a structurally identical
// record is a no-op, so partition containers can be populated from
// overlapping walks; a record with the same identity but different
// content is rejected with ErrDuplicateRun.
func (d *Dataset) Add(rec *RunRecord) error {
	if rec == nil {
		return ErrInvalidInput
	}
	id := rec.Identity()
	if id.Subject == "" || id.Session == "" || id.Sequence == "" || id.Run == "" {
		return fmt.Errorf("%w: incomplete identity %q", ErrInvalidInput, id)
	}
	if existing, ok := d.records[id]; ok {
		if equalContent(existing, rec) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrDuplicateRun, id)
	}
	d.records[id] = rec
	return nil
}

// Get returns the record at the given identity.
func (d *Dataset) Get(id Identity) (*RunRecord, bool) {
	rec, ok := d.records[id]
	return rec, ok
}

// SequenceIDs returns all sequence ids present, sorted.
func (d *Dataset) SequenceIDs() []string {
	seen := map[string]struct{}{}
	for id := range d.records {
		seen[id.Sequence] = struct{}{}
	}
	return sortedKeys(seen)
}

// SubjectIDs returns the subjects that have at least one run of the
// given sequence, sorted.
func (d *Dataset) SubjectIDs(sequence string) []string {
	seen := map[string]struct{}{}
	for id := range d.records {
		if id.Sequence == sequence {
			seen[id.Subject] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// AllSubjectIDs returns every subject in the dataset, sorted. The
// batch runner splits on this list.
func (d *Dataset) AllSubjectIDs() []string {
	seen := map[string]struct{}{}
	for id := range d.records {
		seen[id.Subject] = struct{}{}
	}
	return sortedKeys(seen)
}

// TraverseHorizontal returns every run of the given sequence, sorted
// by (subject, session, run).
func (d *Dataset) TraverseHorizontal(sequence string) []*RunRecord {
	var out []*RunRecord
	for id, rec := range d.records {
		if id.Sequence == sequence {
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return out
}

// VerticalVisit is one paired traversal step: the runs of two
// sequences acquired for the same subject and session.
type VerticalVisit struct {
	Subject string
	Session string
	A       *RunRecord
	B       *RunRecord
}

// TraverseVerticalPair pairs the runs of two sequences by (subject,
// session), sorted by subject then session.
//
// When a subject/session has multiple runs of a sequence, the lexically
// first run represents it; re-runs of the same protocol within a
// session are audited horizontally, not against each other.
func (d *Dataset) TraverseVerticalPair(seqA, seqB string) []VerticalVisit {
	type sessionKey struct{ subject, session string }
	firstA := map[sessionKey]*RunRecord{}
	firstB := map[sessionKey]*RunRecord{}

	for id, rec := range d.records {
		key := sessionKey{id.Subject, id.Session}
		switch id.Sequence {
		case seqA:
			if cur, ok := firstA[key]; !ok || id.Run < cur.Run {
				firstA[key] = rec
			}
		case seqB:
			if cur, ok := firstB[key]; !ok || id.Run < cur.Run {
				firstB[key] = rec
			}
		}
	}

	var out []VerticalVisit
	for key, recA := range firstA {
		recB, ok := firstB[key]
		if !ok {
			continue
		}
		out = append(out, VerticalVisit{
			Subject: key.subject,
			Session: key.session,
			A:       recA,
			B:       recB,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].Session < out[j].Session
	})
	return out
}

// Subset returns a new Dataset restricted to the given subjects. Used
// by the batch runner to carve per-worker partitions; records are
// shared, not copied, since they are immutable.
func (d *Dataset) Subset(name string, subjects []string) *Dataset {
	keep := map[string]struct{}{}
	for _, s := range subjects {
		keep[s] = struct{}{}
	}
	out := New(name, d.source)
	for id, rec := range d.records {
		if _, ok := keep[id.Subject]; ok {
			out.records[id] = rec
		}
	}
	return out
}

// Identities returns every identity in the dataset, sorted. Intended
// for tests and snapshot serialization.
func (d *Dataset) Identities() []Identity {
	out := make([]Identity, 0, len(d.records))
	for id := range d.records {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func less(a, b Identity) bool {
	if a.Subject != b.Subject {
		return a.Subject < b.Subject
	}
	if a.Session != b.Session {
		return a.Session < b.Session
	}
	if a.Sequence != b.Sequence {
		return a.Sequence < b.Sequence
	}
	return a.Run < b.Run
}

func sortRecords(recs []*RunRecord) {
	sort.Slice(recs, func(i, j int) bool {
		return less(recs[i].Identity(), recs[j].Identity())
	})
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
